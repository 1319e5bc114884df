package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtauto/dtauto/internal/ledger"
)

// PgRepository runs the read queries against PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// ListVehicles loads the full vehicle read model.
func (r *PgRepository) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, year, make, model, purchase_price, target_price, minimum_price, sale_price, status, shipment_id, sale_date FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Year, &v.Make, &v.Model, &v.PurchasePrice, &v.TargetPrice, &v.MinimumPrice, &v.SalePrice, &v.Status, &v.ShipmentID, &v.SaleDate); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListCosts loads engine cost snapshots.
func (r *PgRepository) ListCosts(ctx context.Context) ([]ledger.Cost, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, amount, vehicle_id, shipment_id FROM costs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Cost
	for rows.Next() {
		var c ledger.Cost
		if err := rows.Scan(&c.ID, &c.Amount, &c.VehicleID, &c.ShipmentID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListShipments loads engine shipment snapshots.
func (r *PgRepository) ListShipments(ctx context.Context) ([]ledger.Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM shipments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Shipment
	for rows.Next() {
		var s ledger.Shipment
		if err := rows.Scan(&s.ID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListDistributions loads the persisted distribution ledger in sale order.
func (r *PgRepository) ListDistributions(ctx context.Context) ([]ledger.Distribution, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, vehicle_id, gross_profit, total_cost, sale_price, reinvestment_amount, reinvestment_phase, cumulative_reinvestment, sale_date, created_at FROM profit_distributions ORDER BY sale_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Distribution
	for rows.Next() {
		var d ledger.Distribution
		if err := rows.Scan(&d.ID, &d.VehicleID, &d.GrossProfit, &d.TotalCost, &d.SalePrice, &d.ReinvestmentAmount, &d.ReinvestmentPhase, &d.CumulativeReinvestment, &d.SaleDate, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListAllEntries loads every partner entry across distributions.
func (r *PgRepository) ListAllEntries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, distribution_id, partner, amount, status, payment_id FROM profit_distribution_entries ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.ID, &e.DistributionID, &e.Partner, &e.Amount, &e.Status, &e.PaymentID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
