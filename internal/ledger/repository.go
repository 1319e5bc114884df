package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtauto/dtauto/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListVehicles returns the vehicle attributes the engines consume.
func (r *Repository) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_price, target_price, minimum_price, sale_price, status, shipment_id, sale_date FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vehicles []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.PurchasePrice, &v.TargetPrice, &v.MinimumPrice, &v.SalePrice, &v.Status, &v.ShipmentID, &v.SaleDate); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// ListCosts returns every ledger entry.
func (r *Repository) ListCosts(ctx context.Context) ([]Cost, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, amount, vehicle_id, shipment_id FROM costs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var costs []Cost
	for rows.Next() {
		var c Cost
		if err := rows.Scan(&c.ID, &c.Amount, &c.VehicleID, &c.ShipmentID); err != nil {
			return nil, err
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// ListShipments returns shipment identities for allocation.
func (r *Repository) ListShipments(ctx context.Context) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM shipments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var shipments []Shipment
	for rows.Next() {
		var s Shipment
		if err := rows.Scan(&s.ID); err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}
	return shipments, rows.Err()
}

// GetDistributionByVehicle returns the distribution for a vehicle, nil when
// none exists.
func (r *Repository) GetDistributionByVehicle(ctx context.Context, vehicleID int64) (*Distribution, error) {
	var d Distribution
	err := r.pool.QueryRow(ctx, `SELECT id, vehicle_id, gross_profit, total_cost, sale_price, reinvestment_amount, reinvestment_phase, cumulative_reinvestment, sale_date, created_at
FROM profit_distributions WHERE vehicle_id = $1`, vehicleID).
		Scan(&d.ID, &d.VehicleID, &d.GrossProfit, &d.TotalCost, &d.SalePrice, &d.ReinvestmentAmount, &d.ReinvestmentPhase, &d.CumulativeReinvestment, &d.SaleDate, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// ListDistributions returns all distributions ordered by sale date.
func (r *Repository) ListDistributions(ctx context.Context) ([]Distribution, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, vehicle_id, gross_profit, total_cost, sale_price, reinvestment_amount, reinvestment_phase, cumulative_reinvestment, sale_date, created_at
FROM profit_distributions ORDER BY sale_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dists []Distribution
	for rows.Next() {
		var d Distribution
		if err := rows.Scan(&d.ID, &d.VehicleID, &d.GrossProfit, &d.TotalCost, &d.SalePrice, &d.ReinvestmentAmount, &d.ReinvestmentPhase, &d.CumulativeReinvestment, &d.SaleDate, &d.CreatedAt); err != nil {
			return nil, err
		}
		dists = append(dists, d)
	}
	return dists, rows.Err()
}

// ListEntries returns the partner entries of a distribution.
func (r *Repository) ListEntries(ctx context.Context, distributionID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, distribution_id, partner, amount, status, payment_id FROM profit_distribution_entries WHERE distribution_id = $1 ORDER BY partner`, distributionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.DistributionID, &e.Partner, &e.Amount, &e.Status, &e.PaymentID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// InsertDistribution inserts the parent record. A unique violation on
// vehicle_id surfaces as ErrAlreadyDistributed.
func (t *txRepo) InsertDistribution(ctx context.Context, dist Distribution) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO profit_distributions (vehicle_id, gross_profit, total_cost, sale_price, reinvestment_amount, reinvestment_phase, cumulative_reinvestment, sale_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		dist.VehicleID, dist.GrossProfit, dist.TotalCost, dist.SalePrice, dist.ReinvestmentAmount, dist.ReinvestmentPhase, dist.CumulativeReinvestment, dist.SaleDate, dist.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrAlreadyDistributed
		}
		return 0, err
	}
	return id, nil
}

// InsertEntry inserts one partner entry.
func (t *txRepo) InsertEntry(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO profit_distribution_entries (distribution_id, partner, amount, status, payment_id)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		entry.DistributionID, entry.Partner, entry.Amount, entry.Status, entry.PaymentID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}
