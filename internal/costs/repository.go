package costs

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const costColumns = `id, category, amount, incurred_at, vehicle_id, shipment_id, source, locked, receipt_url, note, created_at, updated_at`

// ListCosts returns entries matching the filter, newest first.
func (r *Repository) ListCosts(ctx context.Context, filter Filter) ([]Cost, error) {
	query := `SELECT ` + costColumns + ` FROM costs`
	var (
		clauses []string
		args    []any
	)
	if filter.VehicleID != nil {
		args = append(args, *filter.VehicleID)
		clauses = append(clauses, `vehicle_id = $1`)
	}
	if filter.ShipmentID != nil {
		args = append(args, *filter.ShipmentID)
		if len(args) == 1 {
			clauses = append(clauses, `shipment_id = $1`)
		} else {
			clauses = append(clauses, `shipment_id = $2`)
		}
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY incurred_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Cost
	for rows.Next() {
		c, err := scanCost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCost fetches by id, nil when absent.
func (r *Repository) GetCost(ctx context.Context, id int64) (*Cost, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+costColumns+` FROM costs WHERE id = $1`, id)
	c, err := scanCost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// InsertCost creates a new entry.
func (r *Repository) InsertCost(ctx context.Context, cost Cost) (*Cost, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO costs (category, amount, incurred_at, vehicle_id, shipment_id, source, locked, receipt_url, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		cost.Category, cost.Amount, cost.IncurredAt, cost.VehicleID, cost.ShipmentID, cost.Source, cost.ReceiptURL, cost.Note).
		Scan(&cost.ID, &cost.CreatedAt, &cost.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cost, nil
}

// UpdateCost persists an edited entry.
func (r *Repository) UpdateCost(ctx context.Context, cost Cost) error {
	_, err := r.pool.Exec(ctx, `UPDATE costs SET category=$2, amount=$3, incurred_at=$4, vehicle_id=$5, shipment_id=$6, receipt_url=$7, note=$8, updated_at=NOW() WHERE id=$1`,
		cost.ID, cost.Category, cost.Amount, cost.IncurredAt, cost.VehicleID, cost.ShipmentID, cost.ReceiptURL, cost.Note)
	return err
}

// DeleteCost removes an entry.
func (r *Repository) DeleteCost(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM costs WHERE id = $1`, id)
	return err
}

// UpsertAutoCost keeps the shipment mirror entry for a category in step with
// the shipment's aggregate field.
func (r *Repository) UpsertAutoCost(ctx context.Context, shipmentID int64, category string, amount float64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO costs (category, amount, incurred_at, shipment_id, source, locked, created_at, updated_at)
VALUES ($1, $2, NOW(), $3, $4, FALSE, NOW(), NOW())
ON CONFLICT (shipment_id, category) WHERE source = 'auto_shipment'
DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()`,
		category, amount, shipmentID, SourceAutoShipment)
	return err
}

// DeleteAutoCost drops the mirror entry when the aggregate field is zeroed.
func (r *Repository) DeleteAutoCost(ctx context.Context, shipmentID int64, category string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM costs WHERE shipment_id = $1 AND category = $2 AND source = $3`, shipmentID, category, SourceAutoShipment)
	return err
}

// LockShipmentScope freezes every cost on the shipment or on any vehicle
// assigned to it, as one batch.
func (r *Repository) LockShipmentScope(ctx context.Context, shipmentID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE costs SET locked = TRUE, updated_at = NOW()
WHERE locked = FALSE AND (shipment_id = $1 OR vehicle_id IN (SELECT id FROM vehicles WHERE shipment_id = $1))`, shipmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ShipmentCleared reports whether the shipment's customs clearance is final.
func (r *Repository) ShipmentCleared(ctx context.Context, shipmentID int64) (bool, error) {
	var cleared bool
	err := r.pool.QueryRow(ctx, `SELECT status IN ('customs_cleared', 'completed') FROM shipments WHERE id = $1`, shipmentID).Scan(&cleared)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return cleared, nil
}

// VehicleShipment resolves the shipment a vehicle is assigned to, nil when
// unassigned.
func (r *Repository) VehicleShipment(ctx context.Context, vehicleID int64) (*int64, error) {
	var shipmentID *int64
	err := r.pool.QueryRow(ctx, `SELECT shipment_id FROM vehicles WHERE id = $1`, vehicleID).Scan(&shipmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return shipmentID, nil
}

func scanCost(row pgx.Row) (Cost, error) {
	var c Cost
	err := row.Scan(&c.ID, &c.Category, &c.Amount, &c.IncurredAt, &c.VehicleID, &c.ShipmentID, &c.Source, &c.Locked, &c.ReceiptURL, &c.Note, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
