package fleet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const vehicleColumns = `id, year, make, model, vin, purchase_price, target_price, minimum_price, sale_price, status, shipment_id, sale_date, buyer_name, buyer_contact, created_at, updated_at`

// ListVehicles returns all vehicles ordered by id.
func (r *Repository) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetVehicle fetches by id, nil when absent.
func (r *Repository) GetVehicle(ctx context.Context, id int64) (*Vehicle, error) {
	v, err := scanVehicle(r.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// GetVehicleByVIN fetches by VIN, nil when absent.
func (r *Repository) GetVehicleByVIN(ctx context.Context, vin string) (*Vehicle, error) {
	v, err := scanVehicle(r.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE vin = $1`, vin))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// InsertVehicle creates a new vehicle. The unique index on vin backs up the
// service-level duplicate check.
func (r *Repository) InsertVehicle(ctx context.Context, v Vehicle) (*Vehicle, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO vehicles (year, make, model, vin, purchase_price, target_price, minimum_price, status, shipment_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		v.Year, v.Make, v.Model, v.VIN, v.PurchasePrice, v.TargetPrice, v.MinimumPrice, v.Status, v.ShipmentID).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrVINExists
		}
		return nil, err
	}
	return &v, nil
}

// UpdateVehicle persists all mutable attributes.
func (r *Repository) UpdateVehicle(ctx context.Context, v Vehicle) error {
	_, err := r.pool.Exec(ctx, `UPDATE vehicles SET year=$2, make=$3, model=$4, purchase_price=$5, target_price=$6, minimum_price=$7, sale_price=$8, status=$9, shipment_id=$10, sale_date=$11, buyer_name=$12, buyer_contact=$13, updated_at=NOW() WHERE id=$1`,
		v.ID, v.Year, v.Make, v.Model, v.PurchasePrice, v.TargetPrice, v.MinimumPrice, v.SalePrice, v.Status, v.ShipmentID, v.SaleDate, v.BuyerName, v.BuyerContact)
	return err
}

// DeleteVehicle removes a vehicle.
func (r *Repository) DeleteVehicle(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	return err
}

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.Year, &v.Make, &v.Model, &v.VIN, &v.PurchasePrice, &v.TargetPrice, &v.MinimumPrice, &v.SalePrice, &v.Status, &v.ShipmentID, &v.SaleDate, &v.BuyerName, &v.BuyerContact, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}
