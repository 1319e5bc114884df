package shipments

import (
	"context"
	"errors"

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

const shipmentColumns = `id, reference, origin, destination, carrier, status, departure_date, arrival_date, ground_transport_cost, customs_broker_fees, ocean_freight_cost, import_fees_cost, bill_of_lading_url, customs_docs_url, created_at, updated_at`

// ListShipments returns all shipments ordered by id.
func (r *Repository) ListShipments(ctx context.Context) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetShipment fetches by id, nil when absent.
func (r *Repository) GetShipment(ctx context.Context, id int64) (*Shipment, error) {
	s, err := scanShipment(r.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// InsertShipment creates a new shipment.
func (r *Repository) InsertShipment(ctx context.Context, s Shipment) (*Shipment, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO shipments (reference, origin, destination, carrier, status, departure_date, arrival_date, ground_transport_cost, customs_broker_fees, ocean_freight_cost, import_fees_cost, bill_of_lading_url, customs_docs_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		s.Reference, s.Origin, s.Destination, s.Carrier, s.Status, s.DepartureDate, s.ArrivalDate,
		s.GroundTransportCost, s.CustomsBrokerFees, s.OceanFreightCost, s.ImportFeesCost,
		s.BillOfLadingURL, s.CustomsDocsURL).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateShipment persists all mutable attributes.
func (r *Repository) UpdateShipment(ctx context.Context, s Shipment) error {
	_, err := r.pool.Exec(ctx, `UPDATE shipments SET reference=$2, origin=$3, destination=$4, carrier=$5, status=$6, departure_date=$7, arrival_date=$8, ground_transport_cost=$9, customs_broker_fees=$10, ocean_freight_cost=$11, import_fees_cost=$12, bill_of_lading_url=$13, customs_docs_url=$14, updated_at=NOW() WHERE id=$1`,
		s.ID, s.Reference, s.Origin, s.Destination, s.Carrier, s.Status, s.DepartureDate, s.ArrivalDate,
		s.GroundTransportCost, s.CustomsBrokerFees, s.OceanFreightCost, s.ImportFeesCost,
		s.BillOfLadingURL, s.CustomsDocsURL)
	return err
}

func scanShipment(row pgx.Row) (Shipment, error) {
	var s Shipment
	err := row.Scan(&s.ID, &s.Reference, &s.Origin, &s.Destination, &s.Carrier, &s.Status,
		&s.DepartureDate, &s.ArrivalDate,
		&s.GroundTransportCost, &s.CustomsBrokerFees, &s.OceanFreightCost, &s.ImportFeesCost,
		&s.BillOfLadingURL, &s.CustomsDocsURL, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
