package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
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

type txRepo struct {
	tx pgx.Tx
}

const paymentColumns = `id, entry_id, partner, amount, method, reference, note, paid_at, created_at`

// ListPayments returns payments newest first, optionally for one partner.
func (r *Repository) ListPayments(ctx context.Context, partner string) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`
	args := []any{}
	if partner != "" {
		query += ` WHERE partner = $1`
		args = append(args, partner)
	}
	query += ` ORDER BY paid_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPayment fetches by id, nil when absent.
func (r *Repository) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetEntryForUpdate locks the distribution entry row, nil when absent.
func (t *txRepo) GetEntryForUpdate(ctx context.Context, entryID int64) (*Entry, error) {
	var e Entry
	var status string
	err := t.tx.QueryRow(ctx, `SELECT id, partner, amount, status FROM profit_distribution_entries WHERE id = $1 FOR UPDATE`, entryID).
		Scan(&e.ID, &e.Partner, &e.Amount, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.Closed = status == "closed"
	return &e, nil
}

// InsertPayment creates the payout record.
func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (*Payment, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO payments (entry_id, partner, amount, method, reference, note, paid_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id, created_at`,
		p.EntryID, p.Partner, p.Amount, p.Method, p.Reference, p.Note, p.PaidAt).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CloseEntry marks the entry settled and links the payment.
func (t *txRepo) CloseEntry(ctx context.Context, entryID, paymentID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE profit_distribution_entries SET status = 'closed', payment_id = $2 WHERE id = $1`, entryID, paymentID)
	return err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.EntryID, &p.Partner, &p.Amount, &p.Method, &p.Reference, &p.Note, &p.PaidAt, &p.CreatedAt)
	return p, err
}
