package payments

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/dtauto/dtauto/internal/shared"
)

// Entry is the payment-side view of a distribution entry: just enough to
// settle it.
type Entry struct {
	ID      int64
	Partner string
	Amount  float64
	Closed  bool
}

// TxRepository is the transaction-scoped slice of the repository.
type TxRepository interface {
	GetEntryForUpdate(ctx context.Context, entryID int64) (*Entry, error)
	InsertPayment(ctx context.Context, p Payment) (*Payment, error)
	CloseEntry(ctx context.Context, entryID, paymentID int64) error
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListPayments(ctx context.Context, partner string) ([]Payment, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service settles partner shares.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateInput describes a payout.
type CreateInput struct {
	EntryID   int64
	Method    Method
	Reference string
	Note      string
	PaidAt    time.Time
}

// List returns payments, optionally filtered by partner.
func (s *Service) List(ctx context.Context, partner string) ([]Payment, error) {
	return s.repo.ListPayments(ctx, partner)
}

// Get fetches one payment.
func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

// CreatePayment settles a distribution entry. The entry row is locked for
// the duration of the transaction so two concurrent payouts cannot both
// close it.
func (s *Service) CreatePayment(ctx context.Context, input CreateInput) (*Payment, error) {
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	var created *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrUnknownEntry
		}
		if entry.Closed {
			return ErrEntryClosed
		}
		created, err = tx.InsertPayment(ctx, Payment{
			EntryID:   entry.ID,
			Partner:   entry.Partner,
			Amount:    entry.Amount,
			Method:    input.Method,
			Reference: input.Reference,
			Note:      input.Note,
			PaidAt:    paidAt,
		})
		if err != nil {
			return err
		}
		return tx.CloseEntry(ctx, entry.ID, created.ID)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "payment.create", created.ID, map[string]any{
		"entry_id": created.EntryID,
		"partner":  created.Partner,
		"amount":   created.Amount,
	})
	if s.logger != nil {
		s.logger.Info("distribution entry settled",
			slog.Int64("payment_id", created.ID),
			slog.Int64("entry_id", created.EntryID),
			slog.String("partner", created.Partner))
	}
	return created, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "payment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
