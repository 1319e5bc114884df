package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAuditUnavailable is returned when no audit logger has been wired in.
var ErrAuditUnavailable = errors.New("audit trail unavailable")

// AuditLog is one row of the audit trail. EntityID is a string so it can
// carry numeric ids, VINs and shipment references alike.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (a AuditLog) validate() error {
	switch {
	case a.Action == "":
		return errors.New("audit log missing action")
	case a.Entity == "":
		return errors.New("audit log missing entity")
	case a.EntityID == "":
		return errors.New("audit log missing entity id")
	}
	return nil
}

// AuditLogger appends rows to audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the entry. A zero At defaults to the database clock.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return ErrAuditUnavailable
	}
	if err := log.validate(); err != nil {
		return err
	}
	meta, err := json.Marshal(log.Meta)
	if err != nil {
		return fmt.Errorf("encode audit meta: %w", err)
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`,
		log.ActorID, log.Action, log.Entity, log.EntityID, meta, at)
	return err
}
