package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dtauto/dtauto/internal/analytics"
	"github.com/dtauto/dtauto/internal/observability"
)

// DigestSource provides the roll-ups the weekly email reports on.
type DigestSource interface {
	Financials(ctx context.Context) (analytics.FinancialSummary, error)
	Leaderboard(ctx context.Context) ([]analytics.PartnerStanding, error)
}

// DigestJob sends the weekly partner digest over SMTP.
type DigestJob struct {
	Source     DigestSource
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	SMTPAddr   string
	From       string
	Recipients []string

	// send is swapped in tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewDigestJob initialises the digest handler.
func NewDigestJob(source DigestSource, logger *slog.Logger, metrics *observability.Metrics, smtpAddr, from string, recipients []string) *DigestJob {
	return &DigestJob{
		Source:     source,
		Logger:     logger,
		Metrics:    metrics,
		SMTPAddr:   smtpAddr,
		From:       from,
		Recipients: recipients,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle composes and sends the digest.
func (j *DigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("digest: handler not configured")
	}
	var payload DigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	recipients := payload.Recipients
	if len(recipients) == 0 {
		recipients = j.Recipients
	}
	if len(recipients) == 0 {
		if j.Logger != nil {
			j.Logger.Info("digest skipped, no recipients configured")
		}
		return nil
	}

	body, err := j.Compose(ctx, time.Now().UTC(), recipients)
	if err != nil {
		j.observe("error")
		if j.Logger != nil {
			j.Logger.Error("digest compose failed", slog.Any("error", err))
		}
		return err
	}

	if err := j.send(j.SMTPAddr, j.From, recipients, body); err != nil {
		j.observe("error")
		if j.Logger != nil {
			j.Logger.Error("digest send failed", slog.Any("error", err))
		}
		return err
	}

	if j.Logger != nil {
		j.Logger.Info("digest sent", slog.Int("recipients", len(recipients)))
	}
	j.observe("ok")
	return nil
}

// Compose renders the digest message including headers.
func (j *DigestJob) Compose(ctx context.Context, now time.Time, recipients []string) ([]byte, error) {
	summary, err := j.Source.Financials(ctx)
	if err != nil {
		return nil, err
	}
	standings, err := j.Source.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}

	p := message.NewPrinter(language.English)
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&b, "From: %s\r\n", j.From)
	fmt.Fprintf(&b, "Subject: Partnership digest %s\r\n", now.Format("2006-01-02"))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Sales to date: %d\r\n", len(summary.Rows))
	fmt.Fprintf(&b, "Total sales: $%s\r\n", p.Sprintf("%.2f", summary.TotalSales))
	fmt.Fprintf(&b, "Total landed cost: $%s\r\n", p.Sprintf("%.2f", summary.TotalLandedCost))
	fmt.Fprintf(&b, "Total profit: $%s\r\n", p.Sprintf("%.2f", summary.TotalProfit))
	fmt.Fprintf(&b, "Reinvested: $%s\r\n\r\n", p.Sprintf("%.2f", summary.TotalReinvested))

	for _, s := range standings {
		fmt.Fprintf(&b, "%s: earned $%s, paid $%s, pending $%s\r\n",
			s.Partner,
			p.Sprintf("%.2f", s.Earned),
			p.Sprintf("%.2f", s.Paid),
			p.Sprintf("%.2f", s.Pending),
		)
	}

	if len(summary.Rows) > 0 {
		last := summary.Rows[len(summary.Rows)-1]
		fmt.Fprintf(&b, "\r\nMost recent sale: %s on %s for $%s (profit $%s)\r\n",
			last.Vehicle,
			last.SaleDate.Format("2006-01-02"),
			p.Sprintf("%.2f", last.SalePrice),
			p.Sprintf("%.2f", last.Profit),
		)
	}
	return []byte(b.String()), nil
}

func (j *DigestJob) observe(status string) {
	if j.Metrics != nil {
		j.Metrics.ObserveJob(TaskMailDigest, status)
	}
}
