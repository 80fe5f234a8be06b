package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLowStockEmail is the task type for low-stock alert mails.
	TaskTypeLowStockEmail = "mail:low_stock"
	// TaskTypeIdempotencyCleanup is the periodic idempotency-key sweep.
	TaskTypeIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// LowStockEmailPayload describes a low-stock alert mail. Quantities travel
// as strings to keep decimal precision across the queue.
type LowStockEmailPayload struct {
	ItemID    int64  `json:"item_id"`
	ItemName  string `json:"item_name"`
	Unit      string `json:"unit"`
	OnHand    string `json:"on_hand"`
	Threshold string `json:"threshold"`
}

// NewLowStockEmailTask constructs an Asynq task.
func NewLowStockEmailTask(payload LowStockEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockEmail, data, asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil, asynq.Queue(QueueDefault))
}

// MailConfig holds SMTP settings for outbound alert mail.
type MailConfig struct {
	Host     string
	Port     int
	From     string
	To       []string
	Username string
	Password string
}

// Mailer sends low-stock alert mails over SMTP.
type Mailer struct {
	cfg    MailConfig
	logger *slog.Logger
}

// NewMailer constructs Mailer.
func NewMailer(cfg MailConfig, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// HandleLowStockEmail processes TaskTypeLowStockEmail tasks.
func (m *Mailer) HandleLowStockEmail(ctx context.Context, t *asynq.Task) error {
	var payload LowStockEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(m.cfg.To) == 0 {
		m.logger.Warn("low-stock mail skipped, no recipients configured",
			slog.Int64("item_id", payload.ItemID))
		return nil
	}

	subject := fmt.Sprintf("Low stock: %s", payload.ItemName)
	body := fmt.Sprintf("Item %q is down to %s %s (threshold %s). Please restock.",
		payload.ItemName, payload.OnHand, payload.Unit, payload.Threshold)
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + strings.Join(m.cfg.To, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, m.cfg.To, []byte(msg)); err != nil {
		return fmt.Errorf("send low-stock mail: %w", err)
	}
	m.logger.Info("low-stock mail sent", slog.Int64("item_id", payload.ItemID))
	return nil
}
