package mail

import (
	"context"
	"log/slog"

	"assetloan-backend/internal/usecase/notify"
)

// LogMailer writes mails to the log instead of sending them. It is used when
// no SMTP host is configured.
type LogMailer struct{ logger *slog.Logger }

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg notify.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("mail not sent, smtp disabled", "to", msg.To, "subject", msg.Subject, "bytes", len(msg.HTML))
	return nil
}
