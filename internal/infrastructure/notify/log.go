package notify

import (
	"context"
	"time"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ application.Notifier = (*LogNotifier)(nil)

// LogNotifier renders the notification and writes it to the log instead of
// sending it. For local runs without email credentials.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log.With(zap.String("component", "notify_log"))}
}

func (n *LogNotifier) Notify(_ context.Context, email string, q domain.PriceQuote, at time.Time) (string, error) {
	msg, err := Render(email, q, at)
	if err != nil {
		return "", domain.E(domain.KindNotifyDeliveryFailed, "notify.log", "notification could not be rendered", err)
	}
	id := "log-" + uuid.NewString()
	n.log.Info("notify.logged",
		zap.String("delivery_id", id),
		zap.String("to", email),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return id, nil
}
