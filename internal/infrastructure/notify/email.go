// Package notify delivers price notifications to recipients.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/http"
	"strings"
	texttemplate "text/template"
	"time"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/domain"
	"cryptoprice-service/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/price.html.tmpl"))
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templatesFS, "templates/price.txt.tmpl"))
)

const DefaultEmailAPIBase = "https://api.resend.com"

// EmailNotifier sends one transactional email per notification through an
// HTTP email API (POST {base}/emails, bearer auth).
type EmailNotifier struct {
	baseURL string
	from    string
	client  *httpx.Client
	log     *zap.Logger
}

var _ application.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(baseURL, apiKey, from string, timeout time.Duration, log *zap.Logger) *EmailNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = DefaultEmailAPIBase
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		from:    from,
		client:  &httpx.Client{HTTP: &http.Client{Timeout: timeout}, Token: apiKey},
		log:     log.With(zap.String("component", "notify_email")),
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type emailResponse struct {
	ID string `json:"id"`
}

// Notify returns the provider's message id.
func (n *EmailNotifier) Notify(ctx context.Context, email string, q domain.PriceQuote, at time.Time) (string, error) {
	const op = "notify.email"
	msg, err := Render(email, q, at)
	if err != nil {
		return "", domain.E(domain.KindNotifyDeliveryFailed, op, "notification could not be rendered", err)
	}

	var out emailResponse
	err = n.client.PostJSON(ctx, n.baseURL+"/emails", nil, emailRequest{
		From:    n.from,
		To:      []string{email},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}, &out)
	if err != nil {
		return "", classify(op, err)
	}
	n.log.Info("notify.email_sent", zap.String("asset", q.AssetID), zap.String("delivery_id", out.ID))
	return out.ID, nil
}

func classify(op string, err error) error {
	var se *httpx.StatusError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return &domain.Error{Kind: domain.KindNotifyRejected, Op: op, Status: se.Status,
				Message: "the email provider rejected the notification", Err: err}
		case http.StatusForbidden:
			return &domain.Error{Kind: domain.KindNotifyNotVerified, Op: op, Status: se.Status,
				Message: "the sender address is not verified with the email provider", Err: err}
		default:
			return &domain.Error{Kind: domain.KindNotifyDeliveryFailed, Op: op, Status: se.Status,
				Message: "the notification email could not be delivered", Err: err}
		}
	}
	return domain.E(domain.KindNotifyDeliveryFailed, op, "the notification email could not be delivered", err)
}

// Message is a rendered notification.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type view struct {
	Name      string
	Email     string
	Price     string
	Change    string
	Down      bool
	MarketCap string
	Currency  string
	At        string
}

// Render builds the subject and both bodies for a quote.
func Render(email string, q domain.PriceQuote, at time.Time) (Message, error) {
	v := view{
		Name:      displayName(q.AssetID),
		Email:     email,
		Price:     q.Price.StringFixed(2),
		Change:    q.Change24h.StringFixed(2),
		Down:      q.Change24h.IsNegative(),
		MarketCap: q.MarketCap.StringFixed(0),
		Currency:  strings.ToUpper(q.Currency),
		At:        at.UTC().Format(time.RFC1123),
	}
	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, v); err != nil {
		return Message{}, err
	}
	if err := textTmpl.Execute(&text, v); err != nil {
		return Message{}, err
	}
	return Message{
		Subject: fmt.Sprintf("%s price: $%s (%s%%)", v.Name, v.Price, v.Change),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func displayName(assetID string) string {
	if assetID == "" {
		return assetID
	}
	return strings.ToUpper(assetID[:1]) + assetID[1:]
}
