package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/domain"
	"cryptoprice-service/internal/infrastructure/http/openapi"
	"cryptoprice-service/internal/infrastructure/logx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxBodyBytes    = 16 << 10
	internalMessage = "An unexpected error occurred. Please try again later."
)

type Server struct {
	svc  *application.PriceService
	ping func(ctx context.Context) error
}

var _ openapi.ServerInterface = (*Server)(nil)

func NewServer(svc *application.PriceService) *Server { return &Server{svc: svc} }

// SetReadyCheck installs the dependency probe behind /readyz.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

func (s *Server) FetchPrice(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&raw); err != nil || raw == nil {
		writeFailure(w, r, domain.NewValidationError("request body must be a JSON object"))
		return
	}
	var problems []string
	asset, msg := stringField(raw, "cryptocurrency")
	if msg != "" {
		problems = append(problems, msg)
	}
	email, msg := stringField(raw, "email")
	if msg != "" {
		problems = append(problems, msg)
	}
	if len(problems) > 0 {
		writeFailure(w, r, domain.NewValidationError(problems...))
		return
	}

	res, err := s.svc.FetchPrice(r.Context(), asset, email)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	rec := res.Record
	resp := openapi.FetchPriceResponse{
		Success: true,
		Data: &openapi.PriceData{
			Id:             rec.ID,
			Cryptocurrency: rec.Quote.AssetID,
			Price:          number(rec.Quote.Price),
			Currency:       rec.Quote.Currency,
			Change24h:      number(rec.Quote.Change24h),
			MarketCap:      number(rec.Quote.MarketCap),
			Timestamp:      rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			Cached:         res.FromCache,
		},
		RequestId: requestIDFrom(r.Context()),
		Duration:  elapsed(r.Context()),
	}
	status := http.StatusOK
	if res.IsPartialSuccess() {
		status = http.StatusMultiStatus
		warning := "Price was stored but the notification email could not be sent"
		if m := domain.MessageOf(res.NotifyErr); m != "" {
			warning += ": " + m
		}
		resp.Warning = &warning
	}
	writeJSON(w, status, resp)
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request, params openapi.GetHistoryParams) {
	res, err := s.svc.History(r.Context(), domain.QueryFilters{
		Limit:     params.Limit,
		Email:     params.Email,
		AssetID:   params.Cryptocurrency,
		NextToken: params.NextToken,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	items := make([]openapi.HistoryItem, 0, len(res.Records))
	for _, rec := range res.Records {
		items = append(items, openapi.HistoryItem{
			Id:             rec.ID,
			Email:          rec.Email,
			Cryptocurrency: rec.Quote.AssetID,
			Price:          number(rec.Quote.Price),
			Currency:       rec.Quote.Currency,
			Change24h:      number(rec.Quote.Change24h),
			MarketCap:      number(rec.Quote.MarketCap),
			Timestamp:      rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	resp := openapi.HistoryResponse{
		Success:        true,
		Count:          len(items),
		Limit:          res.Filter.Limit,
		Email:          optional(res.Filter.Email),
		Cryptocurrency: optional(res.Filter.AssetID),
		Data:           items,
		NextToken:      optional(res.NextToken),
		HasMore:        res.HasMore(),
		RequestId:      requestIDFrom(r.Context()),
		Duration:       elapsed(r.Context()),
	}
	writeJSON(w, http.StatusOK, resp)
}

// stringField returns the named string ("" when absent or null). The second
// result is a message when the value has another JSON type.
func stringField(raw map[string]json.RawMessage, name string) (string, string) {
	v, ok := raw[name]
	if !ok || string(v) == "null" {
		return "", ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", name + " must be a string"
	}
	return s, ""
}

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// statusFor maps an error kind to the response status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case domain.KindTimeout, domain.KindNetworkUnreachable, domain.KindUpstreamUnavailable,
		domain.KindDataIntegrity, domain.KindStorageConflict, domain.KindStorageThrottled,
		domain.KindStorageUnavailable, domain.KindTableMissing:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var defaultMessages = map[domain.Kind]string{
	domain.KindNotFound:            "The requested resource was not found",
	domain.KindRateLimited:         "Too many requests; please try again shortly",
	domain.KindTimeout:             "The price service timed out; please try again",
	domain.KindNetworkUnreachable:  "The price service could not be reached; please try again later",
	domain.KindUpstreamUnavailable: "The price service is unavailable; please try again later",
	domain.KindDataIntegrity:       "The price service returned invalid data",
	domain.KindStorageConflict:     "Could not save the price lookup; please try again",
	domain.KindStorageThrottled:    "Price history is busy; please try again",
	domain.KindStorageUnavailable:  "Price history storage is unavailable; please try again later",
	domain.KindTableMissing:        "Price history is not available; please contact support",
}

// failureBody turns err into the public error body. Internal errors are
// masked.
func failureBody(err error) openapi.ErrorBody {
	kind := domain.KindOf(err)
	body := openapi.ErrorBody{Type: kind.String()}
	var de *domain.Error
	if errors.As(err, &de) {
		if kind == domain.KindValidation {
			body.Details = de.Details
		}
		if de.Attempts > 0 {
			n := de.Attempts
			body.Attempts = &n
		}
	}
	switch {
	case kind == domain.KindInternal:
		body.Message = internalMessage
		body.Attempts = nil
	case domain.MessageOf(err) != "":
		body.Message = domain.MessageOf(err)
	default:
		body.Message = defaultMessages[kind]
	}
	if body.Attempts != nil && kind != domain.KindValidation {
		unit := "attempts"
		if *body.Attempts == 1 {
			unit = "attempt"
		}
		body.Message = fmt.Sprintf("%s (after %d %s)", body.Message, *body.Attempts, unit)
	}
	return body
}

func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	log := logx.WithFields(r.Context()).With(zap.String("kind", kind.String()), zap.Int("status", status))
	if status >= 500 {
		log.Error("http.request_failed", zap.Error(err))
	} else {
		log.Info("http.request_rejected", zap.Error(err))
	}
	writeJSON(w, status, openapi.ErrorResponse{
		Success:   false,
		Error:     failureBody(err),
		RequestId: requestIDFrom(r.Context()),
		Duration:  elapsed(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
