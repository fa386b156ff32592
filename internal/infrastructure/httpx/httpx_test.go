package httpx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"cryptoprice-service/internal/domain"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func httpClientRT(rt http.RoundTripper) *http.Client {
	return &http.Client{Transport: rt, Timeout: 2 * time.Second}
}

func respond(r *http.Request, code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header), Request: r}
}

func TestDoJSON_DecodesOK(t *testing.T) {
	var auth string
	c := &Client{Token: "secret", HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		auth = r.Header.Get("Authorization")
		return respond(r, 200, `{"ok": true}`), nil
	}))}
	var out struct {
		OK bool `json:"ok"`
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, c.DoJSON(context.Background(), req, &out))
	require.True(t, out.OK)
	require.Equal(t, "Bearer secret", auth)
}

func TestDoJSON_NoRetryOn500(t *testing.T) {
	var calls int
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return respond(r, 503, " overloaded \n"), nil
	}))}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	err := c.DoJSON(context.Background(), req, nil)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 503, se.Status)
	require.Equal(t, "overloaded", se.Body)
	require.Equal(t, 1, calls)
}

func TestDoJSON_DecodeError(t *testing.T) {
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewBufferString("{x")), Header: make(http.Header), Request: r}, nil
	}))}
	var out map[string]any
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	err := c.DoJSON(context.Background(), req, &out)
	require.ErrorIs(t, err, ErrDecode)
}

func TestPostJSON_SendsBodyAndHeaders(t *testing.T) {
	var gotBody, gotKey, gotType string
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotKey = r.Header.Get("X-Api-Key")
		gotType = r.Header.Get("Content-Type")
		return respond(r, 201, `{"id":"abc"}`), nil
	}))}
	var out struct {
		ID string `json:"id"`
	}
	h := http.Header{}
	h.Set("X-Api-Key", "k")
	err := c.PostJSON(context.Background(), "http://example.com/emails", h, map[string]string{"to": "a@b.com"}, &out)
	require.NoError(t, err)
	require.Equal(t, "abc", out.ID)
	require.JSONEq(t, `{"to":"a@b.com"}`, gotBody)
	require.Equal(t, "k", gotKey)
	require.Equal(t, "application/json", gotType)
}

func TestDoJSON_LimiterHonoursContext(t *testing.T) {
	var calls int
	c := &Client{
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
		HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return respond(r, 200, `{}`), nil
		})),
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, c.DoJSON(context.Background(), req, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.DoJSON(ctx, req, nil), ErrLocalRateLimit)
	require.Equal(t, 1, calls)
}

type tempTimeoutErr struct{}

func (tempTimeoutErr) Error() string   { return "timeout" }
func (tempTimeoutErr) Timeout() bool   { return true }
func (tempTimeoutErr) Temporary() bool { return true }

func TestTransportKind(t *testing.T) {
	require.Equal(t, domain.KindTimeout, TransportKind(context.DeadlineExceeded))
	require.Equal(t, domain.KindTimeout, TransportKind(tempTimeoutErr{}))
	require.Equal(t, domain.KindNetworkUnreachable, TransportKind(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	require.Equal(t, domain.KindNetworkUnreachable, TransportKind(&net.DNSError{Err: "no such host", Name: "api.example"}))
	require.Equal(t, domain.KindInternal, TransportKind(errors.New("bad url")))
}
