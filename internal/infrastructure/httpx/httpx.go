// Package httpx sends single JSON requests to third-party APIs and classifies
// what went wrong. Retries belong to the caller.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"cryptoprice-service/internal/domain"

	"golang.org/x/time/rate"
)

const maxErrorBody = 512

var (
	// ErrDecode wraps every failure to parse a 2xx response body.
	ErrDecode = errors.New("decode response")
	// ErrLocalRateLimit means the client-side limiter refused to wait for a token.
	ErrLocalRateLimit = errors.New("local rate limit")
)

// StatusError is a non-2xx response. Body holds the first bytes of the payload.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

type Client struct {
	HTTP    *http.Client
	Token   string
	Limiter *rate.Limiter
}

// DoJSON sends req once and decodes a 2xx body into out (when out is non-nil).
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/json")
	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrLocalRateLimit, err)
		}
	}

	resp, err := httpc.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// PostJSON marshals body and sends it to url with DoJSON.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.DoJSON(ctx, req, out)
}

// TransportKind classifies a failed round trip: deadlines and timeouts become
// KindTimeout, everything else at the network layer KindNetworkUnreachable.
// It returns KindInternal when err is not a transport failure.
func TransportKind(err error) domain.Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return domain.KindTimeout
		}
		return domain.KindNetworkUnreachable
	}
	var oe *net.OpError
	var de *net.DNSError
	if errors.As(err, &oe) || errors.As(err, &de) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return domain.KindNetworkUnreachable
	}
	return domain.KindInternal
}
