package application

import (
	"context"
	"time"

	"cryptoprice-service/internal/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Clock interface{ Now() time.Time }

type IDGen interface{ NewID() string }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type uuidGen struct{}

func (uuidGen) NewID() string { return uuid.NewString() }

type options struct {
	clock          Clock
	idgen          IDGen
	policy         retry.Policy
	attemptTimeout time.Duration
	log            *zap.Logger
}

type Option func(*options)

func WithClock(c Clock) Option                  { return func(o *options) { o.clock = c } }
func WithIDGen(g IDGen) Option                  { return func(o *options) { o.idgen = g } }
func WithRetryPolicy(p retry.Policy) Option     { return func(o *options) { o.policy = p } }
func WithAttemptTimeout(d time.Duration) Option { return func(o *options) { o.attemptTimeout = d } }
func WithLogger(l *zap.Logger) Option           { return func(o *options) { o.log = l } }

func newOptions(opts []Option) options {
	o := options{
		clock:          realClock{},
		idgen:          uuidGen{},
		policy:         retry.Default(),
		attemptTimeout: UpstreamAttemptTimeout,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

type requestIDKey struct{}

// WithRequestID stores the request correlation id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation id stored on ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func scoped(ctx context.Context, log *zap.Logger) *zap.Logger {
	if rid := RequestID(ctx); rid != "" {
		return log.With(zap.String("request_id", rid))
	}
	return log
}
