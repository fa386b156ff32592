package redisstore

import (
	"context"
	"time"
)

// Noop never holds anything; useful for tests/dev when caching is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
