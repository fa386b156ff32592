package config

import "time"

const (
	DefaultHTTPPort          = "8080"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultRequestTimeout    = 30 * time.Second
	DefaultUpstreamTimeout   = 10 * time.Second
	DefaultRetentionSweep    = 10 * time.Minute
	DefaultRetentionBatch    = 500
	DefaultPGMaxConns        = 10
	DefaultPGMinConns        = 1
	DefaultPGStmtTimeout     = 5 * time.Second
)
