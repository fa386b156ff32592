package logx

import (
	"context"
	"testing"

	"cryptoprice-service/internal/application"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	l, err := New("prod", "warn")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zap.InfoLevel))
	require.True(t, l.Core().Enabled(zap.WarnLevel))

	_, err = New("prod", "chatty")
	require.Error(t, err)
}

func TestWithFields_AddsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := logger
	logger = zap.New(core)
	t.Cleanup(func() { logger = prev })

	ctx := WithRequestID(context.Background(), "req-42")
	WithFields(ctx).Info("sql.exec_success")
	WithFields(context.Background()).Info("sql.exec_success")
	require.Equal(t, "req-42", application.RequestID(ctx))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	require.NotContains(t, entries[1].ContextMap(), "request_id")
}
