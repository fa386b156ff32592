package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", E(KindRateLimited, "coingecko", "too many requests", nil))
	require.ErrorIs(t, err, ErrRateLimited)
	require.NotErrorIs(t, err, ErrTimeout)
	require.Equal(t, KindRateLimited, KindOf(err))
	require.Equal(t, "too many requests", MessageOf(err))
	require.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestWithAttempts(t *testing.T) {
	base := E(KindUpstreamUnavailable, "coingecko", "upstream returned 503", nil)
	err := WithAttempts(base, 3)
	var de *Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, 3, de.Attempts)
	require.Equal(t, 0, base.Attempts)
	require.Contains(t, err.Error(), "after 3 attempts")

	err = WithAttempts(errors.New("boom"), 2)
	require.Equal(t, KindInternal, KindOf(err))
	require.Nil(t, WithAttempts(nil, 1))
}
