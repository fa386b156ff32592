package pg

import (
	"context"
	"errors"
	"testing"

	"cryptoprice-service/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := map[string]domain.Kind{
		"42P01": domain.KindTableMissing,
		"23505": domain.KindStorageConflict,
		"40001": domain.KindStorageThrottled,
		"40P01": domain.KindStorageThrottled,
		"55P03": domain.KindStorageThrottled,
		"53300": domain.KindStorageThrottled,
		"57014": domain.KindStorageThrottled,
		"22P02": domain.KindInternal,
	}
	for code, kind := range cases {
		err := classify("op", &pgconn.PgError{Code: code})
		require.Equal(t, kind, domain.KindOf(err), code)
	}

	require.Equal(t, domain.KindStorageUnavailable, domain.KindOf(classify("op", errors.New("dial tcp: connection refused"))))
	require.Equal(t, domain.KindInternal, domain.KindOf(classify("op", context.Canceled)))
	require.NoError(t, classify("op", nil))
}
