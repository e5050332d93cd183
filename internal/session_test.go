package internal

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/models"
)

// lockstepStore holds every IsRevoked caller until all expected callers have
// passed the lookup, so the requests race into the rotation together.
type lockstepStore struct {
	auth.RevocationStore
	arrived sync.WaitGroup
}

func (s *lockstepStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := s.RevocationStore.IsRevoked(ctx, jti)
	s.arrived.Done()
	s.arrived.Wait()
	return revoked, err
}

func TestConcurrentRefreshMintsOnePair(t *testing.T) {
	const callers = 4
	s, mock := newTestServer(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < callers; i++ {
		mock.ExpectQuery(`SELECT roles, is_active FROM users`).
			WithArgs(testUser, testAccount).
			WillReturnRows(sqlmock.NewRows([]string{"roles", "is_active"}).AddRow("{owner}", true))
	}
	store := &lockstepStore{RevocationStore: s.Revocations}
	store.arrived.Add(callers)
	s.Revocations = store

	pair, err := s.JWTManager.GeneratePair(testUser, testAccount, []string{models.RoleOwner})
	require.NoError(t, err)
	body := `{"refreshToken":"` + pair.RefreshToken + `"}`

	codes := make(chan int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- do(s, http.MethodPost, "/auth/refresh", "", body).Code
		}()
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	assert.Equal(t, 1, counts[http.StatusOK])
	assert.Equal(t, callers-1, counts[http.StatusUnauthorized])

	metrics := scrape(t, s.Router)
	assert.Contains(t, metrics, `shop_admin_token_refresh_total{result="ok"} 1`)
	assert.Contains(t, metrics, `shop_admin_token_refresh_total{result="revoked"} 3`)
}
