package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-admin-api/internal/models"
)

// apiStub is a fake API that counts calls per path.
type apiStub struct {
	mu     sync.Mutex
	hits   map[string]int
	routes map[string]http.HandlerFunc
}

func newAPIStub(t *testing.T) (*apiStub, *httptest.Server) {
	t.Helper()
	stub := &apiStub{hits: map[string]int{}, routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		stub.mu.Lock()
		stub.hits[key]++
		h := stub.routes[key]
		stub.mu.Unlock()
		if h == nil {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return stub, srv
}

func (s *apiStub) handle(key string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[key] = h
}

func (s *apiStub) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

func (s *apiStub) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

func writeBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, baseURL string, session *Session, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, session, opts...)
	require.NoError(t, err)
	return c
}

func signedIn(access, refresh string) *Session {
	s := NewSession()
	_ = s.SetTokens(access, refresh)
	return s
}

func TestListWithoutShopMakesNoRequest(t *testing.T) {
	stub, srv := newAPIStub(t)
	c := newTestClient(t, srv.URL, signedIn("a", "r"))
	ctx := context.Background()

	lists := map[string]func() error{
		"customers":    func() error { _, err := c.Customers.List(ctx, Query{}); return err },
		"vendors":      func() error { _, err := c.Vendors.List(ctx, Query{Search: "x"}); return err },
		"uoms":         func() error { _, err := c.UOMs.List(ctx, Query{ShopID: "  "}); return err },
		"inventory":    func() error { _, err := c.Inventory.List(ctx, Query{Page: 3}); return err },
		"expenses":     func() error { _, err := c.Expenses.List(ctx, Query{Limit: 10}); return err },
		"transactions": func() error { _, err := c.Transactions.List(ctx, Query{}); return err },
	}
	for name, list := range lists {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, list(), ErrShopIDRequired)
		})
	}
	assert.Zero(t, stub.total())
}

func TestCreateCustomerWithoutShop(t *testing.T) {
	stub, srv := newAPIStub(t)
	c := newTestClient(t, srv.URL, signedIn("a", "r"))

	_, err := c.Customers.Create(context.Background(), models.CustomerInput{Shop: "", Name: "Ann"})
	require.EqualError(t, err, "Shop ID is required")
	assert.Zero(t, stub.total())
}

func TestCreateValidatesBeforeRequest(t *testing.T) {
	stub, srv := newAPIStub(t)
	c := newTestClient(t, srv.URL, signedIn("a", "r"))

	_, err := c.Customers.Create(context.Background(), models.CustomerInput{Shop: "s1"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "name", verr.Fields[0].Field)
	assert.Zero(t, stub.total())
}

func TestMissingIDIsRejectedLocally(t *testing.T) {
	stub, srv := newAPIStub(t)
	c := newTestClient(t, srv.URL, signedIn("a", "r"))
	ctx := context.Background()

	_, err := c.Vendors.Get(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)
	_, err = c.Vendors.Update(ctx, " ", models.VendorInput{Shop: "s1", Name: "V"})
	assert.ErrorIs(t, err, ErrIDRequired)
	assert.ErrorIs(t, c.Vendors.Delete(ctx, ""), ErrIDRequired)
	assert.Zero(t, stub.total())
}

func TestExpensesListParsesEnvelope(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("GET /expenses", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Bearer a", r.Header.Get("Authorization"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.False(t, q.Has("searchBy"))
		assert.False(t, q.Has("startDate"))
		assert.False(t, q.Has("endDate"))
		if q.Get("shopId") == "empty" {
			writeBody(w, http.StatusOK, map[string]any{})
			return
		}
		assert.Equal(t, "s1", q.Get("shopId"))
		writeBody(w, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"id": "e1", "shop": "s1", "title": "Rent", "amount": 1200},
				{"id": "e2", "shop": "s1", "title": "Power", "amount": 80.5},
			},
			"total": 12,
		})
	})
	c := newTestClient(t, srv.URL, signedIn("a", "r"))
	ctx := context.Background()

	page, err := c.Expenses.List(ctx, Query{ShopID: "s1", Page: 0, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Rent", page.Items[0].Title)
	assert.Equal(t, "80.5", page.Items[1].Amount.String())
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.PageCount(10))

	empty, err := c.Expenses.List(ctx, Query{ShopID: "empty", Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
	assert.Zero(t, empty.Total)
	assert.Equal(t, 2, stub.count("GET /expenses"))
}

func TestQueryValues(t *testing.T) {
	start := mustDate(t, "2026-01-01")
	end := mustDate(t, "2026-01-31")
	q := Query{
		ShopID:    "s1",
		Page:      2,
		Limit:     25,
		StartDate: &start,
		EndDate:   &end,
		Sort:      "-date",
		Filters:   map[string]string{"type": "sale", "customerId": ""},
	}
	v := q.Values()
	assert.Equal(t, "3", v.Get("page"))
	assert.Equal(t, "25", v.Get("limit"))
	assert.Equal(t, "2026-01-01", v.Get("startDate"))
	assert.Equal(t, "2026-01-31", v.Get("endDate"))
	assert.Equal(t, "-date", v.Get("sort"))
	assert.Equal(t, "sale", v.Get("type"))
	assert.False(t, v.Has("customerId"))
	assert.Equal(t, q.key("/transactions"), Query{
		Filters: map[string]string{"type": "sale"}, Sort: "-date", EndDate: &end,
		StartDate: &start, Limit: 25, Page: 2, ShopID: "s1",
	}.key("/transactions"))
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Page[int]{Total: tt.total}.PageCount(tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			writeBody(w, http.StatusUnauthorized, map[string]string{"error": "token expired", "code": "UNAUTHORIZED"})
			return
		}
		writeBody(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "c1", "name": "Ann"}}, "total": 1})
	})
	stub.handle("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body models.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-refresh", body.RefreshToken)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeBody(w, http.StatusOK, models.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh"})
	})
	session := signedIn("old-access", "old-refresh")
	c := newTestClient(t, srv.URL, session)

	page, err := c.Customers.List(context.Background(), Query{ShopID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, stub.count("POST /auth/refresh"))
	assert.Equal(t, 2, stub.count("GET /customers"))
	assert.Equal(t, "new-access", session.AccessToken())
	assert.Equal(t, "new-refresh", session.RefreshToken())
}

func TestSecondUnauthorizedIsNotRetried(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("DELETE /vendors/v1", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, map[string]string{"error": "nope"})
	})
	stub.handle("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, models.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh"})
	})
	var navigations atomic.Int32
	c := newTestClient(t, srv.URL, signedIn("old-access", "old-refresh"),
		WithNavigator(NavigatorFunc(func(string) { navigations.Add(1) })))

	err := c.Vendors.Delete(context.Background(), "v1")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "nope", Message(err))
	assert.Equal(t, 1, stub.count("POST /auth/refresh"))
	assert.Equal(t, 2, stub.count("DELETE /vendors/v1"))
	assert.Zero(t, navigations.Load())
}

func TestUnauthorizedWithoutRefreshTokenExpiresSession(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("GET /uoms", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})
	path := t.TempDir() + "/session.json"
	session, err := OpenSession(path)
	require.NoError(t, err)
	require.NoError(t, session.SetShop("s1"))
	require.NoError(t, session.SetTokens("access", ""))

	var mu sync.Mutex
	var visited []string
	c := newTestClient(t, srv.URL, session, WithNavigator(NavigatorFunc(func(p string) {
		mu.Lock()
		defer mu.Unlock()
		visited = append(visited, p)
	})))

	for i := 0; i < 3; i++ {
		_, err := c.UOMs.List(context.Background(), Query{ShopID: "s1"})
		require.ErrorIs(t, err, ErrSessionExpired)
	}
	assert.Equal(t, []string{SignInPath}, visited)
	assert.Zero(t, stub.count("POST /auth/refresh"))
	assert.Empty(t, session.AccessToken())

	reopened, err := OpenSession(path)
	require.NoError(t, err)
	snap := reopened.Snapshot()
	assert.Empty(t, snap.AccessToken)
	assert.Empty(t, snap.RefreshToken)
	assert.Equal(t, "s1", snap.ShopID)
}

func TestFailedRefreshExpiresSession(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("GET /shops", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})
	stub.handle("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token", "code": "INVALID_REFRESH_TOKEN"})
	})
	var navigations atomic.Int32
	session := signedIn("access", "refresh")
	c := newTestClient(t, srv.URL, session, WithNavigator(NavigatorFunc(func(p string) {
		assert.Equal(t, SignInPath, p)
		navigations.Add(1)
	})))

	_, err := c.Shops.List(context.Background(), Query{})
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, "session expired, sign in again", Message(err))
	assert.Equal(t, int32(1), navigations.Load())
	assert.Equal(t, 1, stub.count("POST /auth/refresh"))
	assert.Equal(t, 1, stub.count("GET /shops"))
	assert.Empty(t, session.RefreshToken())

	// A new sign-in re-arms the redirect.
	require.NoError(t, session.SetTokens("access2", "refresh2"))
	_, err = c.Shops.List(context.Background(), Query{})
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(2), navigations.Load())
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("GET /inventory", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			writeBody(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
			return
		}
		writeBody(w, http.StatusOK, map[string]any{"data": []any{}, "total": 0})
	})
	stub.handle("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, models.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh"})
	})
	c := newTestClient(t, srv.URL, signedIn("old-access", "old-refresh"), WithCache(0, 0))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Inventory.List(context.Background(), Query{ShopID: "s1", Page: i})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, stub.count("POST /auth/refresh"))
}

func TestMutationInvalidatesOwnEntityOnly(t *testing.T) {
	stub, srv := newAPIStub(t)
	list := func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, map[string]any{"data": []any{}, "total": 0})
	}
	stub.handle("GET /customers", list)
	stub.handle("GET /vendors", list)
	stub.handle("POST /customers", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusCreated, map[string]any{"id": "c9", "shop": "s1", "name": "Ann"})
	})
	c := newTestClient(t, srv.URL, signedIn("a", "r"))
	ctx := context.Background()
	q := Query{ShopID: "s1", Limit: 10}

	for i := 0; i < 2; i++ {
		_, err := c.Customers.List(ctx, q)
		require.NoError(t, err)
		_, err = c.Vendors.List(ctx, q)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, stub.count("GET /customers"))
	assert.Equal(t, 1, stub.count("GET /vendors"))

	created, err := c.Customers.Create(ctx, models.CustomerInput{Shop: "s1", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "c9", created.ID)

	_, err = c.Customers.List(ctx, q)
	require.NoError(t, err)
	_, err = c.Vendors.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.count("GET /customers"))
	assert.Equal(t, 1, stub.count("GET /vendors"))
}

func TestErrorsAreNotCached(t *testing.T) {
	stub, srv := newAPIStub(t)
	var fail atomic.Bool
	fail.Store(true)
	stub.handle("GET /customers/c1", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			writeBody(w, http.StatusInternalServerError, map[string]string{"error": "database unavailable", "code": "DB_ERROR"})
			return
		}
		writeBody(w, http.StatusOK, map[string]any{"id": "c1", "name": "Ann"})
	})
	c := newTestClient(t, srv.URL, signedIn("a", "r"))
	ctx := context.Background()

	_, err := c.Customers.Get(ctx, "c1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "DB_ERROR", apiErr.Code)
	assert.Equal(t, "database unavailable", Message(err))

	fail.Store(false)
	got, err := c.Customers.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	_, err = c.Customers.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.count("GET /customers/c1"))
}

func TestLoginAndLogout(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "secret-pass" {
			writeBody(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password", "code": "INVALID_CREDENTIALS"})
			return
		}
		writeBody(w, http.StatusOK, models.LoginResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			User:         models.User{ID: "u1", Email: body.Email, Roles: []string{"owner"}},
		})
	})
	stub.handle("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		var body models.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh", body.RefreshToken)
		w.WriteHeader(http.StatusNoContent)
	})
	session := NewSession()
	c := newTestClient(t, srv.URL, session)
	ctx := context.Background()

	_, err := c.Login(ctx, "owner@example.com", "wrong-pass")
	require.Error(t, err)
	assert.Equal(t, "invalid email or password", Message(err))
	assert.Empty(t, session.AccessToken())

	_, err = c.Login(ctx, "not-an-email", "x")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	user, err := c.Login(ctx, "owner@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "access", session.AccessToken())
	assert.Equal(t, "refresh", session.RefreshToken())

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, session.AccessToken())
	assert.Empty(t, session.RefreshToken())
	assert.Equal(t, 1, stub.count("POST /auth/logout"))
	assert.Equal(t, 2, stub.count("POST /auth/login"))
}

func TestShopStatsNeedsShop(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("GET /shops/s1/stats", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, models.ShopStats{Customers: 4, LowStock: 1})
	})
	c := newTestClient(t, srv.URL, signedIn("a", "r"))

	_, err := c.ShopStats(context.Background(), "")
	require.ErrorIs(t, err, ErrShopIDRequired)

	st, err := c.ShopStats(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Customers)
	assert.Equal(t, 1, st.LowStock)
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantMsg  string
		wantCode string
	}{
		{"error field", `{"error":"Customer not found","code":"NOT_FOUND"}`, "Customer not found", "NOT_FOUND"},
		{"message field", `{"message":"slow down"}`, "slow down", ""},
		{"plain text", "bad gateway\n", "bad gateway", ""},
		{"html page", "<html><body>oops</body></html>", fallbackMessage, ""},
		{"empty", "", fallbackMessage, ""},
		{"json without message", `{"code":"X"}`, fallbackMessage, "X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := parseAPIError(http.StatusBadGateway, []byte(tt.body))
			assert.Equal(t, tt.wantMsg, e.Message)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, http.StatusBadGateway, e.StatusCode)
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, fallbackMessage, Message(errors.New("dial tcp: refused")))
	assert.Equal(t, "Shop ID is required", Message(ErrShopIDRequired))
	assert.Equal(t, "x", Message(&APIError{StatusCode: 400, Message: "x"}))
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	_, err := New("", nil)
	require.Error(t, err)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return d
}

func TestTransactionMutationInvalidatesInventory(t *testing.T) {
	stub, srv := newAPIStub(t)
	var quantity atomic.Int64
	quantity.Store(10)
	stub.handle("GET /inventory", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, map[string]any{
			"data":  []map[string]any{{"id": "i1", "name": "Rice", "quantity": quantity.Load()}},
			"total": 1,
		})
	})
	stub.handle("GET /expenses", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, map[string]any{"data": []any{}, "total": 0})
	})
	stub.handle("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		quantity.Add(-3)
		writeBody(w, http.StatusCreated, map[string]any{"id": "t1", "shop": "s1", "type": "sale"})
	})
	c := newTestClient(t, srv.URL, signedIn("a", "r"))
	ctx := context.Background()
	q := Query{ShopID: "s1"}

	page, err := c.Inventory.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "10", page.Items[0].Quantity.String())
	_, err = c.Expenses.List(ctx, q)
	require.NoError(t, err)

	customer := "c1"
	_, err = c.Transactions.Create(ctx, models.TransactionInput{
		Shop: "s1", Type: models.TransactionSale, Customer: &customer,
		InventoryDetails: []models.InventoryDetail{{Name: "Rice", Quantity: decimal.NewFromInt(3)}},
	})
	require.NoError(t, err)

	page, err = c.Inventory.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "7", page.Items[0].Quantity.String())
	assert.Equal(t, 2, stub.count("GET /inventory"))

	_, err = c.Expenses.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.count("GET /expenses"))
}

func TestListReturnsCopyOfCachedItems(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "c1", "name": "Ann"}}, "total": 1})
	})
	c := newTestClient(t, srv.URL, signedIn("a", "r"))
	ctx := context.Background()
	q := Query{ShopID: "s1"}

	page, err := c.Customers.List(ctx, q)
	require.NoError(t, err)
	page.Items[0].Name = "changed"

	again, err := c.Customers.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "Ann", again.Items[0].Name)
	assert.Equal(t, 1, stub.count("GET /customers"))
}

func TestCancelledCallerDoesNotExpireSession(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("GET /shops", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})
	stub.handle("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		writeBody(w, http.StatusOK, models.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh"})
	})
	var navigations atomic.Int32
	session := signedIn("access", "refresh")
	c := newTestClient(t, srv.URL, session, WithNavigator(NavigatorFunc(func(string) { navigations.Add(1) })))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.Shops.List(ctx, Query{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrSessionExpired)

	// The exchange finishes on its own and stores the new pair.
	assert.Eventually(t, func() bool { return session.AccessToken() == "new-access" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "new-refresh", session.RefreshToken())
	assert.Zero(t, navigations.Load())
}

func TestRefreshServerErrorKeepsSession(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.handle("GET /shops", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})
	stub.handle("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusServiceUnavailable, map[string]string{"error": "Revocation failed", "code": "REVOCATION_FAILED"})
	})
	var navigations atomic.Int32
	session := signedIn("access", "refresh")
	c := newTestClient(t, srv.URL, session, WithNavigator(NavigatorFunc(func(string) { navigations.Add(1) })))

	_, err := c.Shops.List(context.Background(), Query{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "refresh", session.RefreshToken())
	assert.Zero(t, navigations.Load())
}
