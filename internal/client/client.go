// Package client is the typed HTTP client of the shop admin API. It keeps
// the session tokens, refreshes them on a 401 and caches list reads.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"shop-admin-api/internal/models"
)

// SignInPath is where the navigator is sent when the session expires.
const SignInPath = "/sign-in"

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Client talks to the API on behalf of one session.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *Session
	nav     Navigator
	log     *zap.Logger
	cache   *Cache
	refresh singleflight.Group

	Shops        *Resource[models.Shop, models.ShopInput, models.ShopInput]
	Customers    *Resource[models.Customer, models.CustomerInput, models.CustomerInput]
	Vendors      *Resource[models.Vendor, models.VendorInput, models.VendorInput]
	UOMs         *Resource[models.UOM, models.UOMInput, models.UOMInput]
	Inventory    *Resource[models.Inventory, models.InventoryInput, models.InventoryInput]
	Expenses     *Resource[models.Expense, models.ExpenseInput, models.ExpenseInput]
	Transactions *Resource[models.Transaction, models.TransactionInput, models.TransactionInput]
	Plans        *Resource[models.SubscriptionPlan, models.SubscriptionPlanInput, models.SubscriptionPlanInput]
	Users        *Resource[models.User, models.CreateUserRequest, models.UpdateUserRequest]
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithNavigator(n Navigator) Option { return func(c *Client) { c.nav = n } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithCache sets the list cache; a size of zero disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *Client) { c.cache = NewCache(size, ttl) }
}

// New creates a client for baseURL. A nil session is replaced by an
// in-memory one.
func New(baseURL string, session *Session, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if session == nil {
		session = NewSession()
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
		log:     zap.NewNop(),
		cache:   NewCache(DefaultCacheSize, DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Shops = newResource[models.Shop, models.ShopInput, models.ShopInput](c, "/shops", false)
	c.Customers = newResource[models.Customer, models.CustomerInput, models.CustomerInput](c, "/customers", true, "/transactions")
	c.Vendors = newResource[models.Vendor, models.VendorInput, models.VendorInput](c, "/vendors", true, "/transactions")
	c.UOMs = newResource[models.UOM, models.UOMInput, models.UOMInput](c, "/uoms", true, "/inventory")
	c.Inventory = newResource[models.Inventory, models.InventoryInput, models.InventoryInput](c, "/inventory", true)
	c.Expenses = newResource[models.Expense, models.ExpenseInput, models.ExpenseInput](c, "/expenses", true)
	// Transactions move stock, so they drop cached inventory too.
	c.Transactions = newResource[models.Transaction, models.TransactionInput, models.TransactionInput](c, "/transactions", true, "/inventory")
	c.Plans = newResource[models.SubscriptionPlan, models.SubscriptionPlanInput, models.SubscriptionPlanInput](c, "/subscription-plans", false)
	c.Users = newResource[models.User, models.CreateUserRequest, models.UpdateUserRequest](c, "/users", false)
	return c, nil
}

// Session returns the session the client reads tokens from.
func (c *Client) Session() *Session { return c.session }

// Cache returns the list cache, nil when disabled.
func (c *Client) Cache() *Cache { return c.cache }

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	auth    bool   // send the bearer token and run the 401 flow
	token   string // access token the request went out with
	retried bool
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.send(ctx, &request{method: method, path: path, query: query, body: body, auth: true}, out)
}

// send runs a request. A 401 triggers one token refresh and one retry; a
// 401 on the retry is returned as is.
func (c *Client) send(ctx context.Context, req *request, out any) error {
	status, raw, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && req.auth {
		if req.retried {
			return parseAPIError(status, raw)
		}
		if err := c.refreshTokens(ctx, req.token); err != nil {
			return err
		}
		req.retried = true
		return c.send(ctx, req, out)
	}
	if status < 200 || status >= 300 {
		return parseAPIError(status, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req *request) (int, []byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.auth {
		req.token = c.session.AccessToken()
		if req.token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+req.token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// refreshTimeout bounds the token exchange, which runs detached from the
// context of the caller that started it.
const refreshTimeout = 15 * time.Second

// refreshTokens exchanges the refresh token for a new pair. Concurrent
// callers share one exchange, and a caller whose token was already
// replaced just retries. The session expires only when the server rejects
// the refresh token; a cancelled caller or a failed transport keeps it.
func (c *Client) refreshTokens(ctx context.Context, failed string) error {
	replaced := func() bool {
		current := c.session.AccessToken()
		return current != "" && current != failed
	}
	if replaced() {
		return nil
	}
	ch := c.refresh.DoChan("refresh", func() (any, error) {
		if replaced() {
			return nil, nil
		}
		rt := c.session.RefreshToken()
		if rt == "" {
			return nil, c.expire(errors.New("no refresh token"))
		}
		c.log.Debug("refreshing access token")
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		var pair models.TokenResponse
		err := c.send(rctx, &request{
			method: http.MethodPost,
			path:   "/auth/refresh",
			body:   models.RefreshRequest{RefreshToken: rt},
		}, &pair)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
				return nil, c.expire(err)
			}
			c.log.Warn("token refresh failed", zap.Error(err))
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		return nil, c.session.SetTokens(pair.AccessToken, pair.RefreshToken)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// expire clears the session and sends the user to sign in, once per sign-in.
func (c *Client) expire(cause error) error {
	first, err := c.session.expire()
	if err != nil {
		c.log.Warn("clear session", zap.Error(err))
	}
	c.cache.Purge()
	if first {
		c.log.Warn("session expired", zap.Error(cause))
		if c.nav != nil {
			c.nav.Navigate(SignInPath)
		}
	}
	return ErrSessionExpired
}

// Login signs in and stores the token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	req := models.LoginRequest{Email: email, Password: password}
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	var resp models.LoginResponse
	if err := c.send(ctx, &request{method: http.MethodPost, path: "/auth/login", body: req}, &resp); err != nil {
		return nil, err
	}
	if err := c.session.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		return nil, err
	}
	c.cache.Purge()
	return &resp.User, nil
}

// Logout revokes the tokens server side and clears the session. The
// session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	snap := c.session.Snapshot()
	var err error
	if snap.RefreshToken != "" {
		err = c.send(ctx, &request{
			method: http.MethodPost,
			path:   "/auth/logout",
			body:   models.RefreshRequest{RefreshToken: snap.RefreshToken},
			auth:   false,
		}, nil)
	}
	c.cache.Purge()
	return errors.Join(err, c.session.Clear())
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	req := models.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	if err := models.Validate(req); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/auth/change-password", nil, req, nil)
}

// ShopStats returns record counts of a shop.
func (c *Client) ShopStats(ctx context.Context, shopID string) (*models.ShopStats, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, ErrShopIDRequired
	}
	var st models.ShopStats
	if err := c.do(ctx, http.MethodGet, "/shops/"+url.PathEscape(shopID)+"/stats", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
