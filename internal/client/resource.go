package client

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"shop-admin-api/internal/models"
)

// Resource is the CRUD service of one entity. T is the record type, C the
// create form and U the update form.
type Resource[T, C, U any] struct {
	c          *Client
	path       string
	shopScoped bool
	dependents []string // entities whose server-side rows change with this one
}

func newResource[T, C, U any](c *Client, path string, shopScoped bool, dependents ...string) *Resource[T, C, U] {
	return &Resource[T, C, U]{c: c, path: path, shopScoped: shopScoped, dependents: dependents}
}

// Path is the collection path of the entity, e.g. "/customers".
func (r *Resource[T, C, U]) Path() string { return r.path }

// List fetches one page. Shop scoped entities refuse to list without a shop
// and never reach the network in that case.
func (r *Resource[T, C, U]) List(ctx context.Context, q Query) (Page[T], error) {
	if r.shopScoped && strings.TrimSpace(q.ShopID) == "" {
		return Page[T]{Items: []T{}}, ErrShopIDRequired
	}
	page, err := cached(ctx, r.c.cache, q.key(r.path), func(ctx context.Context) (Page[T], error) {
		var body models.ListResponse[T]
		if err := r.c.do(ctx, http.MethodGet, r.path, q.Values(), nil, &body); err != nil {
			return Page[T]{Items: []T{}}, err
		}
		if body.Data == nil {
			body.Data = []T{}
		}
		return Page[T]{Items: body.Data, Total: body.Total}, nil
	})
	// The cached page is shared; callers get their own slice.
	page.Items = slices.Clone(page.Items)
	return page, err
}

func (r *Resource[T, C, U]) Get(ctx context.Context, id string) (*T, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrIDRequired
	}
	t, err := cached(ctx, r.c.cache, r.itemPath(id), func(ctx context.Context) (T, error) {
		var t T
		err := r.c.do(ctx, http.MethodGet, r.itemPath(id), nil, nil, &t)
		return t, err
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Resource[T, C, U]) Create(ctx context.Context, in C) (*T, error) {
	if err := r.checkForm(in); err != nil {
		return nil, err
	}
	var out T
	if err := r.c.do(ctx, http.MethodPost, r.path, nil, in, &out); err != nil {
		return nil, err
	}
	r.invalidate()
	return &out, nil
}

func (r *Resource[T, C, U]) Update(ctx context.Context, id string, in U) (*T, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrIDRequired
	}
	if err := r.checkForm(in); err != nil {
		return nil, err
	}
	var out T
	if err := r.c.do(ctx, http.MethodPut, r.itemPath(id), nil, in, &out); err != nil {
		return nil, err
	}
	r.invalidate()
	return &out, nil
}

func (r *Resource[T, C, U]) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrIDRequired
	}
	if err := r.c.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// invalidate drops the cached reads of this entity and of its dependents.
func (r *Resource[T, C, U]) invalidate() {
	r.c.cache.Invalidate(r.path)
	for _, p := range r.dependents {
		r.c.cache.Invalidate(p)
	}
}

func (r *Resource[T, C, U]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// checkForm runs the local checks of a form before it is sent: the shop
// first, then the declarative constraints.
func (r *Resource[T, C, U]) checkForm(in any) error {
	if sc, ok := in.(models.ShopScoped); ok && strings.TrimSpace(sc.ShopID()) == "" {
		return ErrShopIDRequired
	}
	return models.Validate(in)
}
