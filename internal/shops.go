package internal

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/models"
)

// idParam reads and checks the {id} route parameter. On failure it has
// already written the response.
func idParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID is required", "ID_REQUIRED")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid id", "INVALID_ID")
		return "", false
	}
	return id, true
}

// requireShop parses list parameters and insists on a shopId belonging to
// the caller's account.
func (s *Server) requireShop(w http.ResponseWriter, r *http.Request) (listParams, bool) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
		return params, false
	}
	if params.shopID == "" {
		writeError(w, http.StatusBadRequest, errShopIDRequired.Error(), "SHOP_ID_REQUIRED")
		return params, false
	}
	return params, true
}

// ownsShop reports whether shopID belongs to accountID.
func (s *Server) ownsShop(ctx context.Context, accountID, shopID string) (bool, error) {
	if _, err := uuid.Parse(shopID); err != nil {
		return false, nil
	}
	var ok bool
	err := dbFrom(ctx, s.DB).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM shops WHERE id = $1 AND account_id = $2)`, shopID, accountID).Scan(&ok)
	return ok, err
}

// checkShopAccess writes 400/404 when the form's shop is missing or foreign.
func (s *Server) checkShopAccess(w http.ResponseWriter, r *http.Request, shopID string) bool {
	if strings.TrimSpace(shopID) == "" {
		writeError(w, http.StatusBadRequest, errShopIDRequired.Error(), "SHOP_ID_REQUIRED")
		return false
	}
	ok, err := s.ownsShop(r.Context(), auth.AccountIDFromContext(r.Context()), shopID)
	if err != nil {
		writeDBError(w, r, err, "shop")
		return false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "shop not found", "NOT_FOUND")
		return false
	}
	return true
}

const shopColumns = `id, account_id, name, address, phone, created_at, updated_at`

func scanShop(row interface{ Scan(...any) error }, sh *models.Shop) error {
	return row.Scan(&sh.ID, &sh.AccountID, &sh.Name, &sh.Address, &sh.Phone, &sh.CreatedAt, &sh.UpdatedAt)
}

func (s *Server) listShops(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
		return
	}

	var where whereBuilder
	where.add("account_id = $?", auth.AccountIDFromContext(r.Context()))
	if params.search != "" {
		where.add("(name ILIKE $? OR address ILIKE $? OR phone ILIKE $?)", "%"+params.search+"%")
	}

	q := dbFrom(r.Context(), s.DB)
	var total int
	if err := q.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM shops"+where.String(), where.args...).Scan(&total); err != nil {
		writeDBError(w, r, err, "shop")
		return
	}

	sqlStr := "SELECT " + shopColumns + " FROM shops" + where.String() +
		buildOrderBy(params.sort, map[string]string{
			"default":   "name ASC",
			"name":      "name",
			"createdAt": "created_at",
		}) + params.limitOffset()
	rows, err := q.QueryContext(r.Context(), sqlStr, where.args...)
	if err != nil {
		writeDBError(w, r, err, "shop")
		return
	}
	defer rows.Close()

	shops := []models.Shop{}
	for rows.Next() {
		var sh models.Shop
		if err := scanShop(rows, &sh); err != nil {
			writeDBError(w, r, err, "shop")
			return
		}
		shops = append(shops, sh)
	}
	if err := rows.Err(); err != nil {
		writeDBError(w, r, err, "shop")
		return
	}
	sendListResponse(w, shops, total, params)
}

func (s *Server) getShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var sh models.Shop
	err := scanShop(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+shopColumns+" FROM shops WHERE id = $1 AND account_id = $2",
		id, auth.AccountIDFromContext(r.Context())), &sh)
	if err != nil {
		writeDBError(w, r, err, "shop")
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (s *Server) createShop(w http.ResponseWriter, r *http.Request) {
	var in models.ShopInput
	if !decodeInput(w, r, &in) {
		return
	}
	accountID := auth.AccountIDFromContext(r.Context())
	q := dbFrom(r.Context(), s.DB)

	// The account's plan bounds how many shops it may run.
	var maxShops, current int
	err := q.QueryRowContext(r.Context(), `
		SELECT COALESCE(p.max_shops, 1),
		       (SELECT COUNT(*) FROM shops WHERE account_id = a.id)
		FROM accounts a
		LEFT JOIN subscription_plans p ON p.id = a.plan_id AND p.is_active
		WHERE a.id = $1`, accountID).Scan(&maxShops, &current)
	if err != nil {
		writeDBError(w, r, err, "account")
		return
	}
	if current >= maxShops {
		writeError(w, http.StatusForbidden, "Shop limit of the current plan reached", "PLAN_LIMIT")
		return
	}

	var sh models.Shop
	err = scanShop(q.QueryRowContext(r.Context(), `
		INSERT INTO shops (account_id, name, address, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING `+shopColumns, accountID, in.Name, nullIfEmpty(in.Address), nullIfEmpty(in.Phone)), &sh)
	if err != nil {
		writeDBError(w, r, err, "shop")
		return
	}
	writeJSON(w, http.StatusCreated, sh)
}

func (s *Server) updateShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.ShopInput
	if !decodeInput(w, r, &in) {
		return
	}
	var sh models.Shop
	err := scanShop(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE shops SET name = $1, address = $2, phone = $3, updated_at = now()
		WHERE id = $4 AND account_id = $5
		RETURNING `+shopColumns,
		in.Name, nullIfEmpty(in.Address), nullIfEmpty(in.Phone), id, auth.AccountIDFromContext(r.Context())), &sh)
	if err != nil {
		writeDBError(w, r, err, "shop")
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

// deleteShop refuses to drop a shop that still has transactions.
func (s *Server) deleteShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	accountID := auth.AccountIDFromContext(r.Context())
	q := dbFrom(r.Context(), s.DB)

	var txCount int
	if err := q.QueryRowContext(r.Context(), `
		SELECT COUNT(*) FROM transactions
		WHERE shop_id IN (SELECT id FROM shops WHERE id = $1 AND account_id = $2)`, id, accountID).Scan(&txCount); err != nil {
		writeDBError(w, r, err, "shop")
		return
	}
	if txCount > 0 {
		writeError(w, http.StatusConflict, "Cannot delete a shop with recorded transactions", "IN_USE")
		return
	}

	res, err := q.ExecContext(r.Context(), `DELETE FROM shops WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		writeDBError(w, r, err, "shop")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeDBError(w, r, sql.ErrNoRows, "shop")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getShopStats returns record counts for the shop dashboard.
func (s *Server) getShopStats(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	q := dbFrom(r.Context(), s.DB)

	var stats models.ShopStats
	err := scanShop(q.QueryRowContext(r.Context(),
		"SELECT "+shopColumns+" FROM shops WHERE id = $1 AND account_id = $2",
		id, auth.AccountIDFromContext(r.Context())), &stats.Shop)
	if err != nil {
		writeDBError(w, r, err, "shop")
		return
	}

	err = q.QueryRowContext(r.Context(), `
		SELECT
			(SELECT COUNT(*) FROM customers WHERE shop_id = $1),
			(SELECT COUNT(*) FROM vendors WHERE shop_id = $1),
			(SELECT COUNT(*) FROM inventory WHERE shop_id = $1),
			(SELECT COUNT(*) FROM inventory WHERE shop_id = $1
			   AND low_stock_threshold IS NOT NULL AND quantity <= low_stock_threshold),
			(SELECT COUNT(*) FROM transactions WHERE shop_id = $1),
			(SELECT COUNT(*) FROM expenses WHERE shop_id = $1)`, id).Scan(
		&stats.Customers, &stats.Vendors, &stats.Inventory, &stats.LowStock, &stats.Transactions, &stats.Expenses)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		writeDBError(w, r, err, "shop")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// nullIfEmpty maps nil or blank optional strings to SQL NULL.
func nullIfEmpty(s *string) any {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return strings.TrimSpace(*s)
}
