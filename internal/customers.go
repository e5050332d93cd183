package internal

import (
	"database/sql"
	"net/http"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/models"
)

const customerColumns = `id, shop_id, name, phone, email, address, notes, created_at, updated_at`

// accountShops restricts shop_id to the caller's shops. The account id
// must be bound as $2.
const accountShops = `shop_id IN (SELECT id FROM shops WHERE account_id = $2)`

func scanCustomer(row interface{ Scan(...any) error }, c *models.Customer) error {
	return row.Scan(&c.ID, &c.Shop, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
}

// listCustomers supports a free-text search over name, phone and email, or a
// created-at date range.
func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	params, ok := s.requireShop(w, r)
	if !ok {
		return
	}

	var where whereBuilder
	where.scopeShop("shop_id", params.shopID, auth.AccountIDFromContext(r.Context()))
	if params.search != "" {
		where.add("(name ILIKE $? OR phone ILIKE $? OR email ILIKE $?)", "%"+params.search+"%")
	}
	where.dateRange("created_at::date", params)

	q := dbFrom(r.Context(), s.DB)
	var total int
	if err := q.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM customers"+where.String(), where.args...).Scan(&total); err != nil {
		writeDBError(w, r, err, "customer")
		return
	}

	sqlStr := "SELECT " + customerColumns + " FROM customers" + where.String() +
		buildOrderBy(params.sort, map[string]string{
			"name":      "name",
			"createdAt": "created_at",
			"updatedAt": "updated_at",
		}) + params.limitOffset()
	rows, err := q.QueryContext(r.Context(), sqlStr, where.args...)
	if err != nil {
		writeDBError(w, r, err, "customer")
		return
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var c models.Customer
		if err := scanCustomer(rows, &c); err != nil {
			writeDBError(w, r, err, "customer")
			return
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		writeDBError(w, r, err, "customer")
		return
	}
	sendListResponse(w, customers, total, params)
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var c models.Customer
	err := scanCustomer(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+customerColumns+" FROM customers WHERE id = $1 AND "+accountShops,
		id, auth.AccountIDFromContext(r.Context())), &c)
	if err != nil {
		writeDBError(w, r, err, "customer")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in models.CustomerInput
	if !decodeInput(w, r, &in) || !s.checkShopAccess(w, r, in.Shop) {
		return
	}
	var c models.Customer
	err := scanCustomer(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO customers (shop_id, name, phone, email, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+customerColumns,
		in.Shop, in.Name, nullIfEmpty(in.Phone), nullIfEmpty(in.Email), nullIfEmpty(in.Address), nullIfEmpty(in.Notes)), &c)
	if err != nil {
		writeDBError(w, r, err, "customer")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// updateCustomer replaces every editable field; the row must stay in its shop.
func (s *Server) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.CustomerInput
	if !decodeInput(w, r, &in) {
		return
	}
	var c models.Customer
	err := scanCustomer(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE customers
		SET name = $3, phone = $4, email = $5, address = $6, notes = $7, updated_at = now()
		WHERE id = $1 AND `+accountShops+` AND shop_id = $8
		RETURNING `+customerColumns,
		id, auth.AccountIDFromContext(r.Context()),
		in.Name, nullIfEmpty(in.Phone), nullIfEmpty(in.Email), nullIfEmpty(in.Address), nullIfEmpty(in.Notes), in.Shop), &c)
	if err != nil {
		writeDBError(w, r, err, "customer")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		"DELETE FROM customers WHERE id = $1 AND "+accountShops, id, auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeDBError(w, r, err, "customer")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeDBError(w, r, sql.ErrNoRows, "customer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
