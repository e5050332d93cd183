package internal

import (
	"database/sql"
	"net/http"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/models"
)

const vendorColumns = `id, shop_id, name, phone, email, address, notes, created_at, updated_at`

func scanVendor(row interface{ Scan(...any) error }, v *models.Vendor) error {
	return row.Scan(&v.ID, &v.Shop, &v.Name, &v.Phone, &v.Email, &v.Address, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
}

// listVendors mirrors listCustomers.
func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
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
	if err := q.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM vendors"+where.String(), where.args...).Scan(&total); err != nil {
		writeDBError(w, r, err, "vendor")
		return
	}

	sqlStr := "SELECT " + vendorColumns + " FROM vendors" + where.String() +
		buildOrderBy(params.sort, map[string]string{
			"name":      "name",
			"createdAt": "created_at",
			"updatedAt": "updated_at",
		}) + params.limitOffset()
	rows, err := q.QueryContext(r.Context(), sqlStr, where.args...)
	if err != nil {
		writeDBError(w, r, err, "vendor")
		return
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		var v models.Vendor
		if err := scanVendor(rows, &v); err != nil {
			writeDBError(w, r, err, "vendor")
			return
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		writeDBError(w, r, err, "vendor")
		return
	}
	sendListResponse(w, vendors, total, params)
}

func (s *Server) getVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var v models.Vendor
	err := scanVendor(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+vendorColumns+" FROM vendors WHERE id = $1 AND "+accountShops,
		id, auth.AccountIDFromContext(r.Context())), &v)
	if err != nil {
		writeDBError(w, r, err, "vendor")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) createVendor(w http.ResponseWriter, r *http.Request) {
	var in models.VendorInput
	if !decodeInput(w, r, &in) || !s.checkShopAccess(w, r, in.Shop) {
		return
	}
	var v models.Vendor
	err := scanVendor(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO vendors (shop_id, name, phone, email, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+vendorColumns,
		in.Shop, in.Name, nullIfEmpty(in.Phone), nullIfEmpty(in.Email), nullIfEmpty(in.Address), nullIfEmpty(in.Notes)), &v)
	if err != nil {
		writeDBError(w, r, err, "vendor")
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.VendorInput
	if !decodeInput(w, r, &in) {
		return
	}
	var v models.Vendor
	err := scanVendor(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE vendors
		SET name = $3, phone = $4, email = $5, address = $6, notes = $7, updated_at = now()
		WHERE id = $1 AND `+accountShops+` AND shop_id = $8
		RETURNING `+vendorColumns,
		id, auth.AccountIDFromContext(r.Context()),
		in.Name, nullIfEmpty(in.Phone), nullIfEmpty(in.Email), nullIfEmpty(in.Address), nullIfEmpty(in.Notes), in.Shop), &v)
	if err != nil {
		writeDBError(w, r, err, "vendor")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		"DELETE FROM vendors WHERE id = $1 AND "+accountShops, id, auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeDBError(w, r, err, "vendor")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeDBError(w, r, sql.ErrNoRows, "vendor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
