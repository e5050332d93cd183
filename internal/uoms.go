package internal

import (
	"database/sql"
	"net/http"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/models"
)

const uomColumns = `id, shop_id, name, short_name, created_at, updated_at`

func scanUOM(row interface{ Scan(...any) error }, u *models.UOM) error {
	return row.Scan(&u.ID, &u.Shop, &u.Name, &u.ShortName, &u.CreatedAt, &u.UpdatedAt)
}

func (s *Server) listUOMs(w http.ResponseWriter, r *http.Request) {
	params, ok := s.requireShop(w, r)
	if !ok {
		return
	}

	var where whereBuilder
	where.scopeShop("shop_id", params.shopID, auth.AccountIDFromContext(r.Context()))
	if params.search != "" {
		where.add("(name ILIKE $? OR short_name ILIKE $?)", "%"+params.search+"%")
	}

	q := dbFrom(r.Context(), s.DB)
	var total int
	if err := q.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM uoms"+where.String(), where.args...).Scan(&total); err != nil {
		writeDBError(w, r, err, "unit")
		return
	}

	sqlStr := "SELECT " + uomColumns + " FROM uoms" + where.String() +
		buildOrderBy(params.sort, map[string]string{
			"default":   "name ASC",
			"name":      "name",
			"shortName": "short_name",
			"createdAt": "created_at",
		}) + params.limitOffset()
	rows, err := q.QueryContext(r.Context(), sqlStr, where.args...)
	if err != nil {
		writeDBError(w, r, err, "unit")
		return
	}
	defer rows.Close()

	uoms := []models.UOM{}
	for rows.Next() {
		var u models.UOM
		if err := scanUOM(rows, &u); err != nil {
			writeDBError(w, r, err, "unit")
			return
		}
		uoms = append(uoms, u)
	}
	if err := rows.Err(); err != nil {
		writeDBError(w, r, err, "unit")
		return
	}
	sendListResponse(w, uoms, total, params)
}

func (s *Server) getUOM(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var u models.UOM
	err := scanUOM(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+uomColumns+" FROM uoms WHERE id = $1 AND "+accountShops,
		id, auth.AccountIDFromContext(r.Context())), &u)
	if err != nil {
		writeDBError(w, r, err, "unit")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) createUOM(w http.ResponseWriter, r *http.Request) {
	var in models.UOMInput
	if !decodeInput(w, r, &in) || !s.checkShopAccess(w, r, in.Shop) {
		return
	}
	var u models.UOM
	err := scanUOM(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO uoms (shop_id, name, short_name)
		VALUES ($1, $2, $3)
		RETURNING `+uomColumns, in.Shop, in.Name, nullIfEmpty(in.ShortName)), &u)
	if err != nil {
		writeDBError(w, r, err, "unit")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) updateUOM(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.UOMInput
	if !decodeInput(w, r, &in) {
		return
	}
	var u models.UOM
	err := scanUOM(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE uoms SET name = $3, short_name = $4, updated_at = now()
		WHERE id = $1 AND `+accountShops+` AND shop_id = $5
		RETURNING `+uomColumns,
		id, auth.AccountIDFromContext(r.Context()), in.Name, nullIfEmpty(in.ShortName), in.Shop), &u)
	if err != nil {
		writeDBError(w, r, err, "unit")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// deleteUOM detaches the unit from inventory rows (ON DELETE SET NULL).
func (s *Server) deleteUOM(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		"DELETE FROM uoms WHERE id = $1 AND "+accountShops, id, auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeDBError(w, r, err, "unit")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeDBError(w, r, sql.ErrNoRows, "unit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
