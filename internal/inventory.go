package internal

import (
	"database/sql"
	"net/http"

	"github.com/google/uuid"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/models"
)

const inventorySelect = `
	SELECT i.id, i.shop_id, i.uom_id, u.name, i.name, i.sku, i.quantity, i.price, i.cost_price,
	       i.low_stock_threshold, i.description, i.created_at, i.updated_at`

func scanInventory(row interface{ Scan(...any) error }, it *models.Inventory) error {
	return row.Scan(&it.ID, &it.Shop, &it.UOM, &it.UOMName, &it.Name, &it.SKU, &it.Quantity, &it.Price,
		&it.CostPrice, &it.LowStockThreshold, &it.Description, &it.CreatedAt, &it.UpdatedAt)
}

// listInventory searches name and SKU and can narrow to one unit or to rows
// at or below their low-stock threshold.
func (s *Server) listInventory(w http.ResponseWriter, r *http.Request) {
	params, ok := s.requireShop(w, r)
	if !ok {
		return
	}
	uomID, err := optionalUUID(r, "uomId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
		return
	}

	var where whereBuilder
	where.scopeShop("i.shop_id", params.shopID, auth.AccountIDFromContext(r.Context()))
	if params.search != "" {
		where.add("(i.name ILIKE $? OR i.sku ILIKE $?)", "%"+params.search+"%")
	}
	if uomID != "" {
		where.add("i.uom_id = $?", uomID)
	}
	if r.URL.Query().Get("lowStock") == "true" {
		where.clauses = append(where.clauses, "i.low_stock_threshold IS NOT NULL AND i.quantity <= i.low_stock_threshold")
	}
	where.dateRange("i.created_at::date", params)

	q := dbFrom(r.Context(), s.DB)
	var total int
	if err := q.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM inventory i"+where.String(), where.args...).Scan(&total); err != nil {
		writeDBError(w, r, err, "inventory item")
		return
	}

	sqlStr := inventorySelect + " FROM inventory i LEFT JOIN uoms u ON u.id = i.uom_id" + where.String() +
		buildOrderBy(params.sort, map[string]string{
			"default":   "i.name ASC",
			"name":      "i.name",
			"sku":       "i.sku",
			"quantity":  "i.quantity",
			"price":     "i.price",
			"costPrice": "i.cost_price",
			"createdAt": "i.created_at",
		}) + params.limitOffset()
	rows, err := q.QueryContext(r.Context(), sqlStr, where.args...)
	if err != nil {
		writeDBError(w, r, err, "inventory item")
		return
	}
	defer rows.Close()

	items := []models.Inventory{}
	for rows.Next() {
		var it models.Inventory
		if err := scanInventory(rows, &it); err != nil {
			writeDBError(w, r, err, "inventory item")
			return
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		writeDBError(w, r, err, "inventory item")
		return
	}
	sendListResponse(w, items, total, params)
}

func (s *Server) getInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var it models.Inventory
	err := scanInventory(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		inventorySelect+` FROM inventory i LEFT JOIN uoms u ON u.id = i.uom_id
		WHERE i.id = $1 AND i.`+accountShops,
		id, auth.AccountIDFromContext(r.Context())), &it)
	if err != nil {
		writeDBError(w, r, err, "inventory item")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// checkUOM rejects a unit that is malformed or belongs to another shop.
func (s *Server) checkUOM(w http.ResponseWriter, r *http.Request, shopID string, uomID *string) bool {
	if uomID == nil || *uomID == "" {
		return true
	}
	if _, err := uuid.Parse(*uomID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid uom", "INVALID_UOM")
		return false
	}
	var ok bool
	if err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		`SELECT EXISTS (SELECT 1 FROM uoms WHERE id = $1 AND shop_id = $2)`, *uomID, shopID).Scan(&ok); err != nil {
		writeDBError(w, r, err, "unit")
		return false
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "unit does not belong to this shop", "INVALID_UOM")
		return false
	}
	return true
}

func (s *Server) createInventory(w http.ResponseWriter, r *http.Request) {
	var in models.InventoryInput
	if !decodeInput(w, r, &in) || !s.checkShopAccess(w, r, in.Shop) || !s.checkUOM(w, r, in.Shop, in.UOM) {
		return
	}
	var it models.Inventory
	err := scanInventory(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		WITH i AS (
			INSERT INTO inventory (shop_id, uom_id, name, sku, quantity, price, cost_price, low_stock_threshold, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING *
		)`+inventorySelect+` FROM i LEFT JOIN uoms u ON u.id = i.uom_id`,
		in.Shop, nullIfEmpty(in.UOM), in.Name, nullIfEmpty(in.SKU), in.Quantity, in.Price, in.CostPrice,
		in.LowStockThreshold, nullIfEmpty(in.Description)), &it)
	if err != nil {
		writeDBError(w, r, err, "inventory item")
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) updateInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.InventoryInput
	if !decodeInput(w, r, &in) || !s.checkUOM(w, r, in.Shop, in.UOM) {
		return
	}
	var it models.Inventory
	err := scanInventory(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		WITH i AS (
			UPDATE inventory
			SET uom_id = $3, name = $4, sku = $5, quantity = $6, price = $7, cost_price = $8,
			    low_stock_threshold = $9, description = $10, updated_at = now()
			WHERE id = $1 AND `+accountShops+` AND shop_id = $11
			RETURNING *
		)`+inventorySelect+` FROM i LEFT JOIN uoms u ON u.id = i.uom_id`,
		id, auth.AccountIDFromContext(r.Context()),
		nullIfEmpty(in.UOM), in.Name, nullIfEmpty(in.SKU), in.Quantity, in.Price, in.CostPrice,
		in.LowStockThreshold, nullIfEmpty(in.Description), in.Shop), &it)
	if err != nil {
		writeDBError(w, r, err, "inventory item")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) deleteInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		"DELETE FROM inventory WHERE id = $1 AND "+accountShops, id, auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeDBError(w, r, err, "inventory item")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeDBError(w, r, sql.ErrNoRows, "inventory item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
