package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/logger"
	"shop-admin-api/internal/models"
)

const transactionSelect = `
	SELECT t.id, t.shop_id, t.type, t.customer_id, c.name, t.vendor_id, v.name,
	       t.amount, t.advance, t.paid, t.date, t.notes, t.created_at, t.updated_at`

const transactionJoins = `
	LEFT JOIN customers c ON c.id = t.customer_id
	LEFT JOIN vendors v ON v.id = t.vendor_id`

func scanTransaction(row interface{ Scan(...any) error }, t *models.Transaction) error {
	return row.Scan(&t.ID, &t.Shop, &t.Type, &t.Customer, &t.CustomerName, &t.Vendor, &t.VendorName,
		&t.Amount, &t.Advance, &t.Paid, &t.Date, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
}

// errBadLine marks a line item whose inventory row is not in the shop.
var errBadLine = errors.New("inventory item not found in this shop")

// listTransactions filters by type, customerId, vendorId, a search over
// party names and notes, or a transaction date range. Line items are loaded
// for the returned page in one extra query.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	params, ok := s.requireShop(w, r)
	if !ok {
		return
	}
	customerID, err := optionalUUID(r, "customerId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
		return
	}
	vendorID, err := optionalUUID(r, "vendorId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
		return
	}

	var where whereBuilder
	where.scopeShop("t.shop_id", params.shopID, auth.AccountIDFromContext(r.Context()))
	switch typ := models.TransactionType(r.URL.Query().Get("type")); typ {
	case "":
	case models.TransactionPurchase, models.TransactionSale, models.TransactionPayment:
		where.add("t.type = $?", string(typ))
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid type %q", typ), "INVALID_QUERY")
		return
	}
	if customerID != "" {
		where.add("t.customer_id = $?", customerID)
	}
	if vendorID != "" {
		where.add("t.vendor_id = $?", vendorID)
	}
	if params.search != "" {
		where.add("(c.name ILIKE $? OR v.name ILIKE $? OR t.notes ILIKE $?)", "%"+params.search+"%")
	}
	where.dateRange("t.date", params)

	q := dbFrom(r.Context(), s.DB)
	var total int
	if err := q.QueryRowContext(r.Context(),
		"SELECT COUNT(*) FROM transactions t"+transactionJoins+where.String(), where.args...).Scan(&total); err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}

	sqlStr := transactionSelect + " FROM transactions t" + transactionJoins + where.String() +
		buildOrderBy(params.sort, map[string]string{
			"default":   "t.date DESC, t.created_at DESC",
			"date":      "t.date",
			"amount":    "t.amount",
			"paid":      "t.paid",
			"type":      "t.type",
			"createdAt": "t.created_at",
		}) + params.limitOffset()
	rows, err := q.QueryContext(r.Context(), sqlStr, where.args...)
	if err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			writeDBError(w, r, err, "transaction")
			return
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	if err := loadLineItems(r.Context(), q, txs); err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	sendListResponse(w, txs, total, params)
}

// loadLineItems fills InventoryDetails for every transaction in txs.
func loadLineItems(ctx context.Context, q querier, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	ids := make([]string, len(txs))
	index := make(map[string]int, len(txs))
	for i := range txs {
		ids[i] = txs[i].ID
		index[txs[i].ID] = i
		txs[i].InventoryDetails = []models.InventoryDetail{}
	}
	rows, err := q.QueryContext(ctx, `
		SELECT transaction_id, id, inventory_id, name, quantity, price
		FROM transaction_items
		WHERE transaction_id = ANY($1)
		ORDER BY transaction_id, name`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var txID string
		var d models.InventoryDetail
		if err := rows.Scan(&txID, &d.ID, &d.Inventory, &d.Name, &d.Quantity, &d.Price); err != nil {
			return err
		}
		if i, ok := index[txID]; ok {
			txs[i].InventoryDetails = append(txs[i].InventoryDetails, d)
		}
	}
	return rows.Err()
}

func (s *Server) loadTransaction(ctx context.Context, q querier, id, accountID string) (models.Transaction, error) {
	var t models.Transaction
	err := scanTransaction(q.QueryRowContext(ctx,
		transactionSelect+" FROM transactions t"+transactionJoins+" WHERE t.id = $1 AND t."+accountShops,
		id, accountID), &t)
	if err != nil {
		return t, err
	}
	txs := []models.Transaction{t}
	if err := loadLineItems(ctx, q, txs); err != nil {
		return t, err
	}
	return txs[0], nil
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	t, err := s.loadTransaction(r.Context(), dbFrom(r.Context(), s.DB), id, auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// checkParties verifies the customer and vendor, when given, belong to shopID.
func (s *Server) checkParties(w http.ResponseWriter, r *http.Request, in models.TransactionInput) bool {
	q := dbFrom(r.Context(), s.DB)
	for _, p := range []struct {
		table string
		id    *string
	}{{"customers", in.Customer}, {"vendors", in.Vendor}} {
		if nullIfEmpty(p.id) == nil {
			continue
		}
		var ok bool
		err := q.QueryRowContext(r.Context(),
			"SELECT EXISTS (SELECT 1 FROM "+p.table+" WHERE id::text = $1 AND shop_id = $2)", *p.id, in.Shop).Scan(&ok)
		if err != nil {
			writeDBError(w, r, err, "transaction")
			return false
		}
		if !ok {
			writeError(w, http.StatusBadRequest, p.table[:len(p.table)-1]+" not found in this shop", "INVALID_PARTY")
			return false
		}
	}
	return true
}

// createTransaction records the header and its line items and moves stock in
// one database transaction: sales take quantity out, purchases put it back.
// A zero amount with line items is replaced by the sum of the lines.
func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var in models.TransactionInput
	if !decodeInput(w, r, &in) || !s.checkShopAccess(w, r, in.Shop) || !s.checkParties(w, r, in) {
		return
	}
	if in.Amount.IsZero() && len(in.InventoryDetails) > 0 {
		sum := decimal.Zero
		for _, d := range in.InventoryDetails {
			sum = sum.Add(d.LineTotal())
		}
		in.Amount = sum
	}

	ctx := r.Context()
	tx, err := txFrom(ctx, s.DB).BeginTx(ctx, nil)
	if err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (shop_id, type, customer_id, vendor_id, amount, advance, paid, date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8::date, CURRENT_DATE), $9)
		RETURNING id`,
		in.Shop, string(in.Type), nullIfEmpty(in.Customer), nullIfEmpty(in.Vendor),
		in.Amount, in.Advance, in.Paid, in.Date, nullIfEmpty(in.Notes)).Scan(&id)
	if err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}

	moved := 0
	for _, d := range in.InventoryDetails {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, inventory_id, name, quantity, price)
			VALUES ($1, $2, $3, $4, $5)`,
			id, nullIfEmpty(d.Inventory), d.Name, d.Quantity, d.Price); err != nil {
			writeDBError(w, r, err, "transaction")
			return
		}
		n, err := adjustStock(ctx, tx, in.Shop, d.Inventory, in.Type.StockDelta(d.Quantity))
		if errors.Is(err, errBadLine) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("line %q: %v", d.Name, err), "INVALID_LINE")
			return
		}
		if err != nil {
			writeDBError(w, r, err, "transaction")
			return
		}
		moved += n
	}

	if err := tx.Commit(); err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	s.Metrics.recordTransaction(string(in.Type))
	s.Metrics.recordStockMove(stockDirection(in.Type, false), moved)
	logger.FromContext(ctx).Info("transaction recorded",
		zap.String("id", id), zap.String("type", string(in.Type)), zap.Int("lines", len(in.InventoryDetails)))

	t, err := s.loadTransaction(ctx, dbFrom(ctx, s.DB), id, auth.AccountIDFromContext(ctx))
	if err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// adjustStock applies delta to one inventory row of the shop. Lines without
// an inventory reference or with a zero delta are left alone.
func adjustStock(ctx context.Context, tx *sql.Tx, shopID string, inventoryID *string, delta decimal.Decimal) (int, error) {
	if nullIfEmpty(inventoryID) == nil || delta.IsZero() {
		return 0, nil
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE inventory SET quantity = quantity + $1, updated_at = now()
		WHERE id::text = $2 AND shop_id = $3`, delta, *inventoryID, shopID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, errBadLine
	}
	return 1, nil
}

func stockDirection(t models.TransactionType, reversal bool) string {
	out := t == models.TransactionSale
	if reversal {
		out = !out
	}
	if out {
		return "out"
	}
	return "in"
}

// updateTransaction edits the header only; line items and stock stay as
// recorded, and the type cannot change.
func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.TransactionInput
	if !decodeInput(w, r, &in) || !s.checkParties(w, r, in) {
		return
	}
	ctx := r.Context()
	accountID := auth.AccountIDFromContext(ctx)
	q := dbFrom(ctx, s.DB)

	res, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET customer_id = $3, vendor_id = $4, amount = $5, advance = $6, paid = $7,
		    date = COALESCE($8::date, date), notes = $9, updated_at = now()
		WHERE id = $1 AND `+accountShops+` AND shop_id = $10 AND type = $11`,
		id, accountID, nullIfEmpty(in.Customer), nullIfEmpty(in.Vendor),
		in.Amount, in.Advance, in.Paid, in.Date, nullIfEmpty(in.Notes), in.Shop, string(in.Type))
	if err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeDBError(w, r, sql.ErrNoRows, "transaction")
		return
	}

	t, err := s.loadTransaction(ctx, q, id, accountID)
	if err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// deleteTransaction reverses the stock movement of its lines before removing it.
func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	t, err := s.loadTransaction(ctx, dbFrom(ctx, s.DB), id, auth.AccountIDFromContext(ctx))
	if err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}

	tx, err := txFrom(ctx, s.DB).BeginTx(ctx, nil)
	if err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	defer tx.Rollback()

	moved := 0
	for _, d := range t.InventoryDetails {
		n, err := adjustStock(ctx, tx, t.Shop, d.Inventory, t.Type.StockDelta(d.Quantity).Neg())
		if err != nil && !errors.Is(err, errBadLine) {
			writeDBError(w, r, err, "transaction")
			return
		}
		moved += n
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	if err := tx.Commit(); err != nil {
		writeDBError(w, r, err, "transaction")
		return
	}
	s.Metrics.recordStockMove(stockDirection(t.Type, true), moved)
	w.WriteHeader(http.StatusNoContent)
}
