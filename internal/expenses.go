package internal

import (
	"database/sql"
	"net/http"
	"strings"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/models"
)

const expenseColumns = `id, shop_id, title, category, amount, date, notes, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }, e *models.Expense) error {
	return row.Scan(&e.ID, &e.Shop, &e.Title, &e.Category, &e.Amount, &e.Date, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
}

// listExpenses filters by title/category search or by expense date, plus an
// optional exact category.
func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	params, ok := s.requireShop(w, r)
	if !ok {
		return
	}

	var where whereBuilder
	where.scopeShop("shop_id", params.shopID, auth.AccountIDFromContext(r.Context()))
	if params.search != "" {
		where.add("(title ILIKE $? OR category ILIKE $?)", "%"+params.search+"%")
	}
	if c := strings.TrimSpace(r.URL.Query().Get("category")); c != "" {
		where.add("category = $?", c)
	}
	where.dateRange("date", params)

	q := dbFrom(r.Context(), s.DB)
	var total int
	if err := q.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM expenses"+where.String(), where.args...).Scan(&total); err != nil {
		writeDBError(w, r, err, "expense")
		return
	}

	sqlStr := "SELECT " + expenseColumns + " FROM expenses" + where.String() +
		buildOrderBy(params.sort, map[string]string{
			"default":   "date DESC, created_at DESC",
			"date":      "date",
			"title":     "title",
			"amount":    "amount",
			"category":  "category",
			"createdAt": "created_at",
		}) + params.limitOffset()
	rows, err := q.QueryContext(r.Context(), sqlStr, where.args...)
	if err != nil {
		writeDBError(w, r, err, "expense")
		return
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		if err := scanExpense(rows, &e); err != nil {
			writeDBError(w, r, err, "expense")
			return
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		writeDBError(w, r, err, "expense")
		return
	}
	sendListResponse(w, expenses, total, params)
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var e models.Expense
	err := scanExpense(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+expenseColumns+" FROM expenses WHERE id = $1 AND "+accountShops,
		id, auth.AccountIDFromContext(r.Context())), &e)
	if err != nil {
		writeDBError(w, r, err, "expense")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var in models.ExpenseInput
	if !decodeInput(w, r, &in) || !s.checkShopAccess(w, r, in.Shop) {
		return
	}
	var e models.Expense
	err := scanExpense(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO expenses (shop_id, title, category, amount, date, notes)
		VALUES ($1, $2, $3, $4, COALESCE($5::date, CURRENT_DATE), $6)
		RETURNING `+expenseColumns,
		in.Shop, in.Title, nullIfEmpty(in.Category), in.Amount, in.Date, nullIfEmpty(in.Notes)), &e)
	if err != nil {
		writeDBError(w, r, err, "expense")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) updateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.ExpenseInput
	if !decodeInput(w, r, &in) {
		return
	}
	var e models.Expense
	err := scanExpense(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE expenses
		SET title = $3, category = $4, amount = $5, date = COALESCE($6::date, date), notes = $7, updated_at = now()
		WHERE id = $1 AND `+accountShops+` AND shop_id = $8
		RETURNING `+expenseColumns,
		id, auth.AccountIDFromContext(r.Context()),
		in.Title, nullIfEmpty(in.Category), in.Amount, in.Date, nullIfEmpty(in.Notes), in.Shop), &e)
	if err != nil {
		writeDBError(w, r, err, "expense")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		"DELETE FROM expenses WHERE id = $1 AND "+accountShops, id, auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeDBError(w, r, err, "expense")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeDBError(w, r, sql.ErrNoRows, "expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
