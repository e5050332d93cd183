package internal

import (
	"database/sql"
	"net/http"

	"github.com/lib/pq"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/models"
)

const planColumns = `id, name, price, duration_days, max_shops, features, is_active, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }, p *models.SubscriptionPlan) error {
	var features pq.StringArray
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.MaxShops, &features,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	p.Features = []string(features)
	if p.Features == nil {
		p.Features = []string{}
	}
	return nil
}

// listPlans shows inactive plans to platform admins only.
func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
		return
	}

	var where whereBuilder
	if claims := auth.ClaimsFromContext(r.Context()); claims == nil || !claims.HasRole(models.RoleAdmin) {
		where.clauses = append(where.clauses, "is_active")
	}
	if params.search != "" {
		where.add("name ILIKE $?", "%"+params.search+"%")
	}

	q := dbFrom(r.Context(), s.DB)
	var total int
	if err := q.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM subscription_plans"+where.String(), where.args...).Scan(&total); err != nil {
		writeDBError(w, r, err, "plan")
		return
	}

	sqlStr := "SELECT " + planColumns + " FROM subscription_plans" + where.String() +
		buildOrderBy(params.sort, map[string]string{
			"default":      "price ASC",
			"name":         "name",
			"price":        "price",
			"durationDays": "duration_days",
			"maxShops":     "max_shops",
		}) + params.limitOffset()
	rows, err := q.QueryContext(r.Context(), sqlStr, where.args...)
	if err != nil {
		writeDBError(w, r, err, "plan")
		return
	}
	defer rows.Close()

	plans := []models.SubscriptionPlan{}
	for rows.Next() {
		var p models.SubscriptionPlan
		if err := scanPlan(rows, &p); err != nil {
			writeDBError(w, r, err, "plan")
			return
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		writeDBError(w, r, err, "plan")
		return
	}
	sendListResponse(w, plans, total, params)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var p models.SubscriptionPlan
	if err := scanPlan(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+planColumns+" FROM subscription_plans WHERE id = $1", id), &p); err != nil {
		writeDBError(w, r, err, "plan")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func planActive(in models.SubscriptionPlanInput) bool {
	return in.IsActive == nil || *in.IsActive
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var in models.SubscriptionPlanInput
	if !decodeInput(w, r, &in) {
		return
	}
	var p models.SubscriptionPlan
	err := scanPlan(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO subscription_plans (name, price, duration_days, max_shops, features, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+planColumns,
		in.Name, in.Price, in.DurationDays, in.MaxShops, pq.Array(in.Features), planActive(in)), &p)
	if err != nil {
		writeDBError(w, r, err, "plan")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.SubscriptionPlanInput
	if !decodeInput(w, r, &in) {
		return
	}
	var p models.SubscriptionPlan
	err := scanPlan(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE subscription_plans
		SET name = $2, price = $3, duration_days = $4, max_shops = $5, features = $6, is_active = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+planColumns,
		id, in.Name, in.Price, in.DurationDays, in.MaxShops, pq.Array(in.Features), planActive(in)), &p)
	if err != nil {
		writeDBError(w, r, err, "plan")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// deletePlan refuses plans that accounts are still subscribed to; deactivate those instead.
func (s *Server) deletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	q := dbFrom(r.Context(), s.DB)
	var subscribers int
	if err := q.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM accounts WHERE plan_id = $1`, id).Scan(&subscribers); err != nil {
		writeDBError(w, r, err, "plan")
		return
	}
	if subscribers > 0 {
		writeError(w, http.StatusConflict, "Plan has subscribers; deactivate it instead", "IN_USE")
		return
	}
	res, err := q.ExecContext(r.Context(), `DELETE FROM subscription_plans WHERE id = $1`, id)
	if err != nil {
		writeDBError(w, r, err, "plan")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeDBError(w, r, sql.ErrNoRows, "plan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
