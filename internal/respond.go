package internal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"shop-admin-api/internal/logger"
	"shop-admin-api/internal/models"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields []models.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

func writeValidation(w http.ResponseWriter, verr *models.ValidationError) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error:  verr.Error(),
		Code:   "VALIDATION_FAILED",
		Fields: verr.Fields,
	})
}

// sendListResponse writes the {data, total} envelope; nil items encode as [].
func sendListResponse[T any](w http.ResponseWriter, items []T, total int, p listParams) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, models.ListResponse[T]{
		Data:  items,
		Total: total,
		Page:  p.page,
		Limit: p.limit,
	})
}

// decodeInput reads a JSON body into v and validates it. On failure it has
// already written the response and returns false.
func decodeInput(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return false
	}
	if err := models.Validate(v); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			writeValidation(w, verr)
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
		return false
	}
	return true
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// writeDBError maps a database error to a response; entity names the row
// kind for the not-found and conflict messages.
func writeDBError(w http.ResponseWriter, r *http.Request, err error, entity string) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, entity+" not found", "NOT_FOUND")
	case pgCode(err) == pgUniqueViolation:
		writeError(w, http.StatusConflict, entity+" already exists", "CONFLICT")
	case pgCode(err) == pgForeignKeyViolation:
		writeError(w, http.StatusConflict, entity+" is referenced by other records", "IN_USE")
	case pgCode(err) == pgCheckViolation:
		writeError(w, http.StatusBadRequest, "value out of range for "+entity, "CHECK_VIOLATION")
	default:
		logger.FromContext(r.Context()).Error("database error", zap.String("entity", entity), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error", "DB_ERROR")
	}
}
