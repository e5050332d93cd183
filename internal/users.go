package internal

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/logger"
	"shop-admin-api/internal/models"
)

const userColumns = `id, account_id, email, name, phone, roles, is_active, created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }, u *models.User) error {
	var roles pq.StringArray
	var lastLoginAt sql.NullTime
	if err := row.Scan(&u.ID, &u.AccountID, &u.Email, &u.Name, &u.Phone, &roles,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt, &lastLoginAt); err != nil {
		return err
	}
	u.Roles = []string(roles)
	if lastLoginAt.Valid {
		u.LastLoginAt = &lastLoginAt.Time
	}
	return nil
}

// loginUser checks the password and issues an access/refresh pair.
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeInput(w, r, &req) {
		return
	}
	log := logger.FromContext(r.Context())

	// Login runs before any account is known, so it bypasses the RLS conn.
	var user models.User
	var roles pq.StringArray
	var lastLoginAt sql.NullTime
	err := s.DB.QueryRowContext(r.Context(), `
		SELECT id, account_id, email, password_hash, name, phone, roles, is_active, created_at, updated_at, last_login_at
		FROM users
		WHERE lower(email) = lower($1) AND is_active`, strings.TrimSpace(req.Email)).Scan(
		&user.ID, &user.AccountID, &user.Email, &user.PasswordHash, &user.Name, &user.Phone, &roles,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS")
		return
	}
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Info("login rejected", zap.String("user_id", user.ID))
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS")
		return
	}
	user.Roles = []string(roles)
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	if _, err := s.DB.ExecContext(r.Context(), `UPDATE users SET last_login_at = now() WHERE id = $1`, user.ID); err != nil {
		log.Warn("update last_login_at", zap.String("user_id", user.ID), zap.Error(err))
	}

	pair, err := s.JWTManager.GeneratePair(user.ID, user.AccountID, user.Roles)
	if err != nil {
		log.Error("generate token pair", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate token", "TOKEN_ERROR")
		return
	}
	log.Info("login", zap.String("user_id", user.ID), zap.String("account_id", user.AccountID))

	writeJSON(w, http.StatusOK, models.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.Redacted(),
	})
}

// createUser adds a user to the caller's account. Only platform admins may
// name another account or grant the admin role.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeInput(w, r, &req) {
		return
	}
	claims := auth.ClaimsFromContext(r.Context())
	isAdmin := claims != nil && claims.HasRole(models.RoleAdmin)

	accountID := auth.AccountIDFromContext(r.Context())
	if req.AccountID != nil && *req.AccountID != "" && *req.AccountID != accountID {
		if !isAdmin {
			writeError(w, http.StatusForbidden, "Cannot create users for this account", "FORBIDDEN")
			return
		}
		accountID = *req.AccountID
	}
	if !isAdmin && containsRole(req.Roles, models.RoleAdmin) {
		writeError(w, http.StatusForbidden, "Only admins can grant the admin role", "FORBIDDEN")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password", "HASH_ERROR")
		return
	}

	var user models.User
	err = scanUser(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO users (account_id, email, password_hash, name, phone, roles)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		accountID, strings.TrimSpace(req.Email), string(hash), nullIfEmpty(req.Name), nullIfEmpty(req.Phone),
		pq.Array(req.Roles)), &user)
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// listUsers lists the caller's account; searchBy matches email or name.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
		return
	}

	var where whereBuilder
	where.add("account_id = $?", auth.AccountIDFromContext(r.Context()))
	if params.search != "" {
		where.add("(email ILIKE $? OR name ILIKE $?)", "%"+params.search+"%")
	}
	where.dateRange("created_at::date", params)

	q := dbFrom(r.Context(), s.DB)
	var total int
	if err := q.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM users"+where.String(), where.args...).Scan(&total); err != nil {
		writeDBError(w, r, err, "user")
		return
	}

	rows, err := q.QueryContext(r.Context(), "SELECT "+userColumns+" FROM users"+where.String()+
		buildOrderBy(params.sort, map[string]string{
			"email":       "email",
			"name":        "name",
			"createdAt":   "created_at",
			"lastLoginAt": "last_login_at",
		})+params.limitOffset(), where.args...)
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			writeDBError(w, r, err, "user")
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	sendListResponse(w, users, total, params)
}

func (s *Server) loadUser(ctx context.Context, id, accountID string) (models.User, error) {
	var u models.User
	err := scanUser(dbFrom(ctx, s.DB).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1 AND account_id = $2", id, accountID), &u)
	return u, err
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	u, err := s.loadUser(r.Context(), id, auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// updateUser changes name, phone, roles or the active flag. Omitted fields
// keep their value.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if !decodeInput(w, r, &req) {
		return
	}
	accountID := auth.AccountIDFromContext(r.Context())
	claims := auth.ClaimsFromContext(r.Context())
	if containsRole(req.Roles, models.RoleAdmin) && (claims == nil || !claims.HasRole(models.RoleAdmin)) {
		writeError(w, http.StatusForbidden, "Only admins can grant the admin role", "FORBIDDEN")
		return
	}
	if id == auth.UserIDFromContext(r.Context()) && req.IsActive != nil && !*req.IsActive {
		writeError(w, http.StatusBadRequest, "Cannot deactivate yourself", "SELF_DEACTIVATE")
		return
	}

	var roles any
	if req.Roles != nil {
		roles = pq.Array(req.Roles)
	}
	var u models.User
	err := scanUser(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE users
		SET name = COALESCE($3, name),
		    phone = COALESCE($4, phone),
		    roles = COALESCE($5::text[], roles),
		    is_active = COALESCE($6, is_active),
		    updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING `+userColumns,
		id, accountID, req.Name, req.Phone, roles, req.IsActive), &u)
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// deleteUser refuses to remove the account's last active owner.
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if id == auth.UserIDFromContext(r.Context()) {
		writeError(w, http.StatusBadRequest, "Cannot delete yourself", "SELF_DELETE")
		return
	}
	accountID := auth.AccountIDFromContext(r.Context())
	existing, err := s.loadUser(r.Context(), id, accountID)
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}

	q := dbFrom(r.Context(), s.DB)
	if existing.HasRole(models.RoleOwner) {
		var owners int
		err := q.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM users
			WHERE account_id = $1 AND roles && ARRAY['owner'] AND is_active AND id <> $2`,
			accountID, id).Scan(&owners)
		if err != nil {
			writeDBError(w, r, err, "user")
			return
		}
		if owners == 0 {
			writeError(w, http.StatusBadRequest, "Cannot delete the last owner of the account", "LAST_OWNER")
			return
		}
	}

	res, err := q.ExecContext(r.Context(), `DELETE FROM users WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeDBError(w, r, sql.ErrNoRows, "user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.loadUser(r.Context(), auth.UserIDFromContext(r.Context()), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUserProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !decodeInput(w, r, &req) {
		return
	}
	if req.Name == nil && req.Phone == nil {
		writeError(w, http.StatusBadRequest, "No fields to update", "NO_FIELDS")
		return
	}
	var u models.User
	err := scanUser(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE users
		SET name = COALESCE($3, name), phone = COALESCE($4, phone), updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING `+userColumns,
		auth.UserIDFromContext(r.Context()), auth.AccountIDFromContext(r.Context()), req.Name, req.Phone), &u)
	if err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if !decodeInput(w, r, &req) {
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	q := dbFrom(r.Context(), s.DB)

	var current string
	if err := q.QueryRowContext(r.Context(), `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&current); err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(current), []byte(req.CurrentPassword)); err != nil {
		writeError(w, http.StatusBadRequest, "Current password is incorrect", "INVALID_PASSWORD")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password", "HASH_ERROR")
		return
	}
	if _, err := q.ExecContext(r.Context(),
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, string(hash), userID); err != nil {
		writeDBError(w, r, err, "user")
		return
	}
	logger.FromContext(r.Context()).Info("password changed", zap.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
