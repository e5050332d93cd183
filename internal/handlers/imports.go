package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/logger"
	"shop-admin-api/pkg/importer"
)

// ShopOwnership reports whether a shop belongs to an account.
type ShopOwnership func(ctx context.Context, accountID, shopID string) (bool, error)

// ImportRecorder receives row counts of completed imports.
type ImportRecorder interface {
	RecordImport(inserted, updated, skipped int)
}

// ImportsHandler handles Excel import operations
type ImportsHandler struct {
	DB         importer.TxBeginner
	MaxBytes   int64
	DefaultMap string
	OwnsShop   ShopOwnership
	Recorder   ImportRecorder
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(db importer.TxBeginner, mappingPath string, owns ShopOwnership, rec ImportRecorder) *ImportsHandler {
	return &ImportsHandler{
		DB:         db,
		MaxBytes:   20 << 20, // 20 MB
		DefaultMap: mappingPath,
		OwnsShop:   owns,
		Recorder:   rec,
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// UploadInventory imports an .xlsx file into the inventory of shopId.
// Form fields: file, shopId, dryRun, maxErrors.
func (h *ImportsHandler) UploadInventory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "content-type must be multipart/form-data", Code: "INVALID_CONTENT_TYPE"})
		return
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart form: " + err.Error(), Code: "INVALID_FORM"})
		return
	}

	shopID := strings.TrimSpace(r.FormValue("shopId"))
	if shopID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Shop ID is required", Code: "SHOP_ID_REQUIRED"})
		return
	}
	if _, err := uuid.Parse(shopID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "shopId must be a UUID", Code: "INVALID_QUERY"})
		return
	}

	dryRun, _ := strconv.ParseBool(r.FormValue("dryRun"))
	maxErrors := 50
	if v := r.FormValue("maxErrors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxErrors = n
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "file is required: " + err.Error(), Code: "FILE_REQUIRED"})
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "only .xlsx files are accepted", Code: "INVALID_FILE"})
		return
	}

	ctx := r.Context()
	accountID := auth.AccountIDFromContext(ctx)
	if h.OwnsShop != nil {
		ok, err := h.OwnsShop(ctx, accountID, shopID)
		if err != nil {
			logger.FromContext(ctx).Error("import shop check", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Database error", Code: "DB_ERROR"})
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "shop not found", Code: "NOT_FOUND"})
			return
		}
	}
	if h.DB == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "import database is not configured", Code: "IMPORT_UNAVAILABLE"})
		return
	}

	sum, impErr := importer.ImportInventory(ctx, h.DB, file, importer.ImportOptions{
		AccountID:   accountID,
		ShopID:      shopID,
		MappingPath: h.DefaultMap,
		DryRun:      dryRun,
		MaxErrors:   maxErrors,
	})
	log := logger.FromContext(ctx).With(zap.String("shop_id", shopID), zap.Bool("dry_run", dryRun))
	if errors.Is(impErr, importer.ErrShopNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "shop not found", Code: "NOT_FOUND"})
		return
	}
	if impErr != nil {
		log.Warn("inventory import failed", zap.Error(impErr))
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: impErr.Error(), Code: "IMPORT_FAILED", Details: sum})
		return
	}
	if !dryRun && h.Recorder != nil {
		h.Recorder.RecordImport(sum.Inserted, sum.Updated, sum.Skipped)
	}
	log.Info("inventory import",
		zap.Int("inserted", sum.Inserted), zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped), zap.Int("errors", sum.Errors))

	writeJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// isXLSX checks if the uploaded file is an Excel .xlsx file
func isXLSX(h *multipart.FileHeader) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ".xlsx")
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
