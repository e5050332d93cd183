package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-admin-api/internal/auth"
)

const testShop = "7b0c6f1e-2d1a-4f57-9a53-3c1a1f0d9b21"

func withClaims(req *http.Request) *http.Request {
	return req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{
		UserID:    "0f8fad5b-d9cb-469f-a165-70867728950e",
		AccountID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Roles:     []string{"owner"},
	}))
}

type form struct {
	fields   map[string]string
	filename string
}

func (f form) request(t *testing.T) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range f.fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if f.filename != "" {
		fw, err := writer.CreateFormFile("file", f.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake excel content"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports/inventory", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return withClaims(req)
}

func TestImportsHandler_UploadInventory(t *testing.T) {
	owns := func(_ context.Context, _, shopID string) (bool, error) { return shopID == testShop, nil }
	handler := NewImportsHandler(nil, "", owns, nil)

	t.Run("Rejects non-multipart content type", func(t *testing.T) {
		req := withClaims(httptest.NewRequest(http.MethodPost, "/imports/inventory", nil))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.UploadInventory(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "content-type must be multipart/form-data")
	})

	tests := []struct {
		name     string
		form     form
		wantCode int
		wantBody string
	}{
		{"missing shopId", form{}, http.StatusBadRequest, "Shop ID is required"},
		{"invalid shopId", form{fields: map[string]string{"shopId": "5"}}, http.StatusBadRequest, "INVALID_QUERY"},
		{"missing file", form{fields: map[string]string{"shopId": testShop}}, http.StatusBadRequest, "file is required"},
		{"non-xlsx file", form{fields: map[string]string{"shopId": testShop}, filename: "stock.xls"}, http.StatusBadRequest, "only .xlsx files are accepted"},
		{"foreign shop", form{fields: map[string]string{"shopId": "9c858901-8a57-4791-81fe-4c455b099bc9"}, filename: "stock.xlsx"}, http.StatusNotFound, "shop not found"},
		{"no import database", form{fields: map[string]string{"shopId": testShop, "dryRun": "true"}, filename: "stock.xlsx"}, http.StatusServiceUnavailable, "IMPORT_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.UploadInventory(w, tt.form.request(t))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestImportsHandler_ShopCheckError(t *testing.T) {
	owns := func(context.Context, string, string) (bool, error) { return false, errors.New("boom") }
	handler := NewImportsHandler(nil, "", owns, nil)

	w := httptest.NewRecorder()
	handler.UploadInventory(w, form{fields: map[string]string{"shopId": testShop}, filename: "a.xlsx"}.request(t))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "DB_ERROR")
}

func TestIsXLSX(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected bool
	}{
		{"Valid xlsx", "test.xlsx", true},
		{"Valid xlsx uppercase", "TEST.XLSX", true},
		{"Valid xlsx mixed case", "Test.XlSx", true},
		{"Invalid xls", "test.xls", false},
		{"Invalid xlsm", "test.xlsm", false},
		{"Invalid txt", "test.txt", false},
		{"No extension", "test", false},
		{"Empty filename", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isXLSX(&multipart.FileHeader{Filename: tt.filename}))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "test", "count": 42})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "test", response["message"])
	assert.Equal(t, float64(42), response["count"])
}
