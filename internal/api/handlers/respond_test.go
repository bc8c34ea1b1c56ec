package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/isdelr/impact-be/internal/services"
	"github.com/isdelr/impact-be/internal/storage"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("get event: %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrEventFull, http.StatusConflict},
		{services.ErrEventAlreadyCompleted, http.StatusConflict},
		{services.ErrOutOfStock, http.StatusConflict},
		{services.ErrInsufficientCoins, http.StatusUnprocessableEntity},
		{services.ErrInvalidRecipient, http.StatusUnprocessableEntity},
		{storage.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("sql: connection refused"), "Failed to list", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to list\n", rec.Body.String())

	rec = httptest.NewRecorder()
	writeError(rec, fmt.Errorf("redeem: %w", services.ErrOutOfStock), "Failed to redeem", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), services.ErrOutOfStock.Error())
}

func TestDecodeJSON(t *testing.T) {
	var dst AttendancePayload

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.False(t, decodeJSON(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"attended":true}`))
	assert.False(t, decodeJSON(rec, req, &dst))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "userId")

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"userId":"u1","attended":true}`))
	assert.True(t, decodeJSON(rec, req, &dst))
	assert.Equal(t, "u1", dst.UserID)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25&bad=x&neg=-3", nil)
	assert.Equal(t, 25, queryInt(req, "limit", 10))
	assert.Equal(t, 10, queryInt(req, "bad", 10))
	assert.Equal(t, 10, queryInt(req, "neg", 10))
	assert.Equal(t, 10, queryInt(req, "missing", 10))
}
