package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shop/backend/internal/domain/shared"
)

func TestListRequest_Filter(t *testing.T) {
	assert.Equal(t, shared.DefaultFilter(), ListRequest{}.Filter())

	f := ListRequest{Page: 3, PageSize: 50, OrderBy: "upc", OrderDir: "desc", Search: "dune"}.Filter()
	assert.Equal(t, shared.Filter{Page: 3, PageSize: 50, OrderBy: "upc", OrderDir: "desc", Search: "dune"}, f)
	assert.Equal(t, 100, f.Offset())
}

func TestNewPaginatedResponse(t *testing.T) {
	page := shared.NewPaginated([]string{"a", "b"}, 5, 1, 2)
	resp := NewPaginatedResponse(&page)

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
	assert.Equal(t, &Meta{Total: 5, Page: 1, PageSize: 2, TotalPages: 3}, resp.Meta)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		legacy string
		code   string
		status int
	}{
		{"NOT_FOUND", ErrCodeNotFound, http.StatusNotFound},
		{"INVALID_LOOKUP_FIELD", ErrCodeInvalidInput, http.StatusBadRequest},
		{"VALIDATION_ERROR", ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnavailable, ErrCodeUnavailable, http.StatusServiceUnavailable},
		{"MULTIPLE_FOUND", "MULTIPLE_FOUND", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.legacy, func(t *testing.T) {
			code := NormalizeErrorCode(tt.legacy)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, GetHTTPStatus(code))
		})
	}

	resp := NewErrorResponse(ErrCodeNotFound, "gone", "req-9")
	assert.False(t, resp.Success)
	assert.Equal(t, "req-9", resp.Error.RequestID)
}
