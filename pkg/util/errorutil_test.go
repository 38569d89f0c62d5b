package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughDomainErrors(t *testing.T) {
	original := NewValidationError("bad input", map[string]any{"field": "title"})
	mapped := ToDomainError(original)
	assert.Equal(t, "VALIDATION_FAILED", mapped.Code)
	assert.Equal(t, http.StatusBadRequest, mapped.HTTPStatus)
	assert.Equal(t, "title", mapped.Details["field"])
}

func TestToDomainError_WrappedDomainError(t *testing.T) {
	wrapped := fmt.Errorf("while updating: %w", NewNotFound("defect", nil))
	mapped := ToDomainError(wrapped)
	assert.Equal(t, "NOT_FOUND", mapped.Code)
}

func TestToDomainError_NoRowsBecomesNotFound(t *testing.T) {
	mapped := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", mapped.Code)
	assert.Equal(t, http.StatusNotFound, mapped.HTTPStatus)

	wrapped := fmt.Errorf("query defect: %w", pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", ToDomainError(wrapped).Code)
}

func TestToDomainError_UnknownBecomesInternal(t *testing.T) {
	mapped := ToDomainError(errors.New("connection reset"))
	assert.Equal(t, "INTERNAL_ERROR", mapped.Code)
	assert.Equal(t, http.StatusInternalServerError, mapped.HTTPStatus)
}

func TestToDomainError_Nil(t *testing.T) {
	require.Nil(t, ToDomainError(nil))
	require.Nil(t, MapError(nil))
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewInternalError(cause)
	assert.True(t, errors.Is(err, cause))
}
