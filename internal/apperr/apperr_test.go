package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, InvalidIdentifier.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, DuplicateField.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, ValidationFailed.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, AuthTokenInvalid.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, AuthTokenExpired.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFound.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Unclassified.HTTPStatus())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, NotFound, KindOf(New(NotFound, "No document found")))
	assert.Equal(t, Unclassified, KindOf(errors.New("boom")))

	// Wrapped errors still classify.
	wrapped := fmt.Errorf("list failed: %w", New(ValidationFailed, "bad input"))
	assert.Equal(t, ValidationFailed, KindOf(wrapped))
}

func TestIsOperational(t *testing.T) {
	assert.True(t, IsOperational(New(NotFound, "No document found")))
	assert.False(t, IsOperational(errors.New("boom")))
	assert.False(t, IsOperational(Wrap(Unclassified, "internal", errors.New("boom"))))
}

func TestFromDBNoRows(t *testing.T) {
	err := FromDB(sql.ErrNoRows, "No document found with that ID")
	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, "No document found with that ID", err.Error())
}

func TestFromDBPqCodes(t *testing.T) {
	cases := []struct {
		code string
		want Kind
	}{
		{"23505", DuplicateField},
		{"22P02", InvalidIdentifier},
		{"23514", ValidationFailed},
		{"23502", ValidationFailed},
		{"23503", InvalidIdentifier},
	}

	for _, tc := range cases {
		pqErr := &pq.Error{Code: pq.ErrorCode(tc.code), Constraint: "products_slug_key"}
		err := FromDB(pqErr, "No document found")
		assert.Equal(t, tc.want, KindOf(err), "code %s", tc.code)

		// The original driver error stays reachable for logging.
		var cause *pq.Error
		assert.True(t, errors.As(err, &cause))
	}
}

func TestFromDBPassthrough(t *testing.T) {
	assert.NoError(t, FromDB(nil, "No document found"))

	plain := errors.New("connection reset")
	err := FromDB(plain, "No document found")
	assert.Equal(t, plain, err)
	assert.Equal(t, Unclassified, KindOf(err))
}
