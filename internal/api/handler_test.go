package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"commerce-service/internal/apperr"
	"commerce-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/orders/1", nil)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestIdentityMissingHeader(t *testing.T) {
	_, _, err := identity(testContext(nil))
	require.Error(t, err)
	assert.Equal(t, apperr.AuthTokenInvalid, apperr.KindOf(err))
}

func TestIdentityRejectsMalformedUserID(t *testing.T) {
	_, _, err := identity(testContext(map[string]string{"X-User-ID": "not-a-number"}))
	require.Error(t, err)
	assert.Equal(t, apperr.AuthTokenInvalid, apperr.KindOf(err))
}

func TestIdentityParsesUserAndRole(t *testing.T) {
	userID, role, err := identity(testContext(map[string]string{
		"X-User-ID":   "42",
		"X-User-Role": "user",
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "user", role)
}

func TestOrderVisibleOwnerOnly(t *testing.T) {
	order := &models.Order{ID: 1, UserID: 42}

	assert.True(t, orderVisible(order, 42, "user"))
	assert.False(t, orderVisible(order, 7, "user"))
	assert.False(t, orderVisible(order, 7, ""))

	// privileged roles see every order
	assert.True(t, orderVisible(order, 7, "admin"))
	assert.True(t, orderVisible(order, 7, "manager"))
}
