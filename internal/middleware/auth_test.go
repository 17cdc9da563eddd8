package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-api/internal/pkg/token"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth())
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(200, gin.H{"address": c.GetString("address")})
	})
	return r
}

func TestAuth_NoHeader(t *testing.T) {
	r := newAuthRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, 401, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "AUTH_REQUIRED", body["code"])
}

func TestAuth_BadToken(t *testing.T) {
	r := newAuthRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	require.Equal(t, 401, w.Code)
}

func TestAuth_ValidToken(t *testing.T) {
	r := newAuthRouter()

	jwt, err := token.GenerateToken("wallet:0xabc123")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+jwt)
	r.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "wallet:0xabc123", body["address"])
}

func TestAuth_RawTokenHeader(t *testing.T) {
	r := newAuthRouter()

	jwt, err := token.GenerateToken("alice-01")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", jwt)
	r.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
}
