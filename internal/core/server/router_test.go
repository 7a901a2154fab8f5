package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCORSConfig(t *testing.T) {
	assert.True(t, CORSConfig(nil).AllowAllOrigins)
	assert.True(t, CORSConfig([]string{"*"}).AllowAllOrigins)
	cfg := CORSConfig([]string{"http://localhost:5173"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowOrigins)
}

func TestRecoveryUsesHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(zap.NewNop(), nil, func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	r.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"boom"}`, w.Body.String())
}

func TestAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:4000", Addr("0.0.0.0", 4000))
}
