package api

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"talktolisten/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMeNeverLogsAuthorizationHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	handler := NewAuthHandler(nil, nil, logger.New(logger.Config{Level: "error", Output: &logged}))

	const token = "Bearer secret-token-value"
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	c.Request.Header.Set("Authorization", token)

	handler.Me(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, logged.String(), "secret-token-value")
}
