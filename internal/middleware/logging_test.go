package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		wantLevel zapcore.Level
	}{
		{name: "success", status: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "client error", status: http.StatusNotFound, wantLevel: zapcore.WarnLevel},
		{name: "server error", status: http.StatusBadGateway, wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			r := gin.New()
			r.Use(RequestLogger(zap.New(core)))
			r.GET("/x", func(c *gin.Context) {
				c.Status(tt.status)
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)
			assert.Equal(t, "Request completed", entries[0].Message)

			fields := entries[0].ContextMap()
			assert.Equal(t, "/x", fields["path"])
			assert.Equal(t, int64(tt.status), fields["status"])
		})
	}
}

func TestRequestLogger_NilLogger(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(RequestLogger(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
