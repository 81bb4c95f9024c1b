package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, incoming string) (string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(HeaderKey, incoming)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return seen, rec.Header().Get(HeaderKey)
}

func TestMiddlewareReusesWellFormedID(t *testing.T) {
	seen, header := serve(t, "gen-run_42.a")
	assert.Equal(t, "gen-run_42.a", seen)
	assert.Equal(t, seen, header)
}

func TestMiddlewareReplacesMissingOrUnsafeID(t *testing.T) {
	for _, incoming := range []string{"", "bad id\nlevel=error", strings.Repeat("a", maxLength+1)} {
		seen, header := serve(t, incoming)
		_, err := uuid.Parse(seen)
		require.NoError(t, err, "incoming %q", incoming)
		assert.Equal(t, seen, header)
	}
}
