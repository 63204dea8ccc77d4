package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func bodyLimitRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(BodySizeLimiter(maxBytes))
	r.POST("/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Error(err)
			return
		}

		c.String(http.StatusOK, strconv.Itoa(len(b)))
	})

	return r
}

func TestBodySizeLimiterRejectsDeclaredOversize(t *testing.T) {
	r := bodyLimitRouter(64)

	req := httptest.NewRequest("POST", "/echo", strings.NewReader(strings.Repeat("x", 100)))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Status = %d, want 413", rr.Code)
	}
}

func TestBodySizeLimiterPassesSmallBodies(t *testing.T) {
	r := bodyLimitRouter(64)

	req := httptest.NewRequest("POST", "/echo", strings.NewReader("small"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "5" {
		t.Errorf("Handler read %s bytes, want 5", rr.Body.String())
	}
}
