package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cryptobot-signal/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	h := New(trace.NewNoopTracerProvider().Tracer("test"), domain.MustCatalog("BTC/USDT", "ETH/USDT"))
	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func TestHealthReturnsRunningStatus(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/health", "/"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		var body healthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: failed to parse response: %v", path, err)
		}
		if body.Status != 200 || body.Message != "bot up and running" {
			t.Fatalf("%s: unexpected body %+v", path, body)
		}
	}
}

func TestGetPairsListsCatalog(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pairs", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Pairs []string `json:"pairs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Pairs) != 2 || body.Pairs[0] != "BTC/USDT" {
		t.Fatalf("unexpected pairs %v", body.Pairs)
	}
}
