package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

func routeCounts(t *testing.T, m *observability.Metrics) map[string]float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "cg_api_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "route" {
					out[l.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}
	return out
}

func TestMetricsRouteLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New()
	r := gin.New()
	r.Use(Metrics(m, "/healthcheck"))
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/courses/:courseId", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/healthcheck", "/api/courses/a", "/api/courses/b", "/nope/1", "/nope/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := routeCounts(t, m)
	if got["/api/courses/:courseId"] != 2 {
		t.Fatalf("expected 2 course requests, got %v", got)
	}
	if got["unmatched"] != 2 {
		t.Fatalf("expected unmatched paths to share a label, got %v", got)
	}
	if _, ok := got["/healthcheck"]; ok {
		t.Fatalf("skipped route was counted: %v", got)
	}
}

func TestMetricsNilIsPassthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("got %d", rec.Code)
	}
}
