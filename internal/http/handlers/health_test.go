package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	down := errors.New("connection refused")

	cases := []struct {
		name   string
		checks map[string]HealthCheck
		code   int
		body   string
	}{
		{name: "no checks", code: http.StatusOK, body: "ok"},
		{
			name:   "all pass",
			checks: map[string]HealthCheck{"db": func(context.Context) error { return nil }},
			code:   http.StatusOK,
			body:   "ok",
		},
		{
			name: "one fails",
			checks: map[string]HealthCheck{
				"db":    func(context.Context) error { return nil },
				"redis": func(context.Context) error { return down },
			},
			code: http.StatusServiceUnavailable,
			body: "redis: connection refused",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/healthcheck", NewHealthHandler(tc.checks).HealthCheck)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
			if rec.Code != tc.code || !strings.Contains(rec.Body.String(), tc.body) {
				t.Fatalf("got %d %q", rec.Code, rec.Body.String())
			}
		})
	}
}
