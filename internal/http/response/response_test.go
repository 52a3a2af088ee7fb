package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
)

func TestRespondServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "api error", err: apierr.New(http.StatusConflict, "job_active", errors.New("busy")), status: 409, code: "job_active"},
		{name: "not found", err: fmt.Errorf("course x: %w", domain.ErrNotFound), status: 404, code: "not_found"},
		{name: "invalid", err: domain.ErrInvalidArgument, status: 400, code: "invalid_argument"},
		{name: "timeout", err: context.DeadlineExceeded, status: 504, code: "timeout"},
		{name: "other", err: errors.New("boom"), status: 500, code: "fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondServiceError(c, "fallback", tc.err)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tc.code || env.Error.Message != tc.err.Error() {
				t.Fatalf("envelope = %+v", env)
			}
		})
	}
}
