package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	maxRequestIDLen = 128
)

// AttachTraceContext stores trace and request ids on the request context and echoes them back.
// The active otel span wins over a client-supplied trace id.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := &ctxutil.TraceData{
			RequestID: clientID(c.GetHeader(headerRequestID)),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			td.TraceID = sc.TraceID().String()
		} else {
			td.TraceID = clientID(c.GetHeader(headerTraceID))
		}
		if td.RequestID == "" {
			td.RequestID = uuid.NewString()
		}
		if td.TraceID == "" {
			td.TraceID = td.RequestID
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Header(headerTraceID, td.TraceID)
		c.Header(headerRequestID, td.RequestID)
		c.Next()
	}
}

// clientID keeps a caller-supplied id only if it is short and printable.
func clientID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRequestIDLen {
		return ""
	}
	for _, r := range raw {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return raw
}
