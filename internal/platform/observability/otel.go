package observability

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const tracerName = "github.com/yungbote/coursegen-backend"

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

// traceSettings is the env-derived exporter setup.
type traceSettings struct {
	enabled  bool
	exporter string // otlp | stdout
	endpoint string
	insecure bool
	headers  map[string]string
	ratio    float64
}

func traceSettingsFromEnv() traceSettings {
	ts := traceSettings{
		enabled:  envutil.Bool("OTEL_ENABLED", false),
		exporter: strings.ToLower(envutil.String("OTEL_TRACES_EXPORTER", "")),
		endpoint: envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		insecure: envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		headers:  parseHeaders(envutil.List("OTEL_EXPORTER_OTLP_HEADERS", nil)),
		ratio:    parseRatio(envutil.String("OTEL_SAMPLER_RATIO", "")),
	}
	if ts.exporter == "" {
		ts.exporter = "stdout"
		if ts.endpoint != "" {
			ts.exporter = "otlp"
		}
	}
	return ts
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// InitOTel installs the global tracer provider when OTEL_ENABLED is set. The returned shutdown func is
// nil when tracing stays disabled. Exporter failures leave tracing on with spans dropped.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		ts := traceSettingsFromEnv()
		if !ts.enabled {
			return
		}
		if log == nil {
			log = logger.Nop()
		}
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "coursegen-backend"
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		))
		if err != nil {
			log.Warn("otel resource init failed", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ts.ratio))),
			sdktrace.WithResource(res),
		}
		exporter, err := newExporter(ctx, ts)
		if err != nil {
			log.Warn("otel exporter init failed", "exporter", ts.exporter, "error", err)
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		otelShutdown = tp.Shutdown
		log.Info("otel tracing initialized", "service", serviceName, "exporter", ts.exporter, "ratio", ts.ratio)
	})
	return otelShutdown
}

// Tracer returns the service tracer from the global provider (a no-op provider until InitOTel runs).
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func newExporter(ctx context.Context, ts traceSettings) (sdktrace.SpanExporter, error) {
	switch ts.exporter {
	case "otlp":
		if ts.endpoint == "" {
			return nil, fmt.Errorf("otlp exporter needs OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		var opts []otlptracehttp.Option
		if strings.Contains(ts.endpoint, "://") {
			opts = append(opts, otlptracehttp.WithEndpointURL(ts.endpoint))
		} else {
			opts = append(opts, otlptracehttp.WithEndpoint(ts.endpoint))
		}
		if ts.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(ts.headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(ts.headers))
		}
		return otlptracehttp.New(ctx, opts...)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown OTEL_TRACES_EXPORTER %q", ts.exporter)
	}
}

// parseRatio defaults to 0.1 and clamps to [0, 1].
func parseRatio(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	switch {
	case err != nil:
		return 0.1
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// parseHeaders reads key=value pairs; malformed entries are skipped.
func parseHeaders(parts []string) map[string]string {
	headers := map[string]string{}
	for _, part := range parts {
		key, val, ok := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
