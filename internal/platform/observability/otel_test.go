package observability

import (
	"context"
	"testing"
)

func TestTraceSettingsFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		env      map[string]string
		exporter string
		ratio    float64
		headers  int
	}{
		{
			name:     "stdout without endpoint",
			env:      map[string]string{"OTEL_ENABLED": "true"},
			exporter: "stdout",
			ratio:    0.1,
		},
		{
			name: "otlp inferred from endpoint",
			env: map[string]string{
				"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318",
				"OTEL_EXPORTER_OTLP_HEADERS":  "x-api-key=abc, broken, =v",
				"OTEL_SAMPLER_RATIO":          "2",
			},
			exporter: "otlp",
			ratio:    1,
			headers:  1,
		},
		{
			name:     "explicit exporter wins",
			env:      map[string]string{"OTEL_TRACES_EXPORTER": "STDOUT", "OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318", "OTEL_SAMPLER_RATIO": "0.5"},
			exporter: "stdout",
			ratio:    0.5,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{"OTEL_ENABLED", "OTEL_TRACES_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS", "OTEL_SAMPLER_RATIO"} {
				t.Setenv(k, tc.env[k])
			}
			ts := traceSettingsFromEnv()
			if ts.exporter != tc.exporter || ts.ratio != tc.ratio || len(ts.headers) != tc.headers {
				t.Fatalf("got %+v", ts)
			}
		})
	}
}

func TestNewExporterRejectsBadSettings(t *testing.T) {
	ctx := context.Background()
	if _, err := newExporter(ctx, traceSettings{exporter: "otlp"}); err == nil {
		t.Fatalf("expected error for otlp without endpoint")
	}
	if _, err := newExporter(ctx, traceSettings{exporter: "zipkin"}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func TestParseRatio(t *testing.T) {
	for raw, want := range map[string]float64{"": 0.1, "abc": 0.1, "-1": 0, "0.25": 0.25, "7": 1} {
		if got := parseRatio(raw); got != want {
			t.Fatalf("parseRatio(%q) = %v, want %v", raw, got, want)
		}
	}
}
