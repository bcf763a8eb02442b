package observability

import (
	"context"
	"testing"
)

func TestInitOTelDisabled(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	shutdown := InitOTel(context.Background(), nil, OtelConfig{})
	if shutdown == nil {
		t.Fatalf("shutdown must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitOTelWithoutExporter(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown := InitOTel(context.Background(), nil, OtelConfig{ServiceName: "test"})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestExporterSelection(t *testing.T) {
	cases := []struct {
		exporter, endpoint, want string
	}{
		{"", "", "none"},
		{"stdout", "collector:4318", "stdout"},
		{"", "collector:4318", "otlphttp"},
	}
	for _, tc := range cases {
		t.Setenv("OTEL_TRACES_EXPORTER", tc.exporter)
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tc.endpoint)
		if got := exporterName(); got != tc.want {
			t.Fatalf("exporterName(%q,%q) = %q, want %q", tc.exporter, tc.endpoint, got, tc.want)
		}
	}
}

func TestSampleRatioAndHeaders(t *testing.T) {
	for raw, want := range map[string]float64{"": 1, "0.25": 0.25, "-1": 0, "7": 1, "x": 1} {
		t.Setenv("OTEL_SAMPLER_RATIO", raw)
		if got := otelSampleRatio(); got != want {
			t.Fatalf("ratio(%q) = %v, want %v", raw, got, want)
		}
	}
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "a=1, b = 2 ,broken,=x")
	h := otelHeaders()
	if len(h) != 2 || h["a"] != "1" || h["b"] != "2" {
		t.Fatalf("headers = %v", h)
	}
}
