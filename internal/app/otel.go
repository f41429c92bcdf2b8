package app

import (
  "context"
  "time"

  "go.opentelemetry.io/otel"
  "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
  "go.opentelemetry.io/otel/sdk/resource"
  sdktrace "go.opentelemetry.io/otel/sdk/trace"
  semconv "go.opentelemetry.io/otel/semconv/v1.30.0"

  "github.com/ajay-dhawan/health-check-plus/internal/util"
)

// initTracer installs the global tracer provider. Spans are only exported
// when endpoint is set.
func initTracer(ctx context.Context, endpoint string) (func(context.Context) error, error) {
  bi := util.ReadBuildInfo(ServiceName)
  res := resource.NewWithAttributes(
    semconv.SchemaURL,
    semconv.ServiceName(ServiceName),
    semconv.ServiceVersion(bi.Version),
  )

  opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
  if endpoint != "" {
    exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
    if err != nil { return nil, err }
    opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(2*time.Second)))
  }
  tp := sdktrace.NewTracerProvider(opts...)
  otel.SetTracerProvider(tp)
  return tp.Shutdown, nil
}
