package translate

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrumented records a span, a request counter and a latency histogram for
// every call to the wrapped Translator.
type Instrumented struct {
	next     Translator
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// Instrument wraps next with OpenTelemetry tracing and metrics.
func Instrument(next Translator, tracer trace.Tracer, meter metric.Meter) (*Instrumented, error) {
	requests, err := meter.Int64Counter(
		"translation.requests",
		metric.WithDescription("Translation prompt calls by operation and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"translation.duration",
		metric.WithDescription("Translation prompt latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &Instrumented{
		next:     next,
		tracer:   tracer,
		requests: requests,
		duration: duration,
	}, nil
}

// Translate implements Translator.
func (i *Instrumented) Translate(ctx context.Context, req Request) (string, error) {
	return i.observe(ctx, OpTranslate, req, i.next.Translate)
}

// Transliterate implements Translator.
func (i *Instrumented) Transliterate(ctx context.Context, req Request) (string, error) {
	return i.observe(ctx, OpTransliterate, req, i.next.Transliterate)
}

func (i *Instrumented) observe(ctx context.Context, op string, req Request, call func(context.Context, Request) (string, error)) (string, error) {
	attrs := []attribute.KeyValue{
		attribute.String("translation.op", op),
		attribute.String("translation.source", req.SourceLanguage),
		attribute.String("translation.target", req.TargetLanguage),
	}

	ctx, span := i.tracer.Start(ctx, "translation."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	text, err := call(ctx, req)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	i.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("translation.op", op),
		attribute.String("outcome", outcome),
	))
	i.duration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(
		attribute.String("translation.op", op),
	))

	return text, err
}
