package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// HeaderStore is metadata trace context can be carried in.
type HeaderStore interface {
	Header(key string) string
	SetHeader(key, val string)
	HeaderKeys() []string
}

// Carrier adapts a HeaderStore to propagation.TextMapCarrier.
type Carrier struct {
	Store HeaderStore
}

var _ propagation.TextMapCarrier = Carrier{}

func (c Carrier) Get(key string) string { return c.Store.Header(key) }

func (c Carrier) Set(key, val string) { c.Store.SetHeader(key, val) }

func (c Carrier) Keys() []string { return c.Store.HeaderKeys() }

// ContextFrom returns ctx unchanged when it already carries a span,
// otherwise ctx with the remote span context extracted from store.
func ContextFrom(ctx context.Context, p propagation.TextMapPropagator, store HeaderStore) context.Context {
	if store == nil || trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	return p.Extract(ctx, Carrier{Store: store})
}
