// Package invoke is the entry point of the call engine. It resolves a script
// call against the host, converts the script arguments, invokes the native
// member and wraps its result into a handle.
//
// Every failure is contained: Call never panics, reports exactly one
// diagnostic line through its logger and returns the error for inspection.
//
// Example:
//
//	reg := host.NewRegistry()
//	reg.Register((*strings.Builder)(nil))
//
//	engine := invoke.New(reg)
//	b := value.NewHandle(&strings.Builder{})
//	_, err := engine.Call(ctx, entry, b, resolve.Method("WriteString"), []value.Value{value.NewElement("hi")}, nil)
package invoke

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/anoideaopen/reflectcall/core/convert"
	"github.com/anoideaopen/reflectcall/core/host"
	"github.com/anoideaopen/reflectcall/core/logger"
	"github.com/anoideaopen/reflectcall/core/resolve"
	"github.com/anoideaopen/reflectcall/core/script"
	"github.com/anoideaopen/reflectcall/core/signature"
	"github.com/anoideaopen/reflectcall/core/telemetry"
	"github.com/anoideaopen/reflectcall/core/value"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Error types.
var (
	ErrInvalidSignature      = signature.ErrInvalidSignature
	ErrNoMatchingMember      = resolve.ErrNoMatchingMember
	ErrAccessDenied          = resolve.ErrAccessDenied
	ErrConversionFailure     = convert.ErrConversionFailure
	ErrNativeInvocationFault = errors.New("native invocation fault")
	ErrInvalidTarget         = errors.New("invalid target")
)

const spanName = "reflectcall.Call"

// Engine dispatches script calls into a host.
type Engine struct {
	host     host.Host
	conv     *convert.Converter
	resolver *resolve.Resolver
	log      logrus.FieldLogger
	tracer   trace.Tracer
	prop     propagation.TextMapPropagator
}

type options struct {
	log      logrus.FieldLogger
	tracer   trace.Tracer
	prop     propagation.TextMapPropagator
	resolver []resolve.Option
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the diagnostics logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithTracer sets the tracer call spans are started with.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithPropagator sets how a parent trace context is read from entry headers.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) { o.prop = p }
}

// WithCache makes the engine use c instead of the process-wide cache.
func WithCache(c *resolve.Cache) Option {
	return func(o *options) { o.resolver = append(o.resolver, resolve.WithCache(c)) }
}

// WithOrder sets the candidate order policy of the resolver.
func WithOrder(order resolve.Order) Option {
	return func(o *options) { o.resolver = append(o.resolver, resolve.WithOrder(order)) }
}

// New creates an engine dispatching into h.
func New(h host.Host, opts ...Option) *Engine {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Logger()
	}
	if o.tracer == nil {
		o.tracer = telemetry.Tracer()
	}
	if o.prop == nil {
		o.prop = otel.GetTextMapPropagator()
	}

	conv := convert.New(h, o.log)
	return &Engine{
		host:     h,
		conv:     conv,
		resolver: resolve.New(h, conv, o.log, o.resolver...),
		log:      o.log,
		tracer:   o.tracer,
		prop:     o.prop,
	}
}

// Stats returns the resolver lookup counters.
func (e *Engine) Stats() resolve.Stats {
	return e.resolver.Stats()
}

// Call invokes target on on with params. on must be a handle: a handle
// wrapping a reflect.Type calls static members and constructors of that
// type, any other handle calls instance members of its object. sig, when
// not nil, selects the overload by exact parameter types.
//
// A non-nil result is saved into entry under script.ResultKey and returned.
// When ctx carries no span, the call span is parented on the trace context
// found in the entry headers.
func (e *Engine) Call(
	ctx context.Context,
	entry *script.Entry,
	on value.Value,
	target resolve.Target,
	params []value.Value,
	sig []value.Value,
) (result *value.Handle, err error) {
	callID := uuid.NewString()
	log := e.log.WithFields(logrus.Fields{
		"call_id": callID,
		"target":  target.String(),
	})

	if entry != nil {
		ctx = telemetry.ContextFrom(ctx, e.prop, entry)
	}
	_, span := e.tracer.Start(ctx, spanName, trace.WithAttributes(
		telemetry.CallID(callID),
		telemetry.Member(target.Name),
		telemetry.Arity(len(params)),
		telemetry.ExplicitSignature(sig != nil),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrNativeInvocationFault, target, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			// Commit conversion failures were already reported by the converter.
			if !errors.Is(err, ErrConversionFailure) {
				log.Error(err.Error())
			}
		}
	}()

	owner, static, err := e.owner(on, target)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.Owner(owner.String()), telemetry.CallKind(callKind(target, static)))

	var found resolve.Found
	if sig != nil {
		types, err := signature.Parse(sig, e.host)
		if err != nil {
			return nil, err
		}
		if found, err = e.resolver.ResolveSignature(owner, static, target, types); err != nil {
			return nil, err
		}
	} else {
		if found, err = e.resolver.Resolve(owner, static, target, params); err != nil {
			return nil, err
		}
	}

	args, err := e.conv.WithLogger(log).ConvertAll(found.Params, params, convert.Commit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, found.Member)
	}
	if !static {
		receiver := on.(*value.Handle).Object() //nolint:forcetypeassert
		args = append([]reflect.Value{reflect.ValueOf(receiver)}, args...)
	}

	out, err := Invoke(found, args)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}

	result = value.NewHandle(out)
	if entry != nil {
		entry.SaveObject(script.ResultKey, result)
	}
	return result, nil
}

// owner returns the type members are resolved on and whether the call is static.
func (e *Engine) owner(on value.Value, target resolve.Target) (reflect.Type, bool, error) {
	if target.Kind == host.KindMethod && target.Name == "" {
		return nil, false, fmt.Errorf("%w: must specify either a method name or a constructor", ErrInvalidTarget)
	}

	h, ok := on.(*value.Handle)
	if !ok || h.Object() == nil {
		return nil, false, fmt.Errorf("%w: calls must be made on a native object or type, got '%v'", ErrInvalidTarget, on)
	}

	if t, ok := h.Type(); ok {
		return t, true, nil
	}
	if target.Kind == host.KindConstructor {
		return nil, false, fmt.Errorf("%w: cannot construct from instance type: reflected object must be a type", ErrInvalidTarget)
	}
	return reflect.TypeOf(h.Object()), false, nil
}

func callKind(target resolve.Target, static bool) telemetry.CallKindNum {
	switch {
	case target.Kind == host.KindConstructor:
		return telemetry.CallConstructor
	case static:
		return telemetry.CallStatic
	default:
		return telemetry.CallInstance
	}
}
