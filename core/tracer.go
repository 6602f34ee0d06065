package core

import (
	"fmt"
	"reflect"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("github.com/hyperledger-labs/yui-wasm-relayer/core")
)

// StartTraceWithQueryContext creates a span and a QueryContext containing the newly-created span.
func StartTraceWithQueryContext(tracer trace.Tracer, ctx QueryContext, spanName string, opts ...trace.SpanStartOption) (QueryContext, trace.Span) {
	opts = append(opts, trace.WithAttributes(HeightAttributes("query", ctx.Height())...))
	spanCtx, span := tracer.Start(ctx.Context(), spanName, opts...)
	ctx = NewQueryContext(spanCtx, ctx.Height())
	return ctx, span
}

// WithChainAttributes sets the chain ID of a span
func WithChainAttributes(chainID string) trace.SpanStartOption {
	return trace.WithAttributes(AttributeKeyChainID.String(chainID))
}

// WithHeightAttributes records a height under the given group
func WithHeightAttributes(group string, h clienttypes.Height) trace.SpanStartOption {
	return trace.WithAttributes(HeightAttributes(group, h)...)
}

// HeightAttributes returns the attributes of a height prefixed by group.
func HeightAttributes(group string, h clienttypes.Height) []attribute.KeyValue {
	return AttributeGroup(group,
		// Convert revision_number and revision_height to string because the attribute package does not support uint64
		AttributeKeyRevisionNumber.String(fmt.Sprint(h.GetRevisionNumber())),
		AttributeKeyRevisionHeight.String(fmt.Sprint(h.GetRevisionHeight())),
	)
}

// WithPackage adds the package name of the function/method `v`
func WithPackage(v any) trace.SpanStartOption {
	return trace.WithAttributes(AttributeKeyPackage.String(getPackageName(v)))
}

func getPackageName(v any) string {
	if v == nil {
		return ""
	}

	rt := reflect.TypeOf(v)
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	return rt.PkgPath()
}
