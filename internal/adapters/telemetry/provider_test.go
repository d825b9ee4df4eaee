package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/rig/internal/adapters/telemetry"
	"go.trai.ch/rig/internal/core/ports"
	"go.trai.ch/rig/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func setupProvider(t *testing.T, processors ...sdktrace.SpanProcessor) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	opts := []sdktrace.TracerProviderOption{sdktrace.WithSpanProcessor(sr)}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr
}

func TestOTelTracer_EmitPlan(t *testing.T) {
	sr := setupProvider(t)

	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	tracer := telemetry.NewOTelTracer("test").WithRenderer(renderer)

	deps := map[string][]string{"compile": {"restore"}, "restore": {}}
	renderer.EXPECT().OnPlanEmit([]string{"restore", "compile"}, deps, []string{"compile"})

	ctx, root := otel.Tracer("test").Start(context.Background(), "run")
	tracer.EmitPlan(ctx, []string{"restore", "compile"}, deps, []string{"compile"})
	root.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "plan_emitted", events[0].Name)
	assert.Contains(t, events[0].Attributes,
		attribute.StringSlice("targets", []string{"restore", "compile"}))
}

func TestOTelTracer_StartAppliesAttributes(t *testing.T) {
	sr := setupProvider(t)
	tracer := telemetry.NewOTelTracer("test")

	_, span := tracer.Start(context.Background(), "pack", ports.WithAttribute("rig.parallelism", 2))
	span.SetAttribute("string", "val")
	span.SetAttribute("int64", int64(123))
	span.SetAttribute("float64", 12.34)
	span.SetAttribute("bool", true)
	span.SetAttribute("slice", []string{"a", "b"})
	span.SetAttribute("duration", time.Second)
	span.SetAttribute("other", complex(1, 1))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.Int("rig.parallelism", 2))
	assert.Contains(t, attrs, attribute.String("string", "val"))
	assert.Contains(t, attrs, attribute.Int64("int64", 123))
	assert.Contains(t, attrs, attribute.Bool("bool", true))
	assert.Contains(t, attrs, attribute.StringSlice("slice", []string{"a", "b"}))
	assert.Contains(t, attrs, attribute.String("duration", "1s"))
	assert.Contains(t, attrs, attribute.String("other", "(1+1i)"))
}

func TestOTelTracer_RecordError(t *testing.T) {
	sr := setupProvider(t)
	tracer := telemetry.NewOTelTracer("test")

	_, span := tracer.Start(context.Background(), "test")
	span.RecordError(errors.New("exit status 1"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "exit status 1", spans[0].Status().Description)
}

func TestOTelTracer_WithoutRendererLogsToSpan(t *testing.T) {
	sr := setupProvider(t)
	tracer := telemetry.NewOTelTracer("test")

	_, span := tracer.Start(context.Background(), "test")
	n, err := span.Write([]byte("log"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "log", spans[0].Events()[0].Name)
}

// eventLog records renderer callbacks in arrival order.
type eventLog struct {
	ports.Renderer

	mu     sync.Mutex
	events []string
}

func (e *eventLog) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, s)
}

func (e *eventLog) OnTargetStart(_, _, name string, _ time.Time) { e.add("start " + name) }

func (e *eventLog) OnTargetLog(_ string, data []byte) { e.add("log " + string(data)) }

func (e *eventLog) OnTargetComplete(_ string, _ time.Time, err error) {
	if err != nil {
		e.add("fail " + err.Error())
		return
	}
	e.add("done")
}

func TestOTelTracer_OutputPrecedesCompletion(t *testing.T) {
	log := &eventLog{}
	setupProvider(t, telemetry.NewBridge(log))
	tracer := telemetry.NewOTelTracer("test").WithRenderer(log)

	_, span := tracer.Start(context.Background(), "compile")
	_, err := span.Write([]byte("building\n"))
	require.NoError(t, err)
	span.RecordError(errors.New("exit status 2"))
	span.End()

	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Equal(t, []string{"start compile", "log building\n", "fail exit status 2"}, log.events)
}

func TestNoOpTracer(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()
	ctx := context.Background()

	tracer.EmitPlan(ctx, []string{"a"}, map[string][]string{"a": {}}, []string{"a"})

	newCtx, span := tracer.Start(ctx, "a", ports.WithAttribute("k", "v"))
	assert.Equal(t, ctx, newCtx)

	span.SetAttribute("key", "value")
	span.RecordError(errors.New("boom"))
	n, err := span.Write([]byte("test log data"))
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	span.End()
}
