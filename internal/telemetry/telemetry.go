// Copyright 2025 The agentlens Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry sets up the open telemetry tracing used around metric
// computations.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const scopeName = "github.com/agentlens/agentlens"

type tracerProviderHolder struct {
	tp trace.TracerProvider
}

type tracerProviderConfig struct {
	spanProcessors []sdktrace.SpanProcessor
	mu             *sync.RWMutex
}

var (
	once        sync.Once
	localTracer tracerProviderHolder

	localTracerConfig = tracerProviderConfig{
		mu: &sync.RWMutex{},
	}
)

// AddSpanProcessor adds a span processor to the local tracer config. It must
// be called before the first span is started to take effect.
func AddSpanProcessor(processor sdktrace.SpanProcessor) {
	localTracerConfig.mu.Lock()
	defer localTracerConfig.mu.Unlock()
	localTracerConfig.spanProcessors = append(localTracerConfig.spanProcessors, processor)
}

// RegisterTelemetry sets up the local tracer that will be used to emit
// traces. The local tracer exists so spans reach registered processors even
// when the global provider is the noop default.
func RegisterTelemetry() {
	once.Do(func() {
		provider := sdktrace.NewTracerProvider()
		localTracerConfig.mu.RLock()
		processors := localTracerConfig.spanProcessors
		localTracerConfig.mu.RUnlock()
		for _, p := range processors {
			provider.RegisterSpanProcessor(p)
		}
		localTracer = tracerProviderHolder{tp: provider}
	})
}

func getTracers() []trace.Tracer {
	if localTracer.tp == nil {
		RegisterTelemetry()
	}
	return []trace.Tracer{
		localTracer.tp.Tracer(scopeName),
		otel.GetTracerProvider().Tracer(scopeName),
	}
}

// StartSpans starts one span per configured tracer (local and global) under
// the given name. The returned context carries the local span.
func StartSpans(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, []trace.Span) {
	tracers := getTracers()
	spans := make([]trace.Span, len(tracers))
	for i, tracer := range tracers {
		ctx, spans[i] = tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	}
	return ctx, spans
}

// EndSpans records err, if any, and ends every span.
func EndSpans(spans []trace.Span, err error) {
	for _, span := range spans {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}
