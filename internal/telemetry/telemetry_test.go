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

package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpans(t *testing.T) {
	ctx, spans := StartSpans(context.Background(), "metrics.calculate",
		attribute.Int("runs", 3))
	if ctx == nil {
		t.Fatal("StartSpans returned nil context")
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2 (local + global)", len(spans))
	}
	EndSpans(spans, nil)
}

func TestEndSpansRecordsError(t *testing.T) {
	_, spans := StartSpans(context.Background(), "metrics.calculate")
	// Must not panic with a non-nil error.
	EndSpans(spans, errors.New("boom"))
}
