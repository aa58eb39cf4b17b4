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

package metrics

import (
	"errors"
	"fmt"
)

// ErrInputMismatch is matched by every *InputMismatchError via errors.Is.
var ErrInputMismatch = errors.New("metrics: input mismatch")

// InputMismatchError reports a batch input that cannot be joined: a trace
// referencing an unknown task, a malformed trace, or a requested domain with
// no runs. A trace calling a tool the plan never mentions is NOT a mismatch;
// that is ordinary false-positive accounting.
type InputMismatchError struct {
	RunID  string
	TaskID string
	Domain string
	Reason string
}

func (e *InputMismatchError) Error() string {
	msg := "metrics: input mismatch"
	if e.RunID != "" {
		msg += fmt.Sprintf(" (run %q", e.RunID)
		if e.TaskID != "" {
			msg += fmt.Sprintf(", task %q", e.TaskID)
		}
		if e.Domain != "" {
			msg += fmt.Sprintf(", domain %q", e.Domain)
		}
		msg += ")"
	} else if e.Domain != "" {
		msg += fmt.Sprintf(" (domain %q)", e.Domain)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is makes errors.Is(err, ErrInputMismatch) succeed for this type.
func (e *InputMismatchError) Is(target error) bool {
	return target == ErrInputMismatch
}
