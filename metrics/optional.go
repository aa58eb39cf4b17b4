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

import "encoding/json"

// Optional is a metric value that may be undefined. Undefined values arise
// from sparse data and must stay distinguishable from a computed zero, so
// they are carried in-band rather than raised as errors.
type Optional struct {
	Value   float64
	Defined bool
}

// Defined wraps a computed value.
func Defined(v float64) Optional {
	return Optional{Value: v, Defined: true}
}

// Undefined returns the undefined marker.
func Undefined() Optional {
	return Optional{}
}

// MarshalJSON encodes an undefined value as null, so downstream tables show
// an explicit no-data marker instead of a number.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON accepts null as undefined and any number as defined.
func (o *Optional) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Defined(v)
	return nil
}
