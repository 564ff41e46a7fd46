// Copyright (c) 2023 The KBase Project and its Contributors
// Copyright (c) 2023 Cohere Consulting, LLC
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package mapping

import (
	"reflect"
	"strings"

	"github.com/essdive/dps/essdive"
)

// a single required field failing its presence predicate
type MissingField struct {
	// the schema field path
	Name string
	// the human-readable label from the required field spec
	Label string
}

// This type reports the mandatory ESS-DIVE fields a payload still lacks,
// ordered as the required field spec declares them so the report reads as a
// prioritized checklist. A report is computed fresh per call and never
// cached across payload changes.
type MissingFieldReport struct {
	Missing []MissingField
}

func (r MissingFieldReport) Empty() bool {
	return len(r.Missing) == 0
}

// returns the missing field paths, in report order
func (r MissingFieldReport) Names() []string {
	names := make([]string, len(r.Missing))
	for i, field := range r.Missing {
		names[i] = field.Name
	}
	return names
}

// Applies each required field's presence predicate to the payload. Absent
// keys count as failing. Check is free of side effects and fills in
// nothing: it may be called repeatedly against an evolving payload
// snapshot (e.g. as a user supplies missing fields) and always returns the
// same report for the same payload.
func Check(payload *essdive.Payload, spec essdive.RequiredFieldSpec) MissingFieldReport {
	var report MissingFieldReport
	for _, field := range spec.Fields {
		value, found := payload.Value(field.Name)
		if !found || !present(value, field.Kind) {
			report.Missing = append(report.Missing, MissingField{
				Name:  field.Name,
				Label: field.Label,
			})
		}
	}
	return report
}

// applies a presence predicate to a field value
func present(value any, kind essdive.PresenceKind) bool {
	switch kind {
	case NonEmptyString:
		text, ok := value.(string)
		return ok && strings.TrimSpace(text) != ""
	case NonEmptyList:
		return listLen(value) > 0
	default: // NonNil
		if value == nil {
			return false
		}
		if text, ok := value.(string); ok {
			return strings.TrimSpace(text) != ""
		}
		return true
	}
}

// aliases so the switch above reads cleanly
const (
	NonEmptyString = essdive.NonEmptyString
	NonEmptyList   = essdive.NonEmptyList
)

// returns the length of a list-typed field value, whatever its element type
func listLen(value any) int {
	switch list := value.(type) {
	case []string:
		return len(list)
	case []essdive.Agent:
		return len(list)
	case []essdive.PayloadResource:
		return len(list)
	case []any:
		return len(list)
	}
	if v := reflect.ValueOf(value); v.Kind() == reflect.Slice {
		return v.Len()
	}
	return 0
}
