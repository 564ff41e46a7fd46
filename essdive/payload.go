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

package essdive

import (
	"encoding/json"
	"strings"
)

// a person or organization named in dataset metadata
type Agent struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// the time period covered by a dataset
type TemporalCoverage struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// a resource file listed in a dataset's nested resource section
type PayloadResource struct {
	Id          string `json:"id,omitempty"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// the set of field names belonging to the ESS-DIVE dataset schema as we
// know it; a key outside this set is a mapping bug, not a runtime state
var SchemaFields = map[string]bool{
	"title":            true,
	"description":      true,
	"keywords":         true,
	"creators":         true,
	"contacts":         true,
	"temporalCoverage": true,
	"spatialCoverage":  true,
	"communities":      true,
	"fundingSource":    true,
	"sourceCkanId":     true,
	"sourceCkanName":   true,
	"resources":        true,
	"extras":           true,
}

// This type holds a dataset payload bound for the ESS-DIVE Dataset API. A
// payload is mutable only while the mapper builds it; Freeze() is called
// before it is handed to the completeness checker and the submission step.
type Payload struct {
	fields map[string]any
	frozen bool
}

func NewPayload() *Payload {
	return &Payload{
		fields: make(map[string]any),
	}
}

// Assigns a value to the named schema field. Assigning to a field outside
// the known schema, or to a frozen payload, yields an error.
func (p *Payload) Set(field string, value any) error {
	if p.frozen {
		return &FrozenPayloadError{Field: field}
	}
	if !SchemaFields[field] {
		return &UnknownFieldError{Field: field}
	}
	p.fields[field] = value
	return nil
}

// makes the payload immutable
func (p *Payload) Freeze() {
	p.frozen = true
}

// Resolves a field path to its value, reporting whether the field is
// present. Nested paths address the temporal coverage section
// ("temporalCoverage.startDate", "temporalCoverage.endDate").
func (p *Payload) Value(fieldPath string) (any, bool) {
	field, nested, isNested := strings.Cut(fieldPath, ".")
	value, found := p.fields[field]
	if !found {
		return nil, false
	}
	if !isNested {
		return value, true
	}
	coverage, ok := value.(TemporalCoverage)
	if !ok {
		return nil, false
	}
	switch nested {
	case "startDate":
		if coverage.StartDate == "" {
			return nil, false
		}
		return coverage.StartDate, true
	case "endDate":
		if coverage.EndDate == "" {
			return nil, false
		}
		return coverage.EndDate, true
	}
	return nil, false
}

// returns the names of all fields present in the payload
func (p *Payload) Fields() []string {
	names := make([]string, 0, len(p.fields))
	for name := range p.fields {
		names = append(names, name)
	}
	return names
}

func (p *Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.fields)
}
