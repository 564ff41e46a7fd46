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

// the presence predicate applied to a required field, matched to the
// field's type
type PresenceKind int

const (
	NonEmptyString PresenceKind = iota
	NonEmptyList
	NonNil
)

// a single mandatory field in the ESS-DIVE schema
type RequiredField struct {
	// the schema field path (e.g. "title", "temporalCoverage.startDate")
	Name string
	// a human-readable label used in missing-field reports
	Label string
	// the presence predicate appropriate to the field's type
	Kind PresenceKind
}

// This type holds the set of ESS-DIVE fields that must be present before a
// dataset can be submitted. It is loaded once and shared read-only across
// all completeness checks; declaration order determines report order.
type RequiredFieldSpec struct {
	Fields []RequiredField
}

// presence predicate kinds for schema fields whose types we know
var fieldKinds = map[string]PresenceKind{
	"title":                      NonEmptyString,
	"description":                NonEmptyString,
	"keywords":                   NonEmptyList,
	"creators":                   NonEmptyList,
	"contacts":                   NonEmptyList,
	"communities":                NonEmptyList,
	"temporalCoverage.startDate": NonEmptyString,
	"temporalCoverage.endDate":   NonEmptyString,
	"spatialCoverage":            NonEmptyString,
	"fundingSource":              NonEmptyString,
}

// Returns the built-in required field set, in the order the ESS-DIVE
// schema declares it. Reports generated against this spec read as a
// prioritized checklist matching the target schema's own ordering.
func DefaultRequiredFields() RequiredFieldSpec {
	return RequiredFieldSpec{
		Fields: []RequiredField{
			{Name: "title", Label: "Title", Kind: NonEmptyString},
			{Name: "description", Label: "Description / abstract", Kind: NonEmptyString},
			{Name: "creators", Label: "At least one creator", Kind: NonEmptyList},
			{Name: "contacts", Label: "Primary contact / maintainer", Kind: NonEmptyList},
			{Name: "keywords", Label: "Keywords / tags", Kind: NonEmptyList},
			{Name: "temporalCoverage.startDate", Label: "Temporal start date", Kind: NonEmptyString},
			{Name: "temporalCoverage.endDate", Label: "Temporal end date", Kind: NonEmptyString},
		},
	}
}

// Returns a copy of the spec with the named fields appended (in the given
// order), skipping any already declared. Fields with unknown types get the
// NonNil predicate.
func (s RequiredFieldSpec) Extend(names ...string) RequiredFieldSpec {
	extended := RequiredFieldSpec{
		Fields: make([]RequiredField, len(s.Fields), len(s.Fields)+len(names)),
	}
	copy(extended.Fields, s.Fields)
	for _, name := range names {
		declared := false
		for _, field := range extended.Fields {
			if field.Name == name {
				declared = true
				break
			}
		}
		if declared {
			continue
		}
		kind, known := fieldKinds[name]
		if !known {
			kind = NonNil
		}
		extended.Fields = append(extended.Fields, RequiredField{
			Name:  name,
			Label: name,
			Kind:  kind,
		})
	}
	return extended
}
