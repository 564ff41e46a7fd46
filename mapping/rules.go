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
	"strings"

	"github.com/essdive/dps/ckan"
	"github.com/essdive/dps/essdive"
)

// A transform turns source field values (aligned with a rule's source
// paths) into a target field value. The boolean result reports presence:
// when false, the target field is left absent in the payload (never a
// placeholder).
type transform func(values []ckan.FieldValue) (any, bool)

// a single row in the mapping table
type rule struct {
	// source field paths, resolved against the record in order
	Sources []string
	// the ESS-DIVE field receiving the transformed value
	Target string
	// how the source values become the target value
	Apply transform
}

// The mapping table: how CKAN record fields become ESS-DIVE payload fields.
// Several sources may combine into one target (creators, contacts, temporal
// coverage), and one source may fan out to several targets (the record name
// feeds both title fallback and sourceCkanName).
var rules = []rule{
	{Sources: []string{"title", "name"}, Target: "title", Apply: firstScalar},
	{Sources: []string{"notes"}, Target: "description", Apply: firstScalar},
	{Sources: []string{"tags"}, Target: "keywords", Apply: firstList},
	{Sources: []string{"author", "author_email"}, Target: "creators", Apply: agent},
	{Sources: []string{"maintainer", "maintainer_email"}, Target: "contacts", Apply: agent},
	{
		Sources: []string{
			"extras.temporal_start", "extras.time_start",
			"extras.temporal_end", "extras.time_end",
		},
		Target: "temporalCoverage",
		Apply:  temporalCoverage,
	},
	{Sources: []string{"extras.spatial", "extras.bbox"}, Target: "spatialCoverage", Apply: firstScalar},
	{Sources: []string{"groups"}, Target: "communities", Apply: firstList},
	{Sources: []string{"extras.funding_source"}, Target: "fundingSource", Apply: firstScalar},
	{Sources: []string{"id"}, Target: "sourceCkanId", Apply: firstScalar},
	{Sources: []string{"name"}, Target: "sourceCkanName", Apply: firstScalar},
}

//------------
// Transforms
//------------

// identity on the first present scalar source
func firstScalar(values []ckan.FieldValue) (any, bool) {
	for _, value := range values {
		if value.Kind == ckan.FieldScalar {
			return value.Scalar, true
		}
	}
	return nil, false
}

// identity on the first present list source
func firstList(values []ckan.FieldValue) (any, bool) {
	for _, value := range values {
		if value.Kind == ckan.FieldList {
			return value.List, true
		}
	}
	return nil, false
}

// combines a name source and an email source into a one-element agent list
func agent(values []ckan.FieldValue) (any, bool) {
	var person essdive.Agent
	if values[0].Kind == ckan.FieldScalar {
		person.Name = values[0].Scalar
	}
	if len(values) > 1 && values[1].Kind == ckan.FieldScalar {
		person.Email = values[1].Scalar
	}
	if person.Name == "" && person.Email == "" {
		return nil, false
	}
	return []essdive.Agent{person}, true
}

// combines the temporal extras (start candidates first, then end
// candidates) into a temporal coverage section, coercing date strings on
// the way
func temporalCoverage(values []ckan.FieldValue) (any, bool) {
	coverage := essdive.TemporalCoverage{}
	for _, value := range values[:2] {
		if value.Kind == ckan.FieldScalar {
			coverage.StartDate = coerceDate(value.Scalar)
			break
		}
	}
	for _, value := range values[2:] {
		if value.Kind == ckan.FieldScalar {
			coverage.EndDate = coerceDate(value.Scalar)
			break
		}
	}
	if coverage.StartDate == "" && coverage.EndDate == "" {
		return nil, false
	}
	return coverage, true
}

// normalizes a catalog date string toward ISO 8601 (CKAN extras commonly
// use '/' separators)
func coerceDate(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), "/", "-")
}
