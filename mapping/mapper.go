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

// This package reconciles the CKAN and ESS-DIVE metadata schemas: the
// mapper applies a fixed rule table to a dataset record, and the checker
// reports which mandatory ESS-DIVE fields the mapped payload still lacks.
package mapping

import (
	"fmt"
	"log/slog"

	"github.com/essdive/dps/ckan"
	"github.com/essdive/dps/essdive"
)

// Maps a CKAN dataset record onto an ESS-DIVE payload. Pure and
// deterministic: no I/O, no clock, no randomness. Source fields with no
// mapping rule are logged and dropped; mandatory target fields with no
// source are left absent for the checker to report. The returned payload
// is frozen.
func Map(record ckan.Record) (*essdive.Payload, error) {
	// a record with no identifier at all is malformed, not merely incomplete
	if record.Id == "" && record.Name == "" {
		return nil, &MappingError{Message: "record carries neither an ID nor a name"}
	}

	payload := essdive.NewPayload()
	consumed := make(map[string]bool)
	for _, rule := range rules {
		values := make([]ckan.FieldValue, len(rule.Sources))
		for i, source := range rule.Sources {
			values[i] = record.Field(source)
			if values[i].Kind != ckan.FieldAbsent {
				consumed[source] = true
			}
		}
		value, present := rule.Apply(values)
		if !present {
			continue
		}
		if err := payload.Set(rule.Target, value); err != nil {
			// the rule table names a field outside the schema: a bug in this package
			return nil, &MappingError{Record: record.Name, Message: err.Error()}
		}
	}

	// carry the record's resource list into the payload's nested section
	if len(record.Resources) > 0 {
		resources := make([]essdive.PayloadResource, len(record.Resources))
		for i, res := range record.Resources {
			resources[i] = essdive.PayloadResource{
				Id:          res.Id,
				Name:        res.Filename(),
				URL:         res.URL,
				Format:      res.Format,
				Description: res.Description,
				Size:        res.Size,
			}
		}
		if err := payload.Set("resources", resources); err != nil {
			return nil, &MappingError{Record: record.Name, Message: err.Error()}
		}
	}

	// unmapped extras are dropped, not erred
	for _, extra := range record.Extras {
		if !consumed["extras."+extra.Key] {
			slog.Debug(fmt.Sprintf("Dropping unmapped CKAN field extras.%s", extra.Key))
		}
	}

	payload.Freeze()
	return payload, nil
}
