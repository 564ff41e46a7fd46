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

package staging

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/frictionlessdata/datapackage-go/datapackage"
)

// the outcome of a single resource's staging attempt
const (
	StatusStaged        = "staged"
	StatusSkippedExists = "skipped-exists"
	statusFailedPrefix  = "failed:"
)

// returns the manifest status string for a staging failure with the given
// reason
func StatusFailed(reason string) string {
	return statusFailedPrefix + reason
}

// This type describes the outcome of staging a single resource file.
type Entry struct {
	// the resource's filename at the staging target
	Resource string `json:"resource"`
	// the resource's location at the target (empty for failures)
	Location string `json:"location,omitempty"`
	// "staged", "skipped-exists", or "failed:<reason>"
	Status string `json:"status"`
	// the number of bytes written ("staged" entries only)
	Size int64 `json:"size,omitempty"`
}

// reports whether this entry records a staging failure
func (e Entry) Failed() bool {
	return strings.HasPrefix(e.Status, statusFailedPrefix)
}

// This type records the outcome of every resource in a staging run. Entries
// are added by a single goroutine, so the type needs no locking.
type Manifest struct {
	// the name of the dataset whose resources were staged
	Dataset string
	// outcomes indexed by resource filename
	Entries map[string]Entry
	// resource filenames in the order their outcomes arrived
	order []string
}

func NewManifest(dataset string) *Manifest {
	return &Manifest{
		Dataset: dataset,
		Entries: make(map[string]Entry),
	}
}

// Adds an entry to the manifest. A failure never replaces a previously
// recorded success for the same resource.
func (m *Manifest) Add(entry Entry) {
	if prior, found := m.Entries[entry.Resource]; found {
		if !prior.Failed() && entry.Failed() {
			slog.Warn(fmt.Sprintf("Staging manifest for %s: keeping %s entry for %s, ignoring %s",
				m.Dataset, prior.Status, entry.Resource, entry.Status))
			return
		}
	} else {
		m.order = append(m.order, entry.Resource)
	}
	m.Entries[entry.Resource] = entry
}

// returns the manifest's entries in the order they were recorded
func (m *Manifest) All() []Entry {
	entries := make([]Entry, 0, len(m.order))
	for _, resource := range m.order {
		entries = append(entries, m.Entries[resource])
	}
	return entries
}

// returns the number of entries with the given status ("failed" counts all
// failures regardless of reason)
func (m *Manifest) Count(status string) int {
	count := 0
	for _, entry := range m.Entries {
		switch status {
		case "failed":
			if entry.Failed() {
				count++
			}
		default:
			if entry.Status == status {
				count++
			}
		}
	}
	return count
}

// reports whether any resource in the run failed to stage
func (m *Manifest) AnyFailed() bool {
	return m.Count("failed") > 0
}

// Writes the manifest as a Frictionless data package descriptor to the given
// file, returning any error encountered. Entry locations are recorded as a
// custom "location" property since descriptor paths must be relative.
func (m *Manifest) SaveDescriptor(file string) error {
	resources := make([]any, 0, len(m.order))
	for _, entry := range m.All() {
		resources = append(resources, map[string]any{
			"name":     dataResourceName(entry.Resource),
			"path":     entry.Resource,
			"location": entry.Location,
			"status":   entry.Status,
			"bytes":    entry.Size,
		})
	}
	descriptor := map[string]any{
		"name":      "staging-manifest",
		"dataset":   m.Dataset,
		"created":   time.Now().Format(time.RFC3339),
		"resources": resources,
	}
	manifest, err := datapackage.New(descriptor, ".")
	if err != nil {
		return &ManifestError{Message: err.Error()}
	}
	if err := manifest.SaveDescriptor(file); err != nil {
		return &ManifestError{Message: err.Error()}
	}
	return nil
}

// creates a Frictionless DataResource-savvy name for a file:
// * the name consists of lower case characters plus '.', '-', and '_'
// * all forbidden characters encountered in the filename are removed
func dataResourceName(filename string) string {
	name := strings.ToLower(filename)

	// remove any file suffix
	lastDot := strings.LastIndex(name, ".")
	if lastDot != -1 {
		name = name[:lastDot]
	}

	// replace sequences of invalid characters with '_'
	for {
		isInvalid := func(c rune) bool {
			return !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' && c != '-' && c != '.'
		}
		start := strings.IndexFunc(name, isInvalid)
		if start >= 0 {
			nameRunes := []rune(name)
			end := start + 1
			for end < len(name) && isInvalid(nameRunes[end]) {
				end++
			}
			if end < len(name) {
				name = name[:start] + string('_') + name[end:]
			} else {
				name = name[:start] + string('_')
			}
		} else {
			break
		}
	}

	return name
}
