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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManifestCounts(t *testing.T) {
	assert := assert.New(t)

	manifest := NewManifest("hydro-monitoring-2024")
	manifest.Add(Entry{Resource: "gauges.csv", Location: "memory://gauges.csv", Status: StatusStaged, Size: 19})
	manifest.Add(Entry{Resource: "README.md", Location: "memory://README.md", Status: StatusSkippedExists})
	manifest.Add(Entry{Resource: "broken.zip", Status: StatusFailed("not_found")})
	manifest.Add(Entry{Resource: "corrupt.nc", Status: StatusFailed("checksum_mismatch")})

	assert.Equal(1, manifest.Count(StatusStaged))
	assert.Equal(1, manifest.Count(StatusSkippedExists))
	assert.Equal(2, manifest.Count("failed"))
	assert.Equal(1, manifest.Count(StatusFailed("not_found")))
	assert.True(manifest.AnyFailed())
}

func TestManifestPreservesOrder(t *testing.T) {
	assert := assert.New(t)

	manifest := NewManifest("hydro-monitoring-2024")
	names := []string{"c.csv", "a.csv", "b.csv"}
	for _, name := range names {
		manifest.Add(Entry{Resource: name, Status: StatusStaged})
	}

	entries := manifest.All()
	assert.Len(entries, 3)
	for i, entry := range entries {
		assert.Equal(names[i], entry.Resource)
	}
}

func TestManifestFailureNeverReplacesSuccess(t *testing.T) {
	assert := assert.New(t)

	manifest := NewManifest("hydro-monitoring-2024")
	manifest.Add(Entry{Resource: "gauges.csv", Location: "memory://gauges.csv", Status: StatusStaged})
	manifest.Add(Entry{Resource: "gauges.csv", Status: StatusFailed("cancelled")})

	entry := manifest.Entries["gauges.csv"]
	assert.Equal(StatusStaged, entry.Status)
	assert.Equal("memory://gauges.csv", entry.Location)
	assert.Len(manifest.All(), 1)

	// a success recorded after a failure does replace it
	manifest.Add(Entry{Resource: "retry.csv", Status: StatusFailed("timeout")})
	manifest.Add(Entry{Resource: "retry.csv", Location: "memory://retry.csv", Status: StatusStaged})
	assert.Equal(StatusStaged, manifest.Entries["retry.csv"].Status)
}

func TestManifestSaveDescriptor(t *testing.T) {
	assert := assert.New(t)

	manifest := NewManifest("hydro-monitoring-2024")
	manifest.Add(Entry{Resource: "gauges.csv", Location: "/stage/gauges.csv", Status: StatusStaged, Size: 19})
	manifest.Add(Entry{Resource: "broken.zip", Status: StatusFailed("not_found")})

	file := filepath.Join(t.TempDir(), "manifest.json")
	assert.Nil(manifest.SaveDescriptor(file))

	content, err := os.ReadFile(file)
	assert.Nil(err)
	assert.Contains(string(content), "gauges.csv")
	assert.Contains(string(content), "/stage/gauges.csv")
	assert.Contains(string(content), StatusFailed("not_found"))
}

func TestDataResourceName(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("gauges", dataResourceName("gauges.csv"))
	assert.Equal("soil_cores_2024_", dataResourceName("Soil Cores (2024).zip"))
	assert.Equal("readme", dataResourceName("README.md"))
}
