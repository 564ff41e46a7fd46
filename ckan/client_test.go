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

package ckan

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/essdive/dps/dpstest"
)

// a catalog fixture with the field shapes CKAN actually serves
var testDataset = map[string]any{
	"id":           "4b2a11aa",
	"name":         "hydro-monitoring-2024",
	"title":        "Hydrological Monitoring 2024",
	"notes":        "Stream gauge data.",
	"author":       "Pat Jones",
	"author_email": "pjones@example.gov",
	"tags": []map[string]any{
		{"display_name": "hydrology"},
	},
	"groups": []map[string]any{
		{"name": "watershed-fn"},
	},
	"extras": []map[string]any{
		{"key": "temporal_start", "value": "2024-01-01"},
	},
	"resources": []map[string]any{
		{
			"id":   "res-1",
			"name": "gauges",
			"url":  "URL_PLACEHOLDER",
			"size": "1024", // catalogs often report sizes as strings
			"hash": "d41d8cd98f00b204e9800998ecf8427e",
		},
	},
}

// builds a client pointed at the given fake server
func testClient(serverURL string) *Client {
	return &Client{
		Client: http.Client{},
		URL:    serverURL,
	}
}

func TestDataset(t *testing.T) {
	assert := assert.New(t)

	server := dpstest.NewCkanServer([]map[string]any{testDataset}, nil)
	defer server.Close()
	client := testClient(server.URL)

	record, err := client.Dataset(context.Background(), "hydro-monitoring-2024")
	assert.Nil(err)
	assert.Equal("4b2a11aa", record.Id)
	assert.Equal("Hydrological Monitoring 2024", record.Title)
	assert.Equal([]string{"hydrology"}, record.Tags)
	assert.Equal([]string{"watershed-fn"}, record.Groups)
	assert.Equal("temporal_start", record.Extras[0].Key)
	assert.Len(record.Resources, 1)
	assert.Equal(int64(1024), record.Resources[0].Size)
	assert.Equal("d41d8cd98f00b204e9800998ecf8427e", record.Resources[0].Checksum)

	// the same record is reachable by ID
	record, err = client.Dataset(context.Background(), "4b2a11aa")
	assert.Nil(err)
	assert.Equal("hydro-monitoring-2024", record.Name)
}

func TestDatasetNotFound(t *testing.T) {
	assert := assert.New(t)

	server := dpstest.NewCkanServer(nil, nil)
	defer server.Close()
	client := testClient(server.URL)

	_, err := client.Dataset(context.Background(), "no-such-dataset")
	assert.NotNil(err)
	assert.IsType(&NotFoundError{}, err)
}

func TestSearch(t *testing.T) {
	assert := assert.New(t)

	server := dpstest.NewCkanServer([]map[string]any{testDataset}, nil)
	defer server.Close()
	client := testClient(server.URL)

	records, err := client.Search(context.Background(), "hydro", 10)
	assert.Nil(err)
	assert.Len(records, 1)
	assert.Equal("hydro-monitoring-2024", records[0].Name)

	records, err = client.Search(context.Background(), "zebrafish", 10)
	assert.Nil(err)
	assert.Len(records, 0)
}

func TestFetchResource(t *testing.T) {
	assert := assert.New(t)

	content := []byte("site,flow\nsg-104,1.2\n")
	server := dpstest.NewCkanServer(nil, map[string][]byte{
		"gauges.csv": content,
	})
	defer server.Close()
	client := testClient(server.URL)

	body, size, err := client.FetchResource(context.Background(), ResourceRef{
		Name: "gauges",
		URL:  server.FileURL("gauges.csv"),
	})
	assert.Nil(err)
	defer body.Close()
	assert.Equal(int64(len(content)), size)
	fetched, err := io.ReadAll(body)
	assert.Nil(err)
	assert.Equal(content, fetched)
}

func TestFetchResourceNotFound(t *testing.T) {
	assert := assert.New(t)

	server := dpstest.NewCkanServer(nil, nil)
	defer server.Close()
	client := testClient(server.URL)

	_, _, err := client.FetchResource(context.Background(), ResourceRef{
		Name: "missing",
		URL:  server.FileURL("missing.csv"),
	})
	assert.NotNil(err)
	notFoundErr, ok := err.(*ResourceNotFoundError)
	assert.True(ok)
	assert.Equal("not_found", notFoundErr.Message)

	// a resource with no URL at all is also not found
	_, _, err = client.FetchResource(context.Background(), ResourceRef{Name: "empty"})
	assert.IsType(&ResourceNotFoundError{}, err)
}
