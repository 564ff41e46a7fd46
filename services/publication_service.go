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

// This package implements the REST API for the Dataset Publication Service
// (DPS), which reconciles CKAN dataset metadata with the ESS-DIVE schema and
// publishes datasets to ESS-DIVE.
package services

import (
	"context"
	"encoding/json"
)

// This interface defines a service that publishes CKAN datasets to ESS-DIVE.
type PublicationService interface {
	// Starts the service on the selected port, returning an error that
	// indicates success or failure.
	Start(port int) error
	// Gracefully shuts down the service without interrupting active
	// connections.
	Shutdown(ctx context.Context) error
	// Closes down the service, freeing all resources.
	Close()
}

// this type encodes a JSON object for responding to root queries
type ServiceInfoResponse struct {
	Name          string `json:"name" example:"DPS" doc:"The name of the service API"`
	Version       string `json:"version" example:"1.0.0" doc:"The version string (major.minor.patch)"`
	Uptime        int    `json:"uptime" example:"345600" doc:"The time the service has been up (seconds)"`
	Documentation string `json:"documentation" example:"/docs" doc:"The OpenAPI documentation endpoint"`
}

// a response describing a CKAN dataset (GET)
type DatasetResponse struct {
	Id           string `json:"id" example:"4b2a...ffe1" doc:"The dataset's CKAN ID"`
	Name         string `json:"name" example:"hydro-monitoring-2024" doc:"The dataset's CKAN name"`
	Title        string `json:"title" example:"Hydrological Monitoring 2024"`
	NumResources int    `json:"num_resources" example:"12" doc:"The number of resource files in the dataset"`
}

// a response carrying the results of a mapping check (GET)
type CheckResponse struct {
	Id      string          `json:"id" doc:"The dataset's CKAN ID or name"`
	Valid   bool            `json:"valid" doc:"True if the mapped payload carries every required field"`
	Missing []MissingField  `json:"missing" doc:"Required fields absent from the mapped payload"`
	Payload json.RawMessage `json:"payload" doc:"The mapped ESS-DIVE payload"`
}

// a required field absent from a mapped payload
type MissingField struct {
	Name  string `json:"name" example:"creators"`
	Label string `json:"label" example:"Authors and associated emails"`
}

// a response for a publication creation request (POST)
type PublicationResponse struct {
	Id string `json:"id" doc:"A UUID uniquely identifying the publication run"`
}

// a response for a publication status query (GET)
type PublicationStatusResponse struct {
	Id            string   `json:"id" doc:"A UUID uniquely identifying the publication run"`
	Status        string   `json:"status" example:"submitted" doc:"The run's current status"`
	FailureStage  string   `json:"failure_stage,omitempty" example:"staging" doc:"The stage a failed run failed in"`
	FailureReason string   `json:"failure_reason,omitempty" doc:"A human-readable explanation of the failure"`
	EssDiveId     string   `json:"essdive_id,omitempty" doc:"The ESS-DIVE identifier minted for the dataset"`
	MissingFields []string `json:"missing_fields,omitempty" doc:"Required metadata fields missing from the payload"`
	NumResources  int      `json:"num_resources" doc:"The number of resource files in the dataset"`
	NumStaged     int      `json:"num_staged" doc:"The number of resources staged by this run"`
	NumSkipped    int      `json:"num_skipped" doc:"The number of resources already staged and skipped"`
	NumFailed     int      `json:"num_failed" doc:"The number of resources that failed to stage"`
}
