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

// This package coordinates dataset publications: each run fetches a CKAN
// dataset, maps its metadata to an ESS-DIVE payload, stages its resource
// files, and (unless the run is a dry run) submits the payload to ESS-DIVE.
package transfers

import (
	"time"

	"github.com/google/uuid"

	"github.com/essdive/dps/essdive"
	"github.com/essdive/dps/mapping"
	"github.com/essdive/dps/staging"
)

// this type holds a specification used to create a valid publication run
type Specification struct {
	// the name or ID of the CKAN dataset to publish
	Dataset string
	// when true, the run stops after validation instead of submitting
	DryRun bool
	// when true, submission proceeds even if some resources failed to stage
	AllowPartialStaging bool
}

type PublicationStatusCode int

const (
	StatusUnknown PublicationStatusCode = iota
	StatusInitialized
	StatusMapped
	StatusChecked
	StatusStaged
	StatusValidated
	StatusSubmitted
	StatusCanceled
	StatusFailed
)

func (code PublicationStatusCode) String() string {
	switch code {
	case StatusInitialized:
		return "initialized"
	case StatusMapped:
		return "mapped"
	case StatusChecked:
		return "checked"
	case StatusStaged:
		return "staged"
	case StatusValidated:
		return "validated"
	case StatusSubmitted:
		return "submitted"
	case StatusCanceled:
		return "canceled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// basic status information regarding a publication run
type PublicationStatus struct {
	Code PublicationStatusCode
	// the stage a failed run failed in ("fetch", "mapping", "validation",
	// "staging", "submission", or "auth"), empty otherwise
	FailureStage string
	// a human-readable explanation of a failure
	FailureReason string
	// the ESS-DIVE identifier minted for the dataset (submitted runs only)
	EssDiveId string
	// names of required metadata fields missing from the payload
	MissingFields []string
	// resource staging tallies
	NumResources int
	NumStaged    int
	NumSkipped   int
	NumFailed    int
}

// everything a completed run produced
type Result struct {
	Status   PublicationStatus
	Payload  *essdive.Payload
	Report   mapping.MissingFieldReport
	Manifest *staging.Manifest
}

// a record tracking one publication run from creation to purging
type PublicationRecord struct {
	Id             uuid.UUID
	Specification  Specification
	Status         PublicationStatus
	StartTime      time.Time
	CompletionTime time.Time
	Canceled       bool
	Result         *Result
}

// starts the publication manager, returning an informative error if anything
// prevents it
func Start() error {
	if manager_ == nil {
		var err error
		manager_, err = createManager()
		if err != nil {
			return err
		}
	}
	return manager_.Start()
}

// Stops the publication manager. Creating runs and requesting statuses are
// disallowed in a stopped state. In-flight runs finish but their results are
// discarded.
func Stop() error {
	if manager_ != nil {
		return manager_.Stop()
	}
	return &NotRunningError{}
}

// Returns true if publications are currently being processed, false if not.
func Running() bool {
	if manager_ != nil {
		return manager_.Running()
	}
	return false
}

// Creates a new publication run for the dataset named in the given
// specification, returning a UUID for the run.
func Create(spec Specification) (uuid.UUID, error) {
	if manager_ != nil {
		return manager_.Create(spec)
	}
	return uuid.UUID{}, &NotRunningError{}
}

// Given a run UUID, returns its publication status (or a non-nil error
// indicating any issues encountered).
func Status(pubId uuid.UUID) (PublicationStatus, error) {
	if manager_ != nil {
		return manager_.Status(pubId)
	}
	return PublicationStatus{}, &NotRunningError{}
}

// Given the UUID of a completed run, returns everything the run produced (or
// a non-nil error indicating any issues encountered).
func Results(pubId uuid.UUID) (Result, error) {
	if manager_ != nil {
		return manager_.Results(pubId)
	}
	return Result{}, &NotRunningError{}
}

// Requests that the run with the given UUID be canceled. Cancellation stops
// new resources from being staged but lets in-flight copies finish; clients
// should check the status of the run separately.
func Cancel(pubId uuid.UUID) error {
	if manager_ != nil {
		return manager_.Cancel(pubId)
	}
	return &NotRunningError{}
}
