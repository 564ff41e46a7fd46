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

package transfers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/essdive/dps/ckan"
	"github.com/essdive/dps/config"
	"github.com/essdive/dps/essdive"
	"github.com/essdive/dps/mapping"
	"github.com/essdive/dps/staging"
)

// This type runs a single publication from start to finish: fetch, map,
// check, stage, and then validate or submit.
type Orchestrator struct {
	// fetches dataset records and resource bytes from CKAN
	Source *ckan.Client
	// validates and receives metadata payloads
	Destination *essdive.Client
	// receives staged resource files
	Target staging.Target
	// the required metadata fields a payload must carry
	Required essdive.RequiredFieldSpec
	// the number of resources staged concurrently
	Workers int
}

// creates an orchestrator wired to the services named in the DPS
// configuration file
func NewOrchestrator() (*Orchestrator, error) {
	source, err := ckan.NewClient(time.Minute)
	if err != nil {
		return nil, err
	}
	destination, err := essdive.NewClient(time.Minute)
	if err != nil {
		return nil, err
	}
	target, err := staging.NewTarget(config.Staging.TargetName())
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		Source:      source,
		Destination: destination,
		Target:      target,
		Required:    essdive.DefaultRequiredFields().Extend(config.EssDive.RequiredFields...),
		Workers:     config.Staging.Workers,
	}, nil
}

// Runs a publication to completion, reporting progress through the given
// update function. Every failure lands in the returned result instead of an
// error, so a run always produces exactly one terminal status.
func (orc *Orchestrator) Run(ctx context.Context, spec Specification, update func(PublicationStatus)) Result {
	var result Result

	status := PublicationStatus{Code: StatusInitialized}
	update(status)

	record, err := orc.Source.Dataset(ctx, spec.Dataset)
	if err != nil {
		result.Status = failedStatus(fetchStage(err), err.Error())
		return result
	}
	status.NumResources = len(record.Resources)

	payload, err := mapping.Map(record)
	if err != nil {
		result.Status = failedStatus("mapping", err.Error())
		result.Status.NumResources = status.NumResources
		return result
	}
	result.Payload = payload
	status.Code = StatusMapped
	update(status)

	result.Report = mapping.Check(payload, orc.Required)
	status.Code = StatusChecked
	status.MissingFields = result.Report.Names()
	update(status)

	// staging always runs to completion so the manifest accounts for every
	// resource, even when the metadata is already known to be incomplete
	stager := &staging.Stager{
		Source:  orc.Source,
		Target:  orc.Target,
		Workers: orc.Workers,
	}
	result.Manifest = stager.Stage(ctx, datasetName(record), record.Resources)
	status.Code = StatusStaged
	status.NumStaged = result.Manifest.Count(staging.StatusStaged)
	status.NumSkipped = result.Manifest.Count(staging.StatusSkippedExists)
	status.NumFailed = result.Manifest.Count("failed")
	update(status)

	if ctx.Err() != nil {
		status.Code = StatusCanceled
		status.FailureStage = "cancelled"
		result.Status = status
		return result
	}

	// incomplete metadata blocks before staging failures so the client sees
	// the problem it can actually fix
	if !result.Report.Empty() {
		result.Status = failedStatus("validation",
			fmt.Sprintf("missing required fields: %s", strings.Join(result.Report.Names(), ", ")))
		result.Status.MissingFields = status.MissingFields
		copyTallies(&result.Status, status)
		return result
	}
	if result.Manifest.AnyFailed() && !spec.AllowPartialStaging {
		result.Status = failedStatus("staging",
			fmt.Sprintf("%d of %d resources failed to stage", status.NumFailed, status.NumResources))
		copyTallies(&result.Status, status)
		return result
	}

	if spec.DryRun {
		if err := orc.Destination.Validate(payload); err != nil {
			result.Status = failedStatus(essdiveStage(err), err.Error())
			copyTallies(&result.Status, status)
			return result
		}
		slog.Info(fmt.Sprintf("Dataset %s validated (dry run, nothing submitted)", spec.Dataset))
		status.Code = StatusValidated
		result.Status = status
		return result
	}

	essdiveId, err := orc.Destination.Create(ctx, payload)
	if err != nil {
		result.Status = failedStatus(essdiveStage(err), submissionReason(err))
		copyTallies(&result.Status, status)
		return result
	}
	slog.Info(fmt.Sprintf("Dataset %s submitted to ESS-DIVE as %s", spec.Dataset, essdiveId))
	status.Code = StatusSubmitted
	status.EssDiveId = essdiveId
	result.Status = status
	return result
}

// returns a display name for a dataset record
func datasetName(record ckan.Record) string {
	if record.Name != "" {
		return record.Name
	}
	return record.Id
}

func failedStatus(stage, reason string) PublicationStatus {
	return PublicationStatus{
		Code:          StatusFailed,
		FailureStage:  stage,
		FailureReason: reason,
	}
}

func copyTallies(status *PublicationStatus, from PublicationStatus) {
	status.NumResources = from.NumResources
	status.NumStaged = from.NumStaged
	status.NumSkipped = from.NumSkipped
	status.NumFailed = from.NumFailed
}

// maps an error from the CKAN record fetch to a failure stage
func fetchStage(err error) string {
	var unauthorizedErr *ckan.UnauthorizedError
	if errors.As(err, &unauthorizedErr) {
		return "auth"
	}
	return "fetch"
}

// maps an error from the ESS-DIVE client to a failure stage
func essdiveStage(err error) string {
	var unauthorizedErr *essdive.UnauthorizedError
	if errors.As(err, &unauthorizedErr) {
		return "auth"
	}
	var submissionErr *essdive.SubmissionError
	if errors.As(err, &submissionErr) {
		return "submission"
	}
	var unavailableErr *essdive.UnavailableError
	if errors.As(err, &unavailableErr) {
		return "submission"
	}
	return "validation"
}

// pulls the server-supplied reason out of a submission error, if any
func submissionReason(err error) string {
	var submissionErr *essdive.SubmissionError
	if errors.As(err, &submissionErr) && submissionErr.Reason != "" {
		return submissionErr.Reason
	}
	return err.Error()
}
