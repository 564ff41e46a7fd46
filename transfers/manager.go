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
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/essdive/dps/config"
	"github.com/essdive/dps/journal"
	"github.com/essdive/dps/staging"
	"github.com/essdive/dps/staging/local"
	"github.com/essdive/dps/staging/tapis"
)

// this type handles requests from the host and owns all publication records
type Manager struct {
	// channels for handling requests from the host and internal data flow
	channels managerChannels
	// runs each publication's stages
	orchestrator *Orchestrator
	// true iff the manager is running
	running bool
}

// singleton manager instance
var manager_ *Manager

type managerChannels struct {
	// requests from host/client
	Create         chan Specification     // requests new runs (host -> dispatch)
	NewPublication chan uuid.UUID         // returns ID of new run to client (host <- dispatch)
	Cancel         chan uuid.UUID         // requests run cancellations (host -> dispatch)
	GetStatus      chan uuid.UUID         // requests run statuses (host -> dispatch)
	Status         chan PublicationStatus // returns requested run statuses (host <- dispatch)
	GetResults     chan uuid.UUID         // requests run results (host -> dispatch)
	Results        chan Result            // returns requested run results (host <- dispatch)
	Stop           chan struct{}          // stops the manager (host -> dispatch)

	// intra-manager communication
	StatusUpdate chan statusUpdate  // accepts run status updates (dispatch <- run)
	RunComplete  chan runCompletion // accepts completed runs (dispatch <- run)

	// error reporting
	Error chan error
}

// information about a specific run status update (dispatch <- run)
type statusUpdate struct {
	Id     uuid.UUID
	Status PublicationStatus
}

// a completed run and everything it produced (dispatch <- run)
type runCompletion struct {
	Id     uuid.UUID
	Result Result
}

func createManager() (*Manager, error) {
	// register our built-in staging target providers
	if err := staging.RegisterTargetProvider("local", local.NewTarget); err != nil {
		return nil, err
	}
	if err := staging.RegisterTargetProvider("tapis", tapis.NewTarget); err != nil {
		return nil, err
	}

	orchestrator, err := NewOrchestrator()
	if err != nil {
		return nil, err
	}

	return &Manager{
		channels: managerChannels{
			Create:         make(chan Specification, 32),
			NewPublication: make(chan uuid.UUID, 32),
			Cancel:         make(chan uuid.UUID, 32),
			GetStatus:      make(chan uuid.UUID, 32),
			Status:         make(chan PublicationStatus, 32),
			GetResults:     make(chan uuid.UUID, 32),
			Results:        make(chan Result, 32),
			Stop:           make(chan struct{}),
			StatusUpdate:   make(chan statusUpdate, 32),
			RunComplete:    make(chan runCompletion, 32),
			Error:          make(chan error, 32),
		},
		orchestrator: orchestrator,
	}, nil
}

func (m *Manager) Start() error {
	if m.running {
		return &AlreadyRunningError{}
	}
	go m.listen()
	m.running = true
	return nil
}

func (m *Manager) Running() bool {
	return m.running
}

func (m *Manager) Create(spec Specification) (uuid.UUID, error) {
	var pubId uuid.UUID
	if spec.Dataset == "" {
		return pubId, &NoDatasetError{}
	}
	var err error
	m.channels.Create <- spec
	select {
	case pubId = <-m.channels.NewPublication:
	case err = <-m.channels.Error:
	}
	return pubId, err
}

func (m *Manager) Status(pubId uuid.UUID) (PublicationStatus, error) {
	var status PublicationStatus
	var err error
	m.channels.GetStatus <- pubId
	select {
	case status = <-m.channels.Status:
	case err = <-m.channels.Error:
	}
	return status, err
}

func (m *Manager) Results(pubId uuid.UUID) (Result, error) {
	var result Result
	var err error
	m.channels.GetResults <- pubId
	select {
	case result = <-m.channels.Results:
	case err = <-m.channels.Error:
	}
	return result, err
}

func (m *Manager) Cancel(pubId uuid.UUID) error {
	var err error
	m.channels.Cancel <- pubId
	select { // default block provides non-blocking error check
	case err = <-m.channels.Error:
	default:
	}
	return err
}

func (m *Manager) Stop() error {
	if m.running {
		m.channels.Stop <- struct{}{}
		err := <-m.channels.Error
		if err != nil {
			return err
		}
		m.running = false
		return nil
	}
	return &NotRunningError{}
}

// tracks a run's cancelation function alongside its public record
type managedRun struct {
	Record PublicationRecord
	cancel context.CancelFunc
}

// this goroutine dispatches client requests and owns the run records
func (m *Manager) listen() {
	runs := make(map[uuid.UUID]*managedRun)

	// the record deletion period is specified in seconds
	deleteAfter := time.Duration(config.Service.DeleteAfter) * time.Second

	for {
		select {

		case spec := <-m.channels.Create: // Create() called by client
			pubId := uuid.New()
			ctx, cancel := context.WithCancel(context.Background())
			runs[pubId] = &managedRun{
				Record: PublicationRecord{
					Id:            pubId,
					Specification: spec,
					Status:        PublicationStatus{Code: StatusInitialized},
					StartTime:     time.Now(),
				},
				cancel: cancel,
			}
			slog.Info(fmt.Sprintf("Created new publication %s for dataset %s (dry run: %t)",
				pubId.String(), spec.Dataset, spec.DryRun))
			go m.run(ctx, pubId, spec)
			m.channels.NewPublication <- pubId
			m.purgeExpired(runs, deleteAfter)

		case pubId := <-m.channels.Cancel: // Cancel() called by client
			if run, found := runs[pubId]; found {
				slog.Info(fmt.Sprintf("Publication %s: received cancellation request", pubId.String()))
				run.Record.Canceled = true
				run.cancel()
			} else {
				m.channels.Error <- &NotFoundError{Id: pubId}
			}

		case pubId := <-m.channels.GetStatus: // Status() called by client
			if run, found := runs[pubId]; found {
				m.channels.Status <- run.Record.Status
			} else {
				m.channels.Error <- &NotFoundError{Id: pubId}
			}

		case pubId := <-m.channels.GetResults: // Results() called by client
			if run, found := runs[pubId]; found {
				if run.Record.Result != nil {
					m.channels.Results <- *run.Record.Result
				} else {
					m.channels.Error <- &NotCompletedError{Id: pubId}
				}
			} else {
				m.channels.Error <- &NotFoundError{Id: pubId}
			}

		case update := <-m.channels.StatusUpdate: // status updated by run
			if run, found := runs[update.Id]; found {
				run.Record.Status = update.Status
			}

		case completion := <-m.channels.RunComplete: // run finished
			if run, found := runs[completion.Id]; found {
				result := completion.Result
				run.Record.Status = result.Status
				run.Record.Result = &result
				run.Record.CompletionTime = time.Now()
				m.journalRun(run.Record)
			}

		case <-m.channels.Stop: // Stop() called by client
			for _, run := range runs {
				run.cancel()
			}
			m.channels.Error <- nil
			return
		}
	}
}

// executes a single publication run and reports its progress and completion
// back to the dispatch goroutine
func (m *Manager) run(ctx context.Context, pubId uuid.UUID, spec Specification) {
	update := func(status PublicationStatus) {
		m.channels.StatusUpdate <- statusUpdate{Id: pubId, Status: status}
	}
	result := m.orchestrator.Run(ctx, spec, update)

	// write the staging manifest alongside the service's other data
	if result.Manifest != nil && len(result.Manifest.Entries) > 0 {
		manifestFile := filepath.Join(config.Service.DataDirectory,
			fmt.Sprintf("manifest-%s.json", pubId.String()))
		if err := result.Manifest.SaveDescriptor(manifestFile); err != nil {
			slog.Error(fmt.Sprintf("Publication %s: %s", pubId.String(), err.Error()))
		}
	}

	m.channels.RunComplete <- runCompletion{Id: pubId, Result: result}
}

// writes a completed run to the publication journal
func (m *Manager) journalRun(record PublicationRecord) {
	if !journal.IsOpen() {
		return
	}
	status := record.Status
	err := journal.RecordPublication(journal.Record{
		Id:           record.Id,
		Dataset:      record.Specification.Dataset,
		EssDiveId:    status.EssDiveId,
		StartTime:    record.StartTime,
		StopTime:     record.CompletionTime,
		Status:       journalStatus(status.Code),
		FailureStage: status.FailureStage,
		NumResources: status.NumResources,
		DryRun:       record.Specification.DryRun,
		Manifest:     manifestFor(record),
	})
	if err != nil {
		slog.Error(fmt.Sprintf("Publication %s: %s", record.Id.String(), err.Error()))
	}
}

func manifestFor(record PublicationRecord) *staging.Manifest {
	if record.Result == nil {
		return nil
	}
	return record.Result.Manifest
}

// maps a terminal status code to its journal representation
func journalStatus(code PublicationStatusCode) string {
	switch code {
	case StatusValidated:
		return "validated"
	case StatusSubmitted:
		return "submitted"
	case StatusCanceled:
		return "canceled"
	default:
		return "failed"
	}
}

// removes records for runs that completed longer ago than the deletion period
func (m *Manager) purgeExpired(runs map[uuid.UUID]*managedRun, deleteAfter time.Duration) {
	for pubId, run := range runs {
		if run.Record.Result == nil {
			continue
		}
		if time.Since(run.Record.CompletionTime) > deleteAfter {
			slog.Debug(fmt.Sprintf("Publication %s: purging record", pubId.String()))
			delete(runs, pubId)
		}
	}
}
