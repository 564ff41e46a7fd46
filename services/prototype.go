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

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humamux"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"

	"github.com/essdive/dps/ckan"
	"github.com/essdive/dps/config"
	"github.com/essdive/dps/essdive"
	"github.com/essdive/dps/mapping"
	"github.com/essdive/dps/transfers"
)

// Version numbers
var majorVersion = 0
var minorVersion = 1
var patchVersion = 0

// Version string
var version = fmt.Sprintf("%d.%d.%d", majorVersion, minorVersion, patchVersion)

// This type implements the PublicationService interface, allowing CKAN
// datasets to be reconciled with the ESS-DIVE schema and published.
type prototype struct {
	// name of the service
	Name string
	// service version identifier
	Version string
	// time which the service was started
	StartTime time.Time
	// port on which the service currently runs
	Port int
	// client used for dataset browsing and mapping checks
	Ckan *ckan.Client
	// the required metadata fields a payload must carry
	Required essdive.RequiredFieldSpec
	// router for REST endpoints
	Router *mux.Router
	// API wrapper
	API huma.API
	// HTTP server.
	Server *http.Server
}

type ServiceInfoOutput struct {
	Body ServiceInfoResponse `doc:"information about the service itself"`
}

// handler method for root
func (service *prototype) getRoot(ctx context.Context,
	input *struct{}) (*ServiceInfoOutput, error) {

	slog.Info("Querying root endpoint...")
	return &ServiceInfoOutput{
		Body: ServiceInfoResponse{
			Name:          service.Name,
			Version:       service.Version,
			Uptime:        int(service.uptime()),
			Documentation: "/docs",
		},
	}, nil
}

type DatasetsOutput struct {
	Body struct {
		Datasets []DatasetResponse `json:"datasets" doc:"Datasets matching the given query"`
	}
}

// handler method for browsing the source CKAN catalog
func (service *prototype) searchDatasets(ctx context.Context,
	input *struct {
		Query string `query:"query" example:"hydrology" doc:"A search query passed to CKAN"`
		Limit int    `query:"limit" example:"40" doc:"The maximum number of datasets returned"`
	}) (*DatasetsOutput, error) {

	records, err := service.Ckan.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, huma.Error502BadGateway(err.Error())
	}
	output := &DatasetsOutput{}
	output.Body.Datasets = make([]DatasetResponse, len(records))
	for i, record := range records {
		output.Body.Datasets[i] = datasetResponse(record)
	}
	return output, nil
}

type DatasetOutput struct {
	Body DatasetResponse `doc:"Information about the requested dataset"`
}

// handler method for fetching a single dataset
func (service *prototype) getDataset(ctx context.Context,
	input *struct {
		Id string `path:"id" example:"hydro-monitoring-2024" doc:"the CKAN name or ID for the requested dataset"`
	}) (*DatasetOutput, error) {

	record, err := service.Ckan.Dataset(ctx, input.Id)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &DatasetOutput{
		Body: datasetResponse(record),
	}, nil
}

type CheckOutput struct {
	Body CheckResponse `doc:"The mapped payload and any missing required fields"`
}

// Handler method for previewing a dataset's mapped metadata. The check maps
// and inspects the payload only, so it touches no resource files.
func (service *prototype) checkDataset(ctx context.Context,
	input *struct {
		Id string `path:"id" example:"hydro-monitoring-2024" doc:"the CKAN name or ID for the requested dataset"`
	}) (*CheckOutput, error) {

	record, err := service.Ckan.Dataset(ctx, input.Id)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	payload, err := mapping.Map(record)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	report := mapping.Check(payload, service.Required)

	missing := make([]MissingField, len(report.Missing))
	for i, field := range report.Missing {
		missing[i] = MissingField{Name: field.Name, Label: field.Label}
	}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &CheckOutput{
		Body: CheckResponse{
			Id:      input.Id,
			Valid:   report.Empty(),
			Missing: missing,
			Payload: payloadJson,
		},
	}, nil
}

// the body of a POST request for a dataset publication
type PublicationRequest struct {
	Dataset string `json:"dataset" example:"hydro-monitoring-2024" doc:"the CKAN name or ID of the dataset to publish"`
	// nil means "use the configured default"
	DryRun              *bool `json:"dry_run,omitempty" doc:"when true, the run validates without submitting"`
	AllowPartialStaging *bool `json:"allow_partial_staging,omitempty" doc:"when true, staging failures do not block submission"`
}

type PublicationOutput struct {
	Body   PublicationResponse `doc:"A UUID for the requested publication run"`
	Status int
}

// handler method for initiating a dataset publication
func (service *prototype) createPublication(ctx context.Context,
	input *struct {
		Body        PublicationRequest `doc:"The body of a POST request for a dataset publication"`
		ContentType string             `header:"Content-Type" doc:"Content-Type header (must be application/json)"`
	}) (*PublicationOutput, error) {

	spec := transfers.Specification{
		Dataset:             input.Body.Dataset,
		DryRun:              config.DryRun,
		AllowPartialStaging: config.Staging.AllowPartial,
	}
	if input.Body.DryRun != nil {
		spec.DryRun = *input.Body.DryRun
	}
	if input.Body.AllowPartialStaging != nil {
		spec.AllowPartialStaging = *input.Body.AllowPartialStaging
	}

	pubId, err := transfers.Create(spec)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &PublicationOutput{
		Body: PublicationResponse{
			Id: pubId.String(),
		},
		Status: http.StatusCreated,
	}, nil
}

type PublicationStatusOutput struct {
	Body PublicationStatusResponse `doc:"A status message for the publication run with the given ID"`
}

// handler method for getting the status of a publication run
func (service *prototype) getPublicationStatus(ctx context.Context,
	input *struct {
		Id uuid.UUID `path:"id" example:"de9a2d6a-f5c9-4322-b8a7-8121d83fdfc2" doc:"the UUID for the requested publication"`
	}) (*PublicationStatusOutput, error) {

	status, err := transfers.Status(input.Id)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &PublicationStatusOutput{
		Body: PublicationStatusResponse{
			Id:            input.Id.String(),
			Status:        status.Code.String(),
			FailureStage:  status.FailureStage,
			FailureReason: status.FailureReason,
			EssDiveId:     status.EssDiveId,
			MissingFields: status.MissingFields,
			NumResources:  status.NumResources,
			NumStaged:     status.NumStaged,
			NumSkipped:    status.NumSkipped,
			NumFailed:     status.NumFailed,
		},
	}, nil
}

type PublicationDeletionOutput struct {
	Status int
}

// handler method for canceling an existing publication run
func (service *prototype) deletePublication(ctx context.Context,
	input *struct {
		Id uuid.UUID `path:"id" example:"de9a2d6a-f5c9-4322-b8a7-8121d83fdfc2" doc:"the UUID for the requested publication"`
	}) (*PublicationDeletionOutput, error) {

	// request that the run be canceled
	err := transfers.Cancel(input.Id)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &PublicationDeletionOutput{
		Status: http.StatusAccepted,
	}, nil
}

// returns the uptime for the service in seconds
func (service *prototype) uptime() float64 {
	return time.Since(service.StartTime).Seconds()
}

// assembles a dataset response from a CKAN record
func datasetResponse(record ckan.Record) DatasetResponse {
	return DatasetResponse{
		Id:           record.Id,
		Name:         record.Name,
		Title:        record.Field("title").Scalar,
		NumResources: len(record.Resources),
	}
}

// constructs a prototype dataset publication service given our configuration
func NewDPSPrototype() (PublicationService, error) {

	// validate our configuration
	if config.Ckan.URL == "" {
		return nil, fmt.Errorf("No CKAN URL was specified.")
	}
	if config.EssDive.URL == "" {
		return nil, fmt.Errorf("No ESS-DIVE URL was specified.")
	}

	ckanClient, err := ckan.NewClient(time.Minute)
	if err != nil {
		return nil, err
	}

	service := new(prototype)
	service.Name = "DPS prototype"
	service.Version = version
	service.Port = -1
	service.Ckan = ckanClient
	service.Required = essdive.DefaultRequiredFields().Extend(config.EssDive.RequiredFields...)

	// set up routing
	service.Router = mux.NewRouter()
	api := humamux.New(service.Router, huma.DefaultConfig(service.Name, service.Version))
	huma.Get(api, "/", service.getRoot)

	// API v1
	huma.Get(api, "/api/v1/datasets", service.searchDatasets)
	huma.Get(api, "/api/v1/datasets/{id}", service.getDataset)
	huma.Get(api, "/api/v1/datasets/{id}/check", service.checkDataset)
	huma.Post(api, "/api/v1/publications", service.createPublication)
	huma.Get(api, "/api/v1/publications/{id}", service.getPublicationStatus)
	huma.Delete(api, "/api/v1/publications/{id}", service.deletePublication)

	return service, nil
}

// starts the prototype dataset publication service
func (service *prototype) Start(port int) error {
	slog.Info(fmt.Sprintf("Starting %s service on port %d...", service.Name, port))
	slog.Info(fmt.Sprintf("(Accepting up to %d connections)", config.Service.MaxConnections))

	service.StartTime = time.Now()

	// create a listener that limits the number of incoming connections
	service.Port = port
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer listener.Close()
	listener = netutil.LimitListener(listener, config.Service.MaxConnections)

	// start publication processing
	err = transfers.Start()
	if err != nil {
		return err
	}

	// start the server
	service.Server = &http.Server{
		Handler: service.Router}
	err = service.Server.Serve(listener)

	// we don't report the server closing as an error
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// gracefully shuts down the service without interrupting active connections
func (service *prototype) Shutdown(ctx context.Context) error {
	transfers.Stop()
	if service.Server != nil {
		return service.Server.Shutdown(ctx)
	}
	return nil
}

// closes down the service abruptly, freeing all resources
func (service *prototype) Close() {
	transfers.Stop()
	if service.Server != nil {
		service.Server.Close()
	}
}
