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

// These tests must be run serially, since publications are coordinated by a
// single manager instance.

package transfers

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/essdive/dps/config"
	"github.com/essdive/dps/dpstest"
	"github.com/essdive/dps/staging"
)

// runs all tests serially
func TestRunner(t *testing.T) {
	tester := SerialTests{Test: t}
	tester.TestStartAndStop()
	tester.TestDryRunValidatesWithoutSubmitting()
	tester.TestSubmittedPublication()
	tester.TestIncompleteMetadataBlocksSubmission()
	tester.TestPartialStaging()
	tester.TestCancellation()
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	var status int
	setup()
	status = m.Run()
	breakdown()
	os.Exit(status)
}

// this function gets called at the beginning of a test session
func setup() {
	dpstest.EnableDebugLogging()

	log.Print("Creating testing directory...\n")
	var err error
	TESTING_DIR, err = os.MkdirTemp(os.TempDir(), "dps-transfers-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}
	os.Chdir(TESTING_DIR)

	// start the fake catalog and repository the orchestrator talks to
	gauges := []byte("station,flow\nsg-104,1.2\nsg-105,0.8\n")
	readme := []byte("Hydrology monitoring data for 2024.\n")
	plots := []byte("plot,species_count\np-1,34\n")
	chem := []byte("site,ph\nsc-1,6.8\n")
	sensors := []byte("sensor,depth\ns-1,0.3\n")
	notes := []byte("Field notes for stream chemistry sampling.\n")
	ckanServer = dpstest.NewCkanServer([]map[string]any{
		// a dataset with complete metadata and fetchable resources
		{
			"id":               "4b2a11aa",
			"name":             "hydro-monitoring-2024",
			"title":            "Hydrological Monitoring 2024",
			"notes":            "Stream gauge data from the East River watershed.",
			"author":           "Pat Jones",
			"author_email":     "pjones@example.gov",
			"maintainer":       "Sam Lee",
			"maintainer_email": "slee@example.gov",
			"tags": []map[string]any{
				{"display_name": "hydrology"},
				{"display_name": "streamflow"},
			},
			"extras": []map[string]any{
				{"key": "temporal_start", "value": "2024-01-01"},
				{"key": "temporal_end", "value": "2024-12-31"},
				{"key": "funding_source", "value": "DOE BER"},
			},
			"resources": []map[string]any{
				{
					"id":   "res-1",
					"name": "gauges",
					"url":  "CKAN_URL/resources/gauges.csv",
					"size": fmt.Sprintf("%d", len(gauges)),
					"hash": checksumOf(gauges),
				},
				{
					"id":   "res-2",
					"name": "README.md",
					"url":  "CKAN_URL/resources/README.md",
					"size": fmt.Sprintf("%d", len(readme)),
					"hash": checksumOf(readme),
				},
			},
		},
		// a dataset missing most mandatory metadata, with a broken resource
		{
			"id":    "777aa00b",
			"name":  "soil-cores-2023",
			"title": "Soil Cores 2023",
			"resources": []map[string]any{
				{"id": "res-7", "name": "cores", "url": "CKAN_URL/resources/cores.zip"},
			},
		},
		// complete metadata, but one of two resources cannot be fetched
		{
			"id":               "9c81e2dd",
			"name":             "veg-plots-2022",
			"title":            "Vegetation Plots 2022",
			"notes":            "Species counts for subalpine vegetation plots.",
			"author":           "Ana Silva",
			"author_email":     "asilva@example.gov",
			"maintainer":       "Ana Silva",
			"maintainer_email": "asilva@example.gov",
			"tags": []map[string]any{
				{"display_name": "vegetation"},
			},
			"extras": []map[string]any{
				{"key": "temporal_start", "value": "2022-05-01"},
				{"key": "temporal_end", "value": "2022-09-30"},
			},
			"resources": []map[string]any{
				{"id": "res-8", "name": "plots", "url": "CKAN_URL/resources/plots.csv"},
				{"id": "res-9", "name": "species", "url": "CKAN_URL/resources/species.zip"},
			},
		},
		// complete metadata with enough resources to cancel mid-staging
		{
			"id":               "31f8cd02",
			"name":             "stream-chem-2021",
			"title":            "Stream Chemistry 2021",
			"notes":            "Stream chemistry sampling along Coal Creek.",
			"author":           "Lee Ortiz",
			"author_email":     "lortiz@example.gov",
			"maintainer":       "Lee Ortiz",
			"maintainer_email": "lortiz@example.gov",
			"tags": []map[string]any{
				{"display_name": "geochemistry"},
			},
			"extras": []map[string]any{
				{"key": "temporal_start", "value": "2021-04-01"},
				{"key": "temporal_end", "value": "2021-10-31"},
			},
			"resources": []map[string]any{
				{"id": "res-10", "name": "chem", "url": "CKAN_URL/resources/chem.csv"},
				{"id": "res-11", "name": "sensors", "url": "CKAN_URL/resources/sensors.csv"},
				{"id": "res-12", "name": "field-notes.md", "url": "CKAN_URL/resources/field-notes.md"},
			},
		},
	}, map[string][]byte{
		"gauges.csv":     gauges,
		"README.md":      readme,
		"plots.csv":      plots,
		"chem.csv":       chem,
		"sensors.csv":    sensors,
		"field-notes.md": notes,
	})
	patchResourceURLs(ckanServer)

	essdiveServer = dpstest.NewEssDiveServer("ess123")

	// read in the config file with the testing directory and server URLs
	// filled in
	myConfig := strings.ReplaceAll(transfersConfig, "TESTING_DIR", TESTING_DIR)
	myConfig = strings.ReplaceAll(myConfig, "CKAN_URL", ckanServer.URL)
	myConfig = strings.ReplaceAll(myConfig, "ESSDIVE_URL", essdiveServer.URL)
	err = config.Init([]byte(myConfig))
	if err != nil {
		log.Panicf("Couldn't initialize configuration: %s", err)
	}
	err = os.Mkdir(config.Service.DataDirectory, 0755)
	if err != nil {
		log.Panicf("Couldn't create data directory: %s", err)
	}
}

// rewrites the CKAN_URL placeholder in resource fixtures now that the fake
// server's URL is known
func patchResourceURLs(server *dpstest.CkanServer) {
	for _, dataset := range server.Datasets {
		resources, ok := dataset["resources"].([]map[string]any)
		if !ok {
			continue
		}
		for _, resource := range resources {
			if url, ok := resource["url"].(string); ok {
				resource["url"] = strings.ReplaceAll(url, "CKAN_URL", server.URL)
			}
		}
	}
}

// this function gets called after all tests have been run
func breakdown() {
	if ckanServer != nil {
		ckanServer.Close()
	}
	if essdiveServer != nil {
		essdiveServer.Close()
	}
	if TESTING_DIR != "" {
		log.Printf("Deleting testing directory %s...\n", TESTING_DIR)
		os.RemoveAll(TESTING_DIR)
	}
}

// polls a run's status until it reaches a terminal state
func waitForCompletion(pubId uuid.UUID) (PublicationStatus, error) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		status, err := Status(pubId)
		if err != nil {
			return status, err
		}
		switch status.Code {
		case StatusValidated, StatusSubmitted, StatusCanceled, StatusFailed:
			return status, nil
		}
		time.Sleep(pause)
	}
	return PublicationStatus{}, fmt.Errorf("publication %s didn't complete in time", pubId.String())
}

func checksumOf(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

// To run the tests serially, we attach them to a SerialTests type and
// have them run by a a single test runner.
type SerialTests struct{ Test *testing.T }

func (t *SerialTests) TestStartAndStop() {
	assert := assert.New(t.Test)

	assert.False(Running())
	err := Start()
	assert.Nil(err)
	assert.True(Running())

	// a run needs a dataset
	_, err = Create(Specification{})
	assert.NotNil(err)
	assert.IsType(&NoDatasetError{}, err)

	// unknown run IDs are reported as such
	_, err = Status(uuid.New())
	assert.NotNil(err)
	assert.IsType(&NotFoundError{}, err)

	err = Stop()
	assert.Nil(err)
	assert.False(Running())
}

func (t *SerialTests) TestDryRunValidatesWithoutSubmitting() {
	assert := assert.New(t.Test)

	err := Start()
	assert.Nil(err)

	pubId, err := Create(Specification{Dataset: "hydro-monitoring-2024", DryRun: true})
	assert.Nil(err)

	status, err := waitForCompletion(pubId)
	assert.Nil(err)
	assert.Equal(StatusValidated, status.Code)
	assert.Equal(2, status.NumResources)
	assert.Equal(2, status.NumStaged)
	assert.Empty(status.MissingFields)

	// a dry run stages resources but never submits metadata
	assert.Equal(0, essdiveServer.NumSubmissions())
	_, err = os.Stat(filepath.Join(config.Staging.Local.Dir, "gauges.csv"))
	assert.Nil(err)

	result, err := Results(pubId)
	assert.Nil(err)
	assert.NotNil(result.Payload)
	assert.True(result.Report.Empty())
	assert.Equal(2, result.Manifest.Count(staging.StatusStaged))

	err = Stop()
	assert.Nil(err)
}

func (t *SerialTests) TestSubmittedPublication() {
	assert := assert.New(t.Test)

	err := Start()
	assert.Nil(err)

	pubId, err := Create(Specification{Dataset: "hydro-monitoring-2024"})
	assert.Nil(err)

	status, err := waitForCompletion(pubId)
	assert.Nil(err)
	assert.Equal(StatusSubmitted, status.Code)
	assert.Equal("ess123", status.EssDiveId)

	// the resources were staged by the preceding dry run, so this run
	// skips them instead of copying them again
	assert.Equal(2, status.NumSkipped)
	assert.Equal(0, status.NumStaged)

	// the payload that reached the repository carries the mapped metadata
	assert.Equal(1, essdiveServer.NumSubmissions())
	submission := essdiveServer.LastSubmission()
	assert.Equal("Hydrological Monitoring 2024", submission["title"])
	assert.Equal("DOE BER", submission["fundingSource"])
	keywords, _ := submission["keywords"].([]any)
	assert.Contains(keywords, "hydrology")

	err = Stop()
	assert.Nil(err)
}

func (t *SerialTests) TestIncompleteMetadataBlocksSubmission() {
	assert := assert.New(t.Test)

	err := Start()
	assert.Nil(err)
	submissionsBefore := essdiveServer.NumSubmissions()

	pubId, err := Create(Specification{Dataset: "soil-cores-2023"})
	assert.Nil(err)

	status, err := waitForCompletion(pubId)
	assert.Nil(err)

	// the dataset is missing metadata AND a resource failed to stage, but
	// the metadata problem is the one reported since it's the fixable one
	assert.Equal(StatusFailed, status.Code)
	assert.Equal("validation", status.FailureStage)
	assert.Contains(status.MissingFields, "description")
	assert.Contains(status.MissingFields, "contacts")
	assert.Equal(0, essdiveServer.NumSubmissions()-submissionsBefore)

	// staging still ran to completion so the manifest accounts for the
	// broken resource
	result, err := Results(pubId)
	assert.Nil(err)
	assert.Equal(staging.StatusFailed("not_found"), result.Manifest.Entries["cores.zip"].Status)

	err = Stop()
	assert.Nil(err)
}

func (t *SerialTests) TestPartialStaging() {
	assert := assert.New(t.Test)

	err := Start()
	assert.Nil(err)
	submissionsBefore := essdiveServer.NumSubmissions()

	// by default a staging failure blocks submission
	pubId, err := Create(Specification{Dataset: "veg-plots-2022"})
	assert.Nil(err)
	status, err := waitForCompletion(pubId)
	assert.Nil(err)
	assert.Equal(StatusFailed, status.Code)
	assert.Equal("staging", status.FailureStage)
	assert.Equal("1 of 2 resources failed to stage", status.FailureReason)
	assert.Equal(0, essdiveServer.NumSubmissions()-submissionsBefore)

	// with partial staging allowed, the same dataset goes through
	pubId, err = Create(Specification{Dataset: "veg-plots-2022", AllowPartialStaging: true})
	assert.Nil(err)
	status, err = waitForCompletion(pubId)
	assert.Nil(err)
	assert.Equal(StatusSubmitted, status.Code)
	assert.Equal("ess123", status.EssDiveId)
	assert.Equal(1, status.NumFailed)
	assert.Equal(1, essdiveServer.NumSubmissions()-submissionsBefore)

	err = Stop()
	assert.Nil(err)
}

func (t *SerialTests) TestCancellation() {
	assert := assert.New(t.Test)

	err := Start()
	assert.Nil(err)
	submissionsBefore := essdiveServer.NumSubmissions()

	// slow the catalog's downloads so the run is still staging when the
	// cancellation request lands
	ckanServer.FetchDelay = 500 * time.Millisecond
	defer func() { ckanServer.FetchDelay = 0 }()

	pubId, err := Create(Specification{Dataset: "stream-chem-2021"})
	assert.Nil(err)
	time.Sleep(150 * time.Millisecond)
	err = Cancel(pubId)
	assert.Nil(err)

	status, err := waitForCompletion(pubId)
	assert.Nil(err)
	assert.Equal(StatusCanceled, status.Code)
	assert.Equal("cancelled", status.FailureStage)
	assert.Equal(0, essdiveServer.NumSubmissions()-submissionsBefore)

	// the two in-flight copies ran to completion (2 workers), and the
	// resource that never got scheduled is accounted for in the manifest
	result, err := Results(pubId)
	assert.Nil(err)
	assert.Equal(3, len(result.Manifest.Entries))
	assert.Equal(2, result.Manifest.Count(staging.StatusStaged))
	assert.Equal(1, result.Manifest.Count(staging.StatusFailed("cancelled")))

	err = Stop()
	assert.Nil(err)
}

// temporary testing directory
var TESTING_DIR string

// fake servers standing in for the CKAN catalog and the ESS-DIVE API
var ckanServer *dpstest.CkanServer
var essdiveServer *dpstest.EssDiveServer

// a pause between status polls
var pause time.Duration = time.Duration(25) * time.Millisecond

// configuration
const transfersConfig string = `
service:
  port: 8080
  max_connections: 100
  data_directory: TESTING_DIR/data
  delete_after: 2    # seconds
ckan:
  url: CKAN_URL
essdive:
  url: ESSDIVE_URL
  token: test-token
staging:
  local:
    dir: TESTING_DIR/stage
  workers: 2
dry_run: false
`
