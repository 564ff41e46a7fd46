package services

// This file defines a unit test setup for the DPS prototype service. To
// simplify the testing protocol, we run fake CKAN and ESS-DIVE servers
// that support the publication of a test dataset.
import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/essdive/dps/config"
	"github.com/essdive/dps/dpstest"
)

// temporary testing directory
var TESTING_DIR string

// DPS URLs
var (
	baseUrl   = "http://localhost:8080/"
	apiPrefix = "api/v1/"
)

// fake servers standing in for the CKAN catalog and the ESS-DIVE API
var ckanServer *dpstest.CkanServer
var essdiveServer *dpstest.EssDiveServer

// service instance
var service PublicationService

const dpsConfig string = `
service:
  port: 8080
  max_connections: 100
  data_directory: TESTING_DIR/data
  delete_after: 24
ckan:
  url: CKAN_URL
essdive:
  url: ESSDIVE_URL
  token: test-token
staging:
  local:
    dir: TESTING_DIR/stage
  workers: 2
`

// performs testing setup
func setup() {
	dpstest.EnableDebugLogging()

	log.Print("Creating testing directory...\n")
	var err error
	TESTING_DIR, err = os.MkdirTemp(os.TempDir(), "dps-service-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}

	// start the fake upstream servers
	gauges := []byte("station,flow\nsg-104,1.2\n")
	hash := md5.Sum(gauges)
	ckanServer = dpstest.NewCkanServer([]map[string]any{
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
			},
			"extras": []map[string]any{
				{"key": "temporal_start", "value": "2024-01-01"},
				{"key": "temporal_end", "value": "2024-12-31"},
			},
			"resources": []map[string]any{
				{
					"id":   "res-1",
					"name": "gauges",
					"url":  "RESOURCE_URL",
					"size": fmt.Sprintf("%d", len(gauges)),
					"hash": hex.EncodeToString(hash[:]),
				},
			},
		},
		{
			"id":    "777aa00b",
			"name":  "soil-cores-2023",
			"title": "Soil Cores 2023",
		},
	}, map[string][]byte{
		"gauges.csv": gauges,
	})
	// the resource URL isn't known until the fake server starts
	dataset := ckanServer.Datasets["hydro-monitoring-2024"]
	dataset["resources"].([]map[string]any)[0]["url"] = ckanServer.FileURL("gauges.csv")

	essdiveServer = dpstest.NewEssDiveServer("ess123")

	// read in the config file with the testing directory and server URLs
	// filled in
	myConfig := strings.ReplaceAll(dpsConfig, "TESTING_DIR", TESTING_DIR)
	myConfig = strings.ReplaceAll(myConfig, "CKAN_URL", ckanServer.URL)
	myConfig = strings.ReplaceAll(myConfig, "ESSDIVE_URL", essdiveServer.URL)
	err = config.Init([]byte(myConfig))
	if err != nil {
		log.Panicf("Couldn't initialize configuration: %s", err)
	}
	os.Mkdir(config.Service.DataDirectory, 0755)

	// Start the service.
	log.Print("Starting test publication service...\n")
	go func() {
		service, err = NewDPSPrototype()
		if err != nil {
			log.Panicf("Couldn't construct the service: %s", err.Error())
		}
		err = service.Start(config.Service.Port)
		if err != nil {
			log.Panicf("Couldn't start publication service: %s", err.Error())
		}
	}()

	// Give the service time to start up.
	time.Sleep(100 * time.Millisecond)
}

// Performs testing breakdown.
func breakdown() {

	if service != nil {
		// Gracefully shut the service down when it finishes its work.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		service.Shutdown(ctx)
	}

	if ckanServer != nil {
		ckanServer.Close()
	}
	if essdiveServer != nil {
		essdiveServer.Close()
	}

	if TESTING_DIR != "" {
		// Remove the testing directory and its contents.
		log.Printf("Deleting testing directory %s...\n", TESTING_DIR)
		os.RemoveAll(TESTING_DIR)
	}
}

// sends a GET query
func get(resource string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, resource, http.NoBody)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

// sends a POST query with a JSON payload
func post(resource string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, resource, body)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

// sends a DELETE query
func delete_(resource string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodDelete, resource, http.NoBody)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

// queries the service's root endpoint
func TestQueryRoot(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl)
	assert.Nil(err)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var root ServiceInfoResponse
	err = json.Unmarshal(respBody, &root)
	assert.Nil(err)
	assert.Equal("DPS prototype", root.Name)
	assert.Equal(version, root.Version)
}

// searches the catalog for datasets
func TestSearchDatasets(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "datasets?query=hydro&limit=10")
	assert.Nil(err)
	assert.Equal(http.StatusOK, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var results struct {
		Datasets []DatasetResponse `json:"datasets"`
	}
	err = json.Unmarshal(respBody, &results)
	assert.Nil(err)
	assert.Equal(1, len(results.Datasets))
	assert.Equal("hydro-monitoring-2024", results.Datasets[0].Name)
	assert.Equal("Hydrological Monitoring 2024", results.Datasets[0].Title)
	assert.Equal(1, results.Datasets[0].NumResources)
}

// queries a specific (valid) dataset
func TestQueryValidDataset(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "datasets/hydro-monitoring-2024")
	assert.Nil(err)
	assert.Equal(http.StatusOK, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var dataset DatasetResponse
	err = json.Unmarshal(respBody, &dataset)
	assert.Nil(err)
	assert.Equal("4b2a11aa", dataset.Id)
	assert.Equal("hydro-monitoring-2024", dataset.Name)
}

// queries a dataset that does not exist
func TestQueryInvalidDataset(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "datasets/no-such-dataset")
	assert.Nil(err)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// previews the mapped metadata for a complete and an incomplete dataset
func TestCheckDataset(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "datasets/hydro-monitoring-2024/check")
	assert.Nil(err)
	assert.Equal(http.StatusOK, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	resp.Body.Close()

	var check CheckResponse
	err = json.Unmarshal(respBody, &check)
	assert.Nil(err)
	assert.True(check.Valid)
	assert.Empty(check.Missing)

	// the mapped payload rides along for preview
	var payload map[string]any
	err = json.Unmarshal(check.Payload, &payload)
	assert.Nil(err)
	assert.Equal("Hydrological Monitoring 2024", payload["title"])

	// the incomplete dataset reports its missing fields with labels
	resp, err = get(baseUrl + apiPrefix + "datasets/soil-cores-2023/check")
	assert.Nil(err)
	assert.Equal(http.StatusOK, resp.StatusCode)

	respBody, err = io.ReadAll(resp.Body)
	assert.Nil(err)
	resp.Body.Close()

	err = json.Unmarshal(respBody, &check)
	assert.Nil(err)
	assert.False(check.Valid)
	names := make([]string, len(check.Missing))
	for i, field := range check.Missing {
		names[i] = field.Name
	}
	assert.Contains(names, "description")
	assert.Contains(names, "creators")
}

// creates a publication run (dry run), polls it to completion, then cancels
// a second one
func TestPublicationLifecycle(t *testing.T) {
	assert := assert.New(t)

	body, _ := json.Marshal(map[string]any{
		"dataset": "hydro-monitoring-2024",
		"dry_run": true,
	})
	resp, err := post(baseUrl+apiPrefix+"publications", bytes.NewReader(body))
	assert.Nil(err)
	assert.Equal(http.StatusCreated, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	resp.Body.Close()

	var created PublicationResponse
	err = json.Unmarshal(respBody, &created)
	assert.Nil(err)
	assert.NotEmpty(created.Id)

	// poll the run's status until it completes
	var status PublicationStatusResponse
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = get(baseUrl + apiPrefix + "publications/" + created.Id)
		assert.Nil(err)
		assert.Equal(http.StatusOK, resp.StatusCode)
		respBody, err = io.ReadAll(resp.Body)
		assert.Nil(err)
		resp.Body.Close()
		err = json.Unmarshal(respBody, &status)
		assert.Nil(err)
		if status.Status == "validated" || status.Status == "submitted" ||
			status.Status == "canceled" || status.Status == "failed" {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}

	// a dry run validates without submitting anything
	assert.Equal("validated", status.Status)
	assert.Equal(1, status.NumResources)
	assert.Equal(0, essdiveServer.NumSubmissions())

	// cancellation requests are accepted for existing runs
	resp, err = delete_(baseUrl + apiPrefix + "publications/" + created.Id)
	assert.Nil(err)
	assert.Equal(http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
}

// requests the status of a run that does not exist
func TestQueryInvalidPublication(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "publications/de9a2d6a-f5c9-4322-b8a7-8121d83fdfc2")
	assert.Nil(err)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	var status int
	setup()
	status = m.Run()
	breakdown()
	os.Exit(status)
}
