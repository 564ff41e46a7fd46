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

// This package provides a client for the ESS-DIVE Dataset API
// (https://api.ess-dive.lbl.gov/), the target repository for dataset
// publication.
package essdive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/essdive/dps/config"
	"github.com/essdive/dps/webclient"
)

// a client for the ESS-DIVE Dataset API
type Client struct {
	// HTTP client used for all requests
	Client http.Client
	// base URL for the Dataset API
	URL string
	// authorization info
	Auth authorization
}

type authorization struct {
	// client token and type (indicating how it's used in an auth header)
	Token, Type string
}

// Creates an ESS-DIVE client from the service configuration. The bearer
// token is taken from the configuration, falling back to the
// DPS_ESSDIVE_TOKEN environment variable.
func NewClient(timeout time.Duration) (*Client, error) {
	client := &Client{
		Client: webclient.SecureHttpClient(timeout),
		URL:    strings.TrimSuffix(config.EssDive.URL, "/"),
	}
	if err := client.getAccessToken(); err != nil {
		return nil, err
	}
	return client, nil
}

// Checks that the payload can be submitted: the client holds a token and
// the payload serializes cleanly. ESS-DIVE exposes no validation endpoint
// with no persistent effect, so a dry run never leaves this process.
func (c *Client) Validate(payload *Payload) error {
	if c.Auth.Token == "" {
		return &UnauthorizedError{Message: "no access token is available"}
	}
	if len(payload.Fields()) == 0 {
		return &SubmissionError{Reason: "payload carries no metadata fields"}
	}
	if _, err := json.Marshal(payload); err != nil {
		return &SubmissionError{Reason: fmt.Sprintf("payload does not serialize: %s", err.Error())}
	}
	return nil
}

// Submits the payload to the Dataset API's create call, returning the
// identifier ESS-DIVE assigns to the new dataset. Submission is not assumed
// idempotent: a rejection is returned as a SubmissionError and never
// retried here.
func (c *Client) Create(ctx context.Context, payload *Payload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", &SubmissionError{Reason: err.Error()}
	}
	body, err := c.post(ctx, "datasets", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var created struct {
		Id string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", &SubmissionError{Reason: fmt.Sprintf("unparseable create response: %s", err.Error())}
	}
	if created.Id == "" {
		return "", &SubmissionError{Reason: "create response carried no dataset ID"}
	}
	return created.Id, nil
}

//--------------------
// Internal machinery
//--------------------

// fetches an access token from the configuration or the environment
func (c *Client) getAccessToken() error {
	token := config.EssDive.Token
	if token == "" {
		token = os.Getenv("DPS_ESSDIVE_TOKEN")
	}
	if token == "" {
		return &UnauthorizedError{
			Message: "No access token (DPS_ESSDIVE_TOKEN) was provided for authentication",
		}
	}
	c.Auth = authorization{
		Token: strings.TrimSpace(token),
		Type:  "Bearer",
	}
	return nil
}

// adds an appropriate authorization header to the given HTTP request
func (c *Client) addAuthHeader(request *http.Request) {
	request.Header.Add("Authorization", fmt.Sprintf("%s %s", c.Auth.Type, c.Auth.Token))
}

// performs a POST request on the given resource, returning the resulting
// response body and/or error
func (c *Client) post(ctx context.Context, resource string, body io.Reader) ([]byte, error) {
	res, err := url.Parse(c.URL + "/")
	if err != nil {
		return nil, err
	}
	res.Path += resource
	slog.Debug(fmt.Sprintf("POST: %s", res.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, res.String(), body)
	if err != nil {
		return nil, err
	}
	c.addAuthHeader(req)
	req.Header.Set("User-Agent", webclient.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case 200, 201:
		return io.ReadAll(resp.Body)
	case 401, 403:
		return nil, &UnauthorizedError{
			Message: fmt.Sprintf("The Dataset API rejected our token (%d)", resp.StatusCode),
		}
	case 503:
		return nil, &UnavailableError{}
	default:
		data, _ := io.ReadAll(resp.Body)
		return nil, &SubmissionError{
			StatusCode: resp.StatusCode,
			Reason:     serverReason(data, resp.StatusCode),
		}
	}
}

// extracts a human-readable rejection reason from an error response body
func serverReason(body []byte, statusCode int) string {
	var response struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &response); err == nil {
		if response.Detail != "" {
			return response.Detail
		}
		if response.Message != "" {
			return response.Message
		}
	}
	return fmt.Sprintf("status %d", statusCode)
}
