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

// This package provides a read-only client for a CKAN metadata catalog
// (https://docs.ckan.org/en/latest/api/), which serves dataset records and
// resource files via its action API.
package ckan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/essdive/dps/config"
	"github.com/essdive/dps/webclient"
)

// a client for the CKAN action API
type Client struct {
	// HTTP client used for all requests
	Client http.Client
	// base URL for the catalog
	URL string
	// API key or bearer token (optional)
	APIKey string
}

// creates a CKAN client from the service configuration
func NewClient(timeout time.Duration) (*Client, error) {
	if config.Ckan.URL == "" {
		return nil, &ActionError{Action: "init", Message: "no CKAN URL configured"}
	}
	return &Client{
		Client: webclient.SecureHttpClient(timeout),
		URL:    strings.TrimSuffix(config.Ckan.URL, "/"),
		APIKey: config.Ckan.APIKey,
	}, nil
}

// Fetches the dataset record with the given name or ID via package_show.
func (c *Client) Dataset(ctx context.Context, nameOrId string) (Record, error) {
	p := url.Values{}
	p.Add("id", nameOrId)
	body, err := c.get(ctx, "package_show", p)
	if err != nil {
		return Record{}, err
	}
	var pkg ckanPackage
	if err := json.Unmarshal(body, &pkg); err != nil {
		return Record{}, &ActionError{Action: "package_show", Message: err.Error()}
	}
	return recordFromPackage(pkg), nil
}

// Searches the catalog for dataset records matching the given query string,
// returning at most limit records (package_search).
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	p := url.Values{}
	if limit <= 0 {
		limit = 40
	}
	p.Add("rows", strconv.Itoa(limit))
	if query != "" {
		p.Add("q", query)
	}
	body, err := c.get(ctx, "package_search", p)
	if err != nil {
		return nil, err
	}
	var results struct {
		Results []ckanPackage `json:"results"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, &ActionError{Action: "package_search", Message: err.Error()}
	}
	records := make([]Record, len(results.Results))
	for i, pkg := range results.Results {
		records[i] = recordFromPackage(pkg)
	}
	return records, nil
}

// Fetches a resource's bytes from its download URL, returning the response
// body (which the caller must close) and the reported content length (-1 if
// unknown).
func (c *Client) FetchResource(ctx context.Context, res ResourceRef) (io.ReadCloser, int64, error) {
	if res.URL == "" {
		return nil, 0, &ResourceNotFoundError{Resource: res.Name, Message: "resource has no download URL"}
	}
	slog.Debug(fmt.Sprintf("GET: %s", res.URL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, http.NoBody)
	if err != nil {
		return nil, 0, err
	}
	c.addHeaders(req)
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	switch resp.StatusCode {
	case 200:
		return resp.Body, resp.ContentLength, nil
	case 401, 403:
		resp.Body.Close()
		return nil, 0, &UnauthorizedError{Message: fmt.Sprintf("fetching resource '%s'", res.Name)}
	case 404:
		resp.Body.Close()
		return nil, 0, &ResourceNotFoundError{Resource: res.Name, Message: "not_found"}
	default:
		resp.Body.Close()
		return nil, 0, &ResourceNotFoundError{
			Resource: res.Name,
			Message:  fmt.Sprintf("status_%d", resp.StatusCode),
		}
	}
}

//--------------------
// Internal machinery
//--------------------

// adds User-Agent and (if configured) Authorization headers to a request
func (c *Client) addHeaders(request *http.Request) {
	request.Header.Set("User-Agent", webclient.UserAgent)
	if c.APIKey != "" {
		request.Header.Set("Authorization", c.APIKey)
	}
}

// performs a GET request against the given action API endpoint, unwrapping
// CKAN's {"success": ..., "result": ...} envelope
func (c *Client) get(ctx context.Context, action string, values url.Values) (json.RawMessage, error) {
	res, err := url.Parse(fmt.Sprintf("%s/api/3/action/%s", c.URL, action))
	if err != nil {
		return nil, err
	}
	res.RawQuery = values.Encode()
	slog.Debug(fmt.Sprintf("GET: %s", res.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	c.addHeaders(req)
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case 200:
		// fall through to envelope handling below
	case 401, 403:
		return nil, &UnauthorizedError{Message: fmt.Sprintf("CKAN action %s", action)}
	case 404:
		return nil, &NotFoundError{Action: action, Id: values.Get("id")}
	case 503:
		return nil, &UnavailableError{}
	default:
		return nil, &ActionError{
			Action:  action,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Success bool            `json:"success"`
		Result  json.RawMessage `json:"result"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ActionError{Action: action, Message: err.Error()}
	}
	if !envelope.Success {
		return nil, &ActionError{Action: action, Message: envelope.Error.Message}
	}
	return envelope.Result, nil
}

// the wire form of a CKAN package (the fields we use, anyway)
type ckanPackage struct {
	Id              string `json:"id"`
	Name            string `json:"name"`
	Title           string `json:"title"`
	Notes           string `json:"notes"`
	Author          string `json:"author"`
	AuthorEmail     string `json:"author_email"`
	Maintainer      string `json:"maintainer"`
	MaintainerEmail string `json:"maintainer_email"`
	Tags            []struct {
		DisplayName string `json:"display_name"`
	} `json:"tags"`
	Groups []struct {
		Name string `json:"name"`
	} `json:"groups"`
	Extras []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"extras"`
	Resources []struct {
		Id          string          `json:"id"`
		Name        string          `json:"name"`
		URL         string          `json:"url"`
		Format      string          `json:"format"`
		Description string          `json:"description"`
		Size        json.RawMessage `json:"size"` // string or number, catalog-dependent
		Hash        string          `json:"hash"`
	} `json:"resources"`
}

// converts a wire-form package to an immutable Record
func recordFromPackage(pkg ckanPackage) Record {
	record := Record{
		Id:              pkg.Id,
		Name:            pkg.Name,
		Title:           pkg.Title,
		Notes:           pkg.Notes,
		Author:          pkg.Author,
		AuthorEmail:     pkg.AuthorEmail,
		Maintainer:      pkg.Maintainer,
		MaintainerEmail: pkg.MaintainerEmail,
		Tags:            make([]string, 0, len(pkg.Tags)),
		Groups:          make([]string, 0, len(pkg.Groups)),
		Extras:          make([]Extra, 0, len(pkg.Extras)),
		Resources:       make([]ResourceRef, 0, len(pkg.Resources)),
	}
	for _, tag := range pkg.Tags {
		if tag.DisplayName != "" {
			record.Tags = append(record.Tags, tag.DisplayName)
		}
	}
	for _, group := range pkg.Groups {
		if group.Name != "" {
			record.Groups = append(record.Groups, group.Name)
		}
	}
	for _, extra := range pkg.Extras {
		record.Extras = append(record.Extras, Extra{Key: extra.Key, Value: extra.Value})
	}
	for _, res := range pkg.Resources {
		record.Resources = append(record.Resources, ResourceRef{
			Id:          res.Id,
			Name:        res.Name,
			URL:         res.URL,
			Format:      res.Format,
			Description: res.Description,
			Size:        sizeFromJson(res.Size),
			Checksum:    res.Hash,
		})
	}
	return record
}

// CKAN catalogs report resource sizes as numbers, numeric strings, or null
func sizeFromJson(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var number int64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if number, err := strconv.ParseInt(text, 10, 64); err == nil {
			return number
		}
	}
	return 0
}
