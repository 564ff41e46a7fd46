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

// This package implements a staging target backed by the Tapis Files API
// (https://tapis.readthedocs.io/en/latest/technical/files.html). Files are
// uploaded to a path on a registered Tapis system.
package tapis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/essdive/dps/auth"
	"github.com/essdive/dps/config"
	"github.com/essdive/dps/staging"
	"github.com/essdive/dps/webclient"
)

// This type implements a staging target that uploads resource files to a
// directory on a Tapis system.
type Target struct {
	Client http.Client
	// path to the Tapis tenant base URL
	URL string
	// the ID of the Tapis system receiving files
	SystemId string
	// directory on the system under which files are staged
	Path string
	// supplies OAuth2 access tokens for the Tapis tenant
	Credentials auth.CredentialProvider
}

// here's how Tapis reports file listings
type tapisListingResponse struct {
	Status string `json:"status"`
	Result []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"result"`
}

// creates a new Tapis staging target using the information supplied in the
// service configuration file, obtaining access tokens as needed
func NewTarget() (staging.Target, error) {
	tapisConfig := config.Staging.Tapis
	if tapisConfig.URL == "" || tapisConfig.SystemId == "" {
		return nil, fmt.Errorf("Tapis staging requires a URL and a system ID")
	}
	credentials := auth.TapisCredentials()
	// resolve a token now so a misconfigured target fails at construction
	if _, err := credentials.AccessToken(); err != nil {
		return nil, err
	}
	return &Target{
		Client:      webclient.SecureHttpClient(time.Minute),
		URL:         strings.TrimSuffix(tapisConfig.URL, "/"),
		SystemId:    tapisConfig.SystemId,
		Path:        strings.Trim(tapisConfig.Path, "/"),
		Credentials: credentials,
	}, nil
}

func (t *Target) Location(filename string) string {
	return fmt.Sprintf("tapis://%s/%s", t.SystemId, path.Join(t.Path, filename))
}

// returns the Files API operations URL for the named file
func (t *Target) opsURL(filename string) string {
	filePath := path.Join(t.Path, filename)
	return fmt.Sprintf("%s/v3/files/ops/%s/%s", t.URL, t.SystemId,
		url.PathEscape(filePath))
}

// A file counts as staged when the Tapis system reports one with the same
// name and size at the staging path. Tapis file listings carry no checksums,
// so the checksum argument goes unused here.
func (t *Target) Exists(ctx context.Context, filename string, size int64, checksum string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.opsURL(filename), http.NoBody)
	if err != nil {
		return false, err
	}
	if err := t.addHeaders(req); err != nil {
		return false, err
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return false, nil
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, err
		}
		var listing tapisListingResponse
		if err := json.Unmarshal(body, &listing); err != nil {
			return false, err
		}
		for _, file := range listing.Result {
			if file.Name == filename && (size <= 0 || file.Size == size) {
				return true, nil
			}
		}
		return false, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, &auth.AuthError{Service: "tapis", Message: "access token rejected"}
	default:
		return false, fmt.Errorf("Tapis listing failed (%d)", resp.StatusCode)
	}
}

// Streams the file's bytes to the Tapis system as a multipart upload,
// returning its tapis:// location.
func (t *Target) Store(ctx context.Context, filename string, content io.Reader) (string, error) {
	// feed the multipart body through a pipe so the upload streams instead
	// of buffering the whole file
	pipeReader, pipeWriter := io.Pipe()
	form := multipart.NewWriter(pipeWriter)
	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		pipeWriter.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opsURL(filename), pipeReader)
	if err != nil {
		pipeReader.Close()
		return "", err
	}
	// closing the read end unblocks the form writer if we bail out here
	if err := t.addHeaders(req); err != nil {
		pipeReader.Close()
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := t.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return t.Location(filename), nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", &auth.AuthError{Service: "tapis", Message: "access token rejected"}
	default:
		return "", fmt.Errorf("Tapis upload of %s failed (%d)", filename, resp.StatusCode)
	}
}

func (t *Target) addHeaders(req *http.Request) error {
	token, err := t.Credentials.AccessToken()
	if err != nil {
		return err
	}
	req.Header.Set("X-Tapis-Token", token)
	req.Header.Set("User-Agent", webclient.UserAgent)
	return nil
}
