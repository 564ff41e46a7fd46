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

package essdive

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/essdive/dps/dpstest"
)

// builds a client pointed at the given fake server
func testClient(serverURL string) *Client {
	return &Client{
		Client: http.Client{},
		URL:    serverURL,
		Auth:   authorization{Token: "test-token", Type: "Bearer"},
	}
}

// builds a minimal payload for submission tests
func testPayload(t *testing.T) *Payload {
	payload := NewPayload()
	assert.Nil(t, payload.Set("title", "Hydrological Monitoring 2024"))
	assert.Nil(t, payload.Set("creators", []Agent{{Name: "Pat Jones"}}))
	payload.Freeze()
	return payload
}

func TestCreate(t *testing.T) {
	assert := assert.New(t)

	server := dpstest.NewEssDiveServer("ess123")
	defer server.Close()
	client := testClient(server.URL)

	id, err := client.Create(context.Background(), testPayload(t))
	assert.Nil(err)
	assert.Equal("ess123", id)
	assert.Equal(1, server.NumSubmissions())
	assert.Equal("Hydrological Monitoring 2024", server.LastSubmission()["title"])
}

func TestCreateRejection(t *testing.T) {
	assert := assert.New(t)

	server := dpstest.NewEssDiveServer("ess123")
	server.FailStatus = http.StatusBadRequest
	server.FailReason = "creators[0].email is malformed"
	defer server.Close()
	client := testClient(server.URL)

	_, err := client.Create(context.Background(), testPayload(t))
	assert.NotNil(err)
	submissionErr, ok := err.(*SubmissionError)
	assert.True(ok)
	assert.Equal(http.StatusBadRequest, submissionErr.StatusCode)
	// the server-supplied reason is carried through
	assert.Equal("creators[0].email is malformed", submissionErr.Reason)
}

func TestCreateUnauthorized(t *testing.T) {
	assert := assert.New(t)

	server := dpstest.NewEssDiveServer("ess123")
	defer server.Close()
	client := testClient(server.URL)
	client.Auth = authorization{} // no token, no Bearer header

	_, err := client.Create(context.Background(), testPayload(t))
	assert.NotNil(err)
	assert.IsType(&UnauthorizedError{}, err)
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	client := testClient("https://unused.example.org")
	assert.Nil(client.Validate(testPayload(t)))

	// a payload with no fields set has nothing to submit
	err := client.Validate(NewPayload())
	assert.NotNil(err)
	assert.IsType(&SubmissionError{}, err)

	// a client with no token cannot validate
	client.Auth = authorization{}
	err = client.Validate(testPayload(t))
	assert.NotNil(err)
	assert.IsType(&UnauthorizedError{}, err)
}
