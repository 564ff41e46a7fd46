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

package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/essdive/dps/webclient"
)

// this type represents a proxy for a Tapis OAuth2 server
// (https://tapis.readthedocs.io/en/latest/technical/authentication.html)
type TapisAuthServer struct {
	Client http.Client
	// path to server
	URL string
	// Tapis account username
	Username string
	// Tapis account password (held only for the exchange)
	password string
}

// here's how Tapis represents the result of a token request
type tapisTokenResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  struct {
		AccessToken struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int64  `json:"expires_in"`
		} `json:"access_token"`
	} `json:"result"`
}

// here's a set of instances of the auth server proxy, mapped by username
var instances map[string]*TapisAuthServer

// constructs or retrieves a proxy to a Tapis OAuth2 server for the given
// account, or returns a non-nil error explaining any issue encountered
func NewTapisAuthServer(baseURL, username, password string) (*TapisAuthServer, error) {
	if baseURL == "" {
		return nil, &AuthError{Service: "tapis", Message: "no Tapis URL configured"}
	}
	if instances == nil {
		instances = make(map[string]*TapisAuthServer)
	}
	if server, found := instances[username]; found {
		return server, nil
	}
	server := &TapisAuthServer{
		Client:   webclient.SecureHttpClient(30 * time.Second),
		URL:      strings.TrimSuffix(baseURL, "/"),
		Username: username,
		password: password,
	}
	instances[username] = server
	return server, nil
}

// exchanges the account's username and password for a bearer token
func (server *TapisAuthServer) AccessToken() (string, error) {
	body, err := json.Marshal(map[string]string{
		"username":   server.Username,
		"password":   server.password,
		"grant_type": "password",
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/v3/oauth2/tokens", server.URL), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webclient.UserAgent)
	resp, err := server.Client.Do(req)
	if err != nil {
		return "", &AuthError{Service: "tapis", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var result tapisTokenResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &AuthError{
			Service: "tapis",
			Message: fmt.Sprintf("unexpected token response (%d)", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK || result.Result.AccessToken.AccessToken == "" {
		message := result.Message
		if message == "" {
			message = fmt.Sprintf("token exchange failed (%d)", resp.StatusCode)
		}
		return "", &AuthError{Service: "tapis", Message: message}
	}
	return result.Result.AccessToken.AccessToken, nil
}
