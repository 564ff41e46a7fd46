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

// This package supplies access tokens for the external services the DPS
// talks to. Tokens come from the service configuration, from the
// environment, or (for Tapis) from a username/password exchange whose
// result is cached on disk between runs.
package auth

import (
	"os"

	"github.com/essdive/dps/config"
)

// supplies a bearer token for an external service
type CredentialProvider interface {
	AccessToken() (string, error)
}

// a CredentialProvider that resolves Tapis tokens on demand
type tapisCredentials struct{}

func (tapisCredentials) AccessToken() (string, error) {
	return TapisToken()
}

// Returns a CredentialProvider for Tapis that consults the full token chain
// (configuration, environment, cache, exchange) on each request.
func TapisCredentials() CredentialProvider {
	return tapisCredentials{}
}

// Returns a Tapis access token, trying in order: the configured static
// token, the DPS_TAPIS_TOKEN environment variable, a cached token from a
// previous exchange, and finally a fresh username/password exchange with
// the Tapis OAuth2 server.
func TapisToken() (string, error) {
	if config.Staging.Tapis.Token != "" {
		return config.Staging.Tapis.Token, nil
	}
	if token := os.Getenv("DPS_TAPIS_TOKEN"); token != "" {
		return token, nil
	}
	if token, err := loadCachedToken("tapis"); err == nil && token != "" {
		return token, nil
	}

	username := os.Getenv("DPS_TAPIS_USERNAME")
	password := os.Getenv("DPS_TAPIS_PASSWORD")
	if username == "" || password == "" {
		return "", &AuthError{
			Service: "tapis",
			Message: "no token configured and no username/password in environment",
		}
	}
	server, err := NewTapisAuthServer(config.Staging.Tapis.URL, username, password)
	if err != nil {
		return "", err
	}
	token, err := server.AccessToken()
	if err != nil {
		return "", err
	}
	if err := cacheToken("tapis", token); err != nil {
		// a cache failure costs a repeat exchange next run, nothing more
		return token, nil
	}
	return token, nil
}
