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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/essdive/dps/config"
)

// cached tokens older than this are discarded
const tokenCacheTTL = 4 * time.Hour

// Tokens obtained by exchange are kept between runs in fernet-sealed files
// under the service's data directory, so a restart doesn't force a fresh
// exchange. The sealing key comes from the DPS_FERNET_KEY environment
// variable (a base64 fernet key). Without a key the cache is disabled and
// every run exchanges anew.

// returns the fernet key used to seal cached tokens, or nil if none is
// configured
func cacheKeys() []*fernet.Key {
	encoded := os.Getenv("DPS_FERNET_KEY")
	if encoded == "" {
		return nil
	}
	keys, err := fernet.DecodeKeys(encoded)
	if err != nil {
		return nil
	}
	return keys
}

// returns the path of the cache file for the named service
func cacheFile(service string) string {
	return filepath.Join(config.Service.DataDirectory, fmt.Sprintf("%s_token.fernet", service))
}

// seals the given token and writes it to the named service's cache file
func cacheToken(service, token string) error {
	keys := cacheKeys()
	if keys == nil {
		return &AuthError{Service: service, Message: "no fernet key configured for token cache"}
	}
	sealed, err := fernet.EncryptAndSign([]byte(token), keys[0])
	if err != nil {
		return &AuthError{Service: service, Message: err.Error()}
	}
	return os.WriteFile(cacheFile(service), sealed, 0600)
}

// reads and unseals the named service's cached token, returning an empty
// string when no usable token is cached
func loadCachedToken(service string) (string, error) {
	keys := cacheKeys()
	if keys == nil {
		return "", nil
	}
	sealed, err := os.ReadFile(cacheFile(service))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	token := fernet.VerifyAndDecrypt(sealed, tokenCacheTTL, keys)
	if token == nil {
		// expired or tampered with, drop it
		os.Remove(cacheFile(service))
		return "", nil
	}
	return string(token), nil
}
