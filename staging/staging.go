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

// This package stages a dataset's resource files at a destination (a local
// directory or a Tapis Files system) prior to, and independent of, metadata
// submission.
package staging

import (
	"context"
	"io"
)

// This type represents a destination that receives staged resource files.
type Target interface {
	// returns the location (a path or remote URI) the named file has or
	// would have at this target
	Location(filename string) string
	// reports whether the named file is already staged at this target with
	// a matching size and (if given) MD5 checksum
	Exists(ctx context.Context, filename string, size int64, checksum string) (bool, error)
	// writes the file's bytes to the target, returning its staged location
	Store(ctx context.Context, filename string, content io.Reader) (string, error)
}

// this type is a function that can create a staging target from the
// service configuration
type TargetProvider func() (Target, error)

// we maintain a table of target providers, identified by their names
var allTargetProviders = make(map[string]TargetProvider)

// Registers a staging target provider under the given name, making it
// available to NewTarget. Call this once per provider at startup.
func RegisterTargetProvider(name string, provider TargetProvider) error {
	if _, found := allTargetProviders[name]; found {
		return &AlreadyRegisteredError{Target: name}
	}
	allTargetProviders[name] = provider
	return nil
}

// creates a staging target using the provider registered under the given
// name
func NewTarget(name string) (Target, error) {
	provider, found := allTargetProviders[name]
	if !found {
		return nil, &UnknownTargetError{Target: name}
	}
	return provider()
}
