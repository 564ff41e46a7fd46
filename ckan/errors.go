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

package ckan

import (
	"fmt"
)

// indicates that a CKAN action call reported failure or couldn't be parsed
type ActionError struct {
	Action, Message string
}

func (e ActionError) Error() string {
	return fmt.Sprintf("CKAN action '%s' failed: %s", e.Action, e.Message)
}

// indicates that the catalog rejected our credentials
// (surfaced with the originating service name, never retried)
type UnauthorizedError struct {
	Message string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("Unable to authorize with CKAN: %s", e.Message)
}

// This error type is returned when a dataset record is sought but not found.
type NotFoundError struct {
	Action, Id string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("The dataset '%s' was not found (%s)", e.Id, e.Action)
}

// indicates that the catalog exists but is currently unavailable
type UnavailableError struct {
}

func (e UnavailableError) Error() string {
	return "Cannot reach the CKAN catalog: unavailable"
}

// this error type is returned when a resource file can't be fetched
type ResourceNotFoundError struct {
	Resource, Message string
}

func (e ResourceNotFoundError) Error() string {
	return fmt.Sprintf("Can't fetch resource '%s': %s", e.Resource, e.Message)
}
