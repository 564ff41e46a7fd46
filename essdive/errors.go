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
	"fmt"
)

// indicates that a payload field outside the known ESS-DIVE schema was
// assigned (a mapping bug, not a runtime state)
type UnknownFieldError struct {
	Field string
}

func (e UnknownFieldError) Error() string {
	return fmt.Sprintf("'%s' is not a field in the ESS-DIVE dataset schema", e.Field)
}

// indicates an attempt to mutate a payload after it was frozen
type FrozenPayloadError struct {
	Field string
}

func (e FrozenPayloadError) Error() string {
	return fmt.Sprintf("Cannot assign field '%s': the payload is frozen", e.Field)
}

// indicates that ESS-DIVE rejected our credentials
type UnauthorizedError struct {
	Message string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("Unable to authorize with ESS-DIVE: %s", e.Message)
}

// indicates that the Dataset API exists but is currently unavailable
type UnavailableError struct {
}

func (e UnavailableError) Error() string {
	return "Cannot reach the ESS-DIVE Dataset API: unavailable"
}

// This error type is returned when the Dataset API rejects a submission.
// Resubmission could create duplicate datasets, so it is never retried
// automatically.
type SubmissionError struct {
	StatusCode int
	Reason     string
}

func (e SubmissionError) Error() string {
	return fmt.Sprintf("ESS-DIVE rejected the dataset submission: %s", e.Reason)
}
