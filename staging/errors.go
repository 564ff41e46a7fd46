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

package staging

import (
	"fmt"
)

// indicates that a staging target provider has already been registered
// under a given name
type AlreadyRegisteredError struct {
	Target string
}

func (e AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("A staging target provider named %s has already been registered.", e.Target)
}

// indicates that no staging target provider has been registered under the
// requested name
type UnknownTargetError struct {
	Target string
}

func (e UnknownTargetError) Error() string {
	return fmt.Sprintf("No staging target provider named %s has been registered.", e.Target)
}

// indicates that the bytes fetched for a resource do not match the MD5
// checksum its record carries
type ChecksumMismatchError struct {
	Resource string
	Expected string
	Actual   string
}

func (e ChecksumMismatchError) Error() string {
	return fmt.Sprintf("The file %s failed checksum verification (expected %s, got %s).",
		e.Resource, e.Expected, e.Actual)
}

// indicates a problem writing a staging manifest file
type ManifestError struct {
	Message string
}

func (e ManifestError) Error() string {
	return fmt.Sprintf("Error writing staging manifest: %s", e.Message)
}
