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
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/deliveryhero/pipeline/v2"

	"github.com/essdive/dps/ckan"
)

// fetches the bytes of a dataset resource from its source repository
type Fetcher interface {
	FetchResource(ctx context.Context, resource ckan.ResourceRef) (io.ReadCloser, int64, error)
}

// This type stages a dataset's resource files at a target, producing a
// manifest that records each resource's outcome.
type Stager struct {
	// fetches resource bytes from the source repository
	Source Fetcher
	// receives staged files
	Target Target
	// the number of resources staged concurrently
	Workers int
}

// Stages every resource in the given list (concurrently, up to Workers at a
// time) and returns a manifest with one entry per resource. A failed resource
// never halts the run. Cancelling the context stops new resources from being
// scheduled but lets in-flight copies finish, so the target is left without
// partial files.
func (stager *Stager) Stage(ctx context.Context, dataset string, resources []ckan.ResourceRef) *Manifest {
	manifest := NewManifest(dataset)
	if len(resources) == 0 {
		return manifest
	}
	workers := stager.Workers
	if workers < 1 {
		workers = 1
	}

	// entries for resources that never ran because the run was cancelled
	cancelled := make(chan Entry, len(resources))

	process := func(_ context.Context, resource ckan.ResourceRef) (Entry, error) {
		// an in-flight copy runs to completion even if the run is cancelled
		return stager.stageResource(context.WithoutCancel(ctx), resource), nil
	}
	cancel := func(resource ckan.ResourceRef, err error) {
		cancelled <- Entry{
			Resource: resource.Filename(),
			Status:   StatusFailed("cancelled"),
		}
	}

	input := make(chan ckan.ResourceRef)
	output := pipeline.ProcessConcurrently(ctx, workers, pipeline.NewProcessor(process, cancel), input)
	go func() {
		defer close(input)
		for _, resource := range resources {
			input <- resource
		}
	}()

	// a single goroutine (this one) builds the manifest
	numCompleted := 0
	for numCompleted < len(resources) {
		select {
		case entry, open := <-output:
			if !open {
				// remaining resources were routed to the cancel callback
				for numCompleted < len(resources) {
					manifest.Add(<-cancelled)
					numCompleted++
				}
				return manifest
			}
			manifest.Add(entry)
			numCompleted++
		case entry := <-cancelled:
			manifest.Add(entry)
			numCompleted++
		}
	}
	return manifest
}

// stages a single resource, translating every failure into a manifest entry
func (stager *Stager) stageResource(ctx context.Context, resource ckan.ResourceRef) Entry {
	filename := resource.Filename()

	// a resource already staged with matching size/checksum is not fetched
	// again, so reruns perform no writes
	exists, err := stager.Target.Exists(ctx, filename, resource.Size, resource.Checksum)
	if err != nil {
		return Entry{Resource: filename, Status: StatusFailed(failureReason(err))}
	}
	if exists {
		slog.Debug(fmt.Sprintf("Skipping %s (already staged)", filename))
		return Entry{
			Resource: filename,
			Location: stager.Target.Location(filename),
			Status:   StatusSkippedExists,
		}
	}

	body, size, err := stager.Source.FetchResource(ctx, resource)
	if err != nil {
		return Entry{Resource: filename, Status: StatusFailed(failureReason(err))}
	}
	defer body.Close()

	hash := md5.New()
	location, err := stager.Target.Store(ctx, filename, io.TeeReader(body, hash))
	if err != nil {
		return Entry{Resource: filename, Status: StatusFailed(failureReason(err))}
	}
	if resource.Checksum != "" {
		actual := hex.EncodeToString(hash.Sum(nil))
		if actual != resource.Checksum {
			err := &ChecksumMismatchError{
				Resource: filename,
				Expected: resource.Checksum,
				Actual:   actual,
			}
			slog.Error(err.Error())
			return Entry{Resource: filename, Status: StatusFailed(failureReason(err))}
		}
	}
	slog.Info(fmt.Sprintf("Staged %s at %s", filename, location))
	return Entry{
		Resource: filename,
		Location: location,
		Size:     size,
		Status:   StatusStaged,
	}
}

// maps an error encountered while staging a resource to a short manifest
// failure reason
func failureReason(err error) string {
	var notFoundErr *ckan.ResourceNotFoundError
	if errors.As(err, &notFoundErr) {
		return notFoundErr.Message
	}
	var unauthorizedErr *ckan.UnauthorizedError
	if errors.As(err, &unauthorizedErr) {
		return "permission_denied"
	}
	var checksumErr *ChecksumMismatchError
	if errors.As(err, &checksumErr) {
		return "checksum_mismatch"
	}
	return err.Error()
}
