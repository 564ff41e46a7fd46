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

package local

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/essdive/dps/config"
	"github.com/essdive/dps/staging"
)

// This type implements a staging target that writes resource files to a
// directory on the local file system.
type Target struct {
	// root directory for staged files (obtained from config)
	root string
}

// creates a new local staging target using the information supplied in the
// service configuration file
func NewTarget() (staging.Target, error) {
	dir := config.Staging.Local.Dir
	if dir == "" {
		return nil, fmt.Errorf("no local staging directory specified")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory %s: %s", dir, err.Error())
	}
	return &Target{root: dir}, nil
}

func (t *Target) Root() string {
	return t.root
}

func (t *Target) Location(filename string) string {
	return filepath.Join(t.root, filename)
}

// A file counts as staged when one with the same name and size already sits
// in the staging directory. When the resource record carries a checksum, the
// existing file's MD5 must also match, so a corrupt or stale copy gets
// restaged instead of skipped.
func (t *Target) Exists(ctx context.Context, filename string, size int64, checksum string) (bool, error) {
	info, err := os.Stat(t.Location(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if size > 0 && info.Size() != size {
		return false, nil
	}
	if checksum != "" {
		actual, err := fileChecksum(t.Location(filename))
		if err != nil {
			return false, err
		}
		if actual != checksum {
			return false, nil
		}
	}
	return true, nil
}

// Writes the file's bytes to the staging directory. A file that fails partway
// through is removed so reruns never mistake it for a staged copy.
func (t *Target) Store(ctx context.Context, filename string, content io.Reader) (string, error) {
	location := t.Location(filename)
	file, err := os.Create(location)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, content); err != nil {
		file.Close()
		os.Remove(location)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(location)
		return "", err
	}
	return location, nil
}

// computes the MD5 checksum of a file on disk
func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
