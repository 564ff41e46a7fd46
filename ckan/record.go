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
	"path"
	"strings"
)

// CKAN dataset records are heterogeneous: a field can be missing, null, a
// string, or a list, depending on the catalog's schema plugins. Rather than
// probing types at mapping time, we resolve every source field to this
// tagged union up front.
type FieldKind int

const (
	FieldAbsent FieldKind = iota // field missing, null, empty, or whitespace
	FieldScalar                  // a single string value
	FieldList                    // an ordered list of string values
)

// the value of a single source field in a dataset record
type FieldValue struct {
	Kind   FieldKind
	Scalar string
	List   []string
}

// creates a scalar field value, normalizing whitespace-only strings to Absent
// so downstream presence checks are type-uniform
func Scalar(value string) FieldValue {
	value = strings.TrimSpace(value)
	if value == "" {
		return FieldValue{Kind: FieldAbsent}
	}
	return FieldValue{Kind: FieldScalar, Scalar: value}
}

// creates a list field value, dropping blank items and normalizing empty
// collections to Absent
func List(items []string) FieldValue {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return FieldValue{Kind: FieldAbsent}
	}
	return FieldValue{Kind: FieldList, List: kept}
}

// creates an absent field value
func Absent() FieldValue {
	return FieldValue{Kind: FieldAbsent}
}

func (v FieldValue) IsAbsent() bool {
	return v.Kind == FieldAbsent
}

// a reference to a resource file named in a dataset record
type ResourceRef struct {
	// CKAN resource UUID
	Id string
	// the resource's name (used, with any URL suffix, as its staged filename)
	Name string
	// the URL from which the resource's bytes are fetched
	URL string
	// the resource's format label (e.g. "CSV", "NetCDF")
	Format string
	// a description of the resource
	Description string
	// the size of the resource in bytes (0 if the catalog doesn't know)
	Size int64
	// an MD5 checksum, if the catalog provides one
	Checksum string
}

// Returns the filename under which the resource is staged. CKAN resource
// names frequently lack the extension present in the download URL, so any
// URL suffix missing from the name is appended.
func (res ResourceRef) Filename() string {
	name := res.Name
	if name == "" {
		name = res.Id
	}
	if name == "" {
		name = "resource"
	}
	suffix := path.Ext(res.URL)
	if suffix != "" && !strings.HasSuffix(name, suffix) {
		return name + suffix
	}
	return name
}

// a single key/value pair in a record's "extras" section (order preserved)
type Extra struct {
	Key, Value string
}

// This type represents a CKAN dataset record fetched via package_show. A
// record is immutable once fetched: the publication run that fetched it owns
// it for the duration of one transfer and discards it afterward.
type Record struct {
	// CKAN package UUID
	Id string
	// CKAN package name (URL slug)
	Name string
	// dataset title
	Title string
	// dataset description (the CKAN "notes" field)
	Notes string
	// dataset author and contact email
	Author, AuthorEmail string
	// dataset maintainer and contact email
	Maintainer, MaintainerEmail string
	// tag display names, in catalog order
	Tags []string
	// group names, in catalog order
	Groups []string
	// free-form extras, in catalog order
	Extras []Extra
	// the record's resource files
	Resources []ResourceRef
}

// Resolves a source field path to its value. Recognized paths are the
// record's well-known scalar fields ("title", "name", "notes", "author",
// "author_email", "maintainer", "maintainer_email", "id"), the list fields
// ("tags", "groups"), and "extras.<key>" for free-form extras. Unrecognized
// paths resolve to Absent.
func (r Record) Field(fieldPath string) FieldValue {
	switch fieldPath {
	case "id":
		return Scalar(r.Id)
	case "name":
		return Scalar(r.Name)
	case "title":
		return Scalar(r.Title)
	case "notes":
		return Scalar(r.Notes)
	case "author":
		return Scalar(r.Author)
	case "author_email":
		return Scalar(r.AuthorEmail)
	case "maintainer":
		return Scalar(r.Maintainer)
	case "maintainer_email":
		return Scalar(r.MaintainerEmail)
	case "tags":
		return List(r.Tags)
	case "groups":
		return List(r.Groups)
	}
	if key, found := strings.CutPrefix(fieldPath, "extras."); found {
		for _, extra := range r.Extras {
			if extra.Key == key {
				return Scalar(extra.Value)
			}
		}
	}
	return Absent()
}
