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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadRejectsUnknownFields(t *testing.T) {
	assert := assert.New(t)

	payload := NewPayload()
	err := payload.Set("favoriteColor", "teal")
	assert.NotNil(err)
	assert.IsType(&UnknownFieldError{}, err)
}

func TestPayloadFreeze(t *testing.T) {
	assert := assert.New(t)

	payload := NewPayload()
	assert.Nil(payload.Set("title", "before"))
	payload.Freeze()
	err := payload.Set("title", "after")
	assert.NotNil(err)
	assert.IsType(&FrozenPayloadError{}, err)

	// the original value survives
	title, found := payload.Value("title")
	assert.True(found)
	assert.Equal("before", title)
}

func TestPayloadNestedValues(t *testing.T) {
	assert := assert.New(t)

	payload := NewPayload()
	assert.Nil(payload.Set("temporalCoverage", TemporalCoverage{StartDate: "2024-01-01"}))

	start, found := payload.Value("temporalCoverage.startDate")
	assert.True(found)
	assert.Equal("2024-01-01", start)

	// an empty nested date is absent, not an empty string
	_, found = payload.Value("temporalCoverage.endDate")
	assert.False(found)
}

func TestPayloadFields(t *testing.T) {
	assert := assert.New(t)

	payload := NewPayload()
	assert.Empty(payload.Fields())
	assert.Nil(payload.Set("title", "Soil Cores"))
	assert.Nil(payload.Set("keywords", []string{"soil"}))
	assert.ElementsMatch([]string{"title", "keywords"}, payload.Fields())
}

func TestPayloadMarshalsFieldsOnly(t *testing.T) {
	assert := assert.New(t)

	payload := NewPayload()
	assert.Nil(payload.Set("title", "Soil Cores"))
	assert.Nil(payload.Set("keywords", []string{"soil"}))
	payload.Freeze()

	data, err := json.Marshal(payload)
	assert.Nil(err)
	var decoded map[string]any
	assert.Nil(json.Unmarshal(data, &decoded))
	assert.Equal("Soil Cores", decoded["title"])
	assert.Len(decoded, 2)
}
