// Package report turns play history into a progress report: it builds the
// prompt for the text-generation service, coerces the untrusted reply into the
// report schema, and computes the same statistics locally.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dom/learnplay/internal/domain"
)

// tag line after an opening fence (```json, ```JSON, ``` ...), or a bare json tag
var fenceTag = regexp.MustCompile("^(?:[a-zA-Z]*[ \t]*\r?\n|(?i:json)[ \t]*)")

// any fence marker, tagged or not
var fenceMarker = regexp.MustCompile("(?i)```(json)?")

// StripFences returns the body of the first fenced block in raw: everything
// after the opening marker's tag line up to the last closing marker. Text
// without a fence is returned trimmed.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}

	body := fenceTag.ReplaceAllString(s[start+3:], "")
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// Normalize extracts a JSON object from generated text. It never panics: any
// input that does not yield exactly one JSON object returns a
// *domain.NormalizationError whose Raw field is the original text.
//
// The trimmed text is tried as-is first, so fence markers inside string
// values survive. Only then is a fenced body tried, and last the text with
// every marker removed.
func Normalize(raw string) (obj map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			obj = nil
			err = &domain.NormalizationError{Raw: raw, Err: fmt.Errorf("panic while parsing: %v", r)}
		}
	}()

	candidates := []string{
		strings.TrimSpace(raw),
		StripFences(raw),
		strings.TrimSpace(fenceMarker.ReplaceAllString(raw, "")),
	}

	var firstErr error
	tried := make(map[string]bool, len(candidates))
	for _, body := range candidates {
		if body == "" || tried[body] {
			continue
		}
		tried[body] = true

		obj, err := decodeObject(body)
		if err == nil {
			return obj, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		firstErr = errors.New("empty response")
	}
	return nil, &domain.NormalizationError{Raw: raw, Err: firstErr}
}

// decodeObject strictly decodes exactly one JSON object from body.
func decodeObject(body string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", value)
	}
	return obj, nil
}

// NormalizeReport normalizes raw and decodes it into the report schema.
// Fields of the wrong type are a normalization failure; absent fields are zero.
func NormalizeReport(raw string) (*domain.GeneratedReport, error) {
	obj, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, &domain.NormalizationError{Raw: raw, Err: err}
	}

	var out domain.GeneratedReport
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
		return nil, &domain.NormalizationError{Raw: raw, Err: err}
	}
	return &out, nil
}
