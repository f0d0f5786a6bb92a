// Package extraction turns PDF files of unknown quality into text units.
//
// No single PDF library handles every file in the wild, so extraction runs
// a cascade of strategies in a fixed priority order, from the most faithful
// to the most tolerant, stopping at the first one that yields any
// non-whitespace content. The final strategy reads printable byte runs
// straight out of the raw file, so the cascade only fails outright on files
// that are encrypted or carry no text at all.
package extraction

import (
	"context"
	"errors"
	"strings"
)

// ErrExtractionFailed is returned when every strategy in the cascade has
// been exhausted without producing usable text. This is permanent for a
// given file; the caller should ask the user for a valid one.
var ErrExtractionFailed = errors.New("text extraction failed")

// Unit is a contiguous piece of extracted text with its page of origin.
// Page numbers are 1-based; strategies that cannot recover page structure
// report their best approximation.
type Unit struct {
	Text string
	Page int
}

// Extractor is a single extraction strategy.
//
// Extract must not mutate the input file. Returning an empty slice and a
// nil error is a valid outcome; the cascade treats it like a failure and
// moves on.
type Extractor interface {
	// Name identifies the strategy in logs.
	Name() string

	// Extract reads the PDF at path and returns text units in page order.
	Extract(ctx context.Context, path string) ([]Unit, error)
}

// hasContent reports whether any unit carries non-whitespace text.
// This is the uniform success predicate applied after every strategy.
func hasContent(units []Unit) bool {
	for _, u := range units {
		if strings.TrimSpace(u.Text) != "" {
			return true
		}
	}
	return false
}
