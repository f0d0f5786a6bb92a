package extraction

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// layoutExtractor extracts page text through MuPDF, which performs full
// layout analysis and handles many files the plain reader chokes on.
//
// It runs in fast mode: only the embedded text layer is read and no OCR
// pass is invoked, keeping extraction latency bounded.
type layoutExtractor struct{}

func (e *layoutExtractor) Name() string { return "layout" }

func (e *layoutExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer doc.Close()

	var units []Unit
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			continue
		}
		units = append(units, Unit{Text: text, Page: i + 1})
	}
	return units, nil
}
