package extraction

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Config holds extraction cascade configuration.
type Config struct {
	// OCRLanguages is the language set an OCR-capable layout engine
	// would use. The fast text mode in use reads only the embedded
	// text layer and ignores this set; the knob is accepted so
	// configurations remain valid if OCR is enabled later.
	OCRLanguages []string
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if len(c.OCRLanguages) == 0 {
		c.OCRLanguages = []string{"eng", "chi_sim"}
	}
}

// Cascade runs extraction strategies in priority order.
type Cascade struct {
	extractors []Extractor
	logger     *zap.Logger
}

// NewCascade creates the default extraction cascade:
//
//  1. whole-document plain text (dslipak/pdf)
//  2. layout-aware page text in fast mode (MuPDF via go-fitz)
//  3. low-level content-stream mining
//  4. page-by-page plain text (ledongthuc/pdf)
//  5. printable byte runs from the raw file
func NewCascade(cfg Config, logger *zap.Logger) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	return &Cascade{
		extractors: []Extractor{
			&plainTextExtractor{},
			&layoutExtractor{},
			&streamExtractor{},
			&pageExtractor{},
			&rawTextExtractor{},
		},
		logger: logger,
	}
}

// NewCascadeWith creates a cascade over a custom strategy list, in order.
func NewCascadeWith(logger *zap.Logger, extractors ...Extractor) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{extractors: extractors, logger: logger}
}

// Extract tries each strategy until one yields non-whitespace content.
//
// A strategy that errors, panics, or returns only whitespace is discarded
// and the cascade falls through to the next one. When every strategy has
// been exhausted the file is presumed corrupted or access-protected and
// ErrExtractionFailed is returned.
func (c *Cascade) Extract(ctx context.Context, path string) ([]Unit, error) {
	var lastErr error

	for _, ex := range c.extractors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		units, err := c.tryExtractor(ctx, ex, path)
		if err != nil {
			c.logger.Debug("extraction strategy failed",
				zap.String("strategy", ex.Name()),
				zap.String("path", path),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		if !hasContent(units) {
			c.logger.Debug("extraction strategy yielded no content",
				zap.String("strategy", ex.Name()),
				zap.String("path", path),
			)
			continue
		}

		c.logger.Info("extracted text",
			zap.String("strategy", ex.Name()),
			zap.String("path", path),
			zap.Int("units", len(units)),
		)
		return units, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: all strategies exhausted, last error: %v", ErrExtractionFailed, lastErr)
	}
	return nil, fmt.Errorf("%w: no strategy produced text, file may be corrupted or access-protected", ErrExtractionFailed)
}

// tryExtractor runs one strategy, converting panics into errors. The
// rsc.io-derived PDF readers panic on some malformed cross-reference
// tables rather than returning an error.
func (c *Cascade) tryExtractor(ctx context.Context, ex Extractor, path string) (units []Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			units = nil
			err = fmt.Errorf("strategy %s panicked: %v", ex.Name(), r)
		}
	}()
	return ex.Extract(ctx, path)
}
