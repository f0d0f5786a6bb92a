// Package ingest implements the document ingestion pipeline: save the
// upload, extract text, chunk it, embed it into the knowledge base's
// vector collection, and record the document's metadata.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/chunker"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/extraction"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/metastore"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/vectorstore"
)

// ErrUnsupportedFile is returned for uploads that are not PDF files.
var ErrUnsupportedFile = errors.New("unsupported file type, only PDF is accepted")

// Extractor turns a PDF file into text units.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]extraction.Unit, error)
}

// VectorIndex is the slice of the vector store the pipeline writes to.
type VectorIndex interface {
	Add(ctx context.Context, kbID int64, records []vectorstore.Record) ([]string, error)
	DeleteByMetadata(ctx context.Context, kbID int64, where map[string]string) error
	DeleteCollection(ctx context.Context, kbID int64) error
}

// Config holds ingestion storage locations.
type Config struct {
	// TempDir receives uploads during processing.
	TempDir string

	// DocsDir holds permanent copies of uploaded originals.
	DocsDir string
}

// Result describes a completed ingestion.
type Result struct {
	DocumentID       int64  `json:"document_id"`
	StoredFilename   string `json:"stored_filename"`
	Chunks           int    `json:"chunks"`
	ExtractionFailed bool   `json:"extraction_failed"`
}

// Service runs the ingestion pipeline.
type Service struct {
	extractor Extractor
	chunker   *chunker.Chunker
	vectors   VectorIndex
	meta      *metastore.Store
	config    Config
	logger    *zap.Logger
}

// NewService creates an ingestion service. The storage directories are
// created if they do not exist.
func NewService(cfg Config, ex Extractor, ch *chunker.Chunker, vectors VectorIndex, meta *metastore.Store, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, dir := range []string{cfg.TempDir, cfg.DocsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return &Service{
		extractor: ex,
		chunker:   ch,
		vectors:   vectors,
		meta:      meta,
		config:    cfg,
		logger:    logger,
	}, nil
}

// Ingest processes one uploaded file into the given knowledge base.
//
// Ordering guarantees: the metadata row is written only after the file is
// durably copied to permanent storage, and the permanent copy happens
// only after the vector write succeeded (or extraction failed, in which
// case the document is recorded with ExtractionFailed=true and no vectors
// are written). The temporary copy is removed on every exit path.
func (s *Service) Ingest(ctx context.Context, kbID int64, filename string, content io.Reader) (*Result, error) {
	if !s.meta.KnowledgeBaseExists(ctx, kbID) {
		return nil, fmt.Errorf("%w: id %d", metastore.ErrKnowledgeBaseNotFound, kbID)
	}
	if !isPDF(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}

	storedFilename := storedName(filename)
	tempPath := filepath.Join(s.config.TempDir, storedFilename)

	size, err := writeFile(tempPath, content)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove temp file", zap.String("path", tempPath), zap.Error(err))
		}
	}()

	logger := s.logger.With(
		zap.String("filename", filename),
		zap.String("stored", storedFilename),
		zap.Int64("kb_id", kbID),
	)
	logger.Info("ingesting document", zap.Int64("bytes", size))

	extractionFailed := false
	chunkCount := 0

	units, err := s.extractor.Extract(ctx, tempPath)
	switch {
	case errors.Is(err, extraction.ErrExtractionFailed):
		// The upload is kept and flagged; the user can still list and
		// download it even though it contributes nothing to retrieval.
		logger.Warn("extraction failed, recording document without vectors", zap.Error(err))
		extractionFailed = true
	case err != nil:
		return nil, fmt.Errorf("extracting text: %w", err)
	default:
		chunks := s.chunker.Split(units)
		if len(chunks) == 0 {
			extractionFailed = true
		} else {
			records := make([]vectorstore.Record, len(chunks))
			for i, ch := range chunks {
				records[i] = vectorstore.Record{
					ID:      uuid.NewString(),
					Content: ch.Text,
					Metadata: map[string]string{
						"document": storedFilename,
						"page":     fmt.Sprintf("%d", ch.Page),
						"chunk":    fmt.Sprintf("%d", ch.Index),
					},
				}
			}
			if _, err := s.vectors.Add(ctx, kbID, records); err != nil {
				return nil, fmt.Errorf("indexing chunks: %w", err)
			}
			chunkCount = len(chunks)
		}
	}

	permanentPath := filepath.Join(s.config.DocsDir, storedFilename)
	if err := copyFile(tempPath, permanentPath); err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	docID, err := s.meta.SaveDocument(ctx, &metastore.Document{
		OriginalFilename: filename,
		StoredFilename:   storedFilename,
		FilePath:         permanentPath,
		FileSize:         size,
		KnowledgeBaseID:  kbID,
		ExtractionFailed: extractionFailed,
	})
	if err != nil {
		// Roll the file back so no file exists without a metadata row.
		if rmErr := os.Remove(permanentPath); rmErr != nil {
			s.logger.Error("orphaned document file after metadata failure",
				zap.String("path", permanentPath), zap.Error(rmErr))
		}
		return nil, err
	}

	logger.Info("document ingested",
		zap.Int64("document_id", docID),
		zap.Int("chunks", chunkCount),
		zap.Bool("extraction_failed", extractionFailed),
	)

	return &Result{
		DocumentID:       docID,
		StoredFilename:   storedFilename,
		Chunks:           chunkCount,
		ExtractionFailed: extractionFailed,
	}, nil
}

// DeleteDocument removes a document's metadata row, its stored file, and
// its chunks from the vector index.
func (s *Service) DeleteDocument(ctx context.Context, docID int64) error {
	doc, err := s.meta.GetDocument(ctx, docID)
	if err != nil {
		return err
	}

	if err := s.meta.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove document file", zap.String("path", doc.FilePath), zap.Error(err))
	}
	if err := s.vectors.DeleteByMetadata(ctx, doc.KnowledgeBaseID, map[string]string{"document": doc.StoredFilename}); err != nil {
		s.logger.Warn("failed to remove document vectors",
			zap.Int64("document_id", docID), zap.Error(err))
	}
	return nil
}

// DeleteKnowledgeBase removes a knowledge base with everything it owns:
// document rows, stored files, and the vector collection.
func (s *Service) DeleteKnowledgeBase(ctx context.Context, kbID int64) error {
	docs, err := s.meta.ListDocuments(ctx, kbID)
	if err != nil {
		return err
	}
	if err := s.meta.DeleteKnowledgeBase(ctx, kbID); err != nil {
		return err
	}

	for _, doc := range docs {
		if err := s.meta.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, metastore.ErrDocumentNotFound) {
			s.logger.Warn("failed to delete document row", zap.Int64("document_id", doc.ID), zap.Error(err))
		}
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove document file", zap.String("path", doc.FilePath), zap.Error(err))
		}
	}

	if err := s.vectors.DeleteCollection(ctx, kbID); err != nil {
		s.logger.Warn("failed to delete vector collection", zap.Int64("kb_id", kbID), zap.Error(err))
	}
	return nil
}

// isPDF checks the upload's extension. Only PDF files are accepted.
func isPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// storedName builds a collision-resistant stored filename from the upload
// time and a sanitized version of the original name.
func storedName(filename string) string {
	return fmt.Sprintf("%d_%s", time.Now().UnixNano(), sanitizeFilename(filename))
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with underscores, so stored names are safe as file
// names and metadata values.
func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	var sb strings.Builder
	sb.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "upload.pdf"
	}
	return sb.String()
}

// writeFile streams content to path and returns the byte count.
func writeFile(path string, content io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := io.Copy(f, content)
	if err != nil {
		return 0, err
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}
	return n, nil
}

// copyFile copies src to dst, syncing dst before returning.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
