// Package metastore persists knowledge-base and document records.
//
// Records live in a local SQLite database through the CGO-free glebarez
// driver. The store also answers the two narrow questions the pipelines
// ask of it: does this knowledge base exist, and what was the original
// filename behind this stored one.
package metastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultKnowledgeBaseID is the id of the auto-created default knowledge
// base queries fall back to.
const DefaultKnowledgeBaseID int64 = 1

var (
	// ErrKnowledgeBaseNotFound is returned for an unknown knowledge-base id.
	ErrKnowledgeBaseNotFound = errors.New("knowledge base not found")

	// ErrDocumentNotFound is returned for an unknown document id.
	ErrDocumentNotFound = errors.New("document not found")
)

// KnowledgeBase is a named, isolated collection of documents.
type KnowledgeBase struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Document is the metadata record for one uploaded file. A record exists
// for every successful upload, including those whose text extraction
// failed; such documents are flagged rather than discarded.
type Document struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	OriginalFilename string    `gorm:"not null" json:"original_filename"`
	StoredFilename   string    `gorm:"not null;index" json:"stored_filename"`
	FilePath         string    `gorm:"not null" json:"file_path"`
	FileSize         int64     `json:"file_size"`
	UploadDate       time.Time `gorm:"autoCreateTime" json:"upload_date"`
	KnowledgeBaseID  int64     `gorm:"index" json:"knowledge_base_id"`
	ExtractionFailed bool      `json:"extraction_failed"`
}

// Store provides access to knowledge-base and document records.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the SQLite database at path, migrates
// the schema, and ensures the default knowledge base exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %s: %w", path, err)
	}

	if err := db.AutoMigrate(&KnowledgeBase{}, &Document{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.ensureDefault(); err != nil {
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// ensureDefault creates the default knowledge base when none exists.
// The system guarantees at least one knowledge base at all times.
func (s *Store) ensureDefault() error {
	var count int64
	if err := s.db.Model(&KnowledgeBase{}).Count(&count).Error; err != nil {
		return fmt.Errorf("counting knowledge bases: %w", err)
	}
	if count > 0 {
		return nil
	}

	kb := KnowledgeBase{
		ID:          DefaultKnowledgeBaseID,
		Name:        "Default Knowledge Base",
		Description: "System default knowledge base",
	}
	if err := s.db.Create(&kb).Error; err != nil {
		return fmt.Errorf("creating default knowledge base: %w", err)
	}
	s.logger.Info("created default knowledge base", zap.Int64("id", kb.ID))
	return nil
}

// CreateKnowledgeBase creates a new knowledge base.
func (s *Store) CreateKnowledgeBase(ctx context.Context, name, description string) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{Name: name, Description: description}
	if err := s.db.WithContext(ctx).Create(kb).Error; err != nil {
		return nil, fmt.Errorf("creating knowledge base: %w", err)
	}
	return kb, nil
}

// GetKnowledgeBase returns a knowledge base by id.
func (s *Store) GetKnowledgeBase(ctx context.Context, id int64) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	err := s.db.WithContext(ctx).First(&kb, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrKnowledgeBaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base %d: %w", id, err)
	}
	return &kb, nil
}

// ListKnowledgeBases returns all knowledge bases, oldest first.
func (s *Store) ListKnowledgeBases(ctx context.Context) ([]KnowledgeBase, error) {
	var kbs []KnowledgeBase
	if err := s.db.WithContext(ctx).Order("id").Find(&kbs).Error; err != nil {
		return nil, fmt.Errorf("listing knowledge bases: %w", err)
	}
	return kbs, nil
}

// DeleteKnowledgeBase removes a knowledge base row. Document rows and
// files are the caller's responsibility; the ingest service owns that
// cascade so the file system and vector store stay consistent.
func (s *Store) DeleteKnowledgeBase(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&KnowledgeBase{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting knowledge base %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrKnowledgeBaseNotFound, id)
	}
	return nil
}

// KnowledgeBaseExists reports whether a knowledge base exists.
func (s *Store) KnowledgeBaseExists(ctx context.Context, id int64) bool {
	var count int64
	if err := s.db.WithContext(ctx).Model(&KnowledgeBase{}).Where("id = ?", id).Count(&count).Error; err != nil {
		s.logger.Warn("knowledge base existence check failed", zap.Int64("id", id), zap.Error(err))
		return false
	}
	return count > 0
}

// SaveDocument inserts a document record and returns its id.
func (s *Store) SaveDocument(ctx context.Context, doc *Document) (int64, error) {
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return 0, fmt.Errorf("saving document metadata: %w", err)
	}
	return doc.ID, nil
}

// GetDocument returns a document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	var doc Document
	err := s.db.WithContext(ctx).First(&doc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading document %d: %w", id, err)
	}
	return &doc, nil
}

// ListDocuments returns documents, newest upload first. When kbID is
// non-zero only that knowledge base's documents are returned.
func (s *Store) ListDocuments(ctx context.Context, kbID int64) ([]Document, error) {
	q := s.db.WithContext(ctx).Order("upload_date DESC")
	if kbID != 0 {
		q = q.Where("knowledge_base_id = ?", kbID)
	}
	var docs []Document
	if err := q.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document row.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&Document{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting document %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrDocumentNotFound, id)
	}
	return nil
}

// LookupOriginalFilename resolves a stored filename back to the name the
// user uploaded the file under. The second return is false when no record
// matches.
func (s *Store) LookupOriginalFilename(ctx context.Context, storedFilename string) (string, bool) {
	var doc Document
	err := s.db.WithContext(ctx).Where("stored_filename = ?", storedFilename).First(&doc).Error
	if err != nil {
		return "", false
	}
	return doc.OriginalFilename, true
}
