package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/embeddings"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/ingest"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/llm"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/metastore"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/rag"
)

// EmbedResponse is the response body for POST /embed.
type EmbedResponse struct {
	DocumentID       int64  `json:"document_id"`
	StoredFilename   string `json:"stored_filename"`
	Chunks           int    `json:"chunks"`
	ExtractionFailed bool   `json:"extraction_failed"`
}

// CreateKnowledgeBaseRequest is the request body for POST /knowledge-bases.
type CreateKnowledgeBaseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleEmbed ingests one uploaded PDF into a knowledge base. The file
// arrives as multipart field "file"; field "kb_id" selects the target
// knowledge base and defaults to the system default.
func (s *Server) handleEmbed(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	kbID := int64(metastore.DefaultKnowledgeBaseID)
	if raw := c.FormValue("kb_id"); raw != "" {
		kbID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "kb_id must be an integer")
		}
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer f.Close()

	result, err := s.ingestor.Ingest(c.Request().Context(), kbID, fileHeader.Filename, f)
	if err != nil {
		return s.mapError(c, err)
	}

	s.logger.Info("document ingested",
		zap.Int64("document_id", result.DocumentID),
		zap.Int64("kb_id", kbID),
		zap.Int("chunks", result.Chunks),
		zap.Bool("extraction_failed", result.ExtractionFailed),
	)
	return c.JSON(http.StatusCreated, EmbedResponse{
		DocumentID:       result.DocumentID,
		StoredFilename:   result.StoredFilename,
		Chunks:           result.Chunks,
		ExtractionFailed: result.ExtractionFailed,
	})
}

// handleQuery answers a question from a knowledge base.
func (s *Server) handleQuery(c echo.Context) error {
	var req rag.QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	answer, err := s.querier.Query(c.Request().Context(), req)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, answer)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	var kbID int64
	if raw := c.QueryParam("kb_id"); raw != "" {
		var err error
		kbID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "kb_id must be an integer")
		}
	}

	docs, err := s.meta.ListDocuments(c.Request().Context(), kbID)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleGetDocument(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	doc, err := s.meta.GetDocument(c.Request().Context(), id)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// handleDownloadDocument serves the stored original under the filename
// the user uploaded it with.
func (s *Server) handleDownloadDocument(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	doc, err := s.meta.GetDocument(c.Request().Context(), id)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.Attachment(doc.FilePath, doc.OriginalFilename)
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.ingestor.DeleteDocument(c.Request().Context(), id); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListKnowledgeBases(c echo.Context) error {
	kbs, err := s.meta.ListKnowledgeBases(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, kbs)
}

func (s *Server) handleCreateKnowledgeBase(c echo.Context) error {
	var req CreateKnowledgeBaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name field is required")
	}

	kb, err := s.meta.CreateKnowledgeBase(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, kb)
}

// KnowledgeBaseResponse is the response body for GET /knowledge-bases/:id.
type KnowledgeBaseResponse struct {
	metastore.KnowledgeBase
	DocumentCount int `json:"document_count"`
}

func (s *Server) handleGetKnowledgeBase(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	kb, err := s.meta.GetKnowledgeBase(c.Request().Context(), id)
	if err != nil {
		return s.mapError(c, err)
	}
	docs, err := s.meta.ListDocuments(c.Request().Context(), id)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, KnowledgeBaseResponse{
		KnowledgeBase: *kb,
		DocumentCount: len(docs),
	})
}

// handleDeleteKnowledgeBase removes a knowledge base together with its
// documents, stored files, and vector collection.
func (s *Server) handleDeleteKnowledgeBase(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.ingestor.DeleteKnowledgeBase(c.Request().Context(), id); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// mapError translates service errors into HTTP status codes. Unmatched
// errors become opaque 500s; the detail stays in the log.
func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, metastore.ErrKnowledgeBaseNotFound),
		errors.Is(err, metastore.ErrDocumentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ingest.ErrUnsupportedFile):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, embeddings.ErrUnavailable),
		errors.Is(err, llm.ErrGenerationFailed):
		return echo.NewHTTPError(http.StatusBadGateway, "model backend unavailable")
	default:
		s.logger.Error("request failed",
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}
	return id, nil
}
