package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vehicle-spec-rag/internal/helper"
	"vehicle-spec-rag/internal/models"
	"vehicle-spec-rag/internal/parser"
	"vehicle-spec-rag/internal/rag"
	"vehicle-spec-rag/internal/transport/http/response"
)

type Querier interface {
	Query(ctx context.Context, query string) (*rag.QueryResponse, error)
}

type Ingester interface {
	Ingest(ctx context.Context, path, collection string) (*rag.IngestReport, error)
}

type RAGHandler struct {
	querier    Querier
	ingester   Ingester
	collection string
	dataDir    string
	maxUpload  int64
}

type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// UploadResult is the data of a successful upload.
type UploadResult struct {
	Filename string            `json:"filename"`
	Chunks   int               `json:"chunks"`
	Report   *rag.IngestReport `json:"report"`
}

func NewRAGHandler(querier Querier, ingester Ingester, collection, dataDir string, maxUploadMB int) *RAGHandler {
	return &RAGHandler{
		querier:    querier,
		ingester:   ingester,
		collection: collection,
		dataDir:    dataDir,
		maxUpload:  int64(maxUploadMB) << 20,
	}
}

func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.querier.Query(c.Request.Context(), req.Query)
	if err != nil {
		writeError(c, err, "query failed")
		return
	}
	response.OK(c, result)
}

// Upload rebuilds the collection from the multipart "file". The file is kept
// under the data directory only once ingestion succeeds; a failed upload leaves
// the previously kept file of the same name alone.
func (h *RAGHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if h.maxUpload > 0 && file.Size > h.maxUpload {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge,
			fmt.Sprintf("file too large (max %dMB)", h.maxUpload>>20))
		return
	}
	name := filepath.Base(file.Filename)
	if name == "." || name == string(filepath.Separator) || !parser.Supported(name) {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupported, "unsupported file type: "+file.Filename)
		return
	}

	if err := helper.CreateFolder(h.dataDir); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to save file")
		return
	}
	// staged under its own name so passages keep the uploaded file name
	stageDir, err := os.MkdirTemp(h.dataDir, ".upload-")
	if err != nil {
		log.Error().Err(err).Str("dir", h.dataDir).Msg("Failed to create staging folder")
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to save file")
		return
	}
	defer os.RemoveAll(stageDir)

	staged := filepath.Join(stageDir, name)
	if err := c.SaveUploadedFile(file, staged); err != nil {
		log.Error().Err(err).Str("file", staged).Msg("Failed to save upload")
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to save file")
		return
	}

	report, err := h.ingester.Ingest(c.Request.Context(), staged, h.collection)
	if err != nil {
		writeError(c, err, "ingest failed")
		return
	}

	dst := filepath.Join(h.dataDir, name)
	if err := os.Rename(staged, dst); err != nil {
		log.Error().Err(err).Str("file", dst).Msg("Failed to keep ingested upload")
	}

	response.OKWithMessage(c,
		fmt.Sprintf("Successfully processed '%s'. Index rebuilt with %d chunks.", name, report.Chunks),
		UploadResult{Filename: name, Chunks: report.Chunks, Report: report},
	)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, rag.ErrEmptyQuery):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, models.ErrNoPassages):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeNoPassages, err.Error())
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrExtraction):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeUnprocessable, err.Error())
	case errors.Is(err, models.ErrEmbeddingService), errors.Is(err, models.ErrEmptyCompletion):
		log.Error().Err(err).Msg(fallback)
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, fallback+": "+err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
