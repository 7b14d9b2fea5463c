package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/service"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/validation"
	"github.com/ad-tracker/watch-history-analyzer-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	uploadField   = "file"
	defaultSource = "watch-history.html"
)

// ImportHandler accepts watch-history uploads.
type ImportHandler struct {
	importService *service.ImportService
	validator     *validation.Validator
}

// NewImportHandler creates a new ImportHandler instance.
func NewImportHandler(importService *service.ImportService, validator *validation.Validator) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		validator:     validator,
	}
}

// HandleImport replaces the current snapshot with the uploaded document. The
// document is either the "file" field of a multipart form or the raw body.
func (h *ImportHandler) HandleImport(c *gin.Context) {
	var (
		source      string
		contentType string
		size        int64
		body        io.Reader
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		header, err := c.FormFile(uploadField)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Missing upload field \""+uploadField+"\": "+err.Error(), "")
			return
		}

		file, err := header.Open()
		if err != nil {
			handleError(c, &service.ProcessingError{Message: "failed to open upload", Cause: err})
			return
		}
		defer file.Close()

		source = header.Filename
		contentType = header.Header.Get("Content-Type")
		size = header.Size
		body = file
	} else {
		source = c.DefaultQuery("name", defaultSource)
		contentType = c.ContentType()
		size = c.Request.ContentLength
		body = c.Request.Body
	}

	if err := h.validator.ValidateUpload(source, contentType, size); err != nil {
		handleError(c, &service.ValidationError{Message: err.Error()})
		return
	}

	logger.Log.Info("Received history upload",
		zap.String("source", source),
		zap.Int64("size", size),
		zap.String("clientIp", c.ClientIP()),
	)

	response, err := h.importService.Import(c.Request.Context(), source, body)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetCurrent describes the current import without its statistics.
func (h *ImportHandler) GetCurrent(c *gin.Context) {
	snap, err := h.importService.Current()
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"importId":   snap.ImportID,
		"source":     snap.Source,
		"importedAt": snap.ImportedAt,
		"report":     snap.Report,
	})
}
