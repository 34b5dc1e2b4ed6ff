package handler

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/response"
	"github.com/zimlearn/console-api/pkg/storage"
)

// FileHandler serves stored objects behind signed URLs.
type FileHandler struct {
	store  *storage.ObjectStore
	signer *storage.SignedURLSigner
	logger *zap.Logger
}

// NewFileHandler creates a new handler.
func NewFileHandler(store *storage.ObjectStore, signer *storage.SignedURLSigner, logger *zap.Logger) *FileHandler {
	return &FileHandler{store: store, signer: signer, logger: logger}
}

// Serve godoc
// @Summary Serve a stored file
// @Description Requires a valid signed token; the token pins both bucket and path
// @Tags Files
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{bucket}/{path} [get]
func (h *FileHandler) Serve(c *gin.Context) {
	bucket := c.Param("bucket")
	relPath := strings.TrimPrefix(c.Param("path"), "/")

	tokenBucket, tokenPath, _, err := h.signer.Parse(c.Query("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired file token"))
		return
	}
	if tokenBucket != bucket || tokenPath != relPath {
		h.logger.Warn("signed token does not match requested object",
			zap.String("bucket", bucket),
			zap.String("path", relPath))
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token does not match the requested file"))
		return
	}

	file, err := h.store.Open(bucket, relPath)
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(relPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, filepath.Base(relPath), info.ModTime(), file)
}
