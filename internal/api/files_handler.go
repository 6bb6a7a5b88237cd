package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studenthub/portal/internal/storage"
)

// FilesHandler serves stored blobs under /uploads/<rel-path>.
type FilesHandler struct {
	fileStorage storage.FileStorage
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(fileStorage storage.FileStorage) *FilesHandler {
	return &FilesHandler{fileStorage: fileStorage}
}

// Serve streams the blob at the requested relative path. Traversal
// attempts and missing files both get the same generic not-found
// response so nothing about the storage layout leaks.
func (h *FilesHandler) Serve(c *gin.Context) {
	objectKey := strings.TrimPrefix(c.Param("filepath"), "/")

	if err := storage.ValidateObjectKey(objectKey); err != nil {
		h.notFound(c)
		return
	}

	rc, err := h.fileStorage.Open(c.Request.Context(), objectKey)
	if err != nil {
		h.notFound(c)
		return
	}
	defer rc.Close()

	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *FilesHandler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "File not found"})
}
