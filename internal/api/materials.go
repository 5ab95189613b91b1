package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxMaterialSize = 50 << 20

func (h *Handler) UploadMaterial(c *gin.Context) {
	if h.materials == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage not configured"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMaterialSize)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	m, err := h.materials.Upload(c.Request.Context(), c.Param("id"), claims(c).Subject,
		c.PostForm("title"), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMaterials(c *gin.Context) {
	if h.materials == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage not configured"})
		return
	}
	list, err := h.materials.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"materials": list})
}
