package server

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/homedash/homedash/internal/icons"
)

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

const maxPhotoSize = 20 << 20 // 20 MiB

func (s *Server) registerPhotoRoutes() {
	s.engine.GET("/api/photos", s.listPhotosHandler)
	s.engine.POST("/api/photos", s.uploadPhotoHandler)
	s.engine.GET("/api/photos/:name", s.getPhotoHandler)
	s.engine.DELETE("/api/photos/:name", s.deletePhotoHandler)
}

// photoPath resolves a client-supplied name inside the photos directory,
// rejecting traversal and unknown extensions.
func (s *Server) photoPath(name string) (string, bool) {
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." {
		return "", false
	}

	if !photoExtensions[strings.ToLower(filepath.Ext(base))] {
		return "", false
	}

	return filepath.Join(s.opts.PhotosDir, base), true
}

func (s *Server) listPhotosHandler(c *gin.Context) {
	entries, err := os.ReadDir(s.opts.PhotosDir)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusOK, gin.H{"photos": []string{}})

			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	photos := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !photoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		photos = append(photos, entry.Name())
	}

	sort.Strings(photos)

	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

func (s *Server) uploadPhotoHandler(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing photo form field"})

		return
	}

	if file.Size > maxPhotoSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo too large"})

		return
	}

	path, ok := s.photoPath(file.Filename)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo name"})

		return
	}

	if err := os.MkdirAll(s.opts.PhotosDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	s.pr.Infof("%s photo saved: %s", icons.Camera, filepath.Base(path))

	c.JSON(http.StatusCreated, gin.H{"name": filepath.Base(path)})
}

func (s *Server) getPhotoHandler(c *gin.Context) {
	path, ok := s.photoPath(c.Param("name"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo name"})

		return
	}

	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such photo"})

		return
	}

	c.File(path)
}

func (s *Server) deletePhotoHandler(c *gin.Context) {
	path, ok := s.photoPath(c.Param("name"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo name"})

		return
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such photo"})

			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	s.pr.Infof("%s photo deleted: %s", icons.Camera, filepath.Base(path))

	c.Status(http.StatusNoContent)
}
