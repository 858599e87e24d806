package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/marinesafe/safety-advisor/constants"
	"github.com/marinesafe/safety-advisor/internal/extract"
	"github.com/marinesafe/safety-advisor/internal/schema"
)

const similarRationale = "Selected from historical incidents with comparable vessel operations and event classification."

func (s *Server) handleIncidentUpload(c *gin.Context) {
	path, cleanup, ok := s.saveUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	rec, err := extract.Extract(c.Request.Context(), s.engine, schema.IncidentDescriptor, path)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handlePTWUpload(c *gin.Context) {
	path, cleanup, ok := s.saveUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	rec, err := extract.Extract(c.Request.Context(), s.engine, schema.PTWDescriptor, path)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// saveUpload pulls the "file" part out of the multipart form, rejects
// anything that is not named *.pdf, and spools the content to a temp file.
// The filename gate runs before any bytes are written to disk.
func (s *Server) saveUpload(c *gin.Context) (path string, cleanup func(), ok bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", nil, false
	}

	if !constants.IsPDFFilename(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF uploads are accepted"})
		return "", nil, false
	}

	dir, err := os.MkdirTemp("", "sa-upload-*")
	if err != nil {
		writeError(c, s.logger, fmt.Errorf("create upload dir: %w", err))
		return "", nil, false
	}
	cleanup = func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("http.upload_cleanup_failed", "dir", dir, "error", err)
		}
	}

	path = filepath.Join(dir, "upload.pdf")
	if err := c.SaveUploadedFile(header, path); err != nil {
		cleanup()
		writeError(c, s.logger, fmt.Errorf("save upload: %w", err))
		return "", nil, false
	}

	s.logger.Info("http.upload_received", "filename", header.Filename, "size", header.Size)
	return path, cleanup, true
}

func (s *Server) handleIncidentCreate(c *gin.Context) {
	var rec schema.Incident
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident payload"})
		return
	}

	stored, err := s.incidents.Insert(c.Request.Context(), rec)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (s *Server) handleIncidentList(c *gin.Context) {
	recs, err := s.incidents.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) handleIncidentGet(c *gin.Context) {
	rec, err := s.incidents.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleIncidentSimilar(c *gin.Context) {
	recs, err := s.incidents.GetSimilar(c.Request.Context())
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": recs, "rationale": similarRationale})
}

func (s *Server) handleIncidentExport(c *gin.Context) {
	data, err := s.exporter.ExportIncidentsXLSX(c.Request.Context())
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="incidents.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
