package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/logger"
)

// CourseHeader forces the course of a chat completion.
const CourseHeader = "X-Loom-Course"

type courseResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Guardrails string    `json:"guardrails"`
	CreatedAt  time.Time `json:"created_at"`
}

func toCourseResponse(c *domain.Course) courseResponse {
	return courseResponse{
		ID:         c.ID,
		Name:       c.Name,
		Guardrails: c.Guardrails,
		CreatedAt:  c.CreatedAt,
	}
}

type documentResponse struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Filename  string    `json:"filename"`
	SHA256    string    `json:"sha256"`
	Bytes     int64     `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type listResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

type courseUpdateRequest struct {
	Name       *string `json:"name"`
	Guardrails *string `json:"guardrails"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) listModels(c *gin.Context) {
	models, err := s.services.Catalog.ListModels(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse[domain.ModelInfo]{Object: "list", Data: models})
}

func (s *Server) ingest(c *gin.Context) {
	if c.Request.ContentLength > s.cfg.MaxUploadBytes {
		abortWithError(c, http.StatusRequestEntityTooLarge, errTypeInvalidRequest, "file_too_large",
			"Uploaded file is too large.")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	courseID := strings.TrimSpace(c.PostForm("course_id"))
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, http.StatusRequestEntityTooLarge, errTypeInvalidRequest, "file_too_large",
				"Uploaded file is too large.")
			return
		}
		abortWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "missing_file",
			"A multipart field named file is required.")
		return
	}
	if courseID == "" {
		abortWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "missing_course",
			"A course_id form field is required.")
		return
	}

	f, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := s.services.Ingest.Ingest(c.Request.Context(), domain.IngestInput{
		CourseID: courseID,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	s.metrics.observeIngest(result.Chunks, result.VectorUpserts)
	c.JSON(http.StatusOK, result)
}

func (s *Server) chatCompletions(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "invalid_json",
			"Request body must be a JSON chat completion request.")
		return
	}
	if req.Stream {
		logger.Debug("request %s: stream requested, answering in one response", requestID(c))
	}

	resp, err := s.services.Chat.Complete(c.Request.Context(), req, forcedCourse(c))
	s.metrics.observeChat(err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// forcedCourse reads the course from the path, then the query, then the header.
func forcedCourse(c *gin.Context) string {
	if id := strings.TrimSpace(c.Param("course_id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.Query("course_id")); id != "" {
		return id
	}
	return strings.TrimSpace(c.GetHeader(CourseHeader))
}

func (s *Server) listCourses(c *gin.Context) {
	courses, err := s.services.Catalog.ListCourses(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	data := make([]courseResponse, 0, len(courses))
	for i := range courses {
		data = append(data, toCourseResponse(&courses[i]))
	}
	c.JSON(http.StatusOK, listResponse[courseResponse]{Object: "list", Data: data})
}

func (s *Server) getCourse(c *gin.Context) {
	course, err := s.services.Catalog.GetCourse(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourseResponse(course))
}

func (s *Server) updateCourse(c *gin.Context) {
	var req courseUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "invalid_json",
			"Request body must be a JSON object with name or guardrails.")
		return
	}
	course, err := s.services.Catalog.UpdateCourse(c.Request.Context(), c.Param("course_id"), domain.CourseUpdate{
		Name:       req.Name,
		Guardrails: req.Guardrails,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourseResponse(course))
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.services.Catalog.ListDocuments(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	data := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		data = append(data, documentResponse{
			ID:        d.ID,
			CourseID:  d.CourseID,
			Filename:  d.Filename,
			SHA256:    d.SHA256,
			Bytes:     d.Bytes,
			CreatedAt: d.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, listResponse[documentResponse]{Object: "list", Data: data})
}
