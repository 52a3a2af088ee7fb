package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type JobHandler struct {
	log  *logger.Logger
	jobs services.JobService
}

func NewJobHandler(log *logger.Logger, jobs services.JobService) *JobHandler {
	return &JobHandler{log: log.With("handler", "JobHandler"), jobs: jobs}
}

// POST /api/design-course/:uploadId
func (h *JobHandler) DesignCourse(c *gin.Context) {
	st, err := h.jobs.DesignCourse(c.Request.Context(), c.Param("uploadId"))
	if err != nil {
		response.RespondServiceError(c, "design_course_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"id":       st.ID,
		"status":   st.Status,
		"progress": st.Progress,
		"message":  st.Message,
	})
}

// GET /api/processing/:jobId
func (h *JobHandler) GetProcessing(c *gin.Context) {
	st, err := h.jobs.Status(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.RespondServiceError(c, "job_not_found", err)
		return
	}
	response.RespondOK(c, st)
}
