package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
	studyService  services.StudyService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService, studyService services.StudyService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
		studyService:  studyService,
	}
}

// GET /api/courses
func (h *CourseHandler) ListUserCourses(c *gin.Context) {
	courses, err := h.courseService.List(c.Request.Context())
	if err != nil {
		h.log.Error("ListUserCourses failed", "error", err)
		response.RespondServiceError(c, "load_courses_failed", err)
		return
	}
	response.RespondOK(c, courses)
}

// GET /api/courses/:courseId
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courseService.Get(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.RespondServiceError(c, "load_course_failed", err)
		return
	}
	response.RespondOK(c, course)
}

// GET /api/courses/:courseId/export/:format
func (h *CourseHandler) Export(c *gin.Context) {
	ack, err := h.studyService.Export(c.Request.Context(), c.Param("courseId"), c.Param("format"))
	if err != nil {
		response.RespondServiceError(c, "export_failed", err)
		return
	}
	response.RespondOK(c, ack)
}
