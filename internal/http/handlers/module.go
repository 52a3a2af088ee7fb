package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type ModuleHandler struct {
	log   *logger.Logger
	study services.StudyService
}

func NewModuleHandler(log *logger.Logger, study services.StudyService) *ModuleHandler {
	return &ModuleHandler{log: log.With("handler", "ModuleHandler"), study: study}
}

// POST /api/courses/:courseId/modules/:moduleId/generate-quiz
func (h *ModuleHandler) GenerateQuiz(c *gin.Context) {
	quiz, err := h.study.GenerateQuiz(c.Request.Context(), c.Param("courseId"), c.Param("moduleId"))
	if err != nil {
		h.log.Error("GenerateQuiz failed", "error", err, "module_id", c.Param("moduleId"))
		response.RespondServiceError(c, "quiz_generation_failed", err)
		return
	}
	response.RespondOK(c, quiz)
}

// POST /api/courses/:courseId/modules/:moduleId/generate-flashcards
func (h *ModuleHandler) GenerateFlashcards(c *gin.Context) {
	cards, err := h.study.GenerateFlashcards(c.Request.Context(), c.Param("courseId"), c.Param("moduleId"))
	if err != nil {
		h.log.Error("GenerateFlashcards failed", "error", err, "module_id", c.Param("moduleId"))
		response.RespondServiceError(c, "flashcard_generation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"flashcards": cards})
}

type submitQuizRequest struct {
	Answers map[string]any `json:"answers"`
}

// POST /api/courses/:courseId/modules/:moduleId/quiz
func (h *ModuleHandler) SubmitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	// Only string answers can match a correct answer.
	answers := make(map[string]string, len(req.Answers))
	for id, v := range req.Answers {
		if s, ok := v.(string); ok {
			answers[id] = s
		}
	}
	res, err := h.study.SubmitQuiz(c.Request.Context(), c.Param("courseId"), c.Param("moduleId"), answers)
	if err != nil {
		response.RespondServiceError(c, "submit_quiz_failed", err)
		return
	}
	response.RespondOK(c, res)
}

type progressRequest struct {
	Completed bool `json:"completed"`
	TimeSpent int  `json:"timeSpent"`
}

// POST /api/courses/:courseId/modules/:moduleId/progress
func (h *ModuleHandler) UpdateProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	m, err := h.study.UpdateProgress(c.Request.Context(), c.Param("courseId"), c.Param("moduleId"), services.ProgressInput{
		Completed: req.Completed,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		response.RespondServiceError(c, "update_progress_failed", err)
		return
	}
	response.RespondOK(c, m)
}
