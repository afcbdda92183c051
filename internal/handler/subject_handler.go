package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studycycle/backend/internal/middleware"
	"studycycle/backend/internal/service"
)

type SubjectHandler struct {
	subjectService *service.SubjectService
}

type createSubjectRequest struct {
	Name            string `json:"name"`
	Color           string `json:"color"`
	TimeGoalMinutes int    `json:"timeGoalMinutes"`
	Order           *int   `json:"order"`
}

type updateSubjectRequest struct {
	Name            *string `json:"name"`
	Color           *string `json:"color"`
	TimeGoalMinutes *int    `json:"timeGoalMinutes"`
	Order           *int    `json:"order"`
}

func NewSubjectHandler(subjectService *service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectService: subjectService}
}

func (h *SubjectHandler) List(c *gin.Context) {
	subjects, apiErr := h.subjectService.List(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

func (h *SubjectHandler) Create(c *gin.Context) {
	var req createSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	subject, apiErr := h.subjectService.Create(c.Request.Context(), middleware.UserID(c), service.CreateSubjectInput{
		Name:            req.Name,
		Color:           req.Color,
		TimeGoalMinutes: req.TimeGoalMinutes,
		Order:           req.Order,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subject": subject})
}

func (h *SubjectHandler) Update(c *gin.Context) {
	var req updateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	subject, apiErr := h.subjectService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), service.UpdateSubjectInput{
		Name:            req.Name,
		Color:           req.Color,
		TimeGoalMinutes: req.TimeGoalMinutes,
		Order:           req.Order,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject": subject})
}

func (h *SubjectHandler) Delete(c *gin.Context) {
	if apiErr := h.subjectService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}
