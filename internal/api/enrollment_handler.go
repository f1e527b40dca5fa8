package api

import (
	"net/http"
	"strconv"

	"classroom/internal/service"
	v1 "classroom/pkg/api/v1"

	"github.com/gin-gonic/gin"
)

type EnrollmentHandler struct {
	svc *service.EnrollmentService
}

func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{svc: svc}
}

// ListEnrollments honours an optional ?class_ref= filter.
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	var classID int64
	if raw := c.Query("class_ref"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "class_ref must be an integer")
			return
		}
		classID = id
	}
	ctx := c.Request.Context()
	list, err := h.svc.List(ctx, service.GetOperatorInfo(ctx), classID)
	if err != nil {
		writeError(c, err)
		return
	}
	paginate(c, list)
}

func (h *EnrollmentHandler) CreateEnrollment(c *gin.Context) {
	var in v1.EnrollmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "JSON format error")
		return
	}
	ctx := c.Request.Context()
	e, err := h.svc.Create(ctx, service.GetOperatorInfo(ctx), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *EnrollmentHandler) DeleteEnrollment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.svc.Delete(ctx, service.GetOperatorInfo(ctx), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EnrollmentHandler) DeleteByClass(c *gin.Context) {
	classID, ok := pathID(c, "classId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.svc.DeleteByClass(ctx, service.GetOperatorInfo(ctx), classID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EnrollmentHandler) DeleteByClassAndStudent(c *gin.Context) {
	classID, ok := pathID(c, "classId")
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.svc.DeleteByClassAndStudent(ctx, service.GetOperatorInfo(ctx), classID, studentID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
