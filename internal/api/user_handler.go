package api

import (
	"net/http"

	"classroom/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) Students(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.svc.Students(ctx, service.GetOperatorInfo(ctx), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *UserHandler) Instructors(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.svc.Instructors(ctx, service.GetOperatorInfo(ctx), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
