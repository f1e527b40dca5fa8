package api

import (
	"context"
	"net/http"

	"classroom/internal/service"
	v1 "classroom/pkg/api/v1"

	"github.com/gin-gonic/gin"
)

type ClassProvider interface {
	List(ctx context.Context, op *service.OperatorInfo) ([]v1.ClassItem, error)
	Get(ctx context.Context, op *service.OperatorInfo, id int64) (*v1.ClassItem, error)
	Create(ctx context.Context, op *service.OperatorInfo, in v1.ClassInput) (*v1.ClassItem, error)
	Update(ctx context.Context, op *service.OperatorInfo, id int64, in v1.ClassInput) (*v1.ClassItem, error)
	Delete(ctx context.Context, op *service.OperatorInfo, id int64) error
}

type ClassHandler struct {
	service ClassProvider
}

func NewClassHandler(service ClassProvider) *ClassHandler {
	return &ClassHandler{service: service}
}

func (h *ClassHandler) ListClasses(c *gin.Context) {
	ctx := c.Request.Context()
	items, err := h.service.List(ctx, service.GetOperatorInfo(ctx))
	if err != nil {
		writeError(c, err)
		return
	}
	paginate(c, items)
}

func (h *ClassHandler) GetClass(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := h.service.Get(ctx, service.GetOperatorInfo(ctx), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ClassHandler) CreateClass(c *gin.Context) {
	var in v1.ClassInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "JSON format error")
		return
	}
	ctx := c.Request.Context()
	item, err := h.service.Create(ctx, service.GetOperatorInfo(ctx), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *ClassHandler) UpdateClass(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in v1.ClassInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "JSON format error")
		return
	}
	ctx := c.Request.Context()
	item, err := h.service.Update(ctx, service.GetOperatorInfo(ctx), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ClassHandler) DeleteClass(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.service.Delete(ctx, service.GetOperatorInfo(ctx), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
