package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/mechai/internal/shop/service"
)

type MachineHandler struct {
	svc *service.MachineService
}

func NewMachineHandler(svc *service.MachineService) *MachineHandler {
	return &MachineHandler{svc: svc}
}

// List GET /api/v1/machines?type=
func (h *MachineHandler) List(c *gin.Context) {
	machines, err := h.svc.List(c.Request.Context(), GetUserID(c), c.Query("type"))
	if err != nil {
		InternalError(c, "list machines: "+err.Error())
		return
	}
	Success(c, gin.H{"items": machines})
}

func (h *MachineHandler) Create(c *gin.Context) {
	var req service.CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	machine, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		serviceError(c, err, "create machine")
		return
	}
	Created(c, machine)
}

func (h *MachineHandler) Get(c *gin.Context) {
	machine, err := h.svc.Get(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		serviceError(c, err, "machine")
		return
	}
	Success(c, machine)
}

// Delete 删除机床（同时删除其刀具）
func (h *MachineHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		serviceError(c, err, "machine")
		return
	}
	Success(c, nil)
}

type ToolingHandler struct {
	svc *service.ToolingService
}

func NewToolingHandler(svc *service.ToolingService) *ToolingHandler {
	return &ToolingHandler{svc: svc}
}

// ListTools GET /api/v1/tools?machine_id=
func (h *ToolingHandler) ListTools(c *gin.Context) {
	tools, err := h.svc.ListTools(c.Request.Context(), GetUserID(c), c.Query("machine_id"))
	if err != nil {
		InternalError(c, "list tools: "+err.Error())
		return
	}
	Success(c, gin.H{"items": tools})
}

func (h *ToolingHandler) CreateTool(c *gin.Context) {
	var req service.CreateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	tool, err := h.svc.CreateTool(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		serviceError(c, err, "create tool")
		return
	}
	Created(c, tool)
}

func (h *ToolingHandler) DeleteTool(c *gin.Context) {
	if err := h.svc.DeleteTool(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		serviceError(c, err, "tool")
		return
	}
	Success(c, nil)
}

// ListToolTypes GET /api/v1/tool-types?machine_type=
func (h *ToolingHandler) ListToolTypes(c *gin.Context) {
	types, err := h.svc.ListToolTypes(c.Request.Context(), GetUserID(c), c.Query("machine_type"))
	if err != nil {
		InternalError(c, "list tool types: "+err.Error())
		return
	}
	Success(c, gin.H{"items": types})
}

func (h *ToolingHandler) CreateToolType(c *gin.Context) {
	var req service.CreateToolTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	toolType, err := h.svc.CreateToolType(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		serviceError(c, err, "create tool type")
		return
	}
	Created(c, toolType)
}

type MaterialHandler struct {
	svc *service.MaterialService
}

func NewMaterialHandler(svc *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{svc: svc}
}

func (h *MaterialHandler) List(c *gin.Context) {
	materials, err := h.svc.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "list materials: "+err.Error())
		return
	}
	Success(c, gin.H{"items": materials})
}

func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	material, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		serviceError(c, err, "create material")
		return
	}
	Created(c, material)
}
