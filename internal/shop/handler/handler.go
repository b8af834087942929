package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/mechai/internal/shop/repository"
	"github.com/bitfantasy/mechai/internal/shop/service"
	"github.com/bitfantasy/mechai/internal/shop/sse"
)

// Handlers 处理器集合
type Handlers struct {
	Machine   *MachineHandler
	Tooling   *ToolingHandler
	Material  *MaterialHandler
	Part      *PartHandler
	Itinerary *ItineraryHandler
	SSE       *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Machine:   NewMachineHandler(svc.Machine),
		Tooling:   NewToolingHandler(svc.Tooling),
		Material:  NewMaterialHandler(svc.Material),
		Part:      NewPartHandler(svc.Part),
		Itinerary: NewItineraryHandler(svc.Itinerary),
		SSE:       NewSSEHandler(hub),
	}
}

// Register mounts every shop route on an authenticated group.
func (h *Handlers) Register(api *gin.RouterGroup) {
	machines := api.Group("/machines")
	{
		machines.GET("", h.Machine.List)
		machines.POST("", h.Machine.Create)
		machines.GET("/:id", h.Machine.Get)
		machines.DELETE("/:id", h.Machine.Delete)
	}

	toolTypes := api.Group("/tool-types")
	{
		toolTypes.GET("", h.Tooling.ListToolTypes)
		toolTypes.POST("", h.Tooling.CreateToolType)
	}

	tools := api.Group("/tools")
	{
		tools.GET("", h.Tooling.ListTools)
		tools.POST("", h.Tooling.CreateTool)
		tools.DELETE("/:id", h.Tooling.DeleteTool)
	}

	materials := api.Group("/materials")
	{
		materials.GET("", h.Material.List)
		materials.POST("", h.Material.Create)
	}

	parts := api.Group("/parts")
	{
		parts.GET("", h.Part.List)
		parts.POST("", h.Part.Create)
		parts.GET("/:id", h.Part.Get)
		parts.POST("/:id/itinerary", h.Itinerary.Generate)
		parts.GET("/:id/itinerary", h.Itinerary.Latest)
		parts.GET("/:id/itineraries", h.Itinerary.History)
	}

	api.GET("/itineraries/:id/export", h.Itinerary.Export)
	api.GET("/sse/events", h.SSE.Stream)
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// serviceError maps validation and lookup failures to 400/404, anything else to 500.
func serviceError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, what+" not found")
	default:
		InternalError(c, what+": "+err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
