package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/mechai/internal/shop/itinerary"
	"github.com/bitfantasy/mechai/internal/shop/repository"
	"github.com/bitfantasy/mechai/internal/shop/service"
)

type ItineraryHandler struct {
	svc *service.ItineraryService
}

func NewItineraryHandler(svc *service.ItineraryService) *ItineraryHandler {
	return &ItineraryHandler{svc: svc}
}

// Generate 生成零件加工行程
// POST /api/v1/parts/:id/itinerary
// 成功: {"success": true, "itinerary": {...}}；失败: {"error": "...", "details": ...}
func (h *ItineraryHandler) Generate(c *gin.Context) {
	it, err := h.svc.Generate(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		generationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "itinerary": it})
}

func generationError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, itinerary.ErrGenerationInProgress):
		status = http.StatusConflict
	case errors.Is(err, itinerary.ErrInventoryFetchFailed) && errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "part not found"})
		return
	case errors.Is(err, itinerary.ErrModelInvocationFailed), errors.Is(err, itinerary.ErrModelResponseUnparseable):
		status = http.StatusBadGateway
	}

	body := gin.H{"error": err.Error()}
	var failure *itinerary.StageError
	if errors.As(err, &failure) {
		body["error"] = failure.Kind.Error()
		switch {
		case failure.Details != nil:
			body["details"] = failure.Details
		case failure.Err != nil:
			body["details"] = failure.Err.Error()
		}
	}
	c.JSON(status, body)
}

// Latest GET /api/v1/parts/:id/itinerary
func (h *ItineraryHandler) Latest(c *gin.Context) {
	it, err := h.svc.Latest(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		serviceError(c, err, "itinerary")
		return
	}
	Success(c, it)
}

// History GET /api/v1/parts/:id/itineraries
func (h *ItineraryHandler) History(c *gin.Context) {
	items, err := h.svc.History(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		serviceError(c, err, "part")
		return
	}
	Success(c, gin.H{"items": items})
}

// Export 导出行程 xlsx
// GET /api/v1/itineraries/:id/export
func (h *ItineraryHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.Export(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		serviceError(c, err, "itinerary")
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Header("Content-Transfer-Encoding", "binary")
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
