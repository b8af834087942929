package handler

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/mechai/internal/shop/service"
)

type PartHandler struct {
	svc *service.PartService
}

func NewPartHandler(svc *service.PartService) *PartHandler {
	return &PartHandler{svc: svc}
}

func (h *PartHandler) List(c *gin.Context) {
	parts, err := h.svc.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "list parts: "+err.Error())
		return
	}
	Success(c, gin.H{"items": parts})
}

func (h *PartHandler) Get(c *gin.Context) {
	part, err := h.svc.Get(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		serviceError(c, err, "part")
		return
	}
	Success(c, part)
}

type createPartRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create 创建零件
// POST /api/v1/parts  multipart: name, file, preview(svg)；或 JSON {name}
func (h *PartHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	userID := GetUserID(c)

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req createPartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid request: "+err.Error())
			return
		}
		part, err := h.svc.Create(ctx, userID, req.Name, nil, nil)
		if err != nil {
			serviceError(c, err, "create part")
			return
		}
		Created(c, part)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "cannot parse upload: "+err.Error())
		return
	}

	var uploads [2]*service.Upload
	for i, field := range []string{"file", "preview"} {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			InternalError(c, "read upload: "+err.Error())
			return
		}
		defer f.Close()
		uploads[i] = newUpload(headers[0], f)
	}
	if uploads[0] == nil {
		BadRequest(c, "no part file uploaded")
		return
	}

	part, err := h.svc.Create(ctx, userID, c.PostForm("name"), uploads[0], uploads[1])
	if errors.Is(err, service.ErrStorageUnavailable) {
		InternalError(c, err.Error())
		return
	}
	if err != nil {
		serviceError(c, err, "create part")
		return
	}
	Created(c, part)
}

func newUpload(h *multipart.FileHeader, f multipart.File) *service.Upload {
	return &service.Upload{
		FileName:    h.Filename,
		Size:        h.Size,
		ContentType: h.Header.Get("Content-Type"),
		Reader:      f,
	}
}
