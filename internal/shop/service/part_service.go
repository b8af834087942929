package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitfantasy/mechai/internal/shared/storage"
	"github.com/bitfantasy/mechai/internal/shop/entity"
	"github.com/bitfantasy/mechai/internal/shop/repository"
)

// ErrStorageUnavailable is returned when a file is uploaded but no file store
// is configured.
var ErrStorageUnavailable = errors.New("file storage is not configured")

// PartService 零件服务
type PartService struct {
	repo  *repository.PartRepository
	files *storage.Store
}

func NewPartService(repo *repository.PartRepository, files *storage.Store) *PartService {
	return &PartService{repo: repo, files: files}
}

// Upload is one file of a multipart part upload.
type Upload struct {
	FileName    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

func (s *PartService) List(ctx context.Context, ownerID string) ([]entity.Part, error) {
	return s.repo.List(ctx, ownerID)
}

func (s *PartService) Get(ctx context.Context, ownerID, id string) (*entity.Part, error) {
	return s.repo.FindByID(ctx, ownerID, id)
}

// Create 创建零件，上传原始文件与可选的 SVG 预览
func (s *PartService) Create(ctx context.Context, ownerID, name string, file, preview *Upload) (*entity.Part, error) {
	name = strings.TrimSpace(name)
	if name == "" && file != nil {
		name = strings.TrimSuffix(filepath.Base(file.FileName), filepath.Ext(file.FileName))
	}
	if name == "" {
		return nil, invalid("name is required")
	}
	if preview != nil && !isSVG(preview) {
		return nil, invalid("preview must be an SVG file")
	}
	if (file != nil || preview != nil) && s.files == nil {
		return nil, ErrStorageUnavailable
	}

	part := &entity.Part{
		ID:         newID(),
		OwnerID:    ownerID,
		Name:       name,
		UploadedAt: time.Now(),
	}
	if file != nil {
		key, err := s.files.Put(ctx, "parts", file.FileName, file.Reader, file.Size, file.ContentType)
		if err != nil {
			return nil, fmt.Errorf("store part file: %w", err)
		}
		fileName := filepath.Base(file.FileName)
		part.FileKey, part.FileName = &key, &fileName
	}
	if preview != nil {
		key, err := s.files.Put(ctx, "previews", preview.FileName, preview.Reader, preview.Size, "image/svg+xml")
		if err != nil {
			return nil, fmt.Errorf("store preview: %w", err)
		}
		part.PreviewKey = &key
	}

	if err := s.repo.Create(ctx, part); err != nil {
		return nil, fmt.Errorf("create part: %w", err)
	}
	return part, nil
}

func isSVG(u *Upload) bool {
	return strings.EqualFold(filepath.Ext(u.FileName), ".svg") || strings.HasPrefix(u.ContentType, "image/svg+xml")
}
