package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/bitfantasy/mechai/internal/shop/entity"
	"github.com/bitfantasy/mechai/internal/shop/itinerary"
	"github.com/bitfantasy/mechai/internal/shop/repository"
)

// MachineService 机床服务
type MachineService struct {
	repo *repository.MachineRepository
}

func NewMachineService(repo *repository.MachineRepository) *MachineService {
	return &MachineService{repo: repo}
}

// CreateMachineRequest 创建机床请求
type CreateMachineRequest struct {
	Name          string  `json:"name" binding:"required"`
	Type          string  `json:"type" binding:"required"`
	AxisCount     int     `json:"axis_count"`
	SpindleSpeed  float64 `json:"spindle_speed"`
	EnvelopeX     float64 `json:"envelope_x"`
	EnvelopeY     float64 `json:"envelope_y"`
	EnvelopeZ     float64 `json:"envelope_z"`
	HourlyRate    float64 `json:"hourly_rate"`
	SetupCost     float64 `json:"setup_cost"`
	OperatingCost float64 `json:"operating_cost"`
}

func (s *MachineService) List(ctx context.Context, ownerID, machineType string) ([]entity.Machine, error) {
	return s.repo.List(ctx, ownerID, machineType)
}

func (s *MachineService) Get(ctx context.Context, ownerID, id string) (*entity.Machine, error) {
	return s.repo.FindByID(ctx, ownerID, id)
}

// Create 创建机床，类型必须属于受控词表
func (s *MachineService) Create(ctx context.Context, ownerID string, req *CreateMachineRequest) (*entity.Machine, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if !itinerary.IsMachineType(req.Type) {
		return nil, invalid("unknown machine type %q", req.Type)
	}
	if req.AxisCount < 0 {
		return nil, invalid("axis_count must not be negative")
	}
	for field, v := range map[string]float64{
		"spindle_speed":  req.SpindleSpeed,
		"envelope_x":     req.EnvelopeX,
		"envelope_y":     req.EnvelopeY,
		"envelope_z":     req.EnvelopeZ,
		"hourly_rate":    req.HourlyRate,
		"setup_cost":     req.SetupCost,
		"operating_cost": req.OperatingCost,
	} {
		if v < 0 {
			return nil, invalid("%s must not be negative", field)
		}
	}

	axes := req.AxisCount
	if axes == 0 {
		axes = 3
	}
	now := time.Now()
	machine := &entity.Machine{
		ID:            newID(),
		OwnerID:       ownerID,
		Name:          name,
		Type:          req.Type,
		AxisCount:     axes,
		SpindleSpeed:  req.SpindleSpeed,
		EnvelopeX:     req.EnvelopeX,
		EnvelopeY:     req.EnvelopeY,
		EnvelopeZ:     req.EnvelopeZ,
		HourlyRate:    req.HourlyRate,
		SetupCost:     req.SetupCost,
		OperatingCost: req.OperatingCost,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, machine); err != nil {
		return nil, fmt.Errorf("create machine: %w", err)
	}
	return machine, nil
}

// Delete 删除机床及其刀具
func (s *MachineService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// ToolingService 刀具与刀具类型服务
type ToolingService struct {
	toolRepo     *repository.ToolRepository
	toolTypeRepo *repository.ToolTypeRepository
	machineRepo  *repository.MachineRepository
}

func NewToolingService(toolRepo *repository.ToolRepository, toolTypeRepo *repository.ToolTypeRepository, machineRepo *repository.MachineRepository) *ToolingService {
	return &ToolingService{toolRepo: toolRepo, toolTypeRepo: toolTypeRepo, machineRepo: machineRepo}
}

// CreateToolRequest 创建刀具请求
type CreateToolRequest struct {
	MachineID       string            `json:"machine_id" binding:"required"`
	ToolTypeID      *string           `json:"tool_type_id"`
	Name            string            `json:"name" binding:"required"`
	Material        string            `json:"material"`
	Diameter        *float64          `json:"diameter"`
	Length          *float64          `json:"length"`
	LifeRemaining   *float64          `json:"life_remaining"`
	Cost            float64           `json:"cost"`
	ReplacementCost float64           `json:"replacement_cost"`
	Params          entity.ToolParams `json:"params"`
}

// CreateToolTypeRequest 创建刀具类型请求
type CreateToolTypeRequest struct {
	Name        string             `json:"name" binding:"required"`
	MachineType string             `json:"machine_type" binding:"required"`
	ParamSchema entity.ParamSchema `json:"param_schema"`
}

func (s *ToolingService) ListTools(ctx context.Context, ownerID, machineID string) ([]entity.Tool, error) {
	return s.toolRepo.ListWithMachine(ctx, ownerID, machineID)
}

// CreateTool 创建刀具。刀具只能挂在本人名下已存在的机床上；
// 指定刀具类型时，类型的机床类型必须与机床一致，参数必须符合类型定义
func (s *ToolingService) CreateTool(ctx context.Context, ownerID string, req *CreateToolRequest) (*entity.Tool, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}

	machine, err := s.machineRepo.FindByID(ctx, ownerID, req.MachineID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid("machine %s does not exist", req.MachineID)
	}
	if err != nil {
		return nil, fmt.Errorf("find machine: %w", err)
	}

	for field, v := range map[string]*float64{"diameter": req.Diameter, "length": req.Length} {
		if v != nil && *v <= 0 {
			return nil, invalid("%s must be positive", field)
		}
	}
	if req.LifeRemaining != nil && (*req.LifeRemaining < 0 || *req.LifeRemaining > 100) {
		return nil, invalid("life_remaining must be between 0 and 100")
	}
	if req.Cost < 0 || req.ReplacementCost < 0 {
		return nil, invalid("costs must not be negative")
	}

	params := req.Params
	if params == nil {
		params = entity.ToolParams{}
	}
	if req.ToolTypeID != nil && *req.ToolTypeID != "" {
		toolType, err := s.toolTypeRepo.FindByID(ctx, ownerID, *req.ToolTypeID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("tool type %s does not exist", *req.ToolTypeID)
		}
		if err != nil {
			return nil, fmt.Errorf("find tool type: %w", err)
		}
		if toolType.MachineType != machine.Type {
			return nil, invalid("tool type %q is for %s, machine %q is %s", toolType.Name, toolType.MachineType, machine.Name, machine.Type)
		}
		if err := params.CheckSchema(toolType.ParamSchema); err != nil {
			return nil, invalid("%v", err)
		}
	} else if len(params) > 0 {
		return nil, invalid("params require a tool_type_id")
	}

	now := time.Now()
	tool := &entity.Tool{
		ID:              newID(),
		OwnerID:         ownerID,
		MachineID:       machine.ID,
		Name:            name,
		Material:        req.Material,
		Diameter:        req.Diameter,
		Length:          req.Length,
		LifeRemaining:   req.LifeRemaining,
		Cost:            req.Cost,
		ReplacementCost: req.ReplacementCost,
		Params:          params,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.ToolTypeID != nil && *req.ToolTypeID != "" {
		tool.ToolTypeID = req.ToolTypeID
	}
	if err := s.toolRepo.Create(ctx, tool); err != nil {
		return nil, fmt.Errorf("create tool: %w", err)
	}
	tool.Machine = machine
	return tool, nil
}

func (s *ToolingService) DeleteTool(ctx context.Context, ownerID, id string) error {
	return s.toolRepo.Delete(ctx, ownerID, id)
}

func (s *ToolingService) ListToolTypes(ctx context.Context, ownerID, machineType string) ([]entity.ToolType, error) {
	return s.toolTypeRepo.List(ctx, ownerID, machineType)
}

// CreateToolType 创建刀具类型（参考目录）
func (s *ToolingService) CreateToolType(ctx context.Context, ownerID string, req *CreateToolTypeRequest) (*entity.ToolType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if !itinerary.IsMachineType(req.MachineType) {
		return nil, invalid("unknown machine type %q", req.MachineType)
	}
	seen := make(map[string]bool, len(req.ParamSchema))
	for _, f := range req.ParamSchema {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			return nil, invalid("parameter key is required")
		}
		if seen[key] {
			return nil, invalid("duplicate parameter %q", key)
		}
		seen[key] = true
		if f.Kind != entity.ParamNumber && f.Kind != entity.ParamText {
			return nil, invalid("parameter %q has unknown kind %q", key, f.Kind)
		}
	}

	schema := req.ParamSchema
	if schema == nil {
		schema = entity.ParamSchema{}
	}
	now := time.Now()
	toolType := &entity.ToolType{
		ID:          newID(),
		OwnerID:     ownerID,
		Name:        name,
		MachineType: req.MachineType,
		ParamSchema: schema,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.toolTypeRepo.Create(ctx, toolType); err != nil {
		return nil, fmt.Errorf("create tool type: %w", err)
	}
	return toolType, nil
}

// MaterialService 原材料服务
type MaterialService struct {
	repo *repository.MaterialRepository
}

func NewMaterialService(repo *repository.MaterialRepository) *MaterialService {
	return &MaterialService{repo: repo}
}

// CreateMaterialRequest 创建原材料请求
type CreateMaterialRequest struct {
	Name       string            `json:"name" binding:"required"`
	StockShape string            `json:"stock_shape" binding:"required"`
	Dimensions entity.Dimensions `json:"dimensions"`
	UnitCost   float64           `json:"unit_cost"`
}

func (s *MaterialService) List(ctx context.Context, ownerID string) ([]entity.Material, error) {
	return s.repo.List(ctx, ownerID)
}

// Create 创建原材料，尺寸必须恰好填写毛坯形状要求的字段且为正数
func (s *MaterialService) Create(ctx context.Context, ownerID string, req *CreateMaterialRequest) (*entity.Material, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	keys := entity.DimensionKeys(req.StockShape)
	if keys == nil {
		return nil, invalid("unknown stock shape %q", req.StockShape)
	}
	if err := checkDimensions(req.StockShape, keys, req.Dimensions); err != nil {
		return nil, err
	}
	if req.UnitCost < 0 {
		return nil, invalid("unit_cost must not be negative")
	}

	now := time.Now()
	material := &entity.Material{
		ID:         newID(),
		OwnerID:    ownerID,
		Name:       name,
		StockShape: req.StockShape,
		Dimensions: req.Dimensions,
		UnitCost:   req.UnitCost,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, material); err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	return material, nil
}

func checkDimensions(shape string, keys []string, dims entity.Dimensions) error {
	for _, k := range keys {
		v, ok := dims[k]
		if !ok {
			return invalid("%s stock requires %s", shape, strings.Join(keys, ", "))
		}
		if v <= 0 {
			return invalid("dimension %s must be positive", k)
		}
	}
	if len(dims) != len(keys) {
		var extra []string
		for k := range dims {
			if !slices.Contains(keys, k) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		return invalid("%s stock does not use %s", shape, strings.Join(extra, ", "))
	}
	return nil
}
