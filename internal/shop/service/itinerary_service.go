package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/bitfantasy/mechai/internal/llm"
	"github.com/bitfantasy/mechai/internal/shared/storage"
	"github.com/bitfantasy/mechai/internal/shop/entity"
	"github.com/bitfantasy/mechai/internal/shop/itinerary"
	"github.com/bitfantasy/mechai/internal/shop/repository"
	"github.com/bitfantasy/mechai/internal/shop/sse"
)

const responseExcerptRunes = 500

// ItineraryOptions configures an ItineraryService.
type ItineraryOptions struct {
	Generator llm.Generator
	Files     *storage.Store
	Locker    Locker
	Hub       *sse.Hub
	LockTTL   time.Duration
	Logger    *zap.Logger
}

// ItineraryService 加工行程生成服务
type ItineraryService struct {
	repos   *repository.Repositories
	gen     llm.Generator
	files   *storage.Store
	locker  Locker
	hub     *sse.Hub
	lockTTL time.Duration
	logger  *zap.Logger
}

func NewItineraryService(repos *repository.Repositories, opts ItineraryOptions) *ItineraryService {
	if opts.Locker == nil {
		opts.Locker = NewMemoryLocker()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	return &ItineraryService{
		repos:   repos,
		gen:     opts.Generator,
		files:   opts.Files,
		locker:  opts.Locker,
		hub:     opts.Hub,
		lockTTL: opts.LockTTL,
		logger:  opts.Logger,
	}
}

func lockKey(ownerID, partID string) string {
	return "itinerary:lock:" + ownerID + ":" + partID
}

// Generate runs one generation request for a part: load the inventory, compose
// the prompt, call the model, normalize and validate the answer, then store it.
// Any failure aborts the request before anything is written.
func (s *ItineraryService) Generate(ctx context.Context, ownerID, partID string) (*entity.Itinerary, error) {
	log := s.logger.With(zap.String("user_id", ownerID), zap.String("part_id", partID))

	if s.gen == nil {
		log.Error("itinerary generation requested without a configured generator")
		return nil, itinerary.Fail(itinerary.ErrUpstreamConfigMissing, nil)
	}

	unlock, err := s.locker.TryLock(ctx, lockKey(ownerID, partID), s.lockTTL)
	switch {
	case errors.Is(err, ErrLocked):
		log.Info("itinerary generation already in progress")
		return nil, itinerary.Fail(itinerary.ErrGenerationInProgress, nil)
	case err != nil:
		// lock backend down: generate anyway
		log.Warn("generation lock unavailable", zap.Error(err))
	default:
		defer unlock()
	}

	part, inv, err := s.loadInventory(ctx, ownerID, partID)
	if err != nil {
		log.Error("load inventory failed", zap.Error(err))
		return nil, itinerary.Fail(itinerary.ErrInventoryFetchFailed, err)
	}
	log.Info("inventory loaded",
		zap.Int("machines", inv.MachineCount()),
		zap.Int("tools", inv.ToolCount()),
		zap.Int("materials", len(inv.Materials)))

	prompt := itinerary.ComposePrompt(s.partContext(ctx, log, part), inv)
	log.Debug("prompt composed", zap.Int("prompt_bytes", len(prompt)))

	raw, err := s.gen.Generate(ctx, itinerary.SystemPrompt, prompt)
	if err != nil {
		log.Error("model invocation failed", zap.Error(err))
		failure := itinerary.Fail(itinerary.ErrModelInvocationFailed, err)
		var upstream *llm.UpstreamError
		if errors.As(err, &upstream) {
			failure.Details = upstream.Body()
		}
		return nil, failure
	}
	log.Debug("model responded", zap.Int("response_bytes", len(raw)))

	res, err := itinerary.Normalize(raw)
	if err != nil {
		log.Error("model response unparseable", zap.Int("response_bytes", len(raw)), zap.Error(err))
		var failure *itinerary.StageError
		if errors.As(err, &failure) {
			failure.Details = map[string]any{"response_excerpt": excerpt(raw, responseExcerptRunes)}
			return nil, failure
		}
		return nil, itinerary.Fail(itinerary.ErrModelResponseUnparseable, err)
	}

	steps, total := itinerary.Validate(res.Steps, inv)
	log.Info("itinerary normalized",
		zap.String("parse_stage", res.Stage),
		zap.String("shape", string(res.Shape)),
		zap.Int("steps", len(steps)),
		zap.Float64("total_cost", total))

	it, err := s.repos.Itinerary.Store(ctx, ownerID, part.ID, steps, total)
	if err != nil {
		log.Error("store itinerary failed", zap.Error(err))
		return nil, itinerary.Fail(itinerary.ErrPersistenceFailed, err)
	}
	log.Info("itinerary stored", zap.String("itinerary_id", it.ID))

	if s.hub != nil {
		s.hub.PublishItineraryUpdate(ownerID, part.ID, it.ID, "created")
	}
	return it, nil
}

// ComposePrompt builds the prompt a generation request for the part would send,
// without calling the model.
func (s *ItineraryService) ComposePrompt(ctx context.Context, ownerID, partID string) (string, error) {
	part, inv, err := s.loadInventory(ctx, ownerID, partID)
	if err != nil {
		return "", itinerary.Fail(itinerary.ErrInventoryFetchFailed, err)
	}
	log := s.logger.With(zap.String("user_id", ownerID), zap.String("part_id", partID))
	return itinerary.ComposePrompt(s.partContext(ctx, log, part), inv), nil
}

func (s *ItineraryService) loadInventory(ctx context.Context, ownerID, partID string) (*entity.Part, *itinerary.Inventory, error) {
	part, err := s.repos.Part.FindByID(ctx, ownerID, partID)
	if err != nil {
		return nil, nil, fmt.Errorf("find part: %w", err)
	}
	machines, err := s.repos.Machine.List(ctx, ownerID, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list machines: %w", err)
	}
	tools, err := s.repos.Tool.ListWithMachine(ctx, ownerID, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list tools: %w", err)
	}
	toolTypes, err := s.repos.ToolType.List(ctx, ownerID, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list tool types: %w", err)
	}
	materials, err := s.repos.Material.List(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("list materials: %w", err)
	}
	return part, itinerary.Aggregate(machines, tools, toolTypes, materials), nil
}

// partContext falls back to the bare file reference when the preview cannot
// be read.
func (s *ItineraryService) partContext(ctx context.Context, log *zap.Logger, part *entity.Part) itinerary.PartContext {
	pc := itinerary.PartContext{ID: part.ID, Name: part.Name, FileReference: part.FileReference()}
	if part.PreviewKey == nil || s.files == nil {
		return pc
	}
	svg, err := s.files.ReadPreview(ctx, *part.PreviewKey)
	if err != nil {
		log.Warn("read part preview failed, using file reference", zap.String("preview_key", *part.PreviewKey), zap.Error(err))
		return pc
	}
	pc.SVG = svg
	return pc
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// Latest 零件最新行程
func (s *ItineraryService) Latest(ctx context.Context, ownerID, partID string) (*entity.Itinerary, error) {
	return s.repos.Itinerary.FetchLatest(ctx, ownerID, partID)
}

// History 零件行程历史（最新在前）
func (s *ItineraryService) History(ctx context.Context, ownerID, partID string) ([]entity.Itinerary, error) {
	if _, err := s.repos.Part.FindByID(ctx, ownerID, partID); err != nil {
		return nil, err
	}
	return s.repos.Itinerary.ListByPart(ctx, ownerID, partID)
}

var itineraryExportHeaders = []string{
	"#", "Description", "Machine", "Tool", "Time (min)", "Cost",
	"Status", "Required machine type", "Required tool type", "Inadequate parameter",
	"Required parameter", "Recommendation", "Fixturing", "Setup",
}

// Export 导出行程为xlsx
func (s *ItineraryService) Export(ctx context.Context, ownerID, itineraryID string) (*excelize.File, string, error) {
	it, err := s.repos.Itinerary.FindByID(ctx, ownerID, itineraryID)
	if err != nil {
		return nil, "", err
	}
	partName := it.PartID
	if part, err := s.repos.Part.FindByID(ctx, ownerID, it.PartID); err == nil {
		partName = part.Name
	}

	f := excelize.NewFile()
	sheet := "Itinerary"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range itineraryExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	var totalTime float64
	for i, step := range it.Steps.Steps {
		row := i + 2
		values := []interface{}{
			i + 1, step.Description, deref(step.MachineName), deref(step.ToolName), step.Time, step.Cost,
			stepStatus(step), deref(step.RequiredMachineType), deref(step.RequiredToolType), deref(step.InadequateParameter),
			deref(step.RequiredParameter), deref(step.Recommendation), deref(step.FixtureRequirements), deref(step.SetupDescription),
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
		totalTime += step.Time
	}

	summaryRow := len(it.Steps.Steps) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("%d steps", len(it.Steps.Steps)))
	f.SetCellValue(sheet, fmt.Sprintf("E%d", summaryRow), totalTime)
	f.SetCellValue(sheet, fmt.Sprintf("F%d", summaryRow), it.TotalCost)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("N%d", summaryRow), summaryStyle)

	colWidths := []float64{5, 32, 20, 20, 10, 10, 14, 24, 20, 20, 20, 28, 20, 28}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("Itinerary_%s_%s.xlsx", partName, it.CreatedAt.Format("20060102_150405"))
	return f, filename, nil
}

func stepStatus(s entity.ItineraryStep) string {
	switch {
	case s.Unservable:
		return "unservable"
	case s.ParameterIssue:
		return "parameter issue"
	}
	return "ok"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
