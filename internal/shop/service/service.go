package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/mechai/internal/config"
	"github.com/bitfantasy/mechai/internal/llm"
	"github.com/bitfantasy/mechai/internal/shared/storage"
	"github.com/bitfantasy/mechai/internal/shop/repository"
	"github.com/bitfantasy/mechai/internal/shop/sse"
)

// ErrValidation marks a rejected write. Handlers answer it with 400.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func newID() string {
	return uuid.New().String()[:32]
}

// Services 服务集合
type Services struct {
	Machine   *MachineService
	Tooling   *ToolingService
	Material  *MaterialService
	Part      *PartService
	Itinerary *ItineraryService
}

// Deps are the optional collaborators of the services. A nil Redis client
// selects the in-process generation lock; a nil Generator leaves itinerary
// generation unavailable.
type Deps struct {
	Redis     *redis.Client
	Files     *storage.Store
	Generator llm.Generator
	Hub       *sse.Hub
	Logger    *zap.Logger
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, deps Deps, cfg *config.Config) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var locker Locker
	if deps.Redis != nil {
		locker = NewRedisLocker(deps.Redis)
	} else {
		locker = NewMemoryLocker()
	}

	lockTTL := cfg.Itinerary.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}

	return &Services{
		Machine:  NewMachineService(repos.Machine),
		Tooling:  NewToolingService(repos.Tool, repos.ToolType, repos.Machine),
		Material: NewMaterialService(repos.Material),
		Part:     NewPartService(repos.Part, deps.Files),
		Itinerary: NewItineraryService(repos, ItineraryOptions{
			Generator: deps.Generator,
			Files:     deps.Files,
			Locker:    locker,
			Hub:       deps.Hub,
			LockTTL:   lockTTL,
			Logger:    logger.Named("itinerary"),
		}),
	}
}
