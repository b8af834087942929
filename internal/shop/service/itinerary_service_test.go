package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bitfantasy/mechai/internal/llm"
	"github.com/bitfantasy/mechai/internal/shared/storage"
	"github.com/bitfantasy/mechai/internal/shop/entity"
	"github.com/bitfantasy/mechai/internal/shop/itinerary"
	"github.com/bitfantasy/mechai/internal/shop/repository"
	"github.com/bitfantasy/mechai/internal/shop/sse"
	"github.com/bitfantasy/mechai/internal/shop/testutil"
)

const owner = testutil.DefaultUserID

type itineraryFixture struct {
	db     *gorm.DB
	repos  *repository.Repositories
	gen    *testutil.FakeGenerator
	locker *MemoryLocker
	svc    *ItineraryService
}

func newItineraryFixture(t *testing.T, opts ItineraryOptions) *itineraryFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	gen := &testutil.FakeGenerator{}
	locker := NewMemoryLocker()
	if opts.Generator == nil {
		opts.Generator = gen
	}
	if opts.Locker == nil {
		opts.Locker = locker
	}

	testutil.SeedMachine(t, db, owner, "M1", "Haas VF-2", "CNC Milling Center (3-axis)")
	testutil.SeedTool(t, db, owner, "T1", "M1", "Endmill", 6)
	testutil.SeedPart(t, db, owner, "P1", "Bracket")

	return &itineraryFixture{db: db, repos: repos, gen: gen, locker: locker, svc: NewItineraryService(repos, opts)}
}

func TestGenerateStoresValidatedItinerary(t *testing.T) {
	f := newItineraryFixture(t, ItineraryOptions{})
	f.gen.Response = "Plan below.\n```json\n" + `{"steps":[
		{"description":"Face top","machine_id":"M1","machine_name":"Haas","tooling_id":"T1","tool_name":"Endmill","time":"10","cost":"20.5"},
		{"description":"Mill 8mm slot","machine_id":"M1","machine_name":"Haas","tooling_id":"T9","tool_name":"8mm Endmill","time":15,"cost":30}
	],"total_cost":1}` + "\n```"

	it, err := f.svc.Generate(context.Background(), owner, "P1")
	require.NoError(t, err)
	require.Len(t, it.Steps.Steps, 2)
	assert.Equal(t, 50.5, it.TotalCost)
	assert.Equal(t, 50.5, it.Steps.TotalCost)

	face := it.Steps.Steps[0]
	assert.Equal(t, "Haas VF-2", *face.MachineName)
	assert.Equal(t, "T1", *face.ToolingID)

	slot := it.Steps.Steps[1]
	assert.Nil(t, slot.ToolingID)
	assert.True(t, slot.Unservable)
	assert.NotNil(t, slot.Recommendation)

	assert.Equal(t, itinerary.SystemPrompt, f.gen.System)
	assert.Contains(t, f.gen.Prompt, `"id": "T1"`)
	assert.Contains(t, f.gen.Prompt, "Bracket.step")

	latest, err := f.svc.Latest(context.Background(), owner, "P1")
	require.NoError(t, err)
	assert.Equal(t, it.ID, latest.ID)
	assert.Equal(t, it.Steps.Steps, latest.Steps.Steps)
}

func TestGenerateUnparseableStoresNothing(t *testing.T) {
	f := newItineraryFixture(t, ItineraryOptions{})
	f.gen.Response = "not json at all"

	_, err := f.svc.Generate(context.Background(), owner, "P1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, itinerary.ErrModelResponseUnparseable))

	var failure *itinerary.StageError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, map[string]any{"response_excerpt": "not json at all"}, failure.Details)

	history, err := f.svc.History(context.Background(), owner, "P1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGenerateEmptySteps(t *testing.T) {
	f := newItineraryFixture(t, ItineraryOptions{})
	f.gen.Response = `{"steps": []}`

	it, err := f.svc.Generate(context.Background(), owner, "P1")
	require.NoError(t, err)
	assert.Empty(t, it.Steps.Steps)
	assert.Zero(t, it.TotalCost)
}

func TestGenerateWithoutGenerator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewItineraryService(repository.NewRepositories(db), ItineraryOptions{})
	testutil.SeedPart(t, db, owner, "P1", "Bracket")

	_, err := svc.Generate(context.Background(), owner, "P1")
	assert.True(t, errors.Is(err, itinerary.ErrUpstreamConfigMissing))
}

func TestGenerateUnknownPart(t *testing.T) {
	f := newItineraryFixture(t, ItineraryOptions{})

	_, err := f.svc.Generate(context.Background(), owner, "missing")
	assert.True(t, errors.Is(err, itinerary.ErrInventoryFetchFailed))
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.Zero(t, f.gen.CallCount())

	// parts of other users are invisible
	_, err = f.svc.Generate(context.Background(), "someone-else", "P1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestGenerateUpstreamFailure(t *testing.T) {
	f := newItineraryFixture(t, ItineraryOptions{})
	f.gen.Err = &llm.UpstreamError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded"}

	_, err := f.svc.Generate(context.Background(), owner, "P1")
	require.True(t, errors.Is(err, itinerary.ErrModelInvocationFailed))

	var failure *itinerary.StageError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, map[string]any{"code": 503, "status": "UNAVAILABLE", "message": "overloaded"}, failure.Details)
}

func TestGenerateInProgress(t *testing.T) {
	f := newItineraryFixture(t, ItineraryOptions{})
	f.gen.Response = `{"steps": []}`

	unlock, err := f.locker.TryLock(context.Background(), lockKey(owner, "P1"), time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Generate(context.Background(), owner, "P1")
	assert.True(t, errors.Is(err, itinerary.ErrGenerationInProgress))
	assert.Zero(t, f.gen.CallCount())

	unlock()
	_, err = f.svc.Generate(context.Background(), owner, "P1")
	require.NoError(t, err)

	// the lock is released after a request completes
	again, err := f.locker.TryLock(context.Background(), lockKey(owner, "P1"), time.Minute)
	require.NoError(t, err)
	again()
}

func TestGenerateProceedsWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	f := newItineraryFixture(t, ItineraryOptions{Locker: NewRedisLocker(rdb)})
	f.gen.Response = `{"steps":[{"description":"Drill hole","time":"15","cost":"12.50"}]}`

	it, err := f.svc.Generate(context.Background(), owner, "P1")
	require.NoError(t, err)
	assert.Equal(t, 12.5, it.TotalCost)
}

func TestGenerateUsesPreviewAndPublishes(t *testing.T) {
	ctx := context.Background()
	files, err := storage.NewLocal(t.TempDir(), 4, 1<<20)
	require.NoError(t, err)
	svg := `<svg><circle r="4"/></svg>`
	key, err := files.Put(ctx, "previews", "p.svg", strings.NewReader(svg), int64(len(svg)), "image/svg+xml")
	require.NoError(t, err)

	hub := sse.NewHub(nil)
	client := &sse.Client{ID: "c1", UserID: owner, Events: make(chan sse.Event, 1)}
	hub.Register(client)
	defer hub.Unregister("c1")

	f := newItineraryFixture(t, ItineraryOptions{Files: files, Hub: hub})
	require.NoError(t, f.db.Model(&entity.Part{}).Where("id = ?", "P1").Update("preview_key", key).Error)
	f.gen.Response = `{"steps": []}`

	it, err := f.svc.Generate(ctx, owner, "P1")
	require.NoError(t, err)
	assert.Contains(t, f.gen.Prompt, svg)

	select {
	case ev := <-client.Events:
		assert.Equal(t, sse.EventItineraryUpdate, ev.EventType)
		assert.Contains(t, ev.Data, it.ID)
	default:
		t.Fatal("expected an itinerary_update event")
	}
}

func TestGenerateMissingPreviewFallsBack(t *testing.T) {
	files, err := storage.NewLocal(t.TempDir(), 4, 1<<20)
	require.NoError(t, err)

	f := newItineraryFixture(t, ItineraryOptions{Files: files})
	require.NoError(t, f.db.Model(&entity.Part{}).Where("id = ?", "P1").Update("preview_key", "previews/gone.svg").Error)
	f.gen.Response = `{"steps": []}`

	_, err = f.svc.Generate(context.Background(), owner, "P1")
	require.NoError(t, err)
	assert.Contains(t, f.gen.Prompt, "PART FILE: Bracket.step")
}

func TestGenerateScopesInventoryByOwner(t *testing.T) {
	f := newItineraryFixture(t, ItineraryOptions{})
	testutil.SeedMachine(t, f.db, "other-user", "M9", "Foreign lathe", "CNC Lathe")
	f.gen.Response = `{"steps":[{"description":"Turn","machine_id":"M9","machine_name":"Foreign lathe","cost":3}]}`

	it, err := f.svc.Generate(context.Background(), owner, "P1")
	require.NoError(t, err)
	assert.NotContains(t, f.gen.Prompt, "Foreign lathe")
	assert.Nil(t, it.Steps.Steps[0].MachineID)
	assert.True(t, it.Steps.Steps[0].Unservable)
}

func TestHistoryAndExport(t *testing.T) {
	ctx := context.Background()
	f := newItineraryFixture(t, ItineraryOptions{})

	f.gen.Response = `{"steps":[{"description":"Face top","machine_id":"M1","machine_name":"Haas VF-2","tooling_id":"T1","tool_name":"Endmill","time":10,"cost":20}]}`
	first, err := f.svc.Generate(ctx, owner, "P1")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	f.gen.Response = `{"steps":[{"description":"Drill","time":5,"cost":7},{"description":"Tap","required_tool_type":"Tap","cost":3}]}`
	second, err := f.svc.Generate(ctx, owner, "P1")
	require.NoError(t, err)

	history, err := f.svc.History(ctx, owner, "P1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	_, err = f.svc.History(ctx, owner, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	xlsx, filename, err := f.svc.Export(ctx, owner, second.ID)
	require.NoError(t, err)
	defer xlsx.Close()
	assert.True(t, strings.HasPrefix(filename, "Itinerary_Bracket_"))

	desc, err := xlsx.GetCellValue("Itinerary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Drill", desc)
	status, err := xlsx.GetCellValue("Itinerary", "G3")
	require.NoError(t, err)
	assert.Equal(t, "unservable", status)
	total, err := xlsx.GetCellValue("Itinerary", "F4")
	require.NoError(t, err)
	assert.Equal(t, "10", total)

	_, _, err = f.svc.Export(ctx, "other-user", second.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	unlock, err := l.TryLock(context.Background(), "k", time.Second)
	require.NoError(t, err)

	_, err = l.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.TryLock(context.Background(), "k2", time.Second)
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	again, err := l.TryLock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	again()
}

func TestComposePromptMatchesGeneration(t *testing.T) {
	f := newItineraryFixture(t, ItineraryOptions{})
	f.gen.Response = `{"steps": []}`

	prompt, err := f.svc.ComposePrompt(context.Background(), owner, "P1")
	require.NoError(t, err)
	assert.Contains(t, prompt, `part "Bracket" (id P1)`)

	_, err = f.svc.Generate(context.Background(), owner, "P1")
	require.NoError(t, err)
	assert.Equal(t, prompt, f.gen.Prompt)
	assert.Len(t, mustHistory(t, f, "P1"), 1)

	_, err = f.svc.ComposePrompt(context.Background(), owner, "missing")
	assert.True(t, errors.Is(err, itinerary.ErrInventoryFetchFailed))
}

func mustHistory(t *testing.T, f *itineraryFixture, partID string) []entity.Itinerary {
	t.Helper()
	items, err := f.svc.History(context.Background(), owner, partID)
	require.NoError(t, err)
	return items
}
