package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/mechai/internal/database"
	"github.com/bitfantasy/mechai/internal/middleware"
	"github.com/bitfantasy/mechai/internal/shop/entity"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret     = "mechai-test-jwt-secret"
	DefaultUserID = "test-user-001"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB opens a file-backed SQLite database in the test's temp dir and
// migrates every shop table. Each test gets its own file.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name, email string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": email,
		"roles": []string{"machinist"},
		"iss":   "mechai",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for the default test user
func DefaultTestToken() string {
	return GenerateTestToken(DefaultUserID, "Test Machinist", "machinist@test.com")
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedMachine creates a machine owned by ownerID
func SeedMachine(t *testing.T, db *gorm.DB, ownerID, id, name, machineType string) *entity.Machine {
	t.Helper()
	machine := &entity.Machine{
		ID:            id,
		OwnerID:       ownerID,
		Name:          name,
		Type:          machineType,
		AxisCount:     3,
		SpindleSpeed:  12000,
		EnvelopeX:     500,
		EnvelopeY:     400,
		EnvelopeZ:     300,
		HourlyRate:    85,
		SetupCost:     40,
		OperatingCost: 12,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(machine).Error; err != nil {
		t.Fatalf("Failed to seed machine: %v", err)
	}
	return machine
}

// SeedTool creates a tool mounted on machineID
func SeedTool(t *testing.T, db *gorm.DB, ownerID, id, machineID, name string, diameter float64) *entity.Tool {
	t.Helper()
	length := 50.0
	life := 80.0
	tool := &entity.Tool{
		ID:              id,
		OwnerID:         ownerID,
		MachineID:       machineID,
		Name:            name,
		Material:        "Carbide",
		Diameter:        &diameter,
		Length:          &length,
		LifeRemaining:   &life,
		Cost:            35,
		ReplacementCost: 45,
		Params:          entity.ToolParams{},
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := db.Omit("Machine", "ToolType").Create(tool).Error; err != nil {
		t.Fatalf("Failed to seed tool: %v", err)
	}
	return tool
}

// SeedPart creates a part without uploaded files
func SeedPart(t *testing.T, db *gorm.DB, ownerID, id, name string) *entity.Part {
	t.Helper()
	fileName := name + ".step"
	part := &entity.Part{
		ID:         id,
		OwnerID:    ownerID,
		Name:       name,
		FileName:   &fileName,
		UploadedAt: time.Now(),
	}
	if err := db.Create(part).Error; err != nil {
		t.Fatalf("Failed to seed part: %v", err)
	}
	return part
}

// FakeGenerator is a scripted text generator
type FakeGenerator struct {
	mu       sync.Mutex
	Response string
	Err      error
	Calls    int
	System   string
	Prompt   string
	// Block, when set, is waited on before answering.
	Block chan struct{}
}

func (g *FakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if g.Block != nil {
		select {
		case <-g.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	g.System = system
	g.Prompt = prompt
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

// CallCount returns the number of completed Generate calls
func (g *FakeGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Calls
}
