package factory

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/curzel-it/battld/internal/dependencies/mocks"
	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/services/auth"
	"github.com/curzel-it/battld/internal/services/registry"
	"github.com/curzel-it/battld/internal/storage/memory"
	"github.com/curzel-it/battld/internal/testutil"
	"github.com/curzel-it/battld/internal/ws"
)

// TestSecret signs tokens issued by a TestApp
const TestSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithWS(ws.DefaultConfig())
}

// NewTestAppWithWS is NewTestApp with custom connection settings
func NewTestAppWithWS(wsCfg ws.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	authCfg := auth.DefaultConfig()
	authCfg.Secret = TestSecret
	authCfg.BcryptCost = bcrypt.MinCost

	app := newWithDependencies(store, mockClock, mockRandom, authCfg, registry.DefaultGracePeriod, wsCfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// RegisterPlayer creates a player and returns it with a valid token
func (t *TestApp) RegisterPlayer(name string) (*model.Player, string) {
	session, err := t.AuthService.Register(context.Background(), name, "secret-"+name)
	if err != nil {
		panic(err)
	}
	return &session.Player, session.Token
}
