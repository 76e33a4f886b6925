package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/princinho/moviebackend/memstore"
	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/notify"
	"github.com/princinho/moviebackend/services"
	"github.com/princinho/moviebackend/store"
	"github.com/princinho/moviebackend/utils"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	clock   *testClock
	users   *memstore.Users
	history *memstore.History
	mailer  *notify.Recorder
	creds   *services.CredentialStore
	auth    *services.AuthService
	tokens  *utils.TokenIssuer
	ledger  *services.HistoryLedger
	logger  *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}
	users := memstore.NewUsers()
	history := memstore.NewHistory()
	mailer := &notify.Recorder{}
	logger := zap.NewNop()

	issuer, err := utils.NewTokenIssuer(strings.Repeat("t", 32), 24*time.Hour)
	require.NoError(t, err)
	issuer = issuer.WithClock(clock.Now)

	creds := services.NewCredentialStore(users, &utils.BcryptHasher{Cost: bcrypt.MinCost}, store.DefaultLockoutPolicy, clock.Now)
	return &fixture{
		clock:   clock,
		users:   users,
		history: history,
		mailer:  mailer,
		creds:   creds,
		auth:    services.NewAuthService(creds, users, issuer, mailer, logger),
		tokens:  issuer,
		ledger:  services.NewHistoryLedger(history, clock.Now),
		logger:  logger,
	}
}

func (f *fixture) register(t *testing.T, name, email, password string) *models.User {
	t.Helper()
	res, err := f.auth.Register(context.Background(), name, email, password)
	require.NoError(t, err)
	return res.User
}

func (f *fixture) admin(t *testing.T, email string) *models.User {
	t.Helper()
	u := f.register(t, "Admin User", email, "Secret123")
	role := models.RoleAdmin
	updated, err := f.users.UpdateAccount(context.Background(), u.ID, store.AccountUpdate{Role: &role}, f.clock.Now())
	require.NoError(t, err)
	return updated
}

func (f *fixture) reload(t *testing.T, id bson.ObjectID) *models.User {
	t.Helper()
	u, err := f.users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
