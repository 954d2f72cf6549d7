package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/campus-coord/internal/application/catalog"
	"github.com/baechuer/campus-coord/internal/config"
	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/infrastructure/memory"
	"github.com/baechuer/campus-coord/internal/infrastructure/redis"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:            "dev",
		HTTPAddr:          ":8081",
		StoreDriver:       config.DriverMemory,
		StoreLockTimeout:  time.Second,
		JWTSecret:         "test-secret",
		JWTIssuer:         "test-issuer",
		JWTTTL:            time.Hour,
		BcryptCost:        4,
		CampusLocation:    time.UTC,
		CacheTTLResources: time.Minute,
		HTTPReadTimeout:   5 * time.Second,
		HTTPWriteTimeout:  5 * time.Second,
		HTTPIdleTimeout:   30 * time.Second,
	}
}

func memoryDeps(t *testing.T) Deps {
	t.Helper()
	s := memory.New(time.Second)
	require.NoError(t, seedResources(context.Background(), s, nil))
	return Deps{Stores: Stores{
		Users:         s,
		Catalog:       s,
		Reservations:  s.Reservations(),
		Events:        s.Events(),
		Registrations: s.Registrations(),
	}}
}

func TestNewApp(t *testing.T) {
	cfg := testConfig()
	app := NewApp(cfg, memoryDeps(t))

	require.NotNil(t, app)
	assert.Equal(t, cfg.HTTPAddr, app.Server.Addr)
	assert.Equal(t, cfg.HTTPReadTimeout, app.Server.ReadTimeout)
	require.NotNil(t, app.Server.Handler)

	rr := httptest.NewRecorder()
	app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewApp_SeededCatalogIsServed(t *testing.T) {
	app := NewApp(testConfig(), memoryDeps(t))

	tok, err := app.Tokens.Issue(domain.Principal{SubjectID: "u1", Email: "u1@uni.edu", Role: domain.RoleStudent})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/resources", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	app.Server.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Maker Lab")
}

func TestSeedResources_Idempotent(t *testing.T) {
	s := memory.New(time.Second)
	ctx := context.Background()
	require.NoError(t, seedResources(ctx, s, nil))
	require.NoError(t, seedResources(ctx, s, nil))

	items, err := s.ListResources(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(demoResources))
}

func TestSeedResources_DropsCachedCatalog(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })

	s := memory.New(time.Second)
	cat := catalog.New(s, rc, time.Minute, time.UTC)
	ctx := context.Background()

	// an empty catalog gets cached before the seed runs
	before, err := cat.ListResources(ctx)
	require.NoError(t, err)
	assert.Empty(t, before)

	require.NoError(t, seedResources(ctx, s, cat))

	after, err := cat.ListResources(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(demoResources))
}

func TestNewApp_ExposesCatalog(t *testing.T) {
	app := NewApp(testConfig(), memoryDeps(t))
	require.NotNil(t, app.Catalog)

	items, err := app.Catalog.ListResources(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, len(demoResources))
}

func TestSysClock_Now(t *testing.T) {
	assert.Equal(t, "UTC", sysClock{}.Now().Location().String())
}
