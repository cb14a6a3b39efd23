package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/party-booking/internal/config"
	"github.com/iliyamo/party-booking/internal/model"
	"github.com/iliyamo/party-booking/internal/service"
)

func testConfig(redisAddr string, sources ...string) config.Config {
	return config.Config{
		Sources:        sources,
		SourcePriority: []string{config.SourceDatabase, config.SourceSheet, config.SourceCache},
		SourceTimeout:  time.Second,
		Packages:       model.DefaultPackages(),
		Location:       time.UTC,
		Redis:          config.RedisConfig{Addr: redisAddr, KeyPrefix: "apptest"},
		DBHost:         "127.0.0.1",
		DBPort:         "1",
		DBUser:         "nobody",
		DBName:         "none",
	}
}

func TestNew_CacheBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	a, err := New(ctx, testConfig(mr.Addr(), config.SourceCache), nil)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Redis)
	require.Len(t, a.Reconciler.Adapters(), 1)

	res, err := a.Booking.Create(ctx, service.Draft{
		Date: "2025-06-14", CustomerName: "Ana", CustomerPhone: "555-1", ChildName: "Sofi",
		Package: "Intermedio", TotalAmount: 6500, DepositAmount: 1000,
	}, false)
	require.NoError(t, err)
	assert.True(t, mr.Exists("apptest:reservations"))

	list := a.Booking.List(ctx)
	require.Len(t, list.Reservations, 1)
	assert.Equal(t, res.Reservation.ID, list.Reservations[0].ID)
	assert.Empty(t, list.Unavailable)
}

func TestNew_SkipsUnreachableBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(context.Background(), testConfig(mr.Addr(), config.SourceDatabase, config.SourceCache), nil)
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.Reconciler.Adapters(), 1)
	assert.Equal(t, config.SourceCache, a.Reconciler.Adapters()[0].Name())
}

func TestNew_NoBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), testConfig(addr, config.SourceCache), nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no backend"))
}
