package clients

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/domain"
)

type stubAdapter struct {
	id string
}

func (s *stubAdapter) BrokerID() string { return s.id }

func (s *stubAdapter) FetchPositions(_ context.Context, _ domain.Credentials) (*domain.BrokerSnapshot, error) {
	return &domain.BrokerSnapshot{BrokerID: s.id}, nil
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry(&stubAdapter{id: domain.BrokerZerodha}, &stubAdapter{id: domain.BrokerGroww})

	adapter, err := reg.Get("zerodha")
	require.NoError(t, err)
	assert.Equal(t, domain.BrokerZerodha, adapter.BrokerID())

	// Lookup is case and whitespace tolerant.
	adapter, err = reg.Get("  GROWW ")
	require.NoError(t, err)
	assert.Equal(t, domain.BrokerGroww, adapter.BrokerID())
}

func TestRegistryUnknownBroker(t *testing.T) {
	reg := NewRegistry(&stubAdapter{id: domain.BrokerZerodha})

	_, err := reg.Get("robinhood")
	assert.ErrorIs(t, err, apperrors.ErrInvalidBrokerID)
}

func TestRegistryBrokerIDs(t *testing.T) {
	reg := NewRegistry(
		&stubAdapter{id: domain.BrokerUpstox},
		&stubAdapter{id: domain.BrokerAngelOne},
		&stubAdapter{id: domain.BrokerZerodha},
	)

	assert.Equal(t, []string{"angelone", "upstox", "zerodha"}, reg.BrokerIDs())
}

func TestThrottleEnforcesInterval(t *testing.T) {
	th := NewThrottle(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, th.Wait(ctx))
	require.NoError(t, th.Wait(ctx))
	require.NoError(t, th.Wait(ctx))
	elapsed := time.Since(start)

	// Two full intervals must pass between the first and third request.
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestThrottleHonorsContext(t *testing.T) {
	th := NewThrottle(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, th.Wait(ctx))

	cancel()
	assert.ErrorIs(t, th.Wait(ctx), context.Canceled)
}

func TestThrottleDisabled(t *testing.T) {
	th := NewThrottle(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, th.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestPayloadHelpers(t *testing.T) {
	m := map[string]interface{}{
		"str":     "hello",
		"num":     42.5,
		"strnum":  "2450.50",
		"int":     7,
		"nil":     nil,
		"nested":  map[string]interface{}{"inner": 1.0},
		"arr":     []interface{}{"a", "b"},
		"badnum":  "not-a-number",
		"boolval": true,
	}

	assert.Equal(t, "hello", GetString(m, "str"))
	assert.Equal(t, "", GetString(m, "missing"))
	assert.Equal(t, "", GetString(m, "nil"))
	assert.Equal(t, "true", GetString(m, "boolval"))

	assert.Equal(t, 42.5, GetFloat64(m, "num"))
	assert.Equal(t, 2450.5, GetFloat64(m, "strnum"))
	assert.Equal(t, 7.0, GetFloat64(m, "int"))
	assert.Equal(t, 0.0, GetFloat64(m, "badnum"))
	assert.Equal(t, 0.0, GetFloat64(m, "missing"))

	assert.NotNil(t, GetMap(m, "nested"))
	assert.Nil(t, GetMap(m, "str"))
	assert.Nil(t, GetMap(nil, "anything"))

	assert.Len(t, GetSlice(m, "arr"), 2)
	assert.Nil(t, GetSlice(m, "nested"))
}
