package freshness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/niveshio/panorama/internal/domain"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		age  time.Duration
		want domain.FreshnessTier
	}{
		{"zero age", 0, domain.FreshnessRealTime},
		{"just under a minute", time.Minute - time.Second, domain.FreshnessRealTime},
		{"exactly one minute", time.Minute, domain.FreshnessFresh},
		{"two minutes", 2 * time.Minute, domain.FreshnessFresh},
		{"exactly five minutes", 5 * time.Minute, domain.FreshnessRecent},
		{"fourteen minutes", 14 * time.Minute, domain.FreshnessRecent},
		{"exactly fifteen minutes", 15 * time.Minute, domain.FreshnessStale},
		{"twenty minutes", 20 * time.Minute, domain.FreshnessStale},
		{"exactly sixty minutes", 60 * time.Minute, domain.FreshnessOld},
		{"a day", 24 * time.Hour, domain.FreshnessOld},
		{"negative age from clock skew", -time.Second, domain.FreshnessRealTime},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.age))
		})
	}
}

func TestClassifyAtNeverSynced(t *testing.T) {
	assert.Equal(t, domain.FreshnessOld, ClassifyAt(time.Time{}, time.Now()))
}

func TestPortfolioTierIsWorst(t *testing.T) {
	now := time.Now()

	// One broker synced two minutes ago, another twenty minutes ago:
	// the portfolio reads STALE, not FRESH.
	statuses := []domain.BrokerSyncStatus{
		Status("zerodha", now.Add(-2*time.Minute), false, now),
		Status("upstox", now.Add(-20*time.Minute), false, now),
	}

	assert.Equal(t, domain.FreshnessFresh, statuses[0].Tier)
	assert.Equal(t, domain.FreshnessStale, statuses[1].Tier)
	assert.Equal(t, domain.FreshnessStale, PortfolioTier(statuses))
}

func TestPortfolioTierEmpty(t *testing.T) {
	assert.Equal(t, domain.FreshnessOld, PortfolioTier(nil))
}

func TestStatusCarriesFailureFlag(t *testing.T) {
	now := time.Now()
	s := Status("groww", now.Add(-30*time.Second), true, now)

	assert.True(t, s.Failed)
	assert.Equal(t, domain.FreshnessRealTime, s.Tier)
}
