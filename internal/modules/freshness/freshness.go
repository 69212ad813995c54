// Package freshness classifies data age into ordered tiers. The portfolio
// tier is always the worst tier among its contributing broker feeds, so one
// stale broker degrades the whole view rather than hiding behind fresh ones.
package freshness

import (
	"time"

	"github.com/niveshio/panorama/internal/domain"
)

// tierBoundaries maps an age upper bound (exclusive) to its tier, ordered
// freshest first. Ages past the last bound are OLD.
var tierBoundaries = []struct {
	below time.Duration
	tier  domain.FreshnessTier
}{
	{1 * time.Minute, domain.FreshnessRealTime},
	{5 * time.Minute, domain.FreshnessFresh},
	{15 * time.Minute, domain.FreshnessRecent},
	{60 * time.Minute, domain.FreshnessStale},
}

// Classify maps a data age to its tier. Boundaries are half-open: an age of
// exactly one minute is FRESH, not REAL_TIME. Negative ages (clock skew)
// classify as REAL_TIME.
func Classify(age time.Duration) domain.FreshnessTier {
	for _, b := range tierBoundaries {
		if age < b.below {
			return b.tier
		}
	}
	return domain.FreshnessOld
}

// ClassifyAt classifies the age of lastSyncedAt relative to now. A zero
// lastSyncedAt means the feed has never synced and is OLD.
func ClassifyAt(lastSyncedAt, now time.Time) domain.FreshnessTier {
	if lastSyncedAt.IsZero() {
		return domain.FreshnessOld
	}
	return Classify(now.Sub(lastSyncedAt))
}

// Status builds the sync status for one broker feed.
func Status(brokerID string, lastSyncedAt time.Time, failed bool, now time.Time) domain.BrokerSyncStatus {
	return domain.BrokerSyncStatus{
		BrokerID:     brokerID,
		LastSyncedAt: lastSyncedAt,
		Tier:         ClassifyAt(lastSyncedAt, now),
		Failed:       failed,
	}
}

// PortfolioTier returns the worst tier among the given broker feeds. An empty
// feed list is OLD: no data is the stalest data.
func PortfolioTier(statuses []domain.BrokerSyncStatus) domain.FreshnessTier {
	if len(statuses) == 0 {
		return domain.FreshnessOld
	}

	worst := statuses[0].Tier
	for _, s := range statuses[1:] {
		worst = domain.WorseOf(worst, s.Tier)
	}
	return worst
}
