package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/modules/dividends"
	"github.com/acalderon/cartera/internal/pricing"
)

// CacheSweepJob drops expired price cache entries so the cache does not
// grow without bound between quote requests.
type CacheSweepJob struct {
	Cache *pricing.Cache
	Log   zerolog.Logger
}

func (j *CacheSweepJob) Name() string { return "price_cache_sweep" }

func (j *CacheSweepJob) Run() error {
	evicted := j.Cache.Evict()
	if evicted > 0 {
		j.Log.Debug().Int("evicted", evicted).Msg("price cache swept")
	}
	return nil
}

// DividendSyncJob pulls dividend feed events for held equities into
// pending records once a day.
type DividendSyncJob struct {
	Service *dividends.Service
	Feed    dividends.FeedProvider
	Timeout time.Duration
}

func (j *DividendSyncJob) Name() string { return "dividend_sync" }

func (j *DividendSyncJob) Run() error {
	timeout := j.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := j.Service.SyncFromFeed(ctx, j.Feed)
	return err
}
