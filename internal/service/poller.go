package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/config"
	"github.com/wilheimcosta/adwrng2/internal/logger"
)

const archiveInterval = 24 * time.Hour

// Poller drives the lifecycle in the background: every poll interval it
// sweeps, refreshes statuses and registers warnings for the watch list, and
// it runs a global sweep and the archival housekeeping on their own tickers.
type Poller struct {
	alerts     *AlertService
	sweeper    *Sweeper
	aerodromes *AerodromeService
	cfg        config.PollerConfig
	log        *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(alerts *AlertService, sweeper *Sweeper, aerodromes *AerodromeService, cfg config.PollerConfig, log *logger.Logger) *Poller {
	ctx, cancel := context.WithCancel(context.Background())

	return &Poller{
		alerts:     alerts,
		sweeper:    sweeper,
		aerodromes: aerodromes,
		cfg:        cfg,
		log:        log.With("poller"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (p *Poller) Start() {
	p.log.Info("Starting poller (poll %s, sweep %s)", p.cfg.PollInterval, p.cfg.SweepInterval)

	p.wg.Add(1)
	go p.pollLoop()

	p.wg.Add(1)
	go p.sweepLoop()

	p.wg.Add(1)
	go p.archiveLoop()
}

func (p *Poller) Shutdown() {
	p.log.Info("Shutting down poller...")
	p.cancel()
	p.wg.Wait()
	p.log.Info("Poller stopped gracefully")
}

func (p *Poller) pollLoop() {
	defer p.wg.Done()

	p.PollOnce(p.ctx)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.log.Info("Poll worker stopping")
			return
		case <-ticker.C:
			p.PollOnce(p.ctx)
		}
	}
}

func (p *Poller) sweepLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.log.Info("Sweep worker stopping")
			return
		case <-ticker.C:
			p.sweeper.ExpireOutOfWindowActiveAlerts(p.ctx, nil)
		}
	}
}

func (p *Poller) archiveLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(archiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.log.Info("Archive worker stopping")
			return
		case <-ticker.C:
			p.sweeper.ArchiveExpired(p.ctx, p.cfg.ArchiveAfter)
			p.aerodromes.PruneStale(time.Now(), archiveInterval)
		}
	}
}

// PollOnce runs one full cycle over the watch list. Failures for one ICAO
// are logged and do not stop the others.
func (p *Poller) PollOnce(ctx context.Context) {
	icaos, err := p.aerodromes.WatchList(ctx)
	if err != nil {
		p.log.Warn("Favorites unavailable, polling configured ICAOs only: %v", err)
	}
	if len(icaos) == 0 {
		p.log.Debug("Nothing to poll")
		return
	}

	if _, err := p.sweeper.ExpireOutOfWindowActiveAlerts(ctx, icaos); err != nil {
		p.log.Warn("Pre-poll sweep failed: %v", err)
	}

	for _, icao := range icaos {
		if ctx.Err() != nil {
			return
		}
		p.pollICAO(ctx, icao)
	}
}

func (p *Poller) pollICAO(ctx context.Context, icao string) {
	reqCtx := ctx
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	if _, err := p.aerodromes.RefreshStatus(reqCtx, icao); err != nil {
		p.log.Warn("Status refresh for %s failed: %v", icao, err)
	}

	if _, err := p.alerts.RegisterWarnings(reqCtx, icao); err != nil {
		var fetchErr *SourceFetchError
		if errors.As(err, &fetchErr) {
			p.log.Warn("Skipping %s this cycle: source unavailable", icao)
		}
	}
}
