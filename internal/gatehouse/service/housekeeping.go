package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
)

// HousekeepingService periodically removes expired grants and swept signing
// keys so the operational tables never grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// BatchSize bounds each grant deletion statement so the sweep never
	// holds the writer for long. Zero uses a sane default.
	BatchSize int

	stopCh chan struct{}
	doneCh chan struct{}
}

const defaultHousekeepingBatch = 500

// NewHousekeepingService creates the worker. An interval of zero or less
// defaults to one hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop blocks until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// First sweep right away so restarts clear backlog promptly.
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one cleanup round. Failures are logged, not fatal; the next
// tick retries.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	now := time.Now().UTC()
	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultHousekeepingBatch
	}

	var grantsPurged int64
	for {
		n, err := s.Store.Grants().DeleteExpired(ctx, now, batch)
		if err != nil {
			s.Logger.Error("housekeeping: delete expired grants", "err", err)
			break
		}
		grantsPurged += n
		if n < int64(batch) {
			break
		}
	}

	keysPurged, err := s.Store.SigningKeys().DeleteExpired(ctx, now)
	if err != nil {
		s.Logger.Error("housekeeping: delete expired signing keys", "err", err)
	}

	if grantsPurged > 0 || keysPurged > 0 {
		s.Logger.Info("housekeeping sweep complete",
			slog.Int64("grants", grantsPurged),
			slog.Int64("signing_keys", keysPurged))
	}
}
