package logging

import (
	"log/slog"
	"sync"
	"time"
)

// CleanupScheduler runs a Cleaner periodically.
type CleanupScheduler struct {
	cleaner  *Cleaner
	logger   *slog.Logger
	ticker   *time.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

func NewCleanupScheduler(cleaner *Cleaner, interval time.Duration, logger *slog.Logger) *CleanupScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupScheduler{
		cleaner: cleaner,
		logger:  logger.With("component", "log_cleanup"),
		ticker:  time.NewTicker(interval),
		stop:    make(chan struct{}),
	}
}

func (s *CleanupScheduler) Start() {
	// Run initial cleanup immediately
	go s.runCleanup()

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runCleanup()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *CleanupScheduler) runCleanup() {
	deleted, err := s.cleaner.Cleanup()
	if err != nil {
		s.logger.Warn("log cleanup failed", "error", err)
	} else if deleted > 0 {
		s.logger.Info("cleaned up old log files", "deleted", deleted)
	}
}

func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.stop)
	})
}
