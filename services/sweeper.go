package services

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"

	"sintetic-qa/internal/logger"
)

// Sweeper periodically removes stale files from the scratch directory.
// Ingestion normally cleans up after itself; the sweeper catches files
// orphaned by crashes or by concurrent uploads clobbering each other.
type Sweeper struct {
	scheduler *gocron.Scheduler
	dir       string
	maxAge    time.Duration
}

func NewSweeper(dir string, interval, maxAge time.Duration) *Sweeper {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	sw := &Sweeper{scheduler: s, dir: dir, maxAge: maxAge}
	s.Every(interval).Tag("scratch-sweep").Do(sw.sweep)
	return sw
}

func (sw *Sweeper) Start() {
	sw.scheduler.StartAsync()
}

func (sw *Sweeper) Stop() {
	sw.scheduler.Stop()
}

func (sw *Sweeper) sweep() {
	entries, err := os.ReadDir(sw.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Scratch sweep failed to read directory", "dir", sw.dir, "error", err)
		}
		return
	}

	cutoff := time.Now().Add(-sw.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(sw.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("Scratch sweep failed to remove file", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("Scratch sweep removed stale files", "dir", sw.dir, "count", removed)
	}
}
