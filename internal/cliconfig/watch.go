package cliconfig

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hkniberg/meter/pkg/log"
)

// DefaultRegistrationPoll is how often the config file is re-read while
// waiting for a meter name, in case file events are missed.
const DefaultRegistrationPoll = 500 * time.Millisecond

// WaitForMeterName blocks until the config file at path carries a
// meter_name, then returns it. The file is re-read on every change to its
// directory and every poll interval. Returns ctx.Err() on cancellation.
func WaitForMeterName(ctx context.Context, path string, poll time.Duration, logger log.Logger) (string, error) {
	logger = log.OrNoop(logger)
	if poll <= 0 {
		poll = DefaultRegistrationPoll
	}

	if name := readMeterName(path); name != "" {
		return name, nil
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w, err := watchDir(filepath.Dir(path)); err != nil {
		logger.Warn("cannot watch config directory, falling back to polling",
			log.String("path", path), log.Err(err))
	} else {
		defer w.Close()
		events, errs = w.Events, w.Errors
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("config watcher error", log.Err(err))
			continue

		case <-ticker.C:
		}

		if name := readMeterName(path); name != "" {
			logger.Info("meter registered", log.String("meter", name))
			return name, nil
		}
	}
}

func watchDir(dir string) (*fsnotify.Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// readMeterName returns "" for a missing, unreadable or incomplete file;
// editors often write the file in several steps.
func readMeterName(path string) string {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return ""
	}
	return fc.MeterName
}
