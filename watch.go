package launchagent

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"vawter.tech/stopper"
)

// WatchCleanupFunc stops a watch and waits for its goroutines to exit
type WatchCleanupFunc func() error

// WatchDirectory refreshes r whenever a descriptor in dir is created, written,
// removed or renamed. Bursts of events are coalesced with debounce. Cancelling
// ctx or calling the returned cleanup ends the watch; cleanup is idempotent.
func WatchDirectory(ctx context.Context, dir string, r Refresher, debounce time.Duration) (WatchCleanupFunc, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &OpError{Op: OpWatch, Path: dir, Err: err}
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, &OpError{Op: OpWatch, Path: dir, Err: err}
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
	})

	refreshCtx := context.WithoutCancel(ctx)

	var (
		mu        sync.Mutex
		debouncer *time.Timer
	)

	refresh := func() {
		if sctx.IsStopping() {
			return
		}
		if err := r.Refresh(refreshCtx); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("refresh after descriptor change failed")
		}
	}

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	sctx.Go(func(sctx *stopper.Context) error {
		sctx.Defer(func() {
			mu.Lock()
			if debouncer != nil {
				debouncer.Stop()
			}
			mu.Unlock()
		})

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !isDescriptorName(filepath.Base(event.Name)) || event.Op == fsnotify.Chmod {
					continue
				}

				log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("descriptor changed")

				mu.Lock()
				if debouncer != nil {
					debouncer.Stop()
				}
				debouncer = time.AfterFunc(debounce, refresh)
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil {
					log.Warn().Err(err).Str("dir", dir).Msg("descriptor watch error")
				}
			}
		}
		return nil
	})

	return cleanup, nil
}
