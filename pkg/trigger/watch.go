package trigger

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/common/validation"
)

// Watch registers job to run when the file at path is written or replaced.
// Bursts of events within the debounce window produce one run. The file does
// not need to exist yet, but its directory does.
func (t *Trigger) Watch(name, path string, job Job) error {
	if err := t.checkEntry(name, job); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("trigger", "path", path); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return tferrors.NewConfigurationError("trigger", "path", path, err.Error())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil {
		return fmt.Errorf("trigger: %w", tferrors.ErrClosed)
	}
	if _, dup := t.entries[name]; dup {
		return duplicate(name)
	}
	if other, taken := t.paths[abs]; taken {
		return tferrors.NewConfigurationError("trigger", "path", path, "already watched by "+other)
	}

	fresh := false
	if t.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("trigger: create watcher: %w", err)
		}
		t.watcher = w
		fresh = true
	}
	dir := filepath.Dir(abs)
	if !t.dirs[dir] {
		if err := t.watcher.Add(dir); err != nil {
			return fmt.Errorf("trigger: watch %s: %w", dir, err)
		}
		t.dirs[dir] = true
	}

	t.entries[name] = &entry{name: name, kind: KindFile, job: job, path: abs, limit: t.newLimiter()}
	t.paths[abs] = name

	if fresh && t.running {
		t.wg.Add(1)
		go t.watch(t.watcher)
	}
	return nil
}

// watch consumes watcher events until Stop. Each path has its own debounce
// timer; when it expires the path's job runs on its own goroutine.
func (t *Trigger) watch(w *fsnotify.Watcher) {
	defer t.wg.Done()

	timers := make(map[string]*time.Timer)
	due := make(chan string)
	defer func() {
		for _, timer := range timers {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-t.ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			t.mu.Lock()
			_, watched := t.paths[abs]
			t.mu.Unlock()
			if !watched {
				continue
			}
			if timer, exists := timers[abs]; exists {
				timer.Stop()
			}
			timers[abs] = time.AfterFunc(t.config.Debounce, func() {
				select {
				case due <- abs:
				case <-t.ctx.Done():
				}
			})

		case abs := <-due:
			delete(timers, abs)
			t.mu.Lock()
			e := t.entries[t.paths[abs]]
			t.mu.Unlock()
			if e == nil {
				continue
			}
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				t.fire(e, abs)
			}()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			t.logger.Warn("file watcher error", "error", err)
		}
	}
}
