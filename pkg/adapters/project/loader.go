// Package project loads a story from a single JSON or YAML document on
// disk. This is the compact authoring layout: one file carrying the
// header, the variables, and every scene. It implements ports.StoryLoader
// and ports.Watchable.
package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/vine/internal/compiler"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/domain"
)

// settle is how long the watcher waits after the last filesystem event
// before signaling a reload. Editors tend to emit bursts (write, chmod,
// rename) for a single save.
const settle = 100 * time.Millisecond

// Loader reads and parses the document on every Load call.
type Loader struct {
	path   string
	parser *compiler.Parser
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for parse and watch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// NewLoader creates a loader for the document at path.
func NewLoader(path string, opts ...Option) *Loader {
	l := &Loader{
		path:   path,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.parser = compiler.NewParser(compiler.WithLogger(l.logger))
	return l
}

// Load implements ports.StoryLoader. A project that does not name itself
// takes its id from the file name.
func (l *Loader) Load(ctx context.Context) (*domain.Project, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", l.path, domain.ErrProjectNotFound)
		}
		return nil, fmt.Errorf("read project document: %w", err)
	}

	proj, err := l.parser.ParseProject(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.path, err)
	}
	if proj.ID == "" {
		base := filepath.Base(l.path)
		proj.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return proj, nil
}

// Watch implements ports.Watchable. It watches the parent directory
// rather than the file itself so atomic saves (write to temp, rename over
// target) keep being seen after the inode changes.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	target, err := filepath.Abs(l.path)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer watcher.Close()

		// timerC stays nil until the first matching event, so its case
		// never fires early.
		var timer *time.Timer
		var timerC <-chan time.Time
		arm := func() {
			if timer == nil {
				timer = time.NewTimer(settle)
				timerC = timer.C
				return
			}
			if !timer.Stop() {
				select {
				case <-timerC:
				default:
				}
			}
			timer.Reset(settle)
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				l.logger.Debug("project document changed", "op", evt.Op.String())
				arm()
			case <-timerC:
				select {
				case ch <- struct{}{}:
				default:
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("file watcher error", "err", werr)
			}
		}
	}()

	return ch, nil
}
