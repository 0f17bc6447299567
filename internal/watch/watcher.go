// SPDX-License-Identifier: MPL-2.0

// Package watch drives the continuous-build loop: it monitors the library's
// Rust sources and fires a debounced rebuild callback when they change.
//
// Rebuilds cover the whole library, so individual event paths are only used
// for filtering; a burst of events inside the debounce window collapses into
// a single rebuild. A rebuild is never interrupted: events that arrive while
// one is running re-arm the timer, producing exactly one follow-up rebuild.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period after the last filesystem event before
// a rebuild fires. Editors commonly write, rename, and chmod in quick
// succession; the window coalesces that into one rebuild.
const defaultDebounce = 500 * time.Millisecond

// DefaultPatterns selects the files whose changes trigger rebuilds.
var DefaultPatterns = []string{"**/*.rs"}

// defaultIgnores excludes paths that change as a *result* of builds or that
// are pure editor/VCS noise. Watching target/ would make every build trigger
// the next one.
var defaultIgnores = []string{
	"**/target/**",
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Patterns are doublestar globs selecting the files that trigger
		// rebuilds. Empty means DefaultPatterns.
		Patterns []string

		// Ignore are additional globs for paths that never trigger rebuilds,
		// merged with the built-in defaults.
		Ignore []string

		// Debounce is the quiet period before a rebuild fires. Zero or
		// negative falls back to defaultDebounce.
		Debounce time.Duration

		// ClearScreen clears the terminal before each rebuild.
		ClearScreen bool

		// BaseDir is the directory to watch, usually the library's src/
		// directory. Empty defaults to the current working directory.
		BaseDir string

		// OnRebuild runs the rebuild. Its error is reported, not fatal: the
		// loop keeps watching after a failed build.
		OnRebuild func(ctx context.Context) error

		// Stdout and Stderr default to os.Stdout / os.Stderr when nil.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Watcher monitors the library sources and fires debounced rebuilds.
	// Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		patterns []string
		ignores  []string
		stdout   io.Writer
		stderr   io.Writer
		debounce time.Duration
		baseDir  string
		started  atomic.Bool
	}
)

// New creates a Watcher from the given Config. It resolves BaseDir to an
// absolute path, validates the globs, and registers every non-ignored
// directory under BaseDir with fsnotify.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	// Bad globs should fail at construction, not silently never match.
	if err := validatePatterns(patterns, "watch"); err != nil {
		fsw.Close() //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		fsw.Close() //nolint:errcheck // best-effort cleanup
		return nil, err
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: patterns,
		ignores:  ignores,
		stdout:   stdout,
		stderr:   stderr,
		debounce: debounce,
		baseDir:  absBase,
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			fmt.Fprintf(stderr, "watch: close after init failure: %v\n", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Run blocks until ctx is cancelled, processing filesystem events and firing
// debounced rebuilds. It returns nil on clean cancellation and propagates
// fatal watcher errors. A second call returns an error immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu       sync.Mutex
		dirty    bool
		timer    *time.Timer
		building atomic.Bool
	)

	// fire runs one rebuild if sources changed since the last one. It can be
	// scheduled by time.AfterFunc after cancellation, so ctx is checked as a
	// best-effort guard. The building flag serializes rebuilds: when one is
	// still running, the timer is re-armed instead, so changes made during a
	// build surface as exactly one follow-up rebuild.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !building.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer building.Store(false)

		mu.Lock()
		if !dirty {
			mu.Unlock()
			return
		}
		dirty = false
		mu.Unlock()

		if w.cfg.ClearScreen {
			// ANSI: clear screen, cursor to top-left.
			fmt.Fprint(w.stdout, "\033[2J\033[H")
		}

		if w.cfg.OnRebuild != nil {
			if err := w.cfg.OnRebuild(ctx); err != nil {
				fmt.Fprintf(w.stderr, "watch: build failed: %v\n", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		localTimer := timer
		mu.Unlock()
		if localTimer != nil && !localTimer.Stop() {
			select {
			case <-localTimer.C:
			default:
			}
		}
		if closeErr := w.fsw.Close(); closeErr != nil {
			fmt.Fprintf(w.stderr, "watch: close fsnotify: %v\n", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}

			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}

			if w.isIgnored(rel) {
				continue
			}

			// New directories must be registered before their matching
			// files can be seen at all.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			if !w.matchesPatterns(rel) {
				continue
			}

			mu.Lock()
			dirty = true
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			// Resource exhaustion means the watcher cannot recover; anything
			// else is reported and the loop continues.
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			fmt.Fprintf(w.stderr, "watch: fsnotify error: %v\n", err)
		}
	}
}

// addDirectories walks BaseDir and registers every non-ignored directory.
// Pattern filtering happens per event, not here: a directory with no Rust
// files today may gain one later.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			// Inaccessible subtrees are skipped, not fatal.
			fmt.Fprintf(w.stderr, "watch: skipping inaccessible path %q: %v\n", path, walkDirErr)
			return nil //nolint:nilerr // intentional skip
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}

		if w.isIgnored(rel) || w.isIgnored(rel+"/") {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir registers path when it is a non-ignored directory, extending
// the recursive watch to directories created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return
	}

	if w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return
	}

	if addErr := w.fsw.Add(path); addErr != nil {
		fmt.Fprintf(w.stderr, "watch: add new directory %q: %v\n", path, addErr)
	}
}

// isIgnored reports whether rel (relative to BaseDir) matches any ignore
// pattern.
func (w *Watcher) isIgnored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// matchesPatterns reports whether rel matches at least one watch pattern.
func (w *Watcher) matchesPatterns(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.patterns {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	out := make([]string, len(defaultIgnores))
	copy(out, defaultIgnores)
	return out
}

// validatePatterns checks that every pattern is a valid doublestar glob. The
// label names the option in error messages.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if _, err := doublestar.Match(pat, ""); err != nil {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, err)
		}
	}
	return nil
}
