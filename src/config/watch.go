package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 100 * time.Millisecond

var ErrNoConfigFile = errors.New("config: no config file to watch")

// Watch reloads the configuration whenever the TOML file at path changes
// and passes every valid result to fn. Invalid files are logged and skipped. It blocks
// until ctx is done.
func Watch(ctx context.Context, opts LoadOptions, path string, fn func(*Config)) error {
	if path == "" {
		return ErrNoConfigFile
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(path), err)
	}
	log.Printf("config: watching %s", path)

	reload := time.NewTimer(reloadDelay)
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reload.Reset(reloadDelay)

		case <-reload.C:
			opts.ConfigPathOverride = path
			cfg, err := LoadWithOptions(opts)
			if err != nil {
				log.Printf("config: reload rejected: %v", err)
				continue
			}
			log.Printf("config: reloaded %s", path)
			fn(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("config: watcher error: %v", err)
		}
	}
}
