package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes on disk and hands valid configs to
// onChange. Invalid edits are logged and ignored. The directory is watched
// rather than the file so editors that replace the file are picked up.
func Watch(ctx context.Context, path string, onChange func(Config, Validation)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	const debounce = 250 * time.Millisecond
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[config] watch error: %v", err)
		case <-timer.C:
			cfg, err := Load(path)
			if err != nil {
				log.Printf("[config] reload %s: %v", path, err)
				continue
			}
			norm, v := NormalizeAndValidate(cfg)
			if !v.OK() {
				log.Printf("[config] reload rejected: %v", v.Errors)
				continue
			}
			onChange(norm, v)
		}
	}
}
