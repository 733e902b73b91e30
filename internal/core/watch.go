package core

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig invokes onChange with the fresh config whenever the
// config file is written. The returned stop func releases the watcher.
// Editors that replace the file (rename-over) are handled by watching
// the directory instead of the file.
func WatchConfig(onChange func(Config)) (stop func(), err error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				config, err := readConfigFile(path)
				if err != nil {
					continue
				}
				onChange(config)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return func() { watcher.Close() }, nil
}
