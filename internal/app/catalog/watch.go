package catalog

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
)

// Watch reloads the library file at path into c whenever it changes, until
// ctx is done. A file that fails to load or holds no artists is logged and
// the current library is kept.
func (c *Catalog) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create library watcher")
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", path)
	}
	zlog.Info().Msgf("Watching library: %s", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			c.reload(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			zlog.Warn().Err(err).Msg("Library watcher error")
		}
	}
}

func (c *Catalog) reload(path string) {
	c.mu.RLock()
	opts := c.opts
	c.mu.RUnlock()

	// A truncated or half-written file fails here and the following write
	// event retries.
	next, err := Load(path, opts)
	if err == nil && len(next.library()) == 0 {
		err = errors.New("library is empty")
	}
	if err != nil {
		zlog.Warn().Err(err).Msg("Library reload failed, keeping current library")
		return
	}
	c.Replace(next)
	zlog.Info().Msgf("Library reloaded: %d songs", len(c.AllSongs()))
}
