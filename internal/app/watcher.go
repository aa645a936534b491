package app

import (
	"errors"
	"log/slog"

	"github.com/corey/dropcache/internal/adapters/dumpdir"
	fsw "github.com/corey/dropcache/internal/adapters/fsnotify"
	"github.com/corey/dropcache/internal/domain/wikitext"
	"github.com/corey/dropcache/internal/ports"
)

// watchDump starts watching dir for page dump changes.
func (a *App) watchDump(dir string) error {
	src, err := dumpdir.New(dir)
	if err != nil {
		return err
	}
	w, err := fsw.NewWatcher(fsw.Options{Accept: dumpdir.IsPageFile})
	if err != nil {
		return err
	}
	a.dump = src
	if err := w.Watch(src.Dir(), a.onFileChanged); err != nil {
		w.Stop()
		return err
	}
	a.watcher = w
	slog.Info("watching dump directory", "dir", src.Dir())
	return nil
}

// onFileChanged handles a create/modify/delete event for one dump file.
// A changed page is re-parsed and re-put; a deleted page, or one that no
// longer has drops, is removed from the cache.
func (a *App) onFileChanged(path string) {
	title := dumpdir.TitleFromPath(path)
	if title == "" || a.dump == nil {
		return
	}

	markup, err := a.dump.ReadFile(path)
	if errors.Is(err, ports.ErrPageNotFound) {
		if a.Store.Remove(title) {
			slog.Info("dump page removed", "title", title)
		}
		return
	}
	if err != nil {
		slog.Warn("dump page unreadable", "path", path, "error", err)
		return
	}

	rec := wikitext.ParsePage(title, markup, a.Config.Wiki.BaseURL)
	if !a.Store.Put(rec) {
		if a.Store.Remove(title) {
			slog.Info("dump page no longer lists drops", "title", title)
		}
		return
	}
	slog.Debug("dump page re-ingested", "title", title, "drops", len(rec.Drops))
}
