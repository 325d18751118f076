// Package watch registers and indexes documents dropped into a directory.
package watch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is picked up.
const DefaultSettle = 500 * time.Millisecond

// DefaultExtensions are the file types the watcher reacts to.
var DefaultExtensions = []string{".pdf", ".txt"}

// Config configures a Watcher.
type Config struct {
	// Extensions filters files by suffix, case-insensitively.
	Extensions []string

	// Settle debounces bursts of writes to one file.
	Settle time.Duration

	// IncludeExisting registers files already in the directory at start.
	IncludeExisting bool

	// Index indexes each document after registering it.
	Index bool

	// Out receives one progress line per document. Nil discards them.
	Out io.Writer
}

// Watcher turns new files into registered documents.
type Watcher struct {
	documents driving.DocumentService
	indexing  driving.IndexingService
	cfg       Config

	// docs maps a path to its registered document ID.
	docs map[string]string
	// done holds paths that need no further work.
	done map[string]bool
	// stamps is each pending file's size and mtime at its last event.
	stamps map[string]fileStamp
}

type fileStamp struct {
	size int64
	mod  int64
}

func stampOf(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{size: -1}
	}
	return fileStamp{size: info.Size(), mod: info.ModTime().UnixNano()}
}

// New creates a watcher. indexing may be nil when cfg.Index is false.
func New(documents driving.DocumentService, indexing driving.IndexingService, cfg Config) *Watcher {
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	return &Watcher{
		documents: documents,
		indexing:  indexing,
		cfg:       cfg,
		docs:      make(map[string]string),
		done:      make(map[string]bool),
		stamps:    make(map[string]fileStamp),
	}
}

// Run watches dir until ctx is cancelled. Failures for single files are
// reported and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	if w.cfg.IncludeExisting {
		if err := w.scan(ctx, dir); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	defer close(done)

	ready := make(chan string)
	pending := make(map[string]*time.Timer)
	arm := func(name string) *time.Timer {
		return time.AfterFunc(w.cfg.Settle, func() {
			select {
			case ready <- name:
			case <-done:
			}
		})
	}
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.watched(event.Name) || w.done[event.Name] {
				continue
			}
			w.stamps[event.Name] = stampOf(event.Name)
			if t, ok := pending[event.Name]; ok {
				t.Reset(w.cfg.Settle)
				continue
			}
			pending[event.Name] = arm(event.Name)

		case name := <-ready:
			if w.done[name] {
				delete(pending, name)
				continue
			}
			// A file that changed without an event is not settled yet.
			if now := stampOf(name); now != w.stamps[name] {
				w.stamps[name] = now
				pending[name] = arm(name)
				continue
			}
			delete(pending, name)
			delete(w.stamps, name)
			w.handle(ctx, name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

func (w *Watcher) scan(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if w.watched(path) {
			w.handle(ctx, path)
		}
	}
	return nil
}

func (w *Watcher) watched(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return slices.Contains(w.cfg.Extensions, strings.ToLower(filepath.Ext(base)))
}

// handle registers path once and indexes it. A path is only done once
// indexing succeeds, so a failed attempt is retried on the file's next
// write under the same document ID.
func (w *Watcher) handle(ctx context.Context, path string) {
	if w.done[path] {
		return
	}

	docID, ok := w.docs[path]
	if !ok {
		sourceURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
		doc, err := w.documents.Register(ctx, driving.RegisterDocumentRequest{SourceURL: sourceURL})
		if err != nil {
			logger.Debug("watch: registering %s: %v", path, err)
			fmt.Fprintf(w.cfg.Out, "%s: %s\n", filepath.Base(path), domain.UserMessage(err))
			return
		}
		docID = doc.ID
		w.docs[path] = docID
		fmt.Fprintf(w.cfg.Out, "Registered %s as %s\n", filepath.Base(path), docID)
	}

	if !w.cfg.Index || w.indexing == nil {
		w.done[path] = true
		return
	}
	ns, err := w.indexing.EnsureIndexed(ctx, docID)
	if err != nil {
		logger.Debug("watch: indexing %s: %v", docID, err)
		fmt.Fprintf(w.cfg.Out, "%s: %s\n", docID, domain.UserMessage(err))
		return
	}
	w.done[path] = true
	fmt.Fprintf(w.cfg.Out, "Indexed %s: %d chunks\n", docID, ns.ChunkCount)
}
