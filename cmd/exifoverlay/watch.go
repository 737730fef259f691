// watch.go - Render photos as they land in a directory.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// settleDelay is how long a file must stay quiet before it is rendered.
// Cameras and sync tools write in several chunks.
const settleDelay = 500 * time.Millisecond

// debouncer runs fn for a key once no new Trigger for it arrived within delay.
type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	fn     func(key string)
}

func newDebouncer(delay time.Duration, fn func(key string)) *debouncer {
	return &debouncer{delay: delay, timers: map[string]*time.Timer{}, fn: fn}
}

func (d *debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.schedule(key)
}

// schedule replaces the pending timer for key. Callers hold d.mu. A timer
// that already fired but lost the race for d.mu sees it was replaced and
// does nothing.
func (d *debouncer) schedule(key string) {
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.timers[key] == t
		if current {
			delete(d.timers, key)
		}
		d.mu.Unlock()
		if current {
			d.fn(key)
		}
	})
	d.timers[key] = t
}

// Stop cancels every pending call.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, t := range d.timers {
		t.Stop()
		delete(d.timers, k)
	}
}

func runWatch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch")
	var (
		rf     renderFlags
		inDir  string
		outDir string
	)
	rf.register(fs)
	fs.StringVar(&inDir, "dir", "", "Directory to watch")
	fs.StringVar(&outDir, "out", "", "Output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if inDir == "" || outDir == "" {
		return fmt.Errorf("--dir and --out are required")
	}
	if filepath.Clean(inDir) == filepath.Clean(outDir) {
		return fmt.Errorf("--out must differ from --dir")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}

	conf, err := rf.load(fs)
	if err != nil {
		return err
	}
	p, err := newPipeline(conf)
	if err != nil {
		return err
	}
	defer p.Close()

	return watch(ctx, inDir, func(path string) {
		out := p.outputPath(path, outDir)
		if err := p.renderFile(ctx, path, out); err != nil {
			klog.Errorf("%v", err)
			return
		}
		fmt.Printf("Saved: %s\n", out)
	})
}

// watch calls handle for each renderable file created or rewritten in dir
// until ctx is done. Calls are serialized.
func watch(ctx context.Context, dir string, handle func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	klog.Infof("watching %s", dir)

	var mu sync.Mutex
	d := newDebouncer(settleDelay, func(path string) {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); err != nil {
			klog.V(1).Infof("%s went away: %v", path, err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		handle(path)
	})
	defer d.Stop()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(2).Infof("event: %v", event)
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if renderable(event.Name) {
				d.Trigger(event.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		case <-ctx.Done():
			return nil
		}
	}
}
