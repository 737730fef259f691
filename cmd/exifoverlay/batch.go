// batch.go - Render every photo under a directory tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"

	"github.com/xob0t/exifoverlay/pkg/config"
	"github.com/xob0t/exifoverlay/pkg/source"
)

// renderable reports whether path names a photo type this build can
// decode. Size is checked later, when the file is rendered.
func renderable(path string) bool {
	switch source.MIMEType(path) {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

// collect returns the renderable photos under root, skipping dot files
// and anything inside skip.
func collect(root, skip string) ([]string, error) {
	var found []string
	skip = filepath.Clean(skip)

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && strings.HasPrefix(filepath.Base(path), ".") {
				klog.V(2).Infof("skipping hidden %s", path)
				return godirwalk.SkipThis
			}
			if de.IsDir() {
				if skip != "." && filepath.Clean(path) == skip {
					return godirwalk.SkipThis
				}
				return nil
			}
			if renderable(path) {
				found = append(found, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return found, nil
}

type batchJob struct {
	in  string
	rel string // directory of in relative to the walk root
}

func runBatch(ctx context.Context, args []string) error {
	fs := newFlagSet("batch")
	var (
		rf            renderFlags
		inDir         string
		outDir        string
		keepOriginals bool
		jobs          int
	)
	rf.register(fs)
	fs.StringVar(&inDir, "dir", "", "Directory of photos")
	fs.StringVar(&outDir, "out", "", "Output directory")
	fs.BoolVar(&keepOriginals, "keep-originals", false, "Copy each source photo to <out>/originals")
	fs.IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Parallel renders")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if inDir == "" || outDir == "" {
		return fmt.Errorf("--dir and --out are required")
	}
	if jobs < 1 {
		jobs = 1
	}

	conf, err := rf.load(fs)
	if err != nil {
		return err
	}

	files, err := collect(inDir, outDir)
	if err != nil {
		return err
	}
	klog.Infof("found %d photos in %s", len(files), inDir)

	failed, err := renderAll(ctx, conf, files, inDir, outDir, keepOriginals, jobs)
	if err != nil {
		return err
	}
	fmt.Printf("Rendered %d of %d photos into %s\n", len(files)-failed, len(files), outDir)
	if failed > 0 {
		return fmt.Errorf("%d photos failed", failed)
	}
	return nil
}

// renderAll fans files out over jobs workers and returns the failure count.
func renderAll(ctx context.Context, conf config.Config, files []string, inDir, outDir string, keepOriginals bool, jobs int) (int, error) {
	pipes := make([]*pipeline, jobs)
	for i := range pipes {
		p, err := newPipeline(conf)
		if err != nil {
			return 0, err
		}
		defer p.Close()
		pipes[i] = p
	}

	queue := make(chan batchJob)
	var (
		mu     sync.Mutex
		failed int
		wg     sync.WaitGroup
	)
	for _, p := range pipes {
		wg.Add(1)
		go func(p *pipeline) {
			defer wg.Done()
			for j := range queue {
				if err := batchOne(ctx, p, j, outDir, keepOriginals); err != nil {
					if !errors.Is(err, context.Canceled) {
						klog.Errorf("%s: %v", j.in, err)
					}
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}(p)
	}

feed:
	for _, in := range files {
		rel, err := filepath.Rel(inDir, filepath.Dir(in))
		if err != nil {
			rel = "."
		}
		select {
		case queue <- batchJob{in: in, rel: rel}:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return failed, err
	}
	return failed, nil
}

func batchOne(ctx context.Context, p *pipeline, j batchJob, outDir string, keepOriginals bool) error {
	out := p.outputPath(j.in, filepath.Join(outDir, j.rel))
	if err := p.renderFile(ctx, j.in, out); err != nil {
		return err
	}
	if keepOriginals {
		dest := filepath.Join(outDir, "originals", j.rel, filepath.Base(j.in))
		if err := copy.Copy(j.in, dest); err != nil {
			return fmt.Errorf("copy original: %w", err)
		}
	}
	return nil
}
