package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"SampleFinder/logger"
	"SampleFinder/model"

	"github.com/fsnotify/fsnotify"
)

// AudioExtensions are the file types the watcher ingests.
var AudioExtensions = map[string]bool{
	".wav": true, ".wave": true, ".aif": true, ".aiff": true,
	".mp3": true, ".flac": true, ".ogg": true, ".m4a": true,
}

// IsAudioFile reports whether path has a known audio extension.
func IsAudioFile(path string) bool {
	return AudioExtensions[strings.ToLower(filepath.Ext(path))]
}

// Watcher ingests audio files dropped into a directory.
// 架构：fsnotify 监听 → 稳定性检查 → WorkerPool 并行入库
type Watcher struct {
	pipeline *Pipeline
	dir      string
	workers  int

	// Settle is how long a file must stay unchanged before it is ingested.
	Settle time.Duration
	// Tags are applied to every ingested file.
	Tags []string
	// ScanExisting ingests files already present when Run starts.
	ScanExisting bool
	// OnIngested is called after each successful ingest.
	OnIngested func(*model.Asset)
}

type pendingFile struct {
	lastChange time.Time
	size       int64
}

// NewWatcher 创建目录监听器
func NewWatcher(p *Pipeline, dir string, workers int) *Watcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 4 {
			workers = 4
		}
	}
	return &Watcher{
		pipeline: p,
		dir:      dir,
		workers:  workers,
		Settle:   200 * time.Millisecond,
	}
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}
	logger.Info("watching directory for samples",
		logger.String("dir", w.dir),
		logger.Int("workers", w.workers))

	tasks := make(chan string, 64)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.worker(ctx, id, tasks)
		}(i)
	}

	var producers sync.WaitGroup
	if w.ScanExisting {
		producers.Add(1)
		go func() {
			defer producers.Done()
			w.scan(ctx, tasks)
		}()
	}

	w.watch(ctx, watcher, tasks)

	producers.Wait()
	close(tasks)
	wg.Wait()
	return nil
}

func (w *Watcher) scan(ctx context.Context, tasks chan<- string) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("failed to scan directory", logger.String("dir", w.dir), logger.ErrorField(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !IsAudioFile(e.Name()) {
			continue
		}
		select {
		case tasks <- filepath.Join(w.dir, e.Name()):
		case <-ctx.Done():
			return
		}
	}
}

// watch collects write events and hands files on once their size is stable.
func (w *Watcher) watch(ctx context.Context, watcher *fsnotify.Watcher, tasks chan<- string) {
	pending := make(map[string]*pendingFile)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !IsAudioFile(event.Name) {
				continue
			}
			if p, ok := pending[event.Name]; ok {
				p.lastChange = time.Now()
			} else {
				pending[event.Name] = &pendingFile{lastChange: time.Now(), size: -1}
			}

		case <-ticker.C:
			now := time.Now()
			for path, p := range pending {
				info, err := os.Stat(path)
				if err != nil {
					// 文件已被删除或移动
					delete(pending, path)
					continue
				}
				if info.Size() != p.size {
					p.size = info.Size()
					p.lastChange = now
					continue
				}
				if now.Sub(p.lastChange) < w.Settle || info.Size() == 0 {
					continue
				}
				select {
				case tasks <- path:
					delete(pending, path)
				case <-ctx.Done():
					return
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("文件监听错误", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) worker(ctx context.Context, id int, tasks <-chan string) {
	for path := range tasks {
		if ctx.Err() != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("读取文件失败",
				logger.Int("worker", id),
				logger.String("path", path),
				logger.ErrorField(err))
			continue
		}
		asset, err := w.pipeline.Ingest(ctx, RawFile{
			Filename: filepath.Base(path),
			Tags:     w.Tags,
			Data:     data,
		})
		if err != nil {
			logger.Error("ingest failed", logger.String("path", path), logger.ErrorField(err))
			continue
		}
		if w.OnIngested != nil {
			w.OnIngested(asset)
		}
	}
}
