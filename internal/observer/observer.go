package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gnemet/SlideLens/internal/config"
	"github.com/gnemet/SlideLens/internal/history"
	"github.com/gnemet/SlideLens/internal/pipeline"
	"github.com/gnemet/SlideLens/internal/pptx"
)

// Observer converts every deck or PDF dropped into the inbox and writes the
// composite and font report to the outbox.
type Observer struct {
	cfg     config.WatchConfig
	conv    pipeline.Converter
	history *history.Recorder
	log     *zap.Logger
	LogChan chan string
}

func NewObserver(cfg config.WatchConfig, conv pipeline.Converter, hist *history.Recorder, log *zap.Logger, logChan chan string) *Observer {
	if log == nil {
		log = zap.NewNop()
	}
	if hist == nil {
		hist = history.NewRecorder(nil, nil, log)
	}
	return &Observer{
		cfg:     cfg,
		conv:    conv,
		history: hist,
		log:     log,
		LogChan: logChan,
	}
}

// notify forwards a one-line status to LogChan without blocking.
func (o *Observer) notify(format string, v ...any) {
	if o.LogChan == nil {
		return
	}
	select {
	case o.LogChan <- fmt.Sprintf(format, v...):
	default:
	}
}

func supported(name string) bool {
	_, err := pipeline.ParseFormat(pipeline.DetectFormat(name))
	return err == nil && !strings.HasPrefix(filepath.Base(name), ".")
}

// Start blocks until ctx is done. Files already in the inbox are processed first.
func (o *Observer) Start(ctx context.Context) error {
	if o.cfg.Inbox == "" || o.cfg.Outbox == "" {
		return fmt.Errorf("watch inbox and outbox must be configured")
	}
	for _, dir := range []string{o.cfg.Inbox, o.cfg.Outbox, o.cfg.Done} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(o.cfg.Inbox); err != nil {
		return err
	}

	o.log.Info("observer started", zap.String("inbox", o.cfg.Inbox), zap.String("outbox", o.cfg.Outbox))
	o.notify("watching %s", o.cfg.Inbox)

	o.scanDirectory(ctx, o.cfg.Inbox)

	// Writes arrive in bursts while a file is copied in; each burst resets the
	// file's timer and only the last one triggers a conversion.
	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) || !supported(event.Name) {
				continue
			}
			name := event.Name
			if t, ok := timers[name]; ok {
				t.Reset(o.cfg.Debounce)
				continue
			}
			timers[name] = time.AfterFunc(o.cfg.Debounce, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(timers, path)
			o.processFile(ctx, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

func (o *Observer) scanDirectory(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		o.log.Error("failed to scan directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	for _, e := range entries {
		if !e.IsDir() && supported(e.Name()) {
			o.processFile(ctx, filepath.Join(dir, e.Name()))
		}
	}
}

type fontsFile struct {
	Theme pptx.ThemeFonts      `json:"theme"`
	Fonts pptx.SlideFontReport `json:"fonts"`
}

func (o *Observer) processFile(ctx context.Context, path string) {
	filename := filepath.Base(path)
	log := o.log.With(zap.String("file", filename))

	data, err := os.ReadFile(path)
	if err != nil {
		// Removed between the event and the timer firing.
		log.Warn("failed to read input", zap.Error(err))
		return
	}

	res, err := o.conv.Convert(ctx, data, pipeline.DetectFormat(filename))
	if err != nil {
		log.Error("conversion failed", zap.Error(err))
		o.notify("failed: %s: %v", filename, err)
		return
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	imgPath := filepath.Join(o.cfg.Outbox, stem+".jpg")
	if err := os.WriteFile(imgPath, res.Encoded.Bytes(), 0644); err != nil {
		log.Error("failed to write composite", zap.String("path", imgPath), zap.Error(err))
		return
	}

	if res.Format == pipeline.FormatPPTX {
		report, err := json.MarshalIndent(fontsFile{Theme: res.Theme, Fonts: res.Fonts}, "", "  ")
		if err != nil {
			log.Error("failed to encode font report", zap.Error(err))
			return
		}
		fontsPath := filepath.Join(o.cfg.Outbox, stem+".fonts.json")
		if err := os.WriteFile(fontsPath, report, 0644); err != nil {
			log.Error("failed to write font report", zap.String("path", fontsPath), zap.Error(err))
			return
		}
	}

	if _, err := o.history.Record(ctx, filename, data, res); err != nil {
		log.Error("failed to record conversion", zap.Error(err))
	}

	log.Info("processed", zap.Int("pages", len(res.Pages)), zap.String("output", imgPath))
	o.notify("processed: %s (%d pages)", filename, len(res.Pages))

	o.finalizeFile(path, filename)
}

// finalizeFile moves a processed input to the done directory so a restart
// does not convert it again.
func (o *Observer) finalizeFile(path, filename string) {
	if o.cfg.Done == "" {
		return
	}
	newPath := filepath.Join(o.cfg.Done, filename)
	if path == newPath {
		return
	}
	if err := os.Rename(path, newPath); err != nil {
		o.log.Warn("failed to move processed file", zap.String("file", filename), zap.Error(err))
		return
	}
	o.log.Debug("moved processed file", zap.String("from", path), zap.String("to", newPath))
}
