package filewatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vtt-fusion/app/config"
	"vtt-fusion/app/logger"
	"vtt-fusion/app/transcriber"
	"vtt-fusion/app/utils/filevalidator"
	"vtt-fusion/app/utils/vtthelper"

	"github.com/fsnotify/fsnotify"
)

// Watcher 本地收件目录监控
// 监控目录中出现的新媒体文件会被就地转写，字幕写入输出目录，不经过对象存储
type Watcher struct {
	cfg         *config.Config
	logger      *logger.Logger
	transcriber transcriber.Transcriber
	watcher     *fsnotify.Watcher
	outputDir   string
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// New 创建本地收件目录监控，未启用时返回 nil
func New(cfg *config.Config, log *logger.Logger, tr transcriber.Transcriber) *Watcher {
	if !cfg.Watcher.Enabled {
		return nil
	}

	outputDir := cfg.Watcher.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(cfg.Watcher.Directory, "output")
	}

	return &Watcher{
		cfg:         cfg,
		logger:      log,
		transcriber: tr,
		outputDir:   outputDir,
		stopCh:      make(chan struct{}),
	}
}

// Start 启动监控
func (w *Watcher) Start() error {
	if w == nil {
		return nil
	}

	if err := os.MkdirAll(w.cfg.Watcher.Directory, 0755); err != nil {
		return fmt.Errorf("创建监控目录失败: %w", err)
	}
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监控器失败: %w", err)
	}
	if err := watcher.Add(w.cfg.Watcher.Directory); err != nil {
		watcher.Close()
		return fmt.Errorf("添加监控目录失败: %w", err)
	}
	w.watcher = watcher

	w.wg.Add(1)
	go w.loop()

	w.logger.Infof("本地收件目录监控已启动: %s", w.cfg.Watcher.Directory)
	return nil
}

// Stop 停止监控并等待处理中的文件完成
func (w *Watcher) Stop() {
	if w == nil || w.watcher == nil {
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	w.wg.Wait()
	w.logger.Infof("本地收件目录监控已停止")
}

// loop 事件循环
func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.isCandidate(event.Name) {
				continue
			}
			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()
				w.handleFile(path)
			}(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("文件监控错误: %v", err)
		}
	}
}

// isCandidate 按扩展名初筛
func (w *Watcher) isCandidate(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range w.cfg.Batch.AllowedExtensions {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

// handleFile 处理一个新出现的媒体文件
func (w *Watcher) handleFile(path string) {
	// 等待写入方完成，文件大小稳定后再处理
	if !w.waitForSettle(path) {
		w.logger.Warnf("文件未稳定或已消失，跳过: %s", path)
		return
	}

	baseName, err := filevalidator.Validate(path, filepath.Base(path), filevalidator.Limits{
		MaxFileSize:       w.cfg.Batch.MaxFileSize,
		AllowedExtensions: w.cfg.Batch.AllowedExtensions,
	})
	if err != nil {
		w.logger.Warnf("本地文件校验未通过: %s, %v", path, err)
		return
	}

	segments, err := w.transcriber.Transcribe(context.Background(), path)
	if err != nil {
		w.logger.Errorf("本地文件转写失败: %s, %v", path, err)
		return
	}

	vttPath := filepath.Join(w.outputDir, baseName+".vtt")
	if err := os.WriteFile(vttPath, []byte(vtthelper.Render(transcriber.ToVTTSegments(segments))), 0644); err != nil {
		w.logger.Errorf("写入字幕文件失败: %s, %v", vttPath, err)
		return
	}

	w.logger.Infof("本地文件转写完成: %s -> %s", path, vttPath)
}

// waitForSettle 轮询文件大小直到连续两次一致
func (w *Watcher) waitForSettle(path string) bool {
	var lastSize int64 = -1
	for i := 0; i < 30; i++ {
		select {
		case <-w.stopCh:
			return false
		case <-time.After(time.Second):
		}

		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() > 0 && info.Size() == lastSize {
			return true
		}
		lastSize = info.Size()
	}
	return false
}
