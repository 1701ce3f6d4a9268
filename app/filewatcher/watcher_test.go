package filewatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vtt-fusion/app/config"
	"vtt-fusion/app/logger"
	"vtt-fusion/app/transcriber"
)

// mp3Content 带 ID3 头的可通过嗅探的内容
func mp3Content(payload string) []byte {
	header := []byte("ID3\x04\x00\x00\x00\x00\x00\x00")
	return append(header, []byte(payload)...)
}

type stubTranscriber struct {
	err error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, localPath string) ([]transcriber.Segment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []transcriber.Segment{
		{Start: 0, End: 1.5, Text: "Hello"},
	}, nil
}

func watcherConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Batch: config.BatchConfig{
			MaxFileSize:       10 * 1024 * 1024,
			AllowedExtensions: []string{".mp3", ".mp4"},
		},
		Watcher: config.WatcherConfig{
			Enabled:   true,
			Directory: filepath.Join(t.TempDir(), "inbox"),
			OutputDir: filepath.Join(t.TempDir(), "output"),
		},
	}
}

func startWatcher(t *testing.T, cfg *config.Config, tr transcriber.Transcriber) *Watcher {
	t.Helper()
	w := New(cfg, logger.New(config.LogConfig{Level: "error"}), tr)
	if w == nil {
		t.Fatal("启用时 New() 不应返回 nil")
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() 返回错误: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

// waitForFile 轮询等待文件出现
func waitForFile(t *testing.T, path string, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func TestNewDisabledReturnsNil(t *testing.T) {
	cfg := watcherConfig(t)
	cfg.Watcher.Enabled = false

	w := New(cfg, logger.New(config.LogConfig{Level: "error"}), &stubTranscriber{})
	if w != nil {
		t.Error("未启用时 New() 应返回 nil")
	}
	// nil 监控器上的 Start/Stop 应当安全
	if err := w.Start(); err != nil {
		t.Errorf("nil 监控器 Start() 返回错误: %v", err)
	}
	w.Stop()
}

func TestWatcherTranscribesNewFile(t *testing.T) {
	cfg := watcherConfig(t)
	w := startWatcher(t, cfg, &stubTranscriber{})

	if err := os.WriteFile(filepath.Join(cfg.Watcher.Directory, "talk.mp3"), mp3Content("speech"), 0644); err != nil {
		t.Fatal(err)
	}

	vttPath := filepath.Join(w.outputDir, "talk.vtt")
	if !waitForFile(t, vttPath, 10*time.Second) {
		t.Fatalf("字幕文件未在预期时间内生成: %s", vttPath)
	}

	data, err := os.ReadFile(vttPath)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	for _, want := range []string{"WEBVTT", "00:00:00.000 --> 00:00:01.500", "Hello"} {
		if !strings.Contains(doc, want) {
			t.Errorf("字幕内容缺少 %q:\n%s", want, doc)
		}
	}
}

func TestWatcherIgnoresNonCandidateFiles(t *testing.T) {
	cfg := watcherConfig(t)
	w := startWatcher(t, cfg, &stubTranscriber{})

	if err := os.WriteFile(filepath.Join(cfg.Watcher.Directory, "notes.txt"), []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}

	vttPath := filepath.Join(w.outputDir, "notes.vtt")
	if waitForFile(t, vttPath, 3*time.Second) {
		t.Errorf("非候选扩展名不应生成字幕: %s", vttPath)
	}
}

func TestWatcherSkipsFileFailingValidation(t *testing.T) {
	cfg := watcherConfig(t)
	w := startWatcher(t, cfg, &stubTranscriber{})

	// 扩展名合法但内容嗅探不符，应被校验拒绝
	if err := os.WriteFile(filepath.Join(cfg.Watcher.Directory, "fake.mp3"), []byte("plain text body"), 0644); err != nil {
		t.Fatal(err)
	}

	vttPath := filepath.Join(w.outputDir, "fake.vtt")
	if waitForFile(t, vttPath, 3*time.Second) {
		t.Errorf("校验未通过的文件不应生成字幕: %s", vttPath)
	}
}

func TestWatcherSurvivesTranscribeError(t *testing.T) {
	cfg := watcherConfig(t)
	w := startWatcher(t, cfg, &stubTranscriber{err: errors.New("模拟后端错误")})

	if err := os.WriteFile(filepath.Join(cfg.Watcher.Directory, "broken.mp3"), mp3Content("speech"), 0644); err != nil {
		t.Fatal(err)
	}

	vttPath := filepath.Join(w.outputDir, "broken.vtt")
	if waitForFile(t, vttPath, 3*time.Second) {
		t.Errorf("转写失败的文件不应生成字幕: %s", vttPath)
	}
	// 失败后监控器仍应正常停止
}
