package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunLogRecordFormat(t *testing.T) {
	rl := NewRunLog()
	rl.Record("uploads/audio.mp3", OutcomeSuccess, "2025-06-23_09-30-45/audio.vtt")

	lines := rl.Lines()
	if len(lines) != 1 {
		t.Fatalf("行数 = %d, want 1", len(lines))
	}

	// 固定分隔符格式: 时间 | 对象键 | 结果 | 说明
	parts := strings.Split(lines[0], " | ")
	if len(parts) != 4 {
		t.Fatalf("字段数 = %d, want 4: %q", len(parts), lines[0])
	}
	if parts[1] != "uploads/audio.mp3" {
		t.Errorf("对象键字段 = %q", parts[1])
	}
	if parts[2] != string(OutcomeSuccess) {
		t.Errorf("结果字段 = %q", parts[2])
	}
}

func TestRunLogWriteFile(t *testing.T) {
	rl := NewRunLog()
	rl.Logf("批量转写开始")
	rl.Record("a.mp3", OutcomeValidationRejected, "不支持的文件类型")

	path := filepath.Join(t.TempDir(), "log.txt")
	if err := rl.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() 失败: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "批量转写开始") {
		t.Error("日志内容缺少普通行")
	}
	if !strings.Contains(content, string(OutcomeValidationRejected)) {
		t.Error("日志内容缺少结果行")
	}
	if !strings.HasSuffix(content, "\n") {
		t.Error("日志文件应以换行结尾")
	}
}

func TestRunLogConcurrentAppend(t *testing.T) {
	rl := NewRunLog()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				rl.Logf("并发写入")
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := len(rl.Lines()); got != 1000 {
		t.Errorf("行数 = %d, want 1000", got)
	}
}
