package service

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// RunLog 单次批量运行的行式日志缓冲
// 作为业务产物随输出一起上传，与进程日志相互独立
// 行格式固定为 "时间 | 内容"，结果行为 "时间 | 对象键 | 结果 | 说明"
type RunLog struct {
	mu    sync.Mutex
	lines []string
}

// NewRunLog 创建运行日志缓冲
func NewRunLog() *RunLog {
	return &RunLog{}
}

// Logf 追加一行普通日志
func (l *RunLog) Logf(format string, args ...interface{}) {
	l.append(fmt.Sprintf(format, args...))
}

// Record 追加一行处理结果
func (l *RunLog) Record(key string, outcome OutcomeKind, reason string) {
	l.append(fmt.Sprintf("%s | %s | %s", key, outcome, reason))
}

func (l *RunLog) append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, time.Now().Format("2006-01-02 15:04:05")+" | "+line)
}

// String 返回完整日志内容
func (l *RunLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n") + "\n"
}

// Lines 返回日志行的副本
func (l *RunLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// WriteFile 将日志内容写入文件
func (l *RunLog) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(l.String()), 0644); err != nil {
		return fmt.Errorf("写入运行日志失败: %w", err)
	}
	return nil
}
