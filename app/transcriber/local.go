package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vtt-fusion/app/config"
	"vtt-fusion/app/logger"
)

// LocalWhisper 本地 whisper.cpp 转写后端
// 模型加载由 whisper.cpp 进程自身负责，对调用方透明
type LocalWhisper struct {
	cfg    config.WhisperConfig
	logger *logger.Logger
}

// whisperOutput whisper.cpp -oj 输出的 JSON 结构
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"` // 毫秒
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// NewLocalWhisper 创建本地转写后端
func NewLocalWhisper(cfg config.WhisperConfig, log *logger.Logger) *LocalWhisper {
	return &LocalWhisper{
		cfg:    cfg,
		logger: log,
	}
}

// Transcribe 调用 whisper.cpp 可执行文件并解析 JSON 输出
func (l *LocalWhisper) Transcribe(ctx context.Context, localPath string) ([]Segment, error) {
	// whisper.cpp 会在前缀后追加 .json
	outputPrefix := strings.TrimSuffix(localPath, filepath.Ext(localPath))
	jsonPath := outputPrefix + ".json"
	defer os.Remove(jsonPath)

	args := []string{
		"-m", l.cfg.ModelPath,
		"-f", localPath,
		"-oj",
		"-l", l.cfg.Language,
		"-of", outputPrefix,
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, l.cfg.BinaryPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("whisper 执行失败: %w, 输出: %s", err, string(output))
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("读取转写输出失败: %w", err)
	}

	var result whisperOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析转写输出失败: %w", err)
	}

	segments := make([]Segment, 0, len(result.Transcription))
	for _, t := range result.Transcription {
		segments = append(segments, Segment{
			Start: float64(t.Offsets.From) / 1000,
			End:   float64(t.Offsets.To) / 1000,
			Text:  t.Text,
		})
	}

	l.logger.Infof("本地转写完成: %s, 片段数=%d, 耗时=%v", localPath, len(segments), time.Since(start))
	return segments, nil
}
