package transcriber

import (
	"context"
	"fmt"

	"vtt-fusion/app/config"
	"vtt-fusion/app/logger"
	"vtt-fusion/app/utils/vtthelper"
)

// Segment 一条转写结果片段，时间单位为秒
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Transcriber 转写后端的统一契约
// 远程 API 与本地模型可互换；无语音的音频返回空切片而不是错误
type Transcriber interface {
	Transcribe(ctx context.Context, localPath string) ([]Segment, error)
}

// ToVTTSegments 将转写片段转换为字幕渲染片段
func ToVTTSegments(segments []Segment) []vtthelper.Segment {
	out := make([]vtthelper.Segment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, vtthelper.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return out
}

// NewFromConfig 根据配置创建转写后端
func NewFromConfig(cfg *config.Config, log *logger.Logger) (Transcriber, error) {
	switch cfg.Whisper.Mode {
	case "api":
		return NewWhisperAPI(cfg.Whisper, log), nil
	case "local":
		return NewLocalWhisper(cfg.Whisper, log), nil
	default:
		return nil, fmt.Errorf("未知的转写模式: %s", cfg.Whisper.Mode)
	}
}
