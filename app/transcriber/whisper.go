package transcriber

import (
	"context"
	"fmt"
	"time"

	"vtt-fusion/app/config"
	"vtt-fusion/app/logger"

	"resty.dev/v3"
)

// WhisperAPI 远程 Whisper 转写客户端
type WhisperAPI struct {
	cfg    config.WhisperConfig
	client *resty.Client
	logger *logger.Logger
}

// transcriptionResponse verbose_json 格式的转写响应
type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewWhisperAPI 创建远程 Whisper 转写客户端
func NewWhisperAPI(cfg config.WhisperConfig, log *logger.Logger) *WhisperAPI {
	client := resty.New()
	client.SetBaseURL(cfg.APIBaseURL)
	client.SetAuthToken(cfg.APIKey)
	client.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	return &WhisperAPI{
		cfg:    cfg,
		client: client,
		logger: log,
	}
}

// Transcribe 上传媒体文件并解析分段转写结果
func (w *WhisperAPI) Transcribe(ctx context.Context, localPath string) ([]Segment, error) {
	var response transcriptionResponse

	start := time.Now()
	resp, err := w.client.R().
		SetContext(ctx).
		SetFile("file", localPath).
		SetFormData(map[string]string{
			"model":           w.cfg.Model,
			"response_format": "verbose_json",
			"language":        w.cfg.Language,
		}).
		SetResult(&response).
		Post("/audio/transcriptions")

	if err != nil {
		return nil, fmt.Errorf("请求转写接口失败: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("转写接口返回错误，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
	}

	segments := make([]Segment, 0, len(response.Segments))
	for _, s := range response.Segments {
		segments = append(segments, Segment{
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		})
	}

	// 无语音的音频是合法结果，返回空切片
	w.logger.Infof("转写完成: %s, 片段数=%d, 耗时=%v", localPath, len(segments), time.Since(start))
	return segments, nil
}
