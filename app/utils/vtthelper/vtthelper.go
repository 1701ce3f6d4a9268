package vtthelper

import (
	"fmt"
	"math"
	"strings"
)

// Segment 一条带时间轴的字幕片段，时间单位为秒
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Render 将字幕片段渲染为 WebVTT 文档
// 文本为空的片段会被跳过，不会输出空白 cue
func Render(segments []Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		b.WriteString(FormatTimestamp(seg.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(seg.End))
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	return b.String()
}

// FormatTimestamp 将秒数格式化为 VTT 时间格式 HH:MM:SS.mmm
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	// 按毫秒取整，避免浮点截断导致少一毫秒
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3600000
	minutes := (totalMillis % 3600000) / 60000
	secs := (totalMillis % 60000) / 1000
	millis := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}
