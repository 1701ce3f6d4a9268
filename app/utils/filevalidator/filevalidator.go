package filevalidator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// RejectionReason 校验拒绝原因
type RejectionReason string

const (
	ExtensionNotAllowed RejectionReason = "extension_not_allowed"
	MimeMismatch        RejectionReason = "mime_mismatch"
	TooLarge            RejectionReason = "too_large"
	UnsafeName          RejectionReason = "unsafe_name"
)

// RejectionError 校验拒绝，属于策略决定而不是程序故障
type RejectionError struct {
	Reason RejectionReason
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("文件被拒绝(%s): %s", e.Reason, e.Detail)
}

// Limits 校验参数
type Limits struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// 扩展名到可接受 MIME 类型的映射
// 嗅探结果必须与扩展名声明的媒体族一致
var extMimeTypes = map[string][]string{
	".mp3":  {"audio/mpeg"},
	".mp4":  {"video/mp4", "audio/mp4"},
	".m4a":  {"audio/x-m4a", "audio/mp4", "video/mp4"},
	".wav":  {"audio/wav", "audio/x-wav"},
	".webm": {"video/webm", "audio/webm"},
	".mpga": {"audio/mpeg"},
	".mpeg": {"video/mpeg"},
	".ogg":  {"audio/ogg", "application/ogg"},
	".flac": {"audio/flac"},
}

// 安全字符白名单之外的字符全部替换为下划线
var unsafeCharPattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Validate 校验本地媒体文件并返回净化后的安全文件名（不含扩展名的基础名）
// 拒绝时返回 *RejectionError，其余错误为 IO 故障
func Validate(localPath, declaredName string, limits Limits) (string, error) {
	sanitized := SanitizeFilename(declaredName)
	if sanitized == "" || strings.TrimLeft(sanitized, "._") == "" {
		return "", &RejectionError{Reason: UnsafeName, Detail: fmt.Sprintf("文件名 %q 净化后为空", declaredName)}
	}

	ext := strings.ToLower(filepath.Ext(sanitized))
	if !extensionAllowed(ext, limits.AllowedExtensions) {
		return "", &RejectionError{Reason: ExtensionNotAllowed, Detail: fmt.Sprintf("不支持的文件类型 %s", ext)}
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("读取文件信息失败: %w", err)
	}
	if info.Size() > limits.MaxFileSize {
		return "", &RejectionError{Reason: TooLarge, Detail: fmt.Sprintf("文件大小 %d 超过上限 %d 字节", info.Size(), limits.MaxFileSize)}
	}

	// 内容嗅探，防止伪装扩展名的文件混入
	kind, err := mimetype.DetectFile(localPath)
	if err != nil {
		return "", fmt.Errorf("嗅探文件类型失败: %w", err)
	}
	if !mimeAccepted(kind, ext) {
		return "", &RejectionError{Reason: MimeMismatch, Detail: fmt.Sprintf("文件内容 %s 与扩展名 %s 不符", kind.String(), ext)}
	}

	return strings.TrimSuffix(sanitized, filepath.Ext(sanitized)), nil
}

// SanitizeFilename 净化文件名：去除路径信息，替换白名单之外的字符
func SanitizeFilename(name string) string {
	// 同时处理两种路径分隔符，防止路径穿越
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return unsafeCharPattern.ReplaceAllString(name, "_")
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

func mimeAccepted(kind *mimetype.MIME, ext string) bool {
	accepted, ok := extMimeTypes[ext]
	if !ok {
		// 允许列表里配置了映射之外的扩展名时退回宽松策略：
		// 只要求嗅探结果属于音视频族
		return strings.HasPrefix(kind.String(), "audio/") || strings.HasPrefix(kind.String(), "video/")
	}
	for _, m := range accepted {
		if kind.Is(m) {
			return true
		}
	}
	return false
}
