package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vtt-fusion/app/config"
	"vtt-fusion/app/database"
	"vtt-fusion/app/logger"
	"vtt-fusion/app/model"
	"vtt-fusion/app/storage"
	"vtt-fusion/app/transcriber"
	"vtt-fusion/app/utils/filevalidator"
	"vtt-fusion/app/utils/vtthelper"

	"github.com/patrickmn/go-cache"
)

// OutcomeKind 单个候选对象的处理结果类型
type OutcomeKind string

const (
	OutcomeSuccess             OutcomeKind = "success"
	OutcomeValidationRejected  OutcomeKind = "validation_rejected"
	OutcomeTranscriptionFailed OutcomeKind = "transcription_failed"
	OutcomeStorageFailed       OutcomeKind = "storage_failed"
	OutcomeSkipped             OutcomeKind = "skipped"
)

// StorageGateway 对象存储网关契约
// 列举顺序为后端原生顺序，调用方不得假定按时间排序
type StorageGateway interface {
	ListRecent(ctx context.Context, window time.Duration) ([]storage.Object, error)
	Download(ctx context.Context, key, localPath string) error
	Upload(ctx context.Context, localPath, key string) error
}

// Summary 一次批量运行的汇总结果
type Summary struct {
	RunID               string `json:"run_id"`
	Discovered          int    `json:"discovered"`
	Succeeded           int    `json:"succeeded"`
	ValidationRejected  int    `json:"validation_rejected"`
	TranscriptionFailed int    `json:"transcription_failed"`
	StorageFailed       int    `json:"storage_failed"`
	Skipped             int    `json:"skipped"`
}

// BatchService 批量转写编排服务
type BatchService struct {
	cfg         *config.Config
	logger      *logger.Logger
	gateway     StorageGateway
	transcriber transcriber.Transcriber
	processed   *cache.Cache // 近期已处理对象键的 TTL 缓存
}

// itemResult 单个候选对象的处理记录
type itemResult struct {
	key     string
	kind    OutcomeKind
	reason  string
	vttPath string
	vttName string
}

// NewBatchService 创建批量转写服务
// 网关与转写后端由调用方显式注入，便于替换实现
func NewBatchService(cfg *config.Config, log *logger.Logger, gw StorageGateway, tr transcriber.Transcriber) *BatchService {
	ttl := time.Duration(cfg.Batch.TimeWindowMinutes) * time.Minute
	return &BatchService{
		cfg:         cfg,
		logger:      log,
		gateway:     gw,
		transcriber: tr,
		processed:   cache.New(ttl, 10*time.Minute),
	}
}

// Run 执行一次批量转写
// 每个候选对象独立处理，单个文件失败不会中断整批；
// 只有发现扫描失败和运行日志上传失败会作为运行级错误返回。
// 暂存目录在任何退出路径上都会被清理，清理失败只记日志。
func (s *BatchService) Run(ctx context.Context) (*Summary, error) {
	runID := time.Now().Format("2006-01-02_15-04-05")
	summary := &Summary{RunID: runID}

	stagingDir := filepath.Join(s.cfg.Batch.StagingRoot, runID)
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return summary, fmt.Errorf("创建暂存目录失败: %w", err)
	}
	defer func() {
		// 清理错误不得掩盖原始错误，只记日志
		if err := os.RemoveAll(stagingDir); err != nil {
			s.logger.Errorf("清理暂存目录失败: %v", err)
		}
	}()

	record := s.createRunRecord(runID)

	runlog := NewRunLog()
	runlog.Logf("批量转写开始, 运行标识: %s", runID)
	runlog.Logf("发现窗口: %d 分钟, 存储桶: %s", s.cfg.Batch.TimeWindowMinutes, s.cfg.Storage.Bucket)

	window := time.Duration(s.cfg.Batch.TimeWindowMinutes) * time.Minute
	candidates, err := s.gateway.ListRecent(ctx, window)
	if err != nil {
		// 发现扫描失败时整次运行失败
		s.finalizeRunRecord(record, summary, err)
		return summary, fmt.Errorf("扫描存储桶失败: %w", err)
	}

	summary.Discovered = len(candidates)
	if len(candidates) == 0 {
		runlog.Logf("窗口内未发现媒体文件")
	} else {
		runlog.Logf("发现 %d 个候选文件", len(candidates))
	}

	// 按列举顺序逐个处理，单个失败被就地分类并继续
	usedNames := make(map[string]bool)
	results := make([]*itemResult, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, s.processOne(ctx, stagingDir, cand, usedNames, runlog))
	}

	// 上传所有暂存的字幕文件
	for _, res := range results {
		if res.kind != OutcomeSuccess {
			continue
		}
		outputKey := runID + "/" + res.vttName
		if err := s.gateway.Upload(ctx, res.vttPath, outputKey); err != nil {
			res.kind = OutcomeStorageFailed
			res.reason = fmt.Sprintf("上传字幕失败: %v", err)
			runlog.Record(res.key, res.kind, res.reason)
			continue
		}
		// 上传确认后才登记已处理，传输故障的文件在下一个窗口仍会重试
		s.processed.Set(res.key, true, cache.DefaultExpiration)
		runlog.Record(res.key, OutcomeSuccess, outputKey)
	}

	for _, res := range results {
		switch res.kind {
		case OutcomeSuccess:
			summary.Succeeded++
		case OutcomeValidationRejected:
			summary.ValidationRejected++
		case OutcomeTranscriptionFailed:
			summary.TranscriptionFailed++
		case OutcomeStorageFailed:
			summary.StorageFailed++
		case OutcomeSkipped:
			summary.Skipped++
		}
	}
	runlog.Logf("批量转写结束: 成功 %d, 校验拒绝 %d, 转写失败 %d, 存储失败 %d, 跳过 %d",
		summary.Succeeded, summary.ValidationRejected, summary.TranscriptionFailed,
		summary.StorageFailed, summary.Skipped)

	// 上传运行日志；失败作为运行级错误返回，但不影响暂存清理
	var runErr error
	logPath := filepath.Join(stagingDir, "log.txt")
	if err := runlog.WriteFile(logPath); err != nil {
		runErr = err
	} else if err := s.gateway.Upload(ctx, logPath, runID+"/log.txt"); err != nil {
		runErr = fmt.Errorf("上传运行日志失败: %w", err)
	}

	s.finalizeRunRecord(record, summary, runErr)
	return summary, runErr
}

// processOne 处理单个候选对象: 下载 -> 校验 -> 转写 -> 渲染 -> 暂存
// 任何一步失败都被分类为对应结果并返回，不向上传播
func (s *BatchService) processOne(ctx context.Context, stagingDir string, cand storage.Object, usedNames map[string]bool, runlog *RunLog) *itemResult {
	res := &itemResult{key: cand.Key}

	if _, found := s.processed.Get(cand.Key); found {
		res.kind = OutcomeSkipped
		res.reason = "近期已处理，跳过"
		runlog.Record(res.key, res.kind, res.reason)
		return res
	}

	// 以对象键的散列命名临时文件，并发处理时互不冲突
	localPath := filepath.Join(stagingDir, tempName(cand.Key))
	if err := s.gateway.Download(ctx, cand.Key, localPath); err != nil {
		res.kind = OutcomeStorageFailed
		res.reason = fmt.Sprintf("下载失败: %v", err)
		runlog.Record(res.key, res.kind, res.reason)
		return res
	}
	defer func() {
		// 原始媒体文件在处理后立即清理，无论结果如何
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warnf("清理临时文件 %s 失败: %v", localPath, err)
		}
	}()

	baseName, err := filevalidator.Validate(localPath, cand.Key, filevalidator.Limits{
		MaxFileSize:       s.cfg.Batch.MaxFileSize,
		AllowedExtensions: s.cfg.Batch.AllowedExtensions,
	})
	if err != nil {
		var rejection *filevalidator.RejectionError
		if errors.As(err, &rejection) {
			res.kind = OutcomeValidationRejected
		} else {
			// 校验期间的 IO 故障按存储失败处理
			res.kind = OutcomeStorageFailed
		}
		res.reason = err.Error()
		runlog.Record(res.key, res.kind, res.reason)
		return res
	}

	// 不同对象键净化出同名基础名时，追加键散列后缀避免互相覆盖
	res.vttName = baseName + ".vtt"
	if usedNames[res.vttName] {
		res.vttName = baseName + "-" + keyHash(cand.Key) + ".vtt"
	}
	usedNames[res.vttName] = true

	segments, err := s.transcriber.Transcribe(ctx, localPath)
	if err != nil {
		res.kind = OutcomeTranscriptionFailed
		res.reason = fmt.Sprintf("转写失败: %v", err)
		runlog.Record(res.key, res.kind, res.reason)
		return res
	}

	doc := vtthelper.Render(transcriber.ToVTTSegments(segments))
	res.vttPath = filepath.Join(stagingDir, res.vttName)
	if err := os.WriteFile(res.vttPath, []byte(doc), 0644); err != nil {
		res.kind = OutcomeStorageFailed
		res.reason = fmt.Sprintf("写入字幕文件失败: %v", err)
		runlog.Record(res.key, res.kind, res.reason)
		return res
	}

	res.kind = OutcomeSuccess
	return res
}

// createRunRecord 在数据库中登记本次运行
func (s *BatchService) createRunRecord(runID string) *model.BatchRun {
	db := database.GetDB()
	if db == nil {
		return nil
	}
	record := &model.BatchRun{
		RunID:  runID,
		Status: model.RunStatusRunning,
	}
	if err := db.Create(record).Error; err != nil {
		s.logger.Errorf("登记运行记录失败: %v", err)
		return nil
	}
	return record
}

// finalizeRunRecord 回写运行结果
func (s *BatchService) finalizeRunRecord(record *model.BatchRun, summary *Summary, runErr error) {
	db := database.GetDB()
	if db == nil || record == nil {
		return
	}

	now := time.Now()
	record.Status = model.RunStatusCompleted
	if runErr != nil {
		record.Status = model.RunStatusFailed
		record.ErrorMsg = runErr.Error()
	}
	record.Discovered = summary.Discovered
	record.Succeeded = summary.Succeeded
	record.ValidationRejected = summary.ValidationRejected
	record.TranscriptionFailed = summary.TranscriptionFailed
	record.StorageFailed = summary.StorageFailed
	record.Skipped = summary.Skipped
	record.CompletedAt = &now

	if err := db.Save(record).Error; err != nil {
		s.logger.Errorf("回写运行记录失败: %v", err)
	}
}

// keyHash 对象键的短散列，用于无冲突命名
func keyHash(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// tempName 根据对象键生成无冲突的本地临时文件名
func tempName(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	return "media-" + keyHash(key) + ext
}
