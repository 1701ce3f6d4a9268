package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	appconfig "vtt-fusion/app/config"
	"vtt-fusion/app/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object 一次发现扫描得到的候选存储对象
type Object struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// S3Storage 基于 S3 的对象存储网关
type S3Storage struct {
	cfg    appconfig.StorageConfig
	client *s3.Client
	logger *logger.Logger
}

// NewS3Storage 创建对象存储网关实例
// 网关由调用方显式构造并持有，不使用全局客户端
func NewS3Storage(ctx context.Context, cfg appconfig.StorageConfig, log *logger.Logger) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("加载存储配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// 兼容 MinIO 等 S3 协议实现
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		cfg:    cfg,
		client: client,
		logger: log,
	}, nil
}

// ListRecent 列出时间窗口内修改过的对象
// 返回顺序为存储桶的原生列举顺序（按键名字典序），不保证按时间排序
func (s *S3Storage) ListRecent(ctx context.Context, window time.Duration) ([]Object, error) {
	cutoff := time.Now().Add(-window)

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
	}
	if s.cfg.Prefix != "" {
		input.Prefix = aws.String(s.cfg.Prefix)
	}

	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("列举存储桶 %s 失败: %w", s.cfg.Bucket, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(obj.Key),
				LastModified: aws.ToTime(obj.LastModified),
				Size:         aws.ToInt64(obj.Size),
			})
		}
	}

	recent := FilterRecent(objects, cutoff)
	s.logger.Infof("扫描存储桶 %s: 共 %d 个对象, 窗口内 %d 个", s.cfg.Bucket, len(objects), len(recent))
	return recent, nil
}

// FilterRecent 按修改时间过滤对象，保留不早于 cutoff 的对象
// 边界时刻（恰好等于 cutoff）的对象被包含
func FilterRecent(objects []Object, cutoff time.Time) []Object {
	recent := make([]Object, 0, len(objects))
	for _, obj := range objects {
		if !obj.LastModified.Before(cutoff) {
			recent = append(recent, obj)
		}
	}
	return recent
}

// Download 下载对象到本地路径
// 先写入 .tmp 临时文件，完成后重命名，避免留下半截文件
func (s *S3Storage) Download(ctx context.Context, key, localPath string) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("获取对象 %s 失败: %w", key, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("创建下载目录失败: %w", err)
	}

	tmpPath := localPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("写入文件内容失败: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("关闭文件失败: %w", err)
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("重命名临时文件失败: %w", err)
	}

	return nil
}

// Upload 上传本地文件到指定键，已存在的对象会被覆盖
func (s *S3Storage) Upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("打开文件 %s 失败: %w", localPath, err)
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("上传对象 %s 失败: %w", key, err)
	}

	return nil
}
