package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"jobmatch-go/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// ArtifactStorage 临时产物存储接口
type ArtifactStorage interface {
	// UploadCoverLetter 上传求职信PDF并返回限时下载URL
	UploadCoverLetter(ctx context.Context, pdfData []byte) (string, error)

	// UploadFile 上传任意文件到指定路径
	UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error)

	// GetPresignedURL 获取预签名URL
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// 确保MinIO实现了ArtifactStorage接口
var _ ArtifactStorage = (*MinIO)(nil)

// MinIO 提供临时产物的对象存储功能
// 生成的求职信PDF写入产物桶，由生命周期规则和预签名URL共同保证限时可见
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	artifactBucket string
	artifactTTL    time.Duration
	logger         *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("[MinIO] Initializing MinIO client with endpoint: %s, artifactBucket: %s", cfg.Endpoint, cfg.ArtifactBucket)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logger.Printf("[MinIO] Initialization failed: %v", err)
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	artifactBucket := cfg.ArtifactBucket
	if artifactBucket == "" {
		artifactBucket = "cover-letters" // 默认值
	}

	m := &MinIO{
		client:         client,
		cfg:            cfg,
		artifactBucket: artifactBucket,
		artifactTTL:    cfg.ArtifactTTL(),
		logger:         logger,
	}

	if err := m.ensureBucketExists(artifactBucket, cfg.Location); err != nil {
		logger.Printf("[MinIO] Failed to ensure artifact bucket %s exists: %v", artifactBucket, err)
		return nil, fmt.Errorf("确保产物存储桶 %s 存在失败: %w", artifactBucket, err)
	}

	// 设置生命周期规则，兜底清理过期产物
	if m.artifactTTL > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			logger.Printf("[MinIO] Warning: Failed to set up lifecycle rules: %v", err)
		}
	}

	logger.Printf("[MinIO] Client initialized successfully for endpoint: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	m.logger.Printf("[MinIO] Ensuring bucket exists: %s (Location: %s)", bucketName, location)
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		m.logger.Printf("[MinIO] Error checking if bucket %s exists: %v", bucketName, err)
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		m.logger.Printf("[MinIO] Bucket %s does not exist, attempting to create...", bucketName)
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			m.logger.Printf("[MinIO] Error creating bucket %s: %v", bucketName, err)
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] Bucket %s created successfully.", bucketName)
	} else {
		m.logger.Printf("[MinIO] Bucket %s already exists.", bucketName)
	}
	return nil
}

// setupLifecycleRules 设置对象生命周期规则
// 生命周期的最小粒度是天，TTL向上取整到天数
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	expiryDays := int((m.artifactTTL + 24*time.Hour - 1) / (24 * time.Hour))
	if expiryDays < 1 {
		expiryDays = 1
	}
	m.logger.Printf("[MinIO] Setting lifecycle rule for bucket %s: ExpiryDays=%d", m.artifactBucket, expiryDays)

	lcConfig := lifecycle.NewConfiguration()
	lcConfig.Rules = []lifecycle.Rule{
		{
			ID:     "expire-cover-letters",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}

	if err := m.client.SetBucketLifecycle(ctx, m.artifactBucket, lcConfig); err != nil {
		m.logger.Printf("[MinIO] Error setting lifecycle for bucket %s: %v", m.artifactBucket, err)
		return err
	}
	m.logger.Printf("[MinIO] Successfully set lifecycle for bucket %s.", m.artifactBucket)
	return nil
}

// UploadCoverLetter 上传求职信PDF并返回预签名下载URL
// 对象键使用随机UUID，URL有效期等于产物TTL
func (m *MinIO) UploadCoverLetter(ctx context.Context, pdfData []byte) (string, error) {
	objectName := fmt.Sprintf("cover-letters/%s.pdf", uuid.NewString())

	_, err := m.UploadFile(ctx, objectName, bytes.NewReader(pdfData), int64(len(pdfData)), "application/pdf")
	if err != nil {
		return "", fmt.Errorf("上传求职信PDF失败: %w", err)
	}

	url, err := m.GetPresignedURL(ctx, objectName, m.artifactTTL)
	if err != nil {
		return "", fmt.Errorf("生成求职信下载URL失败: %w", err)
	}

	m.logger.Printf("[MinIO] Cover letter uploaded: %s (%d bytes)", objectName, len(pdfData))
	return url, nil
}

// UploadFile 上传文件到产物桶的指定路径
func (m *MinIO) UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error) {
	info, err := m.client.PutObject(ctx, m.artifactBucket, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		m.logger.Printf("[MinIO] Error uploading object %s: %v", objectName, err)
		return "", fmt.Errorf("上传对象 %s 失败: %w", objectName, err)
	}
	m.logger.Printf("[MinIO] Uploaded object %s (%d bytes)", objectName, info.Size)
	return objectName, nil
}

// GetPresignedURL 获取对象的预签名下载URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = time.Hour
	}
	presignedURL, err := m.client.PresignedGetObject(ctx, m.artifactBucket, objectName, expiry, nil)
	if err != nil {
		m.logger.Printf("[MinIO] Error generating presigned URL for %s: %v", objectName, err)
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}
