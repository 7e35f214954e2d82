package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ==================== 配置 ====================

// StorageConfig 素材存储配置
type StorageConfig struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	CDNDomain string // CDN 域名 (可选)
	BasePath  string // 基础路径前缀
}

// ==================== StorageService 素材存储 ====================

// StorageService 邮件模板素材存储
// 只负责生成直传签名和访问 URL，模板编辑器本身在前端
type StorageService struct {
	client *s3.Client
	cfg    *StorageConfig
}

// NewStorageService 创建素材存储服务
func NewStorageService(cfg *StorageConfig) (*StorageService, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %v", err)
	}

	return &StorageService{
		client: s3.NewFromConfig(awsCfg),
		cfg:    cfg,
	}, nil
}

// PresignUpload 生成素材直传 URL
// 对象 key 按合同隔离：{basePath}/contracts/{contractID}/assets/{uuid}{ext}
func (s *StorageService) PresignUpload(ctx context.Context, contractID int64, fileName, contentType string) (uploadURL, objectKey string, err error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	objectKey = fmt.Sprintf("%s/contracts/%d/assets/%s%s",
		strings.Trim(s.cfg.BasePath, "/"), contractID, uuid.NewString(), ext)

	presignClient := s3.NewPresignClient(s.client)
	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", fmt.Errorf("生成直传签名失败: %v", err)
	}

	return req.URL, objectKey, nil
}

// PublicURL 素材公开访问 URL
func (s *StorageService) PublicURL(objectKey string) string {
	if s.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cfg.CDNDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, objectKey)
}

// Delete 删除素材
func (s *StorageService) Delete(ctx context.Context, objectKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey),
	})
	return err
}
