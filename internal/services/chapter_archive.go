package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/generation"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

// ChapterArchive keeps a markdown copy of every persisted chapter in object
// storage. Archive failures never fail a run.
type ChapterArchive interface {
	Put(ctx context.Context, courseID string, ch generation.Chapter) (string, error)
}

type minioChapterArchive struct {
	log    *logger.Logger
	client *minio.Client
	bucket string
}

func ArchiveKey(courseID string, number int) string {
	return fmt.Sprintf("courses/%s/chapter-%d.md", courseID, number)
}

func NewMinioChapterArchive(ctx context.Context, cfg config.ObjectStoreConfig, log *logger.Logger) (ChapterArchive, error) {
	if log == nil {
		log = logger.Nop()
	}
	serviceLog := log.With("service", "ChapterArchive")
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("missing object store endpoint")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing object store bucket")
	}
	access := strings.TrimSpace(os.Getenv(cfg.AccessKeyEnv))
	secret := strings.TrimSpace(os.Getenv(cfg.SecretKeyEnv))
	if access == "" || secret == "" {
		serviceLog.Warn("object store credentials missing; requests will be anonymous", "access_key_env", cfg.AccessKeyEnv)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(access, secret, ""),
		Secure:       cfg.UseSSL,
		Region:       "us-east-1",
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		serviceLog.Info("created archive bucket", "bucket", bucket)
	}
	return &minioChapterArchive{log: serviceLog, client: client, bucket: bucket}, nil
}

func (a *minioChapterArchive) Put(ctx context.Context, courseID string, ch generation.Chapter) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	key := ArchiveKey(courseID, ch.Number)
	body := generation.RenderMarkdown(ch)
	_, err := a.client.PutObject(ctx, a.bucket, key, strings.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/markdown; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}
