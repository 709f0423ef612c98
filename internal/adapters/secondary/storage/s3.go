package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PresignTTL : durée de validité des URLs de lecture
	PresignTTL time.Duration
}

// S3Store stocke les médias dans un bucket compatible S3 (MinIO).
type S3Store struct {
	cfg    S3Config
	client *minio.Client
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: client: %w", err)
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	return &S3Store{cfg: cfg, client: cl}, nil
}

var _ ports.MediaStorage = (*S3Store)(nil)

func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("s3: bucket exists: %w", err)
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Stage streame l'upload vers le bucket. Size -1 déclenche un upload multipart.
func (s *S3Store) Stage(ctx context.Context, up ports.MediaUpload) (string, error) {
	key := ObjectName(up.Filename, time.Now())
	size := up.Size
	if size == 0 {
		size = -1
	}
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, up.Body, size, minio.PutObjectOptions{
		ContentType: up.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	return key, nil
}

func (s *S3Store) Remove(ctx context.Context, ref string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3: remove object: %w", err)
	}
	return nil
}

// Handler redirige /uploads/<key> vers une URL présignée.
func (s *S3Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := path.Base(r.URL.Path)
		if key == "" || key == "/" || key == "." {
			http.NotFound(w, r)
			return
		}
		u, err := s.client.PresignedGetObject(r.Context(), s.cfg.Bucket, key, s.cfg.PresignTTL, nil)
		if err != nil {
			slog.ErrorContext(r.Context(), "presign failed", "key", key, "error", err)
			http.Error(w, "media unavailable", http.StatusBadGateway)
			return
		}
		http.Redirect(w, r, u.String(), http.StatusFound)
	})
}
