package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/switchinfo/internal/config"
)

// ResultStore 采集结果的持久化：按 key 覆盖写入，按 key 读回
type ResultStore interface {
	Write(ctx context.Context, key, content string) error
	Read(ctx context.Context, key string) (string, error)
	// Location 供日志显示的存储位置
	Location(key string) string
}

var keyReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// ArtifactKey 由设备地址与命令生成存储 key：{host}_{command}
// 路径分隔符、控制字符以及 : * ? " < > | 替换为 _，空格保留；
// 只剩 _ 与 . 的 key（例如 host 与命令都为空）返回 unknown
func ArtifactKey(host, command string) string {
	raw := host + "_" + command
	var b strings.Builder
	for _, r := range keyReplacer.Replace(raw) {
		if r < 0x20 || r == 0x7f {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	key := strings.TrimSpace(b.String())
	if strings.Trim(key, "._") == "" {
		return "unknown"
	}
	return key
}

// NewResultStore 按 storage.backend 创建存储
func NewResultStore(cfg config.StorageConfig, log *logrus.Logger) (ResultStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Local), nil
	case "minio":
		return NewMinioStore(cfg.Minio, log)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// LocalStore 本地目录存储，每个 key 一个文件
type LocalStore struct {
	baseDir string
	mkdir   bool
}

// NewLocalStore 创建本地存储
func NewLocalStore(cfg config.LocalStorageConfig) *LocalStore {
	baseDir := strings.TrimSpace(cfg.BaseDir)
	if baseDir == "" {
		baseDir = "./files"
	}
	return &LocalStore{baseDir: baseDir, mkdir: cfg.MkdirIfMissing}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.baseDir, key)
}

// Location 文件路径
func (s *LocalStore) Location(key string) string {
	return s.path(key)
}

func (s *LocalStore) Write(ctx context.Context, key, content string) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "write", Key: key, Err: err}
	}
	if s.mkdir {
		if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
			return &StorageError{Op: "write", Key: key, Err: fmt.Errorf("failed to create dir: %w", err)}
		}
	}
	if err := os.WriteFile(s.path(key), []byte(content), 0o644); err != nil {
		return &StorageError{Op: "write", Key: key, Err: err}
	}
	return nil
}

func (s *LocalStore) Read(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &StorageError{Op: "read", Key: key, Err: err}
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", &StorageError{Op: "read", Key: key, Err: err}
	}
	return string(data), nil
}

// MinioStore MinIO 对象存储，对象名 {prefix}/{key}
type MinioStore struct {
	client        *minio.Client
	bucket        string
	prefix        string
	endpoint      string
	log           *logrus.Logger
	bucketEnsured bool
}

// NewMinioStore 创建 MinIO 存储；bucket 在首次写入时确保存在
func NewMinioStore(cfg config.MinioConfig, log *logrus.Logger) (*MinioStore, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" || cfg.Port <= 0 {
		return nil, errors.New("minio configuration incomplete; host/port missing")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("minio bucket not configured")
	}
	endpoint := cfg.Endpoint()

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 5 * time.Second,
		IdleConnTimeout:       90 * time.Second,
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.Secure,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client initialization failed: %w", err)
	}
	return &MinioStore{
		client:   client,
		bucket:   bucket,
		prefix:   strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		endpoint: endpoint,
		log:      log,
	}, nil
}

func (s *MinioStore) objectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Location minio://bucket/object
func (s *MinioStore) Location(key string) string {
	return "minio://" + path.Join(s.bucket, s.objectName(key))
}

func (s *MinioStore) Write(ctx context.Context, key, content string) error {
	if !s.bucketEnsured {
		if err := s.ensureBucket(ctx); err != nil {
			return &StorageError{Op: "write", Key: key, Err: fmt.Errorf("minio ensure bucket failed: %w", err)}
		}
		s.bucketEnsured = true
	}
	data := []byte(content)
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return &StorageError{Op: "write", Key: key, Err: fmt.Errorf("minio put object to %s: %w", s.endpoint, err)}
	}
	return nil
}

func (s *MinioStore) Read(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return "", &StorageError{Op: "read", Key: key, Err: err}
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			err = fmt.Errorf("%w: %v", fs.ErrNotExist, err)
		}
		return "", &StorageError{Op: "read", Key: key, Err: err}
	}
	return string(data), nil
}

// ensureBucket 校验并创建 bucket
func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return err
	}
	s.log.WithField("bucket", s.bucket).Info("MinIO bucket created")
	return nil
}
