package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tbourn/go-country-currency/internal/config"
)

// Client is the subset of the MinIO client used by ObjectStore.
type Client interface {
	// BucketExists checks if a bucket exists.
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	// MakeBucket creates a new bucket.
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	// PutObject uploads an object.
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	// GetObject downloads an object.
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// NewMinioClient creates a MinIO client with bounded transport timeouts.
func NewMinioClient(cfg config.MinioConfig) (Client, error) {
	// Minio expects endpoint without scheme
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &minioClient{Client: mc}, nil
}

// minioClient adapts *minio.Client, whose GetObject returns *minio.Object.
type minioClient struct {
	*minio.Client
}

func (c *minioClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}

// ObjectStore keeps artifacts as objects named Prefix+name in Bucket.
type ObjectStore struct {
	Client Client
	Bucket string
	Prefix string
}

// NewObjectStore returns an ObjectStore over client.
func NewObjectStore(client Client, bucket, prefix string) *ObjectStore {
	return &ObjectStore{Client: client, Bucket: bucket, Prefix: prefix}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *ObjectStore) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.Client.MakeBucket(ctx, s.Bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.Bucket, err)
	}
	return nil
}

func (s *ObjectStore) SaveTimestamp(ctx context.Context, ts string) error {
	return s.put(ctx, TimestampName, []byte(ts), "text/plain; charset=utf-8")
}

func (s *ObjectStore) LoadTimestamp(ctx context.Context) (string, bool, error) {
	b, ok, err := s.get(ctx, TimestampName)
	if !ok || err != nil {
		return "", ok, err
	}
	ts := strings.TrimSpace(string(b))
	if ts == "" {
		return "", false, nil
	}
	return ts, true, nil
}

func (s *ObjectStore) SaveImage(ctx context.Context, png []byte) error {
	return s.put(ctx, ImageName, png, "image/png")
}

func (s *ObjectStore) LoadImage(ctx context.Context) ([]byte, bool, error) {
	return s.get(ctx, ImageName)
}

func (s *ObjectStore) put(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := s.Client.PutObject(ctx, s.Bucket, s.Prefix+name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

func (s *ObjectStore) get(ctx context.Context, name string) ([]byte, bool, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, s.Prefix+name, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", name, err)
	}
	defer obj.Close()

	// *minio.Object reports a missing key on first read.
	b, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return b, true, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
