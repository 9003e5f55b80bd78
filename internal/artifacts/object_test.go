package artifacts_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-country-currency/internal/artifacts"
	"github.com/tbourn/go-country-currency/internal/artifacts/mocks"
	"github.com/tbourn/go-country-currency/internal/config"
)

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }
func (r failingReader) Close() error             { return nil }

var noSuchKey = minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

func TestObjectStore_SaveUsesPrefixedKeys(t *testing.T) {
	m := new(mocks.Client)
	s := artifacts.NewObjectStore(m, "country-cache", "prod/")
	ctx := context.Background()

	m.On("PutObject", ctx, "country-cache", "prod/last_refreshed.txt", mock.Anything, int64(5),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "text/plain; charset=utf-8" })).
		Return(minio.UploadInfo{}, nil).Once()
	m.On("PutObject", ctx, "country-cache", "prod/summary.png", mock.Anything, int64(3),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "image/png" })).
		Return(minio.UploadInfo{}, nil).Once()

	require.NoError(t, s.SaveTimestamp(ctx, "hello"))
	require.NoError(t, s.SaveImage(ctx, []byte("png")))
	m.AssertExpectations(t)
}

func TestObjectStore_PutErrorIsWrapped(t *testing.T) {
	m := new(mocks.Client)
	s := artifacts.NewObjectStore(m, "b", "")
	m.On("PutObject", mock.Anything, "b", "summary.png", mock.Anything, int64(1), mock.Anything).
		Return(minio.UploadInfo{}, errors.New("boom"))

	err := s.SaveImage(context.Background(), []byte{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestObjectStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Present", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("GetObject", ctx, "b", "last_refreshed.txt", minio.GetObjectOptions{}).
			Return(io.NopCloser(bytes.NewReader([]byte("2025-10-19T08:25:00.000000+00:00\n"))), nil)

		ts, ok, err := artifacts.NewObjectStore(m, "b", "").LoadTimestamp(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2025-10-19T08:25:00.000000+00:00", ts)
	})

	t.Run("NoSuchKeyOnGet", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("GetObject", ctx, "b", "summary.png", minio.GetObjectOptions{}).Return(nil, noSuchKey)

		img, ok, err := artifacts.NewObjectStore(m, "b", "").LoadImage(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, img)
	})

	t.Run("NoSuchKeyOnRead", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("GetObject", ctx, "b", "summary.png", minio.GetObjectOptions{}).Return(failingReader{err: noSuchKey}, nil)

		_, ok, err := artifacts.NewObjectStore(m, "b", "").LoadImage(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("OtherError", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("GetObject", ctx, "b", "summary.png", minio.GetObjectOptions{}).Return(failingReader{err: errors.New("reset")}, nil)

		_, ok, err := artifacts.NewObjectStore(m, "b", "").LoadImage(ctx)
		require.Error(t, err)
		assert.False(t, ok)
	})
}

func TestObjectStore_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "b").Return(true, nil)
		require.NoError(t, artifacts.NewObjectStore(m, "b", "").EnsureBucket(ctx, "us-east-1"))
		m.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Created", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "b").Return(false, nil)
		m.On("MakeBucket", ctx, "b", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil).Once()
		require.NoError(t, artifacts.NewObjectStore(m, "b", "").EnsureBucket(ctx, "us-east-1"))
		m.AssertExpectations(t)
	})

	t.Run("CheckFails", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "b").Return(false, errors.New("denied"))
		assert.Error(t, artifacts.NewObjectStore(m, "b", "").EnsureBucket(ctx, ""))
	})
}

func TestNewMinioClient(t *testing.T) {
	for _, endpoint := range []string{"localhost:9000", "http://localhost:9000", "https://s3.amazonaws.com"} {
		c, err := artifacts.NewMinioClient(config.MinioConfig{Endpoint: endpoint, AccessKey: "k", SecretKey: "s"})
		assert.NoError(t, err, endpoint)
		assert.NotNil(t, c)
	}
}
