package objects

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/lecture"
)

// minioAPI is the subset of *minio.Client the audio store uses.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}

func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}

func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (w minioClientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return w.c.RemoveObject(ctx, bucketName, objectName, opts)
}

// AudioStore stages recordings in an S3 compatible bucket.
type AudioStore struct {
	api    minioAPI
	bucket string
}

var _ lecture.AudioStore = (*AudioStore)(nil)

// NewAudioStore connects to the configured endpoint and makes sure the bucket exists.
func NewAudioStore(ctx context.Context, conf *core.Config) (*AudioStore, error) {
	sc := conf.Storage
	client, err := minio.New(sc.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(sc.MinioAccessKey, sc.MinioSecretKey, ""),
		Secure: sc.MinioSecure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}
	return NewAudioStoreWithAPI(ctx, minioClientWrapper{c: client}, sc.MinioBucket)
}

// NewAudioStoreWithAPI allows injecting a mockable API.
func NewAudioStoreWithAPI(ctx context.Context, api minioAPI, bucket string) (*AudioStore, error) {
	s := &AudioStore{api: api, bucket: bucket}
	if err := s.ensureBucketExists(ctx); err != nil {
		return nil, errors.Wrap(err, "ensuring bucket exists")
	}
	return s, nil
}

func (s *AudioStore) ensureBucketExists(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, "checking bucket existence")
	}
	if !exists {
		if err = s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.Wrap(err, "creating bucket")
		}
	}
	return nil
}

// Stage uploads the recording under a fresh key. The client filename only contributes its extension.
func (s *AudioStore) Stage(ctx context.Context, a lecture.Audio) (string, error) {
	key := "staging/" + uuid.NewString() + strings.ToLower(path.Ext(a.Filename))
	size := a.Size
	if size <= 0 {
		size = -1
	}
	_, err := s.api.PutObject(ctx, s.bucket, key, a.Body, size, minio.PutObjectOptions{ContentType: a.ContentType})
	if err != nil {
		return "", errors.Wrap(err, "uploading audio")
	}
	return key, nil
}

func (s *AudioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "getting audio")
	}
	return obj, nil
}

func (s *AudioStore) Remove(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, "removing audio")
	}
	return nil
}
