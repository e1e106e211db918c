// Пакет предоставляет интерфейс и реализации файлового хранилища: Minio для
// продакшена и локальная директория для тестов и разработки.
package filestorage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}

type FileStorage interface {
	Save(data []byte, name uuid.UUID, contentType string) error
	SaveReader(reader io.Reader, fileSize int64, name uuid.UUID, contentType string) error
	LoadReader(name uuid.UUID) (io.ReadCloser, error)
	Delete(name uuid.UUID) error
	Exist(name uuid.UUID) (bool, error)
	ListRoot(fn func(FileInfo) error) error
}

type MinioStorage struct {
	client *minio.Client
	bucket string
}

func NewMinioStorage(endpoint string, accessKey string, secretKey string, useSSL bool, bucket string) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStorage{client: client, bucket: bucket}, nil
}

func (s *MinioStorage) Save(data []byte, name uuid.UUID, contentType string) error {
	return s.SaveReader(bytes.NewReader(data), int64(len(data)), name, contentType)
}

func (s *MinioStorage) SaveReader(reader io.Reader, fileSize int64, name uuid.UUID, contentType string) error {
	_, err := s.client.PutObject(
		context.Background(),
		s.bucket,
		name.String(),
		reader,
		fileSize,
		minio.PutObjectOptions{ContentType: contentType},
	)
	return err
}

func (s *MinioStorage) LoadReader(name uuid.UUID) (io.ReadCloser, error) {
	return s.client.GetObject(context.Background(), s.bucket, name.String(), minio.GetObjectOptions{})
}

func (s *MinioStorage) Delete(name uuid.UUID) error {
	return s.client.RemoveObject(context.Background(), s.bucket, name.String(), minio.RemoveObjectOptions{})
}

func (s *MinioStorage) Exist(name uuid.UUID) (bool, error) {
	_, err := s.client.StatObject(context.Background(), s.bucket, name.String(), minio.StatObjectOptions{})
	if err != nil {
		if errResp := minio.ToErrorResponse(err); errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MinioStorage) ListRoot(fn func(FileInfo) error) error {
	for object := range s.client.ListObjects(context.Background(), s.bucket, minio.ListObjectsOptions{}) {
		if object.Err != nil {
			return object.Err
		}
		if err := fn(FileInfo{
			Name:        object.Key,
			Size:        object.Size,
			ContentType: object.ContentType,
			CreatedAt:   object.LastModified,
		}); err != nil {
			return err
		}
	}
	return nil
}

type LocalStorage struct {
	rootDir string
}

func NewLocalStorage(rootDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, err
	}
	return &LocalStorage{rootDir: rootDir}, nil
}

func (s *LocalStorage) Save(data []byte, name uuid.UUID, contentType string) error {
	return os.WriteFile(filepath.Join(s.rootDir, name.String()), data, 0644)
}

func (s *LocalStorage) SaveReader(reader io.Reader, fileSize int64, name uuid.UUID, contentType string) error {
	f, err := os.Create(filepath.Join(s.rootDir, name.String()))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, reader)
	return err
}

func (s *LocalStorage) LoadReader(name uuid.UUID) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.rootDir, name.String()))
}

func (s *LocalStorage) Delete(name uuid.UUID) error {
	return os.Remove(filepath.Join(s.rootDir, name.String()))
}

func (s *LocalStorage) Exist(name uuid.UUID) (bool, error) {
	_, err := os.Stat(filepath.Join(s.rootDir, name.String()))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *LocalStorage) ListRoot(fn func(FileInfo) error) error {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if err := fn(FileInfo{
			Name:      entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}); err != nil {
			return err
		}
	}
	return nil
}
