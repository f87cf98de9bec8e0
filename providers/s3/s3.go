// Package s3store keeps sealed archives in an S3 bucket.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ArchiveContentType is set on every uploaded archive.
const ArchiveContentType = "application/zip"

// Client is the subset of the S3 API the store needs.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store uploads and downloads archives under one bucket.
type Store struct {
	client Client
	bucket string
	logger *slog.Logger
}

// New creates a store using the default AWS configuration chain.
func New(ctx context.Context, bucket string) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), bucket)
}

// NewWithClient creates a store around an existing client.
func NewWithClient(client Client, bucket string) (*Store, error) {
	if client == nil {
		return nil, errors.New("s3 client cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}
	return &Store{client: client, bucket: bucket, logger: slog.Default()}, nil
}

// WithLogger returns the store logging to logger.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// NewKey returns a fresh object key below prefix.
func NewKey(prefix string) string {
	return path.Join(prefix, uuid.NewString()+".gpk")
}

// Upload streams the archive at file to key. It returns once S3 has
// accepted the whole object.
func (s *Store) Upload(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive %s: %w", file, err)
	}

	w := s.newWriter(ctx, key, info.Size())
	if _, err := io.Copy(w, f); err != nil {
		w.abort(err)
		return fmt.Errorf("upload %s to s3://%s/%s: %w", file, s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s to s3://%s/%s: %w", file, s.bucket, key, err)
	}
	s.logger.Debug("archive uploaded", "bucket", s.bucket, "key", key, "bytes", info.Size())
	return nil
}

// Download writes the object at key to file, replacing it.
func (s *Store) Download(ctx context.Context, key, file string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("create %s: %w", file, err)
	}
	n, err := io.Copy(f, out.Body)
	if err != nil {
		f.Close()
		return fmt.Errorf("download s3://%s/%s: %w", s.bucket, key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", file, err)
	}
	s.logger.Debug("archive downloaded", "bucket", s.bucket, "key", key, "bytes", n)
	return nil
}

// s3Writer pipes writes into a PutObject call running in the background.
type s3Writer struct {
	writer *io.PipeWriter
	done   chan error
}

func (s *Store) newWriter(ctx context.Context, key string, size int64) *s3Writer {
	reader, writer := io.Pipe()
	w := &s3Writer{writer: writer, done: make(chan error, 1)}

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic during upload: %v", r)
			}
			// Unblock the writer if the upload stopped early.
			reader.CloseWithError(err)
			w.done <- err
		}()
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          reader,
			ContentLength: aws.Int64(size),
			ContentType:   aws.String(ArchiveContentType),
		})
	}()
	return w
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.writer.Write(p)
}

// Close signals end of data and waits for the upload to finish.
func (w *s3Writer) Close() error {
	if err := w.writer.Close(); err != nil {
		return err
	}
	return <-w.done
}

func (w *s3Writer) abort(err error) {
	w.writer.CloseWithError(err)
	<-w.done
}
