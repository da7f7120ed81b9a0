package s3fetch

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// TempFile is a downloaded object backed by a temporary file. It supports
// random access, which columnar formats need. Close removes the file.
type TempFile struct {
	*os.File
	size int64
}

// Size returns the number of bytes downloaded.
func (f *TempFile) Size() int64 {
	return f.size
}

// Close closes and removes the temporary file.
func (f *TempFile) Close() error {
	err := f.File.Close()
	if rmErr := os.Remove(f.Name()); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// Download fetches s3://bucket/key into a temporary file in dir (os.TempDir
// when empty) using ranged parallel GETs.
func (c *Client) Download(ctx context.Context, bucket, key, dir string) (*TempFile, error) {
	f, err := os.CreateTemp(dir, "pivotab-s3-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	dl := manager.NewDownloader(c.api, func(d *manager.Downloader) {
		d.PartSize = c.partSize
	})
	n, err := dl.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	return &TempFile{File: f, size: n}, nil
}
