package gstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var ErrObjectNotExist = storage.ErrObjectNotExist

const transferTimeout = 50 * time.Second

// GStorage copies files to/from a Google Cloud Storage bucket, used for
// off-site backups of the database file.
type GStorage struct {
	storageClient *storage.Client
	bucket        string
	prefix        string
}

func NewGStorage(credentialsFilePath, bucket, prefix string) (*GStorage, error) {
	var client *storage.Client
	var err error

	if credentialsFilePath != "" {
		client, err = storage.NewClient(context.Background(), option.WithCredentialsFile(credentialsFilePath))
	} else {
		client, err = storage.NewClient(context.Background())
	}

	if err != nil {
		return nil, fmt.Errorf("NewGStorage: %v", err)
	}

	return &GStorage{storageClient: client, bucket: bucket, prefix: prefix}, nil
}

// UploadFile uploads the file at filePath as '<prefix>/<base name>'.
func (gs *GStorage) UploadFile(ctx context.Context, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("os.Open: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	object := gs.objectName(filepath.Base(filePath))
	wc := gs.storageClient.Bucket(gs.bucket).Object(object).NewWriter(ctx)
	if _, err = io.Copy(wc, f); err != nil {
		return fmt.Errorf("io.Copy: %v", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %v", err)
	}

	return nil
}

// DownloadFile downloads '<prefix>/<object>' to destFileName. Returns
// ErrObjectNotExist when no backup has been uploaded yet.
func (gs *GStorage) DownloadFile(ctx context.Context, object, destFileName string) error {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	rc, err := gs.storageClient.Bucket(gs.bucket).Object(gs.objectName(object)).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return err
	}
	if err != nil {
		return fmt.Errorf("Object(%q).NewReader: %v", object, err)
	}
	defer rc.Close()

	f, err := os.Create(destFileName)
	if err != nil {
		return fmt.Errorf("os.Create: %v", err)
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("f.Close: %v", err)
	}

	return nil
}

func (gs *GStorage) objectName(name string) string {
	if gs.prefix == "" {
		return name
	}

	return path.Join(gs.prefix, name)
}
