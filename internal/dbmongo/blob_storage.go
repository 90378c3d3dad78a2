package dbmongo

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BlobStorage keeps event images in GridFS. The returned reference is the
// file's ObjectID hex; records store that string and the media handler
// streams it back out.
type BlobStorage struct {
	gridFS *gridfs.Bucket
}

func NewBlobStorage(mongoClient *MongoClient) *BlobStorage {
	return &BlobStorage{gridFS: mongoClient.GridFS}
}

type BlobInfo struct {
	ID         string
	Filename   string
	Size       int64
	UploadedAt time.Time
}

// Upload streams content into the bucket under a unique name derived from
// pathHint, so repeated uploads by the same publisher never collide.
func (bs *BlobStorage) Upload(ctx context.Context, pathHint string, content io.Reader) (string, error) {
	filename := fmt.Sprintf("%s/%s", pathHint, uuid.NewString())
	metadata := bson.M{
		"path_hint":   pathHint,
		"uploaded_at": time.Now(),
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := bs.gridFS.OpenUploadStream(filename, opts)
	if err != nil {
		return "", fmt.Errorf("open upload stream: %w", err)
	}
	defer stream.Close()

	if _, err := io.Copy(stream, content); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	return stream.FileID.(primitive.ObjectID).Hex(), nil
}

// Download opens the stored file for reading. The caller closes the stream.
func (bs *BlobStorage) Download(ctx context.Context, fileID string) (io.ReadCloser, *BlobInfo, error) {
	oid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid file id: %w", err)
	}

	stream, err := bs.gridFS.OpenDownloadStream(oid)
	if err != nil {
		return nil, nil, fmt.Errorf("open download stream: %w", err)
	}

	info := stream.GetFile()
	return stream, &BlobInfo{
		ID:         fileID,
		Filename:   info.Name,
		Size:       info.Length,
		UploadedAt: info.UploadDate,
	}, nil
}

func (bs *BlobStorage) Delete(ctx context.Context, fileID string) error {
	oid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}
	return bs.gridFS.Delete(oid)
}
