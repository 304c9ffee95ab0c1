package chromem

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/philippgille/chromem-go"

	"github.com/flarexio/vecview/vector"
)

var ErrSnapshotNotFound = errors.New("snapshot object not found")

// openRemoteSnapshot loads a store exported with chromem-go's DB.Export*
// from an S3-compatible bucket into memory.
func openRemoteSnapshot(ctx context.Context, cfg vector.RemoteConfig, encryptionKey string) (*chromem.DB, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	if _, err := client.StatObject(ctx, cfg.Bucket, cfg.Object, minio.StatObjectOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("%w: %w: %s/%s", vector.ErrConnection, ErrSnapshotNotFound, cfg.Bucket, cfg.Object)
		}

		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	obj, err := client.GetObject(ctx, cfg.Bucket, cfg.Object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	defer obj.Close()

	db := chromem.NewDB()
	if err := db.ImportFromReader(obj, encryptionKey); err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	return db, nil
}
