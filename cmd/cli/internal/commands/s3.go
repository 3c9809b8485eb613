package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/logger"
	"github.com/wolfeidau/jokko/internal/objectstore"
)

type TestS3Cmd struct {
	Bucket    string   `help:"attachment bucket" required:"" env:"JOKKO_S3_BUCKET"`
	PathStyle bool     `help:"use path style addressing" default:"false" env:"JOKKO_S3_USE_PATH_STYLE"`
	Size      int      `help:"size of the test object in bytes" default:"1024"`
	Keep      bool     `help:"keep the test object instead of deleting it"`
	S3        AWSFlags `embed:"" prefix:"s3-" envprefix:"JOKKO_S3_"`
}

type objectStore interface {
	HealthCheck(ctx context.Context) error
	Upload(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error
	Download(ctx context.Context, key string) ([]byte, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

func (c *TestS3Cmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	client, err := objectstore.New(ctx, objectstore.Config{
		Bucket:       c.Bucket,
		EndpointURL:  c.S3.EndpointURL,
		UsePathStyle: c.PathStyle,
		AWS:          c.S3.Options(),
	})
	if err != nil {
		return err
	}

	res, err := roundTrip(ctx, client, c.Size, c.Keep)
	if err != nil {
		return err
	}

	log.Info().
		Str("bucket", c.Bucket).
		Str("key", res.key).
		Int("bytes", c.Size).
		Str("download_url", res.downloadURL).
		Bool("deleted", !c.Keep).
		Msg("S3 round trip succeeded")
	return nil
}

type roundTripResult struct {
	key         string
	downloadURL string
}

// roundTrip uploads random bytes, reads them back and compares them.
func roundTrip(ctx context.Context, store objectStore, size int, keep bool) (*roundTripResult, error) {
	if size <= 0 {
		return nil, errors.New("size must be greater than 0")
	}

	if err := store.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("bucket is not reachable: %w", err)
	}

	payload := make([]byte, size)
	if _, err := rand.Read(payload); err != nil {
		return nil, err
	}

	key := objectstore.Key("healthcheck", uuid.Nil, uuid.Nil, "jokko-cli.bin", time.Now())

	if err := store.Upload(ctx, key, bytes.NewReader(payload), "application/octet-stream", nil); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	got, err := store.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if !bytes.Equal(got, payload) {
		return nil, errors.New("downloaded object differs from upload")
	}

	url, err := store.PresignDownload(ctx, key, 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("presign failed: %w", err)
	}

	if !keep {
		if err := store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete failed: %w", err)
		}
	}

	return &roundTripResult{key: key, downloadURL: url}, nil
}
