// Package objectstore stores uploaded files in S3 and hands out presigned URLs.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/util"
)

const (
	DefaultPrefix       = "uploads"
	DefaultPresignTTL   = time.Hour
	checksumMetadataKey = "crc64nvme"
)

var (
	ErrChecksumMismatch = errors.New("object checksum mismatch")

	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// PresignAPI is the subset of s3.PresignClient used here.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Config struct {
	Bucket       string
	EndpointURL  string
	UsePathStyle bool
	AWS          util.AWSOptions
}

type Client struct {
	s3      S3API
	presign PresignAPI
	bucket  string
}

// New creates a client for cfg.Bucket. EndpointURL and UsePathStyle support MinIO and LocalStack.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	awsCfg, err := util.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewWithClients(client, s3.NewPresignClient(client), cfg.Bucket), nil
}

func NewWithClients(client S3API, presign PresignAPI, bucket string) *Client {
	return &Client{s3: client, presign: presign, bucket: bucket}
}

func (c *Client) Bucket() string { return c.bucket }

// Upload stores body under key with its CRC64-NVME checksum in the object metadata.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[checksumMetadataKey] = checksum(data)

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      meta,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}

	log.Debug().Str("bucket", c.bucket).Str("key", key).Int("size", len(data)).Msg("Uploaded object")
	return nil
}

// Download returns the object's content, verifying the stored checksum when present.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from s3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	if want, ok := out.Metadata[checksumMetadataKey]; ok && want != checksum(data) {
		return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, key)
	}
	return data, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// HealthCheck verifies the bucket is reachable with the configured credentials.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

// PresignUpload returns a URL the browser can PUT the file to directly.
func (c *Client) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return req.URL, nil
}

func (c *Client) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, nil
}

// Key builds prefix/org/user/unixmillis-name with unsafe file name characters replaced by '_'.
func Key(prefix string, orgID, userID uuid.UUID, fileName string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	safe := unsafeChars.ReplaceAllString(fileName, "_")
	return strings.Join([]string{
		prefix,
		orgID.String(),
		userID.String(),
		strconv.FormatInt(now.UnixMilli(), 10) + "-" + safe,
	}, "/")
}

func checksum(data []byte) string {
	h := crc64nvme.New()
	h.Write(data)
	return strconv.FormatUint(h.Sum64(), 16)
}
