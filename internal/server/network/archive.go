package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/payportal/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// Manifest is the batch description archived to object storage and sent
// with the batch event.
type Manifest struct {
	BatchID      string                `json:"batchId"`
	PreparedAt   time.Time             `json:"preparedAt"`
	ManifestKey  string                `json:"manifestKey,omitempty"`
	Count        int                   `json:"count"`
	Transactions []*models.Transaction `json:"transactions"`
}

func NewManifest(b *models.Batch) *Manifest {
	return &Manifest{
		BatchID:      b.ID,
		PreparedAt:   b.PreparedAt,
		ManifestKey:  b.ManifestKey,
		Count:        len(b.Transactions),
		Transactions: b.Transactions,
	}
}

// ManifestKey is the object key of a batch manifest, partitioned by the
// day the batch was prepared.
func ManifestKey(b *models.Batch) string {
	d := b.PreparedAt.UTC()
	return fmt.Sprintf("batches/%04d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), b.ID)
}

type S3Config struct {
	User     string
	Password string
	Bucket   string
	Region   string
	Endpoint string
}

// S3Archiver stores batch manifests in an S3-compatible bucket.
type S3Archiver struct {
	client *s3.Client
	bucket string
}

func NewS3Archiver(ctx context.Context, c S3Config) (*S3Archiver, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.User, c.Password, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			// MinIO and friends serve buckets by path.
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{client: client, bucket: c.Bucket}, nil
}

// Archive uploads the manifest of b and returns its key.
func (a *S3Archiver) Archive(ctx context.Context, b *models.Batch) (string, error) {
	key := ManifestKey(b)

	m := NewManifest(b)
	m.ManifestKey = key
	body, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	if _, err := putObject(a.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}
