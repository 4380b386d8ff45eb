package network

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubS3(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
	})
}

func testBatch() *models.Batch {
	return &models.Batch{
		ID:           "b-1",
		PreparedAt:   time.Date(2026, 3, 7, 23, 30, 0, 0, time.UTC),
		Transactions: []*models.Transaction{{ID: "t1"}, {ID: "t2"}},
	}
}

func TestManifestKey(t *testing.T) {
	b := testBatch()
	assert.Equal(t, "batches/2026/03/07/b-1.json", ManifestKey(b))

	// Partitioned by UTC day.
	b.PreparedAt = time.Date(2026, 3, 8, 1, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))
	assert.Equal(t, "batches/2026/03/07/b-1.json", ManifestKey(b))
}

func TestNewS3Archiver_Options(t *testing.T) {
	stubS3(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	a, err := NewS3Archiver(context.Background(), S3Config{
		User: "minio", Password: "minio123", Bucket: "manifests", Region: "eu-central-1", Endpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "manifests", a.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Archiver_LoadError(t *testing.T) {
	stubS3(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Archiver(context.Background(), S3Config{})
	assert.EqualError(t, err, "no config")
}

func TestArchive(t *testing.T) {
	stubS3(t)

	var got *s3.PutObjectInput
	var body []byte
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		got = in
		var err error
		body, err = io.ReadAll(in.Body)
		require.NoError(t, err)
		return &s3.PutObjectOutput{}, nil
	}

	a := &S3Archiver{client: &s3.Client{}, bucket: "manifests"}
	key, err := a.Archive(context.Background(), testBatch())
	require.NoError(t, err)

	assert.Equal(t, "batches/2026/03/07/b-1.json", key)
	assert.Equal(t, "manifests", aws.ToString(got.Bucket))
	assert.Equal(t, key, aws.ToString(got.Key))
	assert.Equal(t, "application/json", aws.ToString(got.ContentType))

	var m Manifest
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "b-1", m.BatchID)
	assert.Equal(t, 2, m.Count)
	assert.Equal(t, key, m.ManifestKey)
}

func TestArchive_PutError(t *testing.T) {
	stubS3(t)
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("access denied")
	}

	a := &S3Archiver{client: &s3.Client{}, bucket: "manifests"}
	_, err := a.Archive(context.Background(), testBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
