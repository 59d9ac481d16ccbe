package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/zstd"

	"github.com/wyrdstore/wyrd/internal/wyrderr"
)

// S3Config configures the S3-compatible archive backend: endpoint
// override for MinIO/R2/etc, bucket, key prefix, region.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	EndpointURL     string // non-empty for S3-compatible services (MinIO, R2)
	AccessKeyID     string
	SecretAccessKey string
}

// S3Archive stores blocks as objects in an S3-compatible bucket. Bodies are
// zstd-compressed in transit, distinct from the brotli compression the
// node codec applies to the logical payload.
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("archive: init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("archive: init zstd decoder: %w", err)
	}

	return &S3Archive{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, enc: enc, dec: dec}, nil
}

func (s *S3Archive) key(digest Digest) string {
	if s.prefix == "" {
		return digest.String()
	}
	return s.prefix + "/" + digest.String()
}

func (s *S3Archive) Put(ctx context.Context, digest Digest, data []byte) error {
	computed := Sum(data)
	if computed != digest {
		return wyrderr.New(wyrderr.CorruptNode, fmt.Sprintf("put digest mismatch: expected %s, got %s", digest, computed), nil)
	}

	compressed := s.enc.EncodeAll(data, nil)
	checksum := sha256.Sum256(compressed)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(s.key(digest)),
		Body:              bytes.NewReader(compressed),
		ChecksumAlgorithm: s3types.ChecksumAlgorithmSha256,
		ChecksumSHA256:    aws.String(base64.StdEncoding.EncodeToString(checksum[:])),
	})
	if err != nil {
		return wyrderr.New(wyrderr.Transport, fmt.Sprintf("s3 put %s", digest), err)
	}
	return nil
}

func (s *S3Archive) Get(ctx context.Context, digest Digest) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(digest)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, wyrderr.Missingf(digest.String())
		}
		return nil, wyrderr.New(wyrderr.Transport, fmt.Sprintf("s3 get %s", digest), err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, wyrderr.New(wyrderr.Transport, fmt.Sprintf("s3 read body %s", digest), err)
	}

	data, err := s.dec.DecodeAll(buf.Bytes(), nil)
	if err != nil {
		return nil, wyrderr.Corruptf(digest.String(), fmt.Errorf("zstd decode: %w", err))
	}

	computed := Sum(data)
	if computed != digest {
		return nil, wyrderr.Corruptf(digest.String(), fmt.Errorf("retrieved content hashes to %s", computed))
	}
	return data, nil
}

func (s *S3Archive) Has(ctx context.Context, digest Digest) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(digest)),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return false, nil
		}
		return false, wyrderr.New(wyrderr.Transport, fmt.Sprintf("s3 head %s", digest), err)
	}
	return true, nil
}
