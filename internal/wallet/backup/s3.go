// Package backup copies encrypted wallet files to S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/vault"
	"github.com/google/uuid"
)

var (
	// ErrPlaintextVault refuses to copy a wallet file that is not encrypted.
	ErrPlaintextVault = errors.New("refusing to back up an unencrypted wallet")
	ErrNotConfigured  = errors.New("backup bucket is not configured")
)

// Test seams.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Prefix       string
}

// PutObjectAPI is the part of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	api    PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
	log    logging.Logger
}

func NewUploader(api PutObjectAPI, bucket, prefix string, log logging.Logger) *S3Uploader {
	return &S3Uploader{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		log:    log.With("module", "backup"),
	}
}

// NewS3Uploader builds an uploader from cfg. Static credentials are used
// when an access key is set, otherwise the default AWS credential chain.
func NewS3Uploader(ctx context.Context, cfg Config, log logging.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewUploader(client, cfg.Bucket, cfg.Prefix, log), nil
}

// Upload copies the wallet file at filePath and returns the object key.
// Only encrypted wallet files are uploaded.
func (u *S3Uploader) Upload(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read wallet file: %w", err)
	}

	encrypted, err := vault.IsEncrypted(data)
	if err != nil {
		return "", err
	}
	if !encrypted {
		return "", ErrPlaintextVault
	}

	key := u.objectKey(filePath)
	_, err = u.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	u.log.Info(ctx, "wallet backed up", "bucket", u.bucket, "key", key, "size", len(data))
	return key, nil
}

func (u *S3Uploader) objectKey(filePath string) string {
	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	obj := fmt.Sprintf("%s-%s.json", u.now().UTC().Format("20060102T150405Z"), uuid.NewString())
	return path.Join(u.prefix, name, obj)
}
