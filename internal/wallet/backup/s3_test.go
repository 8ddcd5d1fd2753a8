package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePut struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePut) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func writeVault(t *testing.T, password string) string {
	t.Helper()
	data, err := vault.Encode(models.Vault{
		Version: models.VaultVersion,
		Seed:    "snoPBrXtMeMyMHUVTgbuqAfg1SUTb",
		Address: "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
	}, []byte(password))
	require.NoError(t, err)

	p := filepath.Join(t.TempDir(), "main.json")
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestUpload_Encrypted(t *testing.T) {
	api := &fakePut{}
	u := NewUploader(api, "wallets", "/backups/", logging.Nop())
	u.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	p := writeVault(t, "hunter2")
	key, err := u.Upload(context.Background(), p)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^backups/main/20240506T070809Z-[0-9a-f-]{36}\.json$`), key)
	require.NotNil(t, api.in)
	assert.Equal(t, "wallets", aws.ToString(api.in.Bucket))
	assert.Equal(t, key, aws.ToString(api.in.Key))

	onDisk, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, onDisk, api.body)
}

func TestUpload_RefusesPlaintext(t *testing.T) {
	api := &fakePut{}
	u := NewUploader(api, "wallets", "", logging.Nop())

	_, err := u.Upload(context.Background(), writeVault(t, ""))
	require.ErrorIs(t, err, ErrPlaintextVault)
	assert.Nil(t, api.in)
}

func TestUpload_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewUploader(&fakePut{}, "b", "", logging.Nop()).Upload(ctx, filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	junk := filepath.Join(t.TempDir(), "junk.json")
	require.NoError(t, os.WriteFile(junk, []byte("not json"), 0o600))
	_, err = NewUploader(&fakePut{}, "b", "", logging.Nop()).Upload(ctx, junk)
	require.ErrorIs(t, err, vault.ErrMalformed)

	denied := errors.New("AccessDenied")
	_, err = NewUploader(&fakePut{err: denied}, "b", "", logging.Nop()).Upload(ctx, writeVault(t, "pw"))
	require.ErrorIs(t, err, denied)
}

func TestNewS3Uploader(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minio", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	u, err := NewS3Uploader(context.Background(), Config{
		Bucket:       "wallets",
		Region:       "eu-central-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minio",
		SecretKey:    "minio123",
	}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "wallets", u.bucket)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Uploader_Errors(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), Config{}, logging.Nop())
	require.ErrorIs(t, err, ErrNotConfigured)

	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	boom := errors.New("no profile")
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, boom
	}

	_, err = NewS3Uploader(context.Background(), Config{Bucket: "b"}, logging.Nop())
	require.ErrorIs(t, err, boom)
}
