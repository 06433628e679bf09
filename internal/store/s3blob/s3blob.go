package s3blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/liquidinvestigations/hoover4/internal/platform/envutil"
	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

func LoadConfig() Config {
	return Config{
		Endpoint:  envutil.Str("MINIO_ENDPOINT", "http://minio-s3:9000"),
		AccessKey: envutil.Str("MINIO_ACCESS_KEY", "hoover4"),
		SecretKey: envutil.Str("MINIO_SECRET_KEY", "hoover4-secret"),
		Bucket:    envutil.Str("MINIO_BUCKET", "hoover4-blobs"),
	}
}

// Client stores large blobs in an S3-compatible object store (MinIO in the
// standard deployment). Path-style addressing is required for MinIO.
type Client struct {
	S3         *s3.S3
	Uploader   *s3manager.Uploader
	Downloader *s3manager.Downloader
	Bucket     string
	log        *logger.Logger
}

func New(log *logger.Logger) (*Client, error) {
	cfg := LoadConfig()
	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String("us-east-1"),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 session (endpoint=%s): %w", cfg.Endpoint, err)
	}
	svc := s3.New(sess)
	return &Client{
		S3:         svc,
		Uploader:   s3manager.NewUploaderWithClient(svc),
		Downloader: s3manager.NewDownloaderWithClient(svc),
		Bucket:     cfg.Bucket,
		log:        log,
	}, nil
}

// EnsureBucket creates the bucket if missing. Races with other workers are
// expected and ignored.
func (c *Client) EnsureBucket(bucket string) error {
	_, err := c.S3.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	if c.log != nil {
		c.log.Info("Creating s3 bucket", "bucket", bucket)
	}
	_, err = c.S3.CreateBucket(&s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeBucketAlreadyOwnedByYou, s3.ErrCodeBucketAlreadyExists:
				return nil
			}
		}
		return fmt.Errorf("s3 create bucket %s: %w", bucket, err)
	}
	return nil
}

func (c *Client) UploadFile(bucket, key, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	_, err = c.Uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s/%s: %w", bucket, key, err)
	}
	return "s3://" + bucket + "/" + key, nil
}

func (c *Client) DownloadFile(bucket, key, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = c.Downloader.Download(f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 download %s/%s: %w", bucket, key, err)
	}
	return nil
}

// ParseURL splits "s3://bucket/key..." into bucket and key. Returns empty
// strings for anything else.
func ParseURL(s3url string) (bucket, key string) {
	const prefix = "s3://"
	if !strings.HasPrefix(s3url, prefix) {
		return "", ""
	}
	rest := strings.TrimPrefix(s3url, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
