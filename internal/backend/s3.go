package backend

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dsync/internal/core"
)

// S3Backend downloads a bucket (or a prefix within it) into a temporary
// directory for the duration of one sync pass. The source URL takes the form
// s3://bucket or s3://bucket/prefix.
//
// Recognized parameters: region, endpoint, access_key_id, secret_access_key.
// When no static credentials are given the default AWS credential chain is
// used.
type S3Backend struct {
	bucket    string
	prefix    string
	region    string
	endpoint  string
	accessKey string
	secretKey string
}

// NewS3Backend parses the source URL and validates the backend parameters.
// Unknown parameter keys are rejected.
func NewS3Backend(sourceURL string, params map[string]string) (*S3Backend, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing source URL: %w", err)
	}
	if strings.ToLower(u.Scheme) != "s3" {
		return nil, fmt.Errorf("s3 sources require an s3:// URL, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("s3 source URL has no bucket: %s", sourceURL)
	}

	b := &S3Backend{
		bucket: u.Host,
		prefix: strings.TrimPrefix(u.Path, "/"),
	}
	for key, value := range params {
		switch key {
		case "region":
			b.region = value
		case "endpoint":
			b.endpoint = value
		case "access_key_id":
			b.accessKey = value
		case "secret_access_key":
			b.secretKey = value
		default:
			return nil, fmt.Errorf("unknown s3 backend parameter: %s", key)
		}
	}
	return b, nil
}

// Fetch lists every object under the configured prefix and downloads each
// into a temp directory mirroring the key structure. The replica's Close
// removes the download.
func (b *S3Backend) Fetch(ctx context.Context) (*core.Replica, error) {
	client, err := b.newClient(ctx)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "dsync-s3-")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(dir) }

	if err := b.download(ctx, client, dir); err != nil {
		cleanup()
		return nil, err
	}

	return core.NewReplica(dir, cleanup), nil
}

func (b *S3Backend) newClient(ctx context.Context) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if b.region != "" {
		opts = append(opts, awsconfig.WithRegion(b.region))
	}
	if b.accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(b.accessKey, b.secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if b.endpoint != "" {
			o.BaseEndpoint = aws.String(b.endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (b *S3Backend) download(ctx context.Context, client *s3.Client, dir string) error {
	downloader := manager.NewDownloader(client)

	prefix := b.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing s3://%s/%s: %w", b.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rel := strings.TrimPrefix(key, prefix)
			if rel == "" || strings.HasSuffix(rel, "/") {
				// Directory placeholder objects carry no content.
				continue
			}
			if err := b.downloadObject(ctx, downloader, dir, key, rel); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *S3Backend) downloadObject(ctx context.Context, downloader *manager.Downloader, dir, key, rel string) error {
	localPath := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", rel, err)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("downloading s3://%s/%s: %w", b.bucket, key, err)
	}
	return nil
}

// Compile-time check that S3Backend implements core.Backend
var _ core.Backend = (*S3Backend)(nil)
