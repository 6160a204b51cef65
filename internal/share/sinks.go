package share

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/studio-b12/gowebdav"

	"github.com/starford/argument/internal/export"
	"github.com/starford/argument/internal/storage"
)

// Dir writes payloads into a local export directory.
type Dir struct {
	store storage.Provider
}

// NewDir returns a sink writing through store.
func NewDir(store storage.Provider) *Dir {
	return &Dir{store: store}
}

// Present writes the rendered payload and returns its absolute path.
func (d *Dir) Present(ctx context.Context, p export.Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := Render(p)
	if err != nil {
		return "", err
	}
	if err := d.store.Write(f.Name, f.Data); err != nil {
		return "", fmt.Errorf("share: dir: %w", err)
	}
	return d.store.Abs(f.Name)
}

// WebDAV uploads payloads into a WebDAV collection.
type WebDAV struct {
	client *gowebdav.Client
	base   string
	root   string
}

// NewWebDAV returns a sink uploading under root on the server at baseURL.
func NewWebDAV(baseURL, user, password, root string) *WebDAV {
	root = "/" + strings.Trim(root, "/")
	return &WebDAV{
		client: gowebdav.NewClient(baseURL, user, password),
		base:   strings.TrimSuffix(baseURL, "/"),
		root:   root,
	}
}

// Present uploads the rendered payload and returns its URL.
func (w *WebDAV) Present(ctx context.Context, p export.Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := Render(p)
	if err != nil {
		return "", err
	}
	if w.root != "/" {
		if err := w.client.MkdirAll(w.root, 0o755); err != nil {
			return "", fmt.Errorf("share: webdav mkdir: %w", err)
		}
	}
	target := path.Join(w.root, f.Name)
	if err := w.client.Write(target, f.Data, 0o644); err != nil {
		return "", fmt.Errorf("share: webdav upload: %w", err)
	}
	return w.base + (&url.URL{Path: target}).EscapedPath(), nil
}

// PutObjectAPI is the subset of the S3 client used by the S3 sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the S3 client.
type S3Options struct {
	Region    string
	Endpoint  string // optional, e.g. a MinIO URL
	AccessKey string
	SecretKey string
}

// NewS3Client builds an S3 client. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" && o.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("share: aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	}), nil
}

// S3 puts payloads into a bucket.
type S3 struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3 returns a sink storing objects under prefix in bucket.
func NewS3(client PutObjectAPI, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Present uploads the rendered payload and returns its s3:// location.
func (s *S3) Present(ctx context.Context, p export.Payload) (string, error) {
	f, err := Render(p)
	if err != nil {
		return "", err
	}
	key := f.Name
	if s.prefix != "" {
		key = s.prefix + "/" + f.Name
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(f.Data),
		ContentType: aws.String(f.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("share: s3 put: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
