package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	// AccessKey is the AWS access key ID (required).
	AccessKey string

	// SecretKey is the AWS secret access key (required).
	SecretKey string

	// Endpoint is the custom S3 endpoint URL (optional, for MinIO or
	// other S3-compatible services).
	Endpoint string

	// Region is the AWS region (default: us-east-1).
	Region string

	// SigningAccessKey and SigningSecretKey are an optional explicit
	// credential pair used only for pre-signing URLs. Set them when the
	// primary identity (e.g. an instance role) cannot sign; when empty,
	// the primary credentials sign.
	SigningAccessKey string
	SigningSecretKey string

	// PathStyle enables path-style URLs (required for MinIO).
	PathStyle bool
}

// Default configuration values.
const (
	DefaultRegion = "us-east-1"

	// s3RetryMaxAttempts bounds transient-failure retries. The SDK's
	// standard mode applies jittered backoff and only retries transport
	// and throttling errors, never application-level rejections.
	s3RetryMaxAttempts = 3
)

func (c *S3Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

func (c *S3Config) validate() error {
	if c.Bucket == "" {
		return ErrInvalidConfig
	}
	if c.AccessKey == "" {
		return ErrInvalidConfig
	}
	if c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}

// S3Storage implements Storage using S3-compatible object storage.
//
// Unlike the local backend it overwrites at the deterministic key: object
// stores overwrite by default and a read-check-write uniqueness loop would
// only trade the overwrite for a race.
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       S3Config
}

// NewS3 creates a new S3Storage with the given configuration.
func NewS3(cfg S3Config) (*S3Storage, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := s3.New(s3.Options{}, s3ClientOptions(cfg, cfg.AccessKey, cfg.SecretKey))

	// The presign client gets its own identity when an explicit signing
	// credential is configured; ambient identities sometimes lack the
	// signing capability.
	signer := client
	if cfg.SigningAccessKey != "" && cfg.SigningSecretKey != "" {
		signer = s3.New(s3.Options{}, s3ClientOptions(cfg, cfg.SigningAccessKey, cfg.SigningSecretKey))
	}

	return &S3Storage{
		client:    client,
		presigner: s3.NewPresignClient(signer),
		cfg:       cfg,
	}, nil
}

func s3ClientOptions(cfg S3Config, accessKey, secretKey string) func(*s3.Options) {
	return func(o *s3.Options) {
		o.Region = cfg.Region
		o.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
		o.RetryMaxAttempts = s3RetryMaxAttempts
		o.RetryMode = aws.RetryModeStandard
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		}
	}
}

// Put uploads the object at its deterministic key, overwriting any
// previous content there.
func (s *S3Storage) Put(ctx context.Context, ref ObjectRef, r io.Reader, size int64, opts ...Option) (*ObjectInfo, error) {
	o := &putOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if err := ref.Validate(); err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(ref.Key()),
		Body:          r,
		ContentLength: aws.Int64(size),
	}
	if o.contentType != "" {
		input.ContentType = aws.String(o.contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, wrapS3Error(err, ErrUploadFailed)
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref.Key()),
	})
	info := &ObjectInfo{
		Ref:         ref,
		Address:     s.address(ref),
		ContentType: o.contentType,
		Size:        size,
	}
	if err == nil && head.LastModified != nil {
		info.ModTime = *head.LastModified
	}
	return info, nil
}

// Get retrieves the object from S3.
func (s *S3Storage) Get(ctx context.Context, ref ObjectRef) (io.ReadCloser, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref.Key()),
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrBackend)
	}
	return out.Body, nil
}

// Exists checks the object via HeadObject without downloading it.
func (s *S3Storage) Exists(ctx context.Context, ref ObjectRef) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref.Key()),
	})
	if err != nil {
		wrapped := wrapS3Error(err, ErrBackend)
		if isNotFound(wrapped) {
			return false, nil
		}
		return false, wrapped
	}
	return true, nil
}

// List returns the originals in a collection, newest first. The "/"
// delimiter keeps the derived sub-namespace out of the results.
func (s *S3Storage) List(ctx context.Context, tenant, collection string) ([]ObjectInfo, error) {
	probe := ObjectRef{Tenant: tenant, Collection: collection, Name: "probe"}
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	prefix := tenant + "/" + collection + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.cfg.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var infos []ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapS3Error(err, ErrBackend)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			ref := ObjectRef{Tenant: tenant, Collection: collection, Name: name}
			info := ObjectInfo{
				Ref:     ref,
				Address: s.address(ref),
			}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.ModTime = *obj.LastModified
			}
			infos = append(infos, info)
		}
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].ModTime.After(infos[j].ModTime)
	})
	if infos == nil {
		infos = []ObjectInfo{}
	}
	return infos, nil
}

// URL generates a pre-signed, time-limited GET URL for the object.
func (s *S3Storage) URL(ctx context.Context, ref ObjectRef, opts ...URLOption) (string, error) {
	o := &urlOptions{expiry: DefaultURLExpiry}
	for _, opt := range opts {
		opt(o)
	}

	if err := ref.Validate(); err != nil {
		return "", err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref.Key()),
	}
	if o.downloadName != "" {
		disposition := fmt.Sprintf("attachment; filename=%q", o.downloadName)
		input.ResponseContentDisposition = aws.String(disposition)
	}

	result, err := s.presigner.PresignGetObject(ctx, input, func(po *s3.PresignOptions) {
		po.Expires = o.expiry
	})
	if err != nil {
		return "", wrapS3Error(err, ErrPresignFailed)
	}
	return result.URL, nil
}

// address renders the canonical s3:// location of a ref.
func (s *S3Storage) address(ref ObjectRef) string {
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, ref.Key())
}

// Ensure S3Storage implements Storage.
var _ Storage = (*S3Storage)(nil)
