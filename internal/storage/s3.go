// Package storage keeps event images in an S3 compatible bucket (Cloudflare R2
// in production).
package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ImageUpload is an image received from a client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// StoredImage locates an uploaded object.
type StoredImage struct {
	Key string
	URL string
}

// ObjectAPI is the subset of *s3.Client the store needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Transformer rewrites image bytes before upload and reports the resulting
// content type.
type Transformer func(data []byte) ([]byte, string, error)

type S3ImageStore struct {
	Client ObjectAPI
	Bucket string
	// PublicURL is either a fmt template with one %s for the key, or a base URL.
	PublicURL string
	Transform Transformer
}

type ClientOptions struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Endpoint        string
}

// NewS3Client builds a client pinned to TLS 1.2+ against an R2 style endpoint.
func NewS3Client(ctx context.Context, opts ClientOptions) (*s3.Client, error) {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
		},
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithHTTPClient(&http.Client{Transport: tr}),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.AccessKeySecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	}), nil
}

// Put uploads img under events/<ownerID>/<uuid>_<filename>.
func (s *S3ImageStore) Put(ctx context.Context, ownerID uint, img ImageUpload) (*StoredImage, error) {
	data, contentType := img.Data, img.ContentType
	filename := sanitizeFilename(img.Filename)
	if s.Transform != nil {
		var err error
		if data, contentType, err = s.Transform(data); err != nil {
			return nil, fmt.Errorf("transform image: %w", err)
		}
		if contentType != img.ContentType {
			filename = withExtension(filename, contentType)
		}
	}

	key := fmt.Sprintf("events/%d/%s_%s", ownerID, uuid.NewString(), filename)
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}
	return &StoredImage{Key: key, URL: s.URLFor(key)}, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if _, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3ImageStore) URLFor(key string) string {
	if strings.Contains(s.PublicURL, "%s") {
		return CleanURL(fmt.Sprintf(s.PublicURL, key))
	}
	return CleanURL(strings.TrimSuffix(s.PublicURL, "/") + "/" + key)
}

// CleanURL escapes spaces and normalises urlStr, returning it unchanged when
// it does not parse.
func CleanURL(urlStr string) string {
	urlStr = strings.ReplaceAll(urlStr, " ", "%20")
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	return parsedURL.String()
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// withExtension swaps the extension of name for the one matching contentType.
// Unknown types keep name as is.
func withExtension(name, contentType string) string {
	ext, ok := extensions[contentType]
	if !ok {
		return name
	}
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}
