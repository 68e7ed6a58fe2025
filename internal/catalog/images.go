package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// S3API is the subset of the S3 client used by ImageStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageStore uploads service photos to a public bucket.
type ImageStore struct {
	bucket  string
	baseURL string
	client  S3API
	logger  *logging.Logger
}

// NewImageStore returns a store serving objects under baseURL. When baseURL
// is empty the virtual-hosted S3 URL for bucket and region is used.
func NewImageStore(client S3API, bucket, region, baseURL string, logger *logging.Logger) *ImageStore {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" && bucket != "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &ImageStore{bucket: bucket, baseURL: baseURL, client: client, logger: logger}
}

// Enabled reports whether uploads can be served.
func (s *ImageStore) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

// ObjectKey builds the key for a service image, e.g.
// services/gel-manicure-1a2b3c4d.jpg.
func ObjectKey(serviceName, contentType string) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedType
	}
	name := slug.Make(serviceName)
	if name == "" {
		name = "service"
	}
	return fmt.Sprintf("services/%s-%s%s", name, uuid.NewString()[:8], ext), nil
}

// Upload writes body to the bucket and returns its public URL.
func (s *ImageStore) Upload(ctx context.Context, serviceName, contentType string, body io.Reader) (string, error) {
	if !s.Enabled() {
		return "", ErrImagesDisabled
	}
	key, err := ObjectKey(serviceName, contentType)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("catalog: s3 put %s: %w", key, err)
	}
	s.logger.Info("uploaded service image", "key", key, "service", serviceName)
	return s.baseURL + "/" + key, nil
}
