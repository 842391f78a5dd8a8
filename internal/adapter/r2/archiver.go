// Package r2 copies post images into a Cloudflare R2 bucket through the S3 API.
package r2

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
)

const (
	keyPrefix     = "instagram-posts/"
	maxImageBytes = 20 << 20
	cacheControl  = "public, max-age=31536000"
)

var postIDPattern = regexp.MustCompile(`/p/([^/?#]+)`)

// Config holds the bucket settings.
type Config struct {
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver downloads images and stores them under a key derived from the post URL.
type Archiver struct {
	httpClient *http.Client
	objects    objectPutter
	bucket     string
	publicBase string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New builds an Archiver backed by an S3 client pointed at the R2 endpoint.
func New(ctx context.Context, cfg Config, metrics *observability.Metrics, logger *slog.Logger) (*Archiver, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	logger.Info("r2 archiver initialized", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return newArchiver(&http.Client{Timeout: 30 * time.Second}, client, cfg.Bucket, cfg.PublicBaseURL, metrics, logger), nil
}

func newArchiver(httpClient *http.Client, objects objectPutter, bucket, publicBase string, metrics *observability.Metrics, logger *slog.Logger) *Archiver {
	return &Archiver{
		httpClient: httpClient,
		objects:    objects,
		bucket:     bucket,
		publicBase: strings.TrimSuffix(publicBase, "/"),
		metrics:    metrics,
		logger:     logger,
	}
}

// ObjectKey derives the storage key from the post shortcode, falling back to
// the current time when the URL has none.
func ObjectKey(postURL string) string {
	if m := postIDPattern.FindStringSubmatch(postURL); m != nil {
		return keyPrefix + m[1] + ".jpg"
	}
	return keyPrefix + strconv.FormatInt(domain.Now().UnixMilli(), 10) + ".jpg"
}

// PublicURL returns the public address of a stored key, or "" when no public
// base URL is configured.
func (a *Archiver) PublicURL(key string) string {
	if a.publicBase == "" || key == "" {
		return ""
	}
	return a.publicBase + "/" + key
}

// Archive copies imageURL into the bucket and returns the object key.
func (a *Archiver) Archive(ctx context.Context, postURL, imageURL string) (string, error) {
	key := ObjectKey(postURL)
	if err := a.archive(ctx, key, imageURL); err != nil {
		a.metrics.ArchivedImages.WithLabelValues("error").Inc()
		return "", err
	}
	a.metrics.ArchivedImages.WithLabelValues("success").Inc()
	a.logger.Debug("archived image", "post", postURL, "key", key)
	return key, nil
}

func (a *Archiver) archive(ctx context.Context, key, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build image request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	_, err = a.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
