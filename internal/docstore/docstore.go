// Package docstore hands out presigned S3 URLs for document attachments. File bytes go
// straight between the client and the bucket; the API only records metadata.
package docstore

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Presigned is a short lived request the client performs itself.
type Presigned struct {
	URL       string      `json:"url"`
	Method    string      `json:"method"`
	Header    http.Header `json:"header,omitempty"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type Store struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

// New loads the shared AWS configuration for profile/region. An empty profile uses the
// default credential chain.
func New(ctx context.Context, bucket, region, profile string, ttl time.Duration) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("docstore: bucket required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &Store{
		presign: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket:  bucket,
		ttl:     ttl,
	}, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds a collision free key under the owning entity, keeping a readable
// version of the file name at the end.
func ObjectKey(entityType string, entityID int64, name string) string {
	base := unsafeChars.ReplaceAllString(path.Base(strings.TrimSpace(name)), "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s/%d/%s-%s", entityType, entityID, uuid.NewString(), base)
}

func (s *Store) UploadURL(ctx context.Context, key, contentType string) (Presigned, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return Presigned{}, fmt.Errorf("presign put %s: %w", key, err)
	}
	return Presigned{URL: req.URL, Method: req.Method, Header: req.SignedHeader, ExpiresAt: time.Now().Add(s.ttl)}, nil
}

func (s *Store) DownloadURL(ctx context.Context, key string) (Presigned, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return Presigned{}, fmt.Errorf("presign get %s: %w", key, err)
	}
	return Presigned{URL: req.URL, Method: req.Method, Header: req.SignedHeader, ExpiresAt: time.Now().Add(s.ttl)}, nil
}
