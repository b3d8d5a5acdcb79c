// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package avatars hands out presigned S3 upload URLs for profile pictures.
package avatars

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	keyPrefix     = "profile-pics/"
	uploadExpires = 5 * time.Minute
	maxNameLength = 100
)

var ErrInvalidUpload = errors.New("upload must be an image with a file name")

// Presigner signs PUT requests against a single bucket.
type Presigner struct {
	client *s3.PresignClient
	bucket string
	region string
	now    func() time.Time
}

// Upload is a signed destination for one file.
type Upload struct {
	URL       string
	Key       string
	PublicURL string
}

// New loads AWS credentials from the default chain.
func New(ctx context.Context, bucket, region string) (*Presigner, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewFromConfig(cfg, bucket), nil
}

func NewFromConfig(cfg aws.Config, bucket string) *Presigner {
	return &Presigner{
		client: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket: bucket,
		region: cfg.Region,
		now:    time.Now,
	}
}

// UploadURL signs a PUT for fileName. The object key is unique per call.
func (p *Presigner) UploadURL(ctx context.Context, fileName, contentType string) (Upload, error) {
	name := sanitizeName(fileName)
	if name == "" || !strings.HasPrefix(contentType, "image/") {
		return Upload{}, ErrInvalidUpload
	}

	key := keyPrefix + p.now().UTC().Format("20060102150405") + "-" + uuid.NewString() + "-" + name
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadExpires))
	if err != nil {
		return Upload{}, fmt.Errorf("failed to presign upload: %w", err)
	}

	return Upload{
		URL:       req.URL,
		Key:       key,
		PublicURL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key),
	}, nil
}

// sanitizeName keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with a hyphen.
func sanitizeName(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	name := strings.Trim(b.String(), ".-")
	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}
	return name
}
