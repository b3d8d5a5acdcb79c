// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package avatars

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func testPresigner() *Presigner {
	cfg := aws.Config{
		Region: "us-east-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDTEST", SecretAccessKey: "secret"}, nil
		}),
	}
	p := NewFromConfig(cfg, "pollspree-avatars")
	p.now = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC) }
	return p
}

func TestUploadURL(t *testing.T) {
	p := testPresigner()

	up, err := p.UploadURL(context.Background(), "me at the beach.png", "image/png")
	if err != nil {
		t.Fatalf("UploadURL() error = %v", err)
	}

	if !strings.HasPrefix(up.Key, "profile-pics/20250301123000-") {
		t.Errorf("Unexpected key prefix: %s", up.Key)
	}
	if !strings.HasSuffix(up.Key, "-me-at-the-beach.png") {
		t.Errorf("Expected sanitized file name in key, got %s", up.Key)
	}
	if !strings.Contains(up.URL, "X-Amz-Signature=") {
		t.Errorf("Expected signed URL, got %s", up.URL)
	}
	if !strings.Contains(up.URL, "pollspree-avatars") {
		t.Errorf("Expected bucket in URL, got %s", up.URL)
	}
	if up.PublicURL != "https://pollspree-avatars.s3.us-east-1.amazonaws.com/"+up.Key {
		t.Errorf("Unexpected public URL %s", up.PublicURL)
	}

	again, _ := p.UploadURL(context.Background(), "me at the beach.png", "image/png")
	if again.Key == up.Key {
		t.Error("Expected unique keys per upload")
	}
}

func TestUploadURL_Rejects(t *testing.T) {
	p := testPresigner()

	testCases := []struct {
		name        string
		fileName    string
		contentType string
	}{
		{"not an image", "notes.txt", "text/plain"},
		{"no name", "", "image/png"},
		{"dots only", "...", "image/png"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.UploadURL(context.Background(), tc.fileName, tc.contentType)
			if !errors.Is(err, ErrInvalidUpload) {
				t.Errorf("Expected ErrInvalidUpload, got %v", err)
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"avatar.jpg", "avatar.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\pic.gif`, "pic.gif"},
		{"héllo wörld.png", "h-llo-w-rld.png"},
		{".hidden", "hidden"},
	}

	for _, tc := range testCases {
		if got := sanitizeName(tc.in); got != tc.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
