package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"cloud.google.com/go/storage"
	"golang.org/x/text/unicode/norm"
	"google.golang.org/api/option"
)

// Uploader writes one decoded payload under a logical bucket and relative
// path, returning the public URL it will be served from. Inputs are assumed
// sanitized by the caller.
type Uploader interface {
	Save(ctx context.Context, bucket, objectPath string, data []byte) (string, error)
}

var (
	bucketCharset = regexp.MustCompile(`[^a-zA-Z0-9-_]`)
	pathCharset   = regexp.MustCompile(`[^a-zA-Z0-9/_\-.]`)
)

// SanitizeBucket strips a bucket name down to alphanumerics, dash and
// underscore, folding accented letters to their ASCII base first.
func SanitizeBucket(bucket string) string {
	return bucketCharset.ReplaceAllString(foldASCII(bucket), "")
}

// SanitizeObjectPath reduces a relative file path to a conservative charset
// and removes every ".", ".." and empty segment, so the result can never
// escape the bucket directory.
func SanitizeObjectPath(p string) string {
	p = pathCharset.ReplaceAllString(foldASCII(p), "")
	segments := make([]string, 0)
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		if strings.Trim(seg, ".") == "" {
			continue
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, "/")
}

func foldASCII(s string) string {
	t := norm.NFD.String(s)
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LocalUploader writes under Root, which main serves statically at
// PublicBase. This is the default backend.
type LocalUploader struct {
	Root       string
	PublicBase string
}

func NewLocalUploader(root string) *LocalUploader {
	return &LocalUploader{Root: root, PublicBase: "/uploads"}
}

func (u *LocalUploader) Save(ctx context.Context, bucket, objectPath string, data []byte) (string, error) {
	dest := filepath.Join(u.Root, bucket, filepath.FromSlash(objectPath))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create bucket dir: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", u.PublicBase, bucket, objectPath), nil
}

// GCSUploader stores payloads in a Google Cloud Storage bucket, keyed as
// <logical bucket>/<object path>, and returns the public object URL.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

func NewGCSUploader(ctx context.Context, bucketName, credentialsFile string) (*GCSUploader, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	if bucketName == "" {
		return nil, fmt.Errorf("missing GCS_BUCKET")
	}
	return &GCSUploader{client: client, bucket: bucketName}, nil
}

func (u *GCSUploader) Save(ctx context.Context, bucket, objectPath string, data []byte) (string, error) {
	objectName := bucket + "/" + objectPath

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(objectPath))); ct != "" {
		w.ContentType = ct
	}
	w.CacheControl = "no-cache"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload close: %w", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, objectName), nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}
