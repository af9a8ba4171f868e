package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const bucketCheckTimeout = 10 * time.Second

// MinioProvider stores archive objects in MinIO or any S3 compatible store
type MinioProvider struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioProvider creates a new MinioProvider
func NewMinioProvider() *MinioProvider {
	return &MinioProvider{}
}

// Name returns the provider name
func (m *MinioProvider) Name() string {
	return "minio"
}

// Configure sets up the MinIO client. Recognised keys: endpoint, access_key,
// secret_key, bucket (required); secure, region, prefix, verify_bucket.
// An http:// or https:// scheme on endpoint overrides secure.
func (m *MinioProvider) Configure(ctx context.Context, config map[string]any) error {
	endpoint, ok := getStringValue(config, "endpoint")
	if !ok {
		return fmt.Errorf("minio: endpoint is required")
	}

	accessKey, ok := getStringValue(config, "access_key")
	if !ok {
		return fmt.Errorf("minio: access_key is required")
	}

	secretKey, ok := getStringValue(config, "secret_key")
	if !ok {
		return fmt.Errorf("minio: secret_key is required")
	}

	bucket, ok := getStringValue(config, "bucket")
	if !ok {
		return fmt.Errorf("minio: bucket is required")
	}

	host, secure, err := parseEndpoint(endpoint, getBoolValue(config, "secure", true))
	if err != nil {
		return err
	}
	region := getStringValueWithDefault(config, "region", "us-east-1")

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return fmt.Errorf("minio: failed to create client: %w", err)
	}

	m.client = client
	m.bucket = bucket
	m.prefix = strings.Trim(getStringValueWithDefault(config, "prefix", ""), "/")

	if !getBoolValue(config, "verify_bucket", true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("minio: failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("minio: bucket %s does not exist", bucket)
	}

	return nil
}

// Upload stores the content under prefix/object.Path
func (m *MinioProvider) Upload(ctx context.Context, reader io.Reader, object Object) error {
	if m.client == nil {
		return fmt.Errorf("minio: provider not configured")
	}

	objectName := m.ObjectName(object.Path)
	size := object.Size
	if size == 0 {
		size = -1
	}

	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: object.ContentType,
	})
	if err != nil {
		return fmt.Errorf("minio: failed to upload to %s: %w", objectName, err)
	}

	return nil
}

// ObjectName joins the configured prefix with p using forward slashes.
func (m *MinioProvider) ObjectName(p string) string {
	if m.prefix == "" {
		return p
	}
	return path.Join(m.prefix, p)
}

// parseEndpoint strips an http(s) scheme from endpoint, letting it decide
// whether TLS is used.
func parseEndpoint(endpoint string, secure bool) (string, bool, error) {
	host := endpoint
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		host = strings.TrimPrefix(endpoint, "https://")
		secure = true
	case strings.HasPrefix(endpoint, "http://"):
		host = strings.TrimPrefix(endpoint, "http://")
		secure = false
	}
	host = strings.TrimSuffix(host, "/")
	if host == "" {
		return "", false, fmt.Errorf("minio: invalid endpoint URL %q", endpoint)
	}
	return host, secure, nil
}

func getStringValue(config map[string]any, key string) (string, bool) {
	if val, ok := config[key]; ok {
		if str, ok := val.(string); ok && str != "" {
			return str, true
		}
	}
	return "", false
}

func getStringValueWithDefault(config map[string]any, key, defaultValue string) string {
	if val, ok := getStringValue(config, key); ok {
		return val
	}
	return defaultValue
}

func getBoolValue(config map[string]any, key string, defaultValue bool) bool {
	if val, ok := config[key]; ok {
		switch v := val.(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
