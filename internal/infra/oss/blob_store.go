// Package oss uploads generated report files to Alibaba Cloud OSS.
package oss

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

type Store struct {
	bucket *oss.Bucket
	config Config
}

func NewStore(config Config) (*Store, error) {
	client, err := oss.New(config.Endpoint, config.AccessKeyID, config.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss client: %w", err)
	}
	bucket, err := client.Bucket(config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss bucket %s: %w", config.Bucket, err)
	}
	return &Store{bucket: bucket, config: config}, nil
}

// Upload puts the object and returns its public URL. The OSS SDK has
// no context-aware call, so ctx only gates entry.
func (s *Store) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	err := s.bucket.PutObject(name, bytes.NewReader(data), oss.ContentType(contentType))
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", name, err)
	}
	return s.objectURL(name), nil
}

func (s *Store) objectURL(name string) string {
	host := strings.TrimPrefix(s.config.Endpoint, "https://")
	host = strings.TrimPrefix(host, "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.config.Bucket, host, name)
}
