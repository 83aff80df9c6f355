// Package s3 provides a Persist that keeps serialized nodes as S3 objects.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/pmapdb/persistent"
)

// Store persists nodes as objects named prefix+address in the given bucket.
type Store struct {
	client *s3.S3
	bucket string
	prefix string
}

var _ persistent.Persist = (*Store)(nil)

// NewStore returns a Store writing through the given client.
func NewStore(client *s3.S3, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Store uploads the value under its name. Nodes are content-addressed, so
// overwriting an existing object writes identical bytes and needs no guard.
func (s *Store) Store(ctx context.Context, name string, value []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s%s: %w", s.bucket, s.prefix, name, err)
	}
	return nil
}

// Load retrieves the previously-stored bytes by name.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s%s: %w", s.bucket, s.prefix, name, err)
	}
	defer out.Body.Close()
	value, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s%s: %w", s.bucket, s.prefix, name, err)
	}
	return value, nil
}
