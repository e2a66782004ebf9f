// Package objectstore checks that staged source files exist before a bulk copy
// is issued. The warehouse reads the objects itself; nothing here downloads them.
package objectstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// Lister counts objects under a key prefix.
type Lister interface {
	CountObjects(ctx context.Context, bucket, prefix string) (int, error)
}

// S3 lists objects with the AWS SDK.
type S3 struct {
	client s3iface.S3API
	// Limit stops counting once reached; 0 counts everything.
	Limit int
}

// NewS3 builds an S3 lister from an SDK session.
func NewS3(sess *session.Session) *S3 {
	return &S3{client: s3.New(sess), Limit: 1}
}

// NewS3WithClient is used by tests to inject a fake client.
func NewS3WithClient(client s3iface.S3API) *S3 {
	return &S3{client: client}
}

func (l *S3) CountObjects(ctx context.Context, bucket, prefix string) (int, error) {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(strings.TrimPrefix(prefix, "/")),
	}
	if l.Limit > 0 {
		in.MaxKeys = aws.Int64(int64(l.Limit))
	}

	n := 0
	err := l.client.ListObjectsV2PagesWithContext(ctx, in, func(page *s3.ListObjectsV2Output, last bool) bool {
		n += len(page.Contents)
		return l.Limit == 0 || n < l.Limit
	})
	if err != nil {
		return n, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
	}
	return n, nil
}
