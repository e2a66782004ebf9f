package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type fakeS3 struct {
	s3iface.S3API
	pages     [][]string
	err       error
	gotPrefix string
}

func (f *fakeS3) ListObjectsV2PagesWithContext(ctx aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, opts ...request.Option) error {
	f.gotPrefix = aws.StringValue(in.Prefix)
	if f.err != nil {
		return f.err
	}
	for i, keys := range f.pages {
		out := &s3.ListObjectsV2Output{}
		for _, k := range keys {
			out.Contents = append(out.Contents, &s3.Object{Key: aws.String(k)})
		}
		if !fn(out, i == len(f.pages)-1) {
			return nil
		}
	}
	return nil
}

func TestS3_CountObjects(t *testing.T) {
	f := &fakeS3{pages: [][]string{{"log_data/2018/11/a.json", "log_data/2018/11/b.json"}, {"log_data/2018/11/c.json"}}}
	l := NewS3WithClient(f)

	n, err := l.CountObjects(context.Background(), "udacity-dend", "/log_data/2018/11")
	if err != nil {
		t.Fatalf("CountObjects: %v", err)
	}
	if n != 3 {
		t.Fatalf("n=%d, want 3", n)
	}
	if f.gotPrefix != "log_data/2018/11" {
		t.Fatalf("prefix=%q, want leading slash trimmed", f.gotPrefix)
	}
}

func TestS3_CountObjects_StopsAtLimit(t *testing.T) {
	f := &fakeS3{pages: [][]string{{"a"}, {"b"}, {"c"}}}
	l := NewS3WithClient(f)
	l.Limit = 1

	n, err := l.CountObjects(context.Background(), "b", "p")
	if err != nil {
		t.Fatalf("CountObjects: %v", err)
	}
	if n != 1 {
		t.Fatalf("n=%d, want 1", n)
	}
}

func TestS3_CountObjects_Error(t *testing.T) {
	boom := errors.New("AccessDenied")
	l := NewS3WithClient(&fakeS3{err: boom})
	if _, err := l.CountObjects(context.Background(), "b", "p"); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
}
