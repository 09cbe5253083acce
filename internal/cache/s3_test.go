package cache

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in memory; multipart calls are never reached for
// records under the uploader's part size.
type fakeS3 struct {
	S3API
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = b
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	b, ok := f.objects[aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3Backend(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewStore(NewS3BackendWithClient(fake, "bucket", "text-cache/"), discardLogger())

	_, ok := store.Read(ctx, "a.pdf")
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, Entry{SourcePath: "a.pdf", Text: "pdf text"}))
	require.NoError(t, store.Put(ctx, Entry{SourcePath: "b.png", Text: "ocr", Languages: []string{"eng"}}))

	_, stored := fake.objects["text-cache/"+ComputeKey("a.pdf")+".json"]
	assert.True(t, stored)

	e, ok := store.Read(ctx, "a.pdf")
	require.True(t, ok)
	assert.Equal(t, "pdf text", e.Text)

	var paths []string
	require.NoError(t, store.List(ctx, func(_ string, e Entry) error {
		paths = append(paths, e.SourcePath)
		return nil
	}))
	assert.ElementsMatch(t, []string{"a.pdf", "b.png"}, paths)
}
