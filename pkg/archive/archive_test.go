package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/internal/logger"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// fakeS3 is an in-memory Client. Listing is served two objects per page.
type fakeS3 struct {
	mu      sync.Mutex
	headErr error
	putErr  error
	objects map[string][]byte
	times   map[string]time.Time
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, times: map[string]time.Time{}}
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	f.objects[key] = data
	if _, ok := f.times[key]; !ok {
		f.times[key] = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		for i, k := range keys {
			if k == tok {
				start = i
				break
			}
		}
	}
	end := start + 2
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[k]))),
			LastModified: aws.Time(f.times[k]),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func newTestArchive(t *testing.T, client Client, opts ...Option) *Archive {
	t.Helper()
	base := []Option{WithClient(client), WithLogger(logger.Nop())}
	return New(Config{Enabled: true, Bucket: "field-backups"}, append(base, opts...)...)
}

func TestInitialize(t *testing.T) {
	t.Run("ChecksBucket", func(t *testing.T) {
		a := newTestArchive(t, newFakeS3())
		require.NoError(t, a.Initialize(context.Background()))
		assert.True(t, a.IsInitialized())

		require.NoError(t, a.Destroy(context.Background()))
		assert.False(t, a.IsInitialized())
	})

	t.Run("MissingBucket", func(t *testing.T) {
		fake := newFakeS3()
		fake.headErr = &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
		a := newTestArchive(t, fake)

		err := a.Initialize(context.Background())
		require.Error(t, err)
		assert.True(t, dberrors.IsKind(err, dberrors.InitializationError))
		assert.True(t, dberrors.IsNotFound(err))
		assert.False(t, a.IsInitialized())
	})

	t.Run("RequiresBucket", func(t *testing.T) {
		a := New(Config{}, WithClient(newFakeS3()), WithLogger(logger.Nop()))
		err := a.Initialize(context.Background())
		assert.True(t, dberrors.IsKind(err, dberrors.InitializationError))
	})

	t.Run("RejectsHalfCredentials", func(t *testing.T) {
		a := New(Config{Enabled: true, Bucket: "b", AccessKeyID: "id"}, WithClient(newFakeS3()), WithLogger(logger.Nop()))
		err := a.Initialize(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})
}

func TestObjectKey(t *testing.T) {
	a := New(Config{Bucket: "b", Prefix: "site-a/"})
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "site-a/2026/03/14/082653-fieldstore.db", a.ObjectKey("/var/backups/fieldstore.db", at))

	def := New(Config{Bucket: "b"})
	assert.Equal(t, "backups/2026/03/14/082653-x.tar", def.ObjectKey("x.tar", at))
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("NotReadyBeforeInitialize", func(t *testing.T) {
		a := newTestArchive(t, newFakeS3())
		_, err := a.Upload(ctx, writeFile(t, "a.db", "x"))
		assert.True(t, dberrors.IsNotReady(err))
	})

	t.Run("PutsFileContents", func(t *testing.T) {
		fake := newFakeS3()
		m := &recordingMetrics{}
		a := newTestArchive(t, fake, WithClock(fixedClock(at)), WithMetrics(m))
		require.NoError(t, a.Initialize(ctx))

		obj, err := a.Upload(ctx, writeFile(t, "fieldstore-backup.db", "sqlite bytes"))
		require.NoError(t, err)

		assert.Equal(t, "backups/2026/05/01/120000-fieldstore-backup.db", obj.Key)
		assert.EqualValues(t, len("sqlite bytes"), obj.Size)
		assert.Equal(t, at, obj.LastModified)
		assert.Equal(t, []byte("sqlite bytes"), fake.objects[obj.Key])

		require.Len(t, fake.puts, 1)
		assert.Equal(t, "field-backups", aws.ToString(fake.puts[0].Bucket))
		assert.Equal(t, "application/vnd.sqlite3", aws.ToString(fake.puts[0].ContentType))
		assert.EqualValues(t, 12, aws.ToInt64(fake.puts[0].ContentLength))

		assert.Equal(t, []string{"head_bucket", "put_object"}, m.ops)
		assert.EqualValues(t, 12, m.bytes["put_object"])
	})

	t.Run("MissingFile", func(t *testing.T) {
		a := newTestArchive(t, newFakeS3())
		require.NoError(t, a.Initialize(ctx))

		_, err := a.Upload(ctx, filepath.Join(t.TempDir(), "missing.db"))
		assert.True(t, dberrors.IsKind(err, dberrors.InvalidArgument))
	})

	t.Run("DirectoryRejected", func(t *testing.T) {
		a := newTestArchive(t, newFakeS3())
		require.NoError(t, a.Initialize(ctx))

		_, err := a.Upload(ctx, t.TempDir())
		assert.True(t, dberrors.IsKind(err, dberrors.InvalidArgument))
	})

	t.Run("AccessDenied", func(t *testing.T) {
		fake := newFakeS3()
		fake.putErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
		a := newTestArchive(t, fake)
		require.NoError(t, a.Initialize(ctx))

		_, err := a.Upload(ctx, writeFile(t, "a.tar", "x"))
		assert.True(t, dberrors.IsKind(err, dberrors.InvalidArgument))
	})

	t.Run("OtherErrorsAreInternal", func(t *testing.T) {
		fake := newFakeS3()
		fake.putErr = &smithy.GenericAPIError{Code: "InternalError", Message: "oops"}
		a := newTestArchive(t, fake)
		require.NoError(t, a.Initialize(ctx))

		_, err := a.Upload(ctx, writeFile(t, "a.tar", "x"))
		assert.True(t, dberrors.IsKind(err, dberrors.Internal))
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	a := newTestArchive(t, fake)
	require.NoError(t, a.Initialize(ctx))

	fake.objects["backups/2026/01/01/000000-a.db"] = []byte("a")
	fake.times["backups/2026/01/01/000000-a.db"] = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake.objects["backups/2026/01/02/000000-b.db"] = []byte("bb")
	fake.times["backups/2026/01/02/000000-b.db"] = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	fake.objects["backups/2026/01/03/000000-c.db"] = []byte("ccc")
	fake.times["backups/2026/01/03/000000-c.db"] = time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	fake.objects["other/ignored.db"] = []byte("z")

	objects, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 3)
	assert.Equal(t, "backups/2026/01/03/000000-c.db", objects[0].Key)
	assert.EqualValues(t, 3, objects[0].Size)
	assert.Equal(t, "backups/2026/01/01/000000-a.db", objects[2].Key)
}

type recordingMetrics struct {
	ops   []string
	bytes map[string]int64
}

func (m *recordingMetrics) ObserveOperation(op string, _ time.Duration, _ error) {
	m.ops = append(m.ops, op)
}

func (m *recordingMetrics) RecordBytes(op string, n int64) {
	if m.bytes == nil {
		m.bytes = map[string]int64{}
	}
	m.bytes[op] += n
}

func TestHealthcheck(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	a := newTestArchive(t, fake)

	assert.True(t, dberrors.IsNotReady(a.Healthcheck(ctx)))

	require.NoError(t, a.Initialize(ctx))
	assert.NoError(t, a.Healthcheck(ctx))

	fake.headErr = &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "gone"}
	assert.True(t, dberrors.IsNotFound(a.Healthcheck(ctx)))
}
