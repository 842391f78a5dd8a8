package r2

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jarcoal/httpmock"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
)

const imageURL = "https://scontent.cdninstagram.com/v/t51/abc.jpg"

// --- mocks ---

type mockPutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (m *mockPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, _ := io.ReadAll(in.Body)
	m.inputs = append(m.inputs, in)
	m.bodies = append(m.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestArchiver(t *testing.T, putter *mockPutter) (*Archiver, *httpmock.MockTransport, *observability.Metrics) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	metrics := observability.NewMetricsForTesting()
	a := newArchiver(&http.Client{Transport: transport}, putter, "posts", "https://img.example.org/", metrics, discardLogger())
	return a, transport, metrics
}

func TestObjectKey(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.UnixMilli(1732600000000)))
	t.Cleanup(func() { domain.SetClock(nil) })

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.instagram.com/p/Cabc123/", "instagram-posts/Cabc123.jpg"},
		{"https://www.instagram.com/p/Cabc123/?img_index=2", "instagram-posts/Cabc123.jpg"},
		{"https://www.instagram.com/reel/Xyz/", "instagram-posts/1732600000000.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.url))
		})
	}
}

func TestArchiver_Archive(t *testing.T) {
	t.Run("downloads and stores", func(t *testing.T) {
		putter := &mockPutter{}
		a, transport, metrics := newTestArchiver(t, putter)
		transport.RegisterResponder(http.MethodGet, imageURL, func(*http.Request) (*http.Response, error) {
			resp := httpmock.NewBytesResponse(http.StatusOK, []byte("png-bytes"))
			resp.Header.Set("Content-Type", "image/png")
			return resp, nil
		})

		key, err := a.Archive(context.Background(), "https://www.instagram.com/p/Cabc123/", imageURL)
		require.NoError(t, err)
		assert.Equal(t, "instagram-posts/Cabc123.jpg", key)
		assert.Equal(t, "https://img.example.org/instagram-posts/Cabc123.jpg", a.PublicURL(key))

		require.Len(t, putter.inputs, 1)
		in := putter.inputs[0]
		assert.Equal(t, "posts", aws.ToString(in.Bucket))
		assert.Equal(t, key, aws.ToString(in.Key))
		assert.Equal(t, "image/png", aws.ToString(in.ContentType))
		assert.Equal(t, cacheControl, aws.ToString(in.CacheControl))
		assert.Equal(t, int64(9), aws.ToInt64(in.ContentLength))
		assert.Equal(t, []byte("png-bytes"), putter.bodies[0])
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ArchivedImages.WithLabelValues("success")))
	})

	t.Run("defaults content type", func(t *testing.T) {
		putter := &mockPutter{}
		a, transport, _ := newTestArchiver(t, putter)
		transport.RegisterResponder(http.MethodGet, imageURL, httpmock.NewBytesResponder(http.StatusOK, []byte("jpg")))

		_, err := a.Archive(context.Background(), "https://www.instagram.com/p/Cabc123/", imageURL)
		require.NoError(t, err)
		require.Len(t, putter.inputs, 1)
		assert.Equal(t, "image/jpeg", aws.ToString(putter.inputs[0].ContentType))
	})

	t.Run("download failure", func(t *testing.T) {
		putter := &mockPutter{}
		a, transport, metrics := newTestArchiver(t, putter)
		transport.RegisterResponder(http.MethodGet, imageURL, httpmock.NewStringResponder(http.StatusForbidden, "denied"))

		key, err := a.Archive(context.Background(), "https://www.instagram.com/p/Cabc123/", imageURL)
		require.Error(t, err)
		assert.Empty(t, key)
		assert.Contains(t, err.Error(), "status 403")
		assert.Empty(t, putter.inputs)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ArchivedImages.WithLabelValues("error")))
	})

	t.Run("put failure", func(t *testing.T) {
		putter := &mockPutter{err: errors.New("access denied")}
		a, transport, _ := newTestArchiver(t, putter)
		transport.RegisterResponder(http.MethodGet, imageURL, httpmock.NewBytesResponder(http.StatusOK, []byte("jpg")))

		_, err := a.Archive(context.Background(), "https://www.instagram.com/p/Cabc123/", imageURL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "put object instagram-posts/Cabc123.jpg")
	})
}

func TestArchiver_PublicURLDisabled(t *testing.T) {
	a := newArchiver(http.DefaultClient, &mockPutter{}, "posts", "", observability.NewMetricsForTesting(), discardLogger())
	assert.Empty(t, a.PublicURL("instagram-posts/Cabc123.jpg"))
}
