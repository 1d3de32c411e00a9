package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3Store(t *testing.T, endpoint, publicBaseURL string) *S3Store {
	t.Helper()
	store, err := NewS3Store(S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		PublicBaseURL:   publicBaseURL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)
	return store
}

func TestNewS3Store(t *testing.T) {
	store := newTestS3Store(t, "http://localhost:4566", "")

	assert.Equal(t, "test-bucket", store.bucket)
	assert.Equal(t, "us-east-1", store.region)
	assert.Equal(t, "http://localhost:4566", store.endpoint)
}

func TestS3Store_Put_MockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/test-bucket/user_42/1700000000000_clip.mp4") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("If-None-Match"); got != "*" {
			t.Errorf("If-None-Match = %q, want *", got)
		}
		if got := r.Header.Get("Cache-Control"); got != "public, max-age=3600" {
			t.Errorf("Cache-Control = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "video/mp4" {
			t.Errorf("Content-Type = %q", got)
		}
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := newTestS3Store(t, server.URL, "")

	err := store.Put(context.Background(), "user_42/1700000000000_clip.mp4",
		bytes.NewReader([]byte("test content")), 12, "video/mp4",
		PutOptions{CacheControl: "public, max-age=3600", NoOverwrite: true})
	require.NoError(t, err)
}

func TestS3Store_Put_ExistingKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusPreconditionFailed)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
			`<Error><Code>PreconditionFailed</Code>`+
			`<Message>At least one of the pre-conditions you specified did not hold</Message></Error>`)
	}))
	defer server.Close()

	store := newTestS3Store(t, server.URL, "")

	err := store.Put(context.Background(), "user_1/1_taken.mp4",
		bytes.NewReader([]byte("x")), 1, "video/mp4", PutOptions{NoOverwrite: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectExists)
}

func TestS3Store_Put_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
	}))
	defer server.Close()

	store := newTestS3Store(t, server.URL, "")

	err := store.Put(context.Background(), "user_1/1_denied.mp4",
		bytes.NewReader([]byte("x")), 1, "", PutOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrObjectExists)
	assert.Contains(t, err.Error(), "upload to S3")
}

func TestS3Store_Delete_MockServer(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store := newTestS3Store(t, server.URL, "")

	require.NoError(t, store.Delete(context.Background(), "user_1/1_orphan.mp4"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/test-bucket/user_1/1_orphan.mp4", gotPath)
}

func TestS3Store_PublicURL(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		store    *S3Store
		key      string
		expected string
		ok       bool
	}{
		{
			name:     "aws virtual-hosted",
			store:    &S3Store{bucket: "test-bucket", region: "us-east-1"},
			key:      "user_42/1700000000000_clip.mp4",
			expected: "https://test-bucket.s3.us-east-1.amazonaws.com/user_42/1700000000000_clip.mp4",
			ok:       true,
		},
		{
			name:     "custom endpoint uses path style",
			store:    &S3Store{bucket: "test-bucket", region: "us-east-1", endpoint: "http://localhost:9000"},
			key:      "user_42/1_a.mp4",
			expected: "http://localhost:9000/test-bucket/user_42/1_a.mp4",
			ok:       true,
		},
		{
			name:     "public base URL wins",
			store:    &S3Store{bucket: "test-bucket", region: "us-east-1", endpoint: "http://localhost:9000", publicBaseURL: "https://cdn.example.com"},
			key:      "user_42/1_my_video_(final)__.mp4",
			expected: "https://cdn.example.com/user_42/1_my_video_%28final%29__.mp4",
			ok:       true,
		},
		{
			name:  "no bucket",
			store: &S3Store{region: "us-east-1"},
			key:   "user_42/1_a.mp4",
			ok:    false,
		},
		{
			name:  "empty key",
			store: &S3Store{bucket: "test-bucket", region: "us-east-1"},
			key:   "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, ok := tt.store.PublicURL(ctx, tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, url)
		})
	}
}
