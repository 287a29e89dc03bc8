package s3storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/SalesDrop/internal/config"
	"github.com/dharsanguruparan/SalesDrop/internal/filereader"
)

const errorXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>%s</Code><Message>%s</Message><BucketName>%s</BucketName><Key>%s</Key><RequestId>1</RequestId></Error>`

// fakeS3 answers path-style GETs for a handful of objects.
func fakeS3(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
		bucket, key := parts[0], ""
		if len(parts) == 2 {
			key = parts[1]
		}
		writeErr := func(status int, code, msg string) {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			fmt.Fprintf(w, errorXML, code, msg, bucket, key)
		}
		switch {
		case bucket == "missing-bucket":
			writeErr(http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
		case bucket == "locked":
			writeErr(http.StatusForbidden, "AccessDenied", "Access Denied")
		case bucket == "sales" && key == "jan.csv":
			body := "date,product,quantity,price\n2024-01-02,Widget,3,2.50\n"
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			w.Header().Set("ETag", `"abc"`)
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			_, _ = w.Write([]byte(body))
		default:
			writeErr(http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
		}
	}))
}

func newTestStorage(t *testing.T, endpoint string) *Storage {
	t.Helper()
	cfg := &config.Config{
		S3Endpoint:      endpoint,
		S3AccessKey:     "minioadmin",
		S3SecretKey:     "minioadmin",
		S3Region:        "us-east-2",
		RawBucket:       "sales-raw",
		ProcessedBucket: "sales-reports",
	}
	s, err := New(cfg, nil)
	require.NoError(t, err)
	return s
}

func TestStorage_ReadFile(t *testing.T) {
	srv := fakeS3(t)
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	s := newTestStorage(t, u.Host)

	text, err := s.ReadFile(context.Background(), "sales", "jan.csv")
	require.NoError(t, err)
	assert.Contains(t, text, "Widget")
}

func TestStorage_ReadFileErrors(t *testing.T) {
	srv := fakeS3(t)
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	s := newTestStorage(t, u.Host)

	tests := []struct {
		name   string
		bucket string
		key    string
		want   error
	}{
		{"missing key", "sales", "feb.csv", filereader.ErrNotFound},
		{"missing bucket", "missing-bucket", "jan.csv", filereader.ErrBucketNotFound},
		{"denied", "locked", "jan.csv", filereader.ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ReadFile(context.Background(), tt.bucket, tt.key)
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.bucket)
		})
	}
}

func TestStorage_BlankLocationSkipsNetwork(t *testing.T) {
	s := newTestStorage(t, "127.0.0.1:1")

	_, err := s.ReadFile(context.Background(), " ", "jan.csv")
	assert.ErrorIs(t, err, filereader.ErrInvalidArgument)
	_, err = s.ReadObject(context.Background(), "sales", "")
	assert.ErrorIs(t, err, filereader.ErrInvalidArgument)
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "reports/42.json", ArchiveKey("42"))
}

func TestStorage_Describe(t *testing.T) {
	srv := fakeS3(t)
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	s := newTestStorage(t, u.Host)

	file, err := s.Describe(context.Background(), "sales", "jan.csv")
	require.NoError(t, err)
	assert.Equal(t, "jan.csv", file.Name())
	assert.Equal(t, "text/csv", file.ContentType())
	assert.Positive(t, file.Size())
	assert.Equal(t, "sales", file.Location().Bucket)

	_, err = s.Describe(context.Background(), "sales", "nope.csv")
	assert.ErrorIs(t, err, filereader.ErrNotFound)
}
