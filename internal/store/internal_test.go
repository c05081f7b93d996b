package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4browse/internal/config"
)

func TestByteRange(t *testing.T) {
	assert.Equal(t, "bytes=0-511", byteRange(0, 512))
	assert.Equal(t, "bytes=10-10", byteRange(10, 11))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "photos", displayName("data/photos/", "data/"))
	assert.Equal(t, "a.txt", displayName("data/a.txt", "data/"))
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		raw    string
		host   string
		secure bool
		err    bool
	}{
		{"https://s3.example.com", "s3.example.com", true, false},
		{"http://localhost:9000", "localhost:9000", false, false},
		{"localhost:9000", "localhost:9000", false, false},
		{"minio:9000", "minio:9000", false, false},
		{"minio.example.com", "minio.example.com", true, false},
		{"", "", false, true},
		{"http://", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, secure, err := splitEndpoint(tt.raw)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestNewPicksBackend(t *testing.T) {
	s, err := New(config.Remote{Alias: "a", URL: "http://localhost:9000", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.IsType(t, &S3Client{}, s)

	m, err := New(config.Remote{Alias: "m", URL: "http://localhost:9000", AccessKey: "k", SecretKey: "s", Backend: config.BackendMinio})
	require.NoError(t, err)
	assert.IsType(t, &MinioClient{}, m)

	_, err = New(config.Remote{Alias: "x", Backend: "ftp"})
	assert.Error(t, err)
}
