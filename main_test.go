package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4browse/internal/config"
	"github.com/slmtnm/s4browse/internal/models"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		arg  string
		want models.Location
	}{
		{"", models.RemoteList{}},
		{"prod", models.BucketList{Remote: "prod"}},
		{"prod/", models.BucketList{Remote: "prod"}},
		{"prod/logs", models.ObjectList{Remote: "prod", Bucket: "logs"}},
		{"prod/logs/2024/05", models.ObjectList{Remote: "prod", Bucket: "logs", Prefix: "2024/05/"}},
		{"prod/logs/2024/", models.ObjectList{Remote: "prod", Bucket: "logs", Prefix: "2024/"}},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLocation(tt.arg))
		})
	}
}

func TestCheckLocationUnknownRemote(t *testing.T) {
	cfg := &config.Config{Remotes: map[string]config.Remote{"prod": {Alias: "prod"}}}

	err := checkLocation(cfg, models.BucketList{Remote: "dev"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "prod")
	assert.NoError(t, checkLocation(cfg, models.BucketList{Remote: "prod"}))
}

func TestInteractiveSetup(t *testing.T) {
	in := strings.NewReader("local\nminioadmin\nsecret\nlocalhost:9000\n\nminio\n")
	var out bytes.Buffer

	r, err := interactiveSetup(in, &out)

	require.NoError(t, err)
	assert.Equal(t, config.Remote{
		Alias:     "local",
		URL:       "http://localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "secret",
		Region:    config.DefaultRegion,
		Backend:   config.BackendMinio,
	}, r)
	assert.Contains(t, out.String(), "Endpoint: http://localhost:9000")
}

func TestInteractiveSetupRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty name", "\n"},
		{"settings section", "settings\n"},
		{"missing secret", "aws\nAKIA\n\n"},
		{"bad backend", "aws\nAKIA\nsecret\n\n\nftp\n"},
		{"eof", "aws\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := interactiveSetup(strings.NewReader(tt.input), &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://s3.amazonaws.com", endpointURL("s3.amazonaws.com"))
	assert.Equal(t, "http://127.0.0.1:9000", endpointURL("127.0.0.1:9000"))
	assert.Equal(t, "http://minio.internal", endpointURL("http://minio.internal"))
}
