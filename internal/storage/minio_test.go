package storage

import (
	"strings"
	"testing"

	"github.com/sachtalks/sachtalks-api/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewMinIOStorage_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOStorage(config.MinIOConfig{})
	require.Error(t, err)
}

func TestMinIOStorage_URL(t *testing.T) {
	s, err := NewMinIOStorage(config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "site"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/site/blog-images/a.png", s.URL("blog-images/a.png"))

	s, err = NewMinIOStorage(config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "site", UseSSL: true, PublicURL: "https://cdn.example.org/"})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.org/blog-images/a.png", s.URL("blog-images/a.png"))
}

func TestObjectKey(t *testing.T) {
	k := objectKey(`C:\Users\me\Photo.JPG`)
	require.True(t, strings.HasPrefix(k, imagePrefix))
	require.True(t, strings.HasSuffix(k, ".jpg"))
	require.Len(t, strings.TrimSuffix(strings.TrimPrefix(k, imagePrefix), ".jpg"), 36)

	require.NotEqual(t, objectKey("a.png"), objectKey("a.png"))
	require.Len(t, objectKey("noext"), len(imagePrefix)+36)
	require.Len(t, objectKey("x.verylongextension"), len(imagePrefix)+36)
}
