package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FilipeAphrody/cartify/internal/config"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *CloudinaryStore {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := NewCloudinaryStore(config.CloudinaryConfig{
		CloudName: "demo",
		APIKey:    "key123",
		APISecret: "shh",
		Folder:    "Cartify",
	}, srv.Client(), zap.NewNop())
	store.baseURL = srv.URL
	store.now = func() time.Time { return time.Unix(1700000000, 0) }
	return store
}

func TestSignParams(t *testing.T) {
	sig := signParams(map[string]string{
		"timestamp": "1700000000",
		"folder":    "Cartify",
	}, "shh")

	// Keys sorted, joined by '&', secret appended.
	sum := sha1.Sum([]byte("folder=Cartify&timestamp=1700000000shh"))
	assert.Equal(t, hex.EncodeToString(sum[:]), sig)
}

func TestUpload(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Cartify", r.FormValue("folder"))
		assert.Equal(t, "1700000000", r.FormValue("timestamp"))
		assert.Equal(t, "key123", r.FormValue("api_key"))
		assert.Equal(t, signParams(map[string]string{
			"folder":    "Cartify",
			"timestamp": "1700000000",
		}, "shh"), r.FormValue("signature"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "shoes.png", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo/shoes.png","public_id":"Cartify/abc123"}`))
	})

	image, err := store.Upload(context.Background(), []byte("png-bytes"), "shoes.png")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/shoes.png", image.URL)
	assert.Equal(t, "Cartify/abc123", image.PublicID)
}

func TestUploadAPIError(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	})

	_, err := store.Upload(context.Background(), []byte("png-bytes"), "shoes.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Signature")
}

func TestDestroy(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/destroy", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "Cartify/abc123", r.FormValue("public_id"))
		assert.Equal(t, signParams(map[string]string{
			"public_id": "Cartify/abc123",
			"timestamp": "1700000000",
		}, "shh"), r.FormValue("signature"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	})

	require.NoError(t, store.Destroy(context.Background(), "Cartify/abc123"))
}
