package faceclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/verify":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "stu-1", body["user_id"])
			assert.Equal(t, "https://img/1.jpg", body["image_url"])
			_, _ = w.Write([]byte(`{"verified":true,"similarity":0.81,"threshold":0.45}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	require.NoError(t, c.Health(context.Background()))

	res, err := c.Verify(context.Background(), "stu-1", "https://img/1.jpg")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, 0.81, res.Similarity)
	assert.Equal(t, "stu-1", res.UserID)
}

func TestVerifyServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no enrolled face", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	_, err := c.Verify(context.Background(), "stu-1", "https://img/1.jpg")
	assert.ErrorContains(t, err, "no enrolled face")
	assert.Error(t, c.Health(context.Background()))
}

func TestSkip(t *testing.T) {
	c := New("http://unreachable.invalid", true)
	assert.NoError(t, c.Health(context.Background()))
	res, err := c.Verify(context.Background(), "stu-1", "")
	require.NoError(t, err)
	assert.True(t, res.Verified)
}
