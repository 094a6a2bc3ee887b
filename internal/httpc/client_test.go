package httpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_SendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	resp, err := Post(context.Background(), srv.URL, "image/jpeg", []byte("frame"))
	require.NoError(t, err)
	defer resp.Body.Close()

	got, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "frame", string(got))
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Key"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["text"]})
	}))
	defer srv.Close()

	var out map[string]string
	err := PostJSON(context.Background(), Client, srv.URL, map[string]string{"X-Key": "secret"},
		map[string]string{"text": "hello"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hello", out["echo"])
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), Client, srv.URL, nil, struct{}{}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Body, "quota exceeded")
}
