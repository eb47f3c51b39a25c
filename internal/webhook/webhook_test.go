package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatch_NoopWithoutEndpoint(t *testing.T) {
	d := New("", "secret", time.Second)
	require.NoError(t, d.Dispatch(context.Background(), "ws1", "verification.completed", map[string]string{"a": "b"}))
}

func TestDispatch_SignsAndPostsEnvelope(t *testing.T) {
	const secret = "topsecret"
	var gotBody []byte
	var gotSig string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Webhook-Signature")
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(srv.URL, secret, time.Second)
	err := d.Dispatch(context.Background(), "ws1", "verification.completed", map[string]any{"lead_id": "42"})
	require.NoError(t, err)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(gotBody)
	require.Equal(t, hex.EncodeToString(h.Sum(nil)), gotSig)

	var env Envelope
	require.NoError(t, json.Unmarshal(gotBody, &env))
	require.Equal(t, "ws1", env.WorkspaceID)
	require.Equal(t, "verification.completed", env.Event)
}

func TestDispatch_ReturnsErrorOnUnreachableEndpoint(t *testing.T) {
	d := New("http://127.0.0.1:1", "secret", 200*time.Millisecond)
	err := d.Dispatch(context.Background(), "ws1", "verification.completed", nil)
	require.Error(t, err)
}
