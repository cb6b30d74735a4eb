package supabase

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
)

func TestStorage_UploadUsesSessionBearer(t *testing.T) {
	payload := []byte("png-bytes")
	var gotPath, gotAuth, gotContentType string
	var gotBody []byte

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"Key":"avatars/user-1/a.png"}`))
	}))
	if err := client.Sessions().Save(liveSession("user-1")); err != nil {
		t.Fatalf("save session: %v", err)
	}

	err := client.Storage().Upload(context.Background(), "avatars", "user-1/a.png", payload, "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gotPath != "/storage/v1/object/avatars/user-1/a.png" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer user-token" {
		t.Fatalf("upload must carry the session bearer, got %q", gotAuth)
	}
	if gotContentType != "image/png" {
		t.Fatalf("unexpected content type: %q", gotContentType)
	}
	if !bytes.Equal(gotBody, payload) {
		t.Fatalf("body not forwarded verbatim: %q", gotBody)
	}
}

func TestStorage_UploadErrorIsTyped(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Bucket not found"}`))
	}))

	err := client.Storage().Upload(context.Background(), "nope", "a.png", []byte("x"), "image/png")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestStorage_PublicURL(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	got := client.Storage().PublicURL("avatars", "user-1/my avatar.png")
	want := client.baseURL + "/storage/v1/object/public/avatars/user-1/my%20avatar.png"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStorage_Download(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/avatars/u/a.png" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte("raw"))
	}))

	data, err := client.Storage().Download(context.Background(), "avatars", "u/a.png")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "raw" {
		t.Fatalf("unexpected data: %q", data)
	}
}
