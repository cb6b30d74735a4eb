package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/services/auth"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *supabase.Client) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{
		ProjectURL: srv.URL,
		AnonKey:    "anon-key",
		Sessions:   supabase.NewMemoryStorage(),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return New(client, auth.New(client, zerolog.Nop()), zerolog.Nop()), client
}

func signIn(t *testing.T, client *supabase.Client, userID, email string) {
	t.Helper()
	err := client.Sessions().Save(&supabase.Session{
		AccessToken: "user-token",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User:        &supabase.User{ID: userID, Email: email},
	})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}
}

func TestProfile_SignedOutIsNil(t *testing.T) {
	var calls int
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	profile, err := svc.Profile(context.Background())
	if err != nil || profile != nil {
		t.Fatalf("expected nil/nil, got %+v / %v", profile, err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestProfile_ReturnsExistingRow(t *testing.T) {
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"user-1","email":"u@example.com","name":"小明"}]`))
	}))
	signIn(t, client, "user-1", "u@example.com")

	profile, err := svc.Profile(context.Background())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Name != "小明" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestProfile_CreatesDefaultWhenMissing(t *testing.T) {
	var created map[string]interface{}
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewDecoder(r.Body).Decode(&created)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[]`)) // no profile row yet
	}))
	signIn(t, client, "user-1", "xiaoming@example.com")

	profile, err := svc.Profile(context.Background())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Name != "xiaoming" {
		t.Fatalf("name should come from the email local part, got %q", profile.Name)
	}
	if created["id"] != "user-1" || created["location"] != defaultLocation {
		t.Fatalf("unexpected created row: %v", created)
	}
}

func TestUpdate_RequiresSignIn(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := svc.Update(context.Background(), map[string]interface{}{"name": "new"})
	if err == nil || err.Error() != "请先登录" {
		t.Fatalf("expected sign-in error, got %v", err)
	}
}

func TestUpdate_PatchesProfile(t *testing.T) {
	var method string
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Write([]byte(`[{"id":"user-1","name":"改名"}]`))
	}))
	signIn(t, client, "user-1", "u@example.com")

	updated, err := svc.Update(context.Background(), map[string]interface{}{"name": "改名"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if method != http.MethodPatch {
		t.Fatalf("expected PATCH, got %s", method)
	}
	if updated.Name != "改名" {
		t.Fatalf("unexpected row: %+v", updated)
	}
}

func TestUploadAvatar_RequiresSignIn(t *testing.T) {
	var calls int
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	_, err := svc.UploadAvatar(context.Background(), "me.png", []byte("png"))
	if err == nil || err.Error() != "请先登录" {
		t.Fatalf("expected sign-in error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestUploadAvatar_UploadsAndPatchesProfile(t *testing.T) {
	payload := []byte("png-bytes")
	var uploadPath string
	var uploadBody []byte
	var patched map[string]string
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/storage/v1/object/avatars/"):
			uploadPath = r.URL.Path
			uploadBody, _ = io.ReadAll(r.Body)
			w.Write([]byte(`{"Key":"avatars/x"}`))
		case r.Method == http.MethodPatch:
			json.NewDecoder(r.Body).Decode(&patched)
			w.Write([]byte(`[{"id":"user-1","name":"小明"}]`))
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	signIn(t, client, "user-1", "u@example.com")

	publicURL, err := svc.UploadAvatar(context.Background(), "me.png", payload)
	if err != nil {
		t.Fatalf("upload avatar: %v", err)
	}
	if !strings.Contains(uploadPath, "/avatars/avatars/user-1-") || !strings.HasSuffix(uploadPath, ".png") {
		t.Fatalf("unexpected object path: %s", uploadPath)
	}
	if !bytes.Equal(uploadBody, payload) {
		t.Fatalf("image bytes not forwarded: %q", uploadBody)
	}
	if patched["avatar_url"] != publicURL {
		t.Fatalf("profile not pointed at %q, got %v", publicURL, patched)
	}
	if !strings.Contains(publicURL, "/storage/v1/object/public/avatars/avatars/user-1-") {
		t.Fatalf("unexpected public url: %s", publicURL)
	}
}

func TestStats_CountsPerTable(t *testing.T) {
	counts := map[string]int{}
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var total int
		switch {
		case strings.Contains(r.URL.RawQuery, "status=eq.pending"):
			total = 2
		case strings.Contains(r.URL.RawQuery, "status=eq.approved"):
			total = 1
		default:
			total = 5
		}
		counts[r.URL.RawQuery]++
		w.Header().Set("Content-Range", fmt.Sprintf("0-0/%d", total))
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(`[]`))
	}))
	signIn(t, client, "user-1", "u@example.com")

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Applications != 2 || stats.Favorites != 5 || stats.Adopted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(counts) != 3 {
		t.Fatalf("expected three count queries, got %v", counts)
	}
}
