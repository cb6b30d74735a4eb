package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
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

func signIn(t *testing.T, client *supabase.Client, userID string) {
	t.Helper()
	err := client.Sessions().Save(&supabase.Session{
		AccessToken: "user-token",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User:        &supabase.User{ID: userID, Email: userID + "@example.com"},
	})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}
}

func TestList_SignedOutIsEmpty(t *testing.T) {
	var calls int
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	got, err := svc.List(context.Background())
	if err != nil || got != nil {
		t.Fatalf("expected nil/nil, got %v / %v", got, err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestCreate_FailureDoesNotPropagate(t *testing.T) {
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"boom"}`))
	}))
	signIn(t, client, "user-1")

	// Create must swallow the backend failure.
	svc.ApplicationSubmitted(context.Background(), "user-1", "pet-1", "豆豆", "img")
}

func TestApplicationSubmitted_InsertsUnread(t *testing.T) {
	var body map[string]interface{}
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[]`))
	}))
	signIn(t, client, "user-1")

	svc.ApplicationSubmitted(context.Background(), "user-1", "pet-1", "豆豆", "img")
	if body["type"] != "application_submitted" || body["title"] != "申请已提交" {
		t.Fatalf("unexpected notification: %v", body)
	}
	if _, ok := body["id"]; ok {
		t.Fatalf("insert payload must not carry an id, got %v", body["id"])
	}
	if read, ok := body["is_read"].(bool); !ok || read {
		t.Fatalf("notification must start unread: %v", body["is_read"])
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "豆豆") {
		t.Fatalf("pet name missing from message: %q", msg)
	}
}

func TestUnreadCount(t *testing.T) {
	var query string
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Range", "0-0/4")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(`[]`))
	}))
	signIn(t, client, "user-1")

	count, err := svc.UnreadCount(context.Background())
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}
	if !strings.Contains(query, "is_read=eq.false") {
		t.Fatalf("missing unread filter: %s", query)
	}
}

func TestMarkAllRead_ScopesToUser(t *testing.T) {
	var method, query string
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		query = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	signIn(t, client, "user-1")

	if err := svc.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if method != http.MethodPatch || !strings.Contains(query, "user_id=eq.user-1") {
		t.Fatalf("unexpected request: %s %s", method, query)
	}
}

func TestSubscribe_RequiresSignIn(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := svc.Subscribe(context.Background(), time.Minute, func(n domain.Notification) {})
	if err == nil || err.Error() != "请先登录" {
		t.Fatalf("expected sign-in error, got %v", err)
	}
}

func TestSubscribe_DeliversNewRows(t *testing.T) {
	var mu sync.Mutex
	var rows []string
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Write([]byte("[" + strings.Join(rows, ",") + "]"))
	}))
	signIn(t, client, "user-1")

	got := make(chan domain.Notification, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller, err := svc.Subscribe(ctx, 10*time.Millisecond, func(n domain.Notification) {
		got <- n
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer poller.Stop()

	mu.Lock()
	rows = append(rows, `{"id":"n1","user_id":"user-1","type":"application_approved","title":"申请已通过 🎉","is_read":false}`)
	mu.Unlock()

	select {
	case n := <-got:
		if n.ID != "n1" || n.Type != "application_approved" || n.IsRead {
			t.Fatalf("unexpected notification: %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}
