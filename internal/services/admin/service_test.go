package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/services/auth"
	"github.com/pawsadopt/pawsadopt/internal/services/notifications"
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

	notifSvc := notifications.New(client, auth.New(client, zerolog.Nop()), zerolog.Nop())
	return New(client, notifSvc, zerolog.Nop()), client
}

func signIn(t *testing.T, client *supabase.Client, userID string) {
	t.Helper()
	err := client.Sessions().Save(&supabase.Session{
		AccessToken: "admin-token",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User:        &supabase.User{ID: userID, Email: userID + "@example.com"},
	})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}
}

func TestReviewApplication_InvalidStatus(t *testing.T) {
	var calls int
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	err := svc.ReviewApplication(context.Background(), "app-1", "pending")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestReviewApplication_ApprovedNotifiesApplicant(t *testing.T) {
	var notification map[string]interface{}
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch:
			w.Write([]byte(`[{"id":"app-1","user_id":"user-1","pet_id":"pet-1","status":"approved"}]`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/pets"):
			w.Write([]byte(`[{"id":"pet-1","name":"豆豆","image":"img"}]`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/notifications"):
			json.NewDecoder(r.Body).Decode(&notification)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`[]`))
		}
	}))
	signIn(t, client, "admin-1")

	if err := svc.ReviewApplication(context.Background(), "app-1", domain.StatusApproved); err != nil {
		t.Fatalf("review: %v", err)
	}
	if notification["type"] != "application_approved" || notification["user_id"] != "user-1" {
		t.Fatalf("unexpected notification: %v", notification)
	}
	if notification["title"] != "申请已通过 🎉" {
		t.Fatalf("unexpected title: %v", notification["title"])
	}
}

func TestReviewApplication_UnknownApplication(t *testing.T) {
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	signIn(t, client, "admin-1")

	err := svc.ReviewApplication(context.Background(), "nope", domain.StatusRejected)
	if !supabase.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPets_MemoizesShelterLookups(t *testing.T) {
	var shelterCalls int
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/rest/v1/shelters") {
			shelterCalls++
			w.Write([]byte(`[{"id":"sh-1","name":"流浪动物之家"}]`))
			return
		}
		w.Write([]byte(`[{"id":"p1","shelter_id":"sh-1"},{"id":"p2","shelter_id":"sh-1"}]`))
	}))
	signIn(t, client, "admin-1")

	pets, err := svc.Pets(context.Background())
	if err != nil {
		t.Fatalf("pets: %v", err)
	}
	if len(pets) != 2 || pets[0].Shelter == nil || pets[1].Shelter == nil {
		t.Fatalf("shelters not joined: %+v", pets)
	}
	if shelterCalls != 1 {
		t.Fatalf("expected one shelter lookup, got %d", shelterCalls)
	}
}

func TestCreatePet_OmitsServerGeneratedID(t *testing.T) {
	var body map[string]interface{}
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"pet-9","name":"豆豆","category":"dogs"}]`))
	}))
	signIn(t, client, "admin-1")

	created, err := svc.CreatePet(context.Background(), domain.Pet{Name: "豆豆", Category: "dogs"})
	if err != nil {
		t.Fatalf("create pet: %v", err)
	}
	if created.ID != "pet-9" {
		t.Fatalf("unexpected row: %+v", created)
	}
	if _, ok := body["id"]; ok {
		t.Fatalf("insert payload must not carry an id, got %v", body["id"])
	}
	if _, ok := body["created_at"]; ok {
		t.Fatalf("insert payload must not carry created_at, got %v", body["created_at"])
	}
}

func TestUpdatePet_UnknownPet(t *testing.T) {
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	signIn(t, client, "admin-1")

	_, err := svc.UpdatePet(context.Background(), "nope", map[string]interface{}{"status": "adopted"})
	if !supabase.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestApplications_JoinsPetAndUser(t *testing.T) {
	svc, client := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/rest/v1/applications"):
			w.Write([]byte(`[{"id":"app-1","user_id":"user-1","pet_id":"pet-1","status":"pending"}]`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/pets"):
			w.Write([]byte(`[{"id":"pet-1","name":"豆豆"}]`))
		case strings.HasPrefix(r.URL.Path, "/rest/v1/users"):
			w.Write([]byte(`[{"id":"user-1","name":"张三"}]`))
		}
	}))
	signIn(t, client, "admin-1")

	apps, err := svc.Applications(context.Background())
	if err != nil {
		t.Fatalf("applications: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("expected one application, got %d", len(apps))
	}
	if apps[0].Pet == nil || apps[0].Pet.Name != "豆豆" {
		t.Fatalf("pet not joined: %+v", apps[0])
	}
	if apps[0].User == nil || apps[0].User.Name != "张三" {
		t.Fatalf("user not joined: %+v", apps[0])
	}
}
