package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCanAccess_Admin(t *testing.T) {
	id := &Identity{UserID: "u1", Role: RoleAdmin}
	if !id.CanAccess("anyone") {
		t.Error("expected admin to access any wrestler")
	}
}

func TestCanAccess_Coach(t *testing.T) {
	id := &Identity{UserID: "u1", Role: RoleCoach, TeamWrestlerIDs: []string{"w1", "w2"}}
	if !id.CanAccess("w1") {
		t.Error("expected coach to access team member")
	}
	if id.CanAccess("w3") {
		t.Error("expected coach to be denied for non-team wrestler")
	}
}

func TestCanAccess_Athlete(t *testing.T) {
	id := &Identity{UserID: "u1", Role: RoleAthlete, WrestlerID: "w1"}
	if !id.CanAccess("w1") {
		t.Error("expected athlete to access own record")
	}
	if id.CanAccess("w2") {
		t.Error("expected athlete to be denied for other wrestlers")
	}
}

func TestCanAccess_UnknownRole(t *testing.T) {
	id := &Identity{UserID: "u1", Role: "visitor", WrestlerID: "w1"}
	if id.CanAccess("w1") {
		t.Error("expected unknown role to be denied")
	}
}

func TestMiddleware_ResolvesIdentity(t *testing.T) {
	var got *Identity
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Role", RoleCoach)
	req.Header.Set("X-Team-Wrestlers", "w1, w2,w3")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil {
		t.Fatal("expected identity in context")
	}
	if got.UserID != "u1" || got.Role != RoleCoach {
		t.Errorf("unexpected identity %+v", got)
	}
	if len(got.TeamWrestlerIDs) != 3 || got.TeamWrestlerIDs[1] != "w2" {
		t.Errorf("unexpected team list %v", got.TeamWrestlerIDs)
	}
}

func TestMiddleware_RejectsMissingUser(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_RejectsUnknownRole(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Role", "visitor")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
