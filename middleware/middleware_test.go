package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"crumb/tokens"
	"crumb/utils"

	"github.com/julienschmidt/httprouter"
)

func TestAuthenticateMissingToken(t *testing.T) {
	mw := &Auth{Secret: []byte("s")}
	called := false
	h := mw.Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		called = true
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/", nil), nil)

	if called {
		t.Fatal("handler should not run without a token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	mw := &Auth{Secret: []byte("s")}
	raw, err := tokens.Sign(mw.Secret, "user-1", "crusty", tokens.AccessTTL)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	var gotUser, gotName string
	h := mw.Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gotUser = utils.GetUserIDFromContext(r.Context())
		gotName = utils.GetUsernameFromContext(r.Context())
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	h(rec, req, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotUser != "user-1" || gotName != "crusty" {
		t.Fatalf("context not populated: %q %q", gotUser, gotName)
	}
}

func TestAuthenticateBadToken(t *testing.T) {
	mw := &Auth{Secret: []byte("s")}
	h := mw.Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h(rec, req, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	mw := &Auth{Secret: []byte("s")}
	var gotUser string
	h := mw.OptionalAuth(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gotUser = utils.GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/", nil), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotUser != "" {
		t.Fatalf("anonymous request should carry no user, got %q", gotUser)
	}
}
