package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMiddlewareRejectsMissingBearer(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	w := httptest.NewRecorder()

	Middleware(nil, nil, testLogger())(okHandler).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareAcceptsValidPAT(t *testing.T) {
	patMgr, err := NewPATManager("a-secret-that-is-at-least-32-bytes!!", time.Hour)
	if err != nil {
		t.Fatalf("NewPATManager() error: %v", err)
	}

	token, err := patMgr.IssueToken(PATClaims{Subject: "svc-jobber", UserID: "svc-jobber", TenantID: "t1"})
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	var gotIdentity *Identity
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	Middleware(patMgr, nil, testLogger())(handler).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotIdentity == nil || gotIdentity.UserID != "svc-jobber" || gotIdentity.Method != MethodPAT {
		t.Errorf("unexpected identity: %+v", gotIdentity)
	}
}

func TestCallbackAuth(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := CallbackAuth("shared-secret", testLogger())

	t.Run("rejects wrong key", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/hr/callback", nil)
		r.Header.Set("Authorization", "Bearer wrong")
		w := httptest.NewRecorder()

		mw(okHandler).ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("accepts correct key", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/hr/callback", nil)
		r.Header.Set("Authorization", "Bearer shared-secret")
		w := httptest.NewRecorder()

		mw(okHandler).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})
}
