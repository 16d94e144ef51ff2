package drive

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

func newTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return key, string(pem.EncodeToMemory(block))
}

func newTokenServer(t *testing.T, pub *rsa.PublicKey, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if r.PostForm.Get("grant_type") != jwtBearerGrant {
			t.Errorf("unexpected grant type %q", r.PostForm.Get("grant_type"))
		}

		var claims assertionClaims
		token, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), &claims, func(tok *jwt.Token) (any, error) {
			return pub, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		if err != nil || !token.Valid {
			t.Errorf("invalid assertion: %v", err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if claims.Issuer != "bot@example.iam.gserviceaccount.com" || claims.Scope != ScopeDriveReadOnly {
			t.Errorf("unexpected claims %+v", claims)
		}
		if token.Header["kid"] != "kid-1" {
			t.Errorf("expected kid header, got %v", token.Header["kid"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ya29.token",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServiceAccountTokenSource_ExchangesAndCaches(t *testing.T) {
	key, pemKey := newTestKey(t)
	var calls int32
	srv := newTokenServer(t, &key.PublicKey, &calls)

	ts, err := NewServiceAccountTokenSource(&ServiceAccountKey{
		ClientEmail:  "bot@example.iam.gserviceaccount.com",
		PrivateKey:   pemKey,
		PrivateKeyID: "kid-1",
		TokenURI:     srv.URL,
	}, "", srv.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		token, err := ts.Token(context.Background())
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if token != "ya29.token" {
			t.Errorf("expected ya29.token, got %s", token)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 exchange, got %d", calls)
	}
}

func TestServiceAccountTokenSource_RefreshesNearExpiry(t *testing.T) {
	key, pemKey := newTestKey(t)
	var calls int32
	srv := newTokenServer(t, &key.PublicKey, &calls)

	ts, err := NewServiceAccountTokenSource(&ServiceAccountKey{
		ClientEmail:  "bot@example.iam.gserviceaccount.com",
		PrivateKey:   pemKey,
		PrivateKeyID: "kid-1",
		TokenURI:     srv.URL,
	}, "", srv.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	ts.now = func() time.Time { return now }
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	now = now.Add(59*time.Minute + 30*time.Second)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected refresh inside the skew window, got %d exchanges", calls)
	}
}

func TestServiceAccountTokenSource_EndpointError(t *testing.T) {
	_, pemKey := newTestKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	ts, err := NewServiceAccountTokenSource(&ServiceAccountKey{
		ClientEmail: "bot@example.iam.gserviceaccount.com",
		PrivateKey:  pemKey,
		TokenURI:    srv.URL,
	}, "", srv.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ts.Token(context.Background()); err == nil {
		t.Error("expected error from token endpoint")
	}
}

func TestNewServiceAccountTokenSource_Incomplete(t *testing.T) {
	_, err := NewServiceAccountTokenSource(&ServiceAccountKey{ClientEmail: "x"}, "", nil)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}

	_, err = NewServiceAccountTokenSource(&ServiceAccountKey{ClientEmail: "x", PrivateKey: "not a pem"}, "", nil)
	if err == nil {
		t.Error("expected parse error for invalid key")
	}
}

func TestLoadServiceAccountKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	data := `{"type":"service_account","client_email":"bot@example.com","private_key":"pem","private_key_id":"k1"}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	key, err := LoadServiceAccountKey(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.ClientEmail != "bot@example.com" || key.PrivateKeyID != "k1" {
		t.Errorf("unexpected key %+v", key)
	}

	if _, err := LoadServiceAccountKey(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
