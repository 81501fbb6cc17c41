package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/dock/internal/apperr"
)

func TestDisabled(t *testing.T) {
	id, err := Disabled{}.Verify(context.Background(), "")
	if err != nil || id != DefaultLocalUser {
		t.Errorf("Verify = %q, %v", id, err)
	}
	id, _ = Disabled{UserID: "me"}.Verify(context.Background(), "anything")
	if id != "me" {
		t.Errorf("id = %q, want me", id)
	}
}

func TestStatic(t *testing.T) {
	v := Static{Token: "s3cret", UserID: "alice"}
	if id, err := v.Verify(context.Background(), "s3cret"); err != nil || id != "alice" {
		t.Errorf("valid token: %q, %v", id, err)
	}
	for _, tok := range []string{"", "wrong", "s3cret "} {
		if _, err := v.Verify(context.Background(), tok); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("token %q: err = %v, want ErrUnauthorized", tok, err)
		}
	}
	if _, err := (Static{}).Verify(context.Background(), ""); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Error("empty configured token must reject")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"Basic abc":    "",
		"":             "",
		"Bearer":       "",
	}
	for in, want := range tests {
		if got := BearerToken(in); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUserIDContext(t *testing.T) {
	if _, ok := UserID(context.Background()); ok {
		t.Error("empty context reported a user")
	}
	ctx := WithUserID(context.Background(), "u1")
	if id, ok := UserID(ctx); !ok || id != "u1" {
		t.Errorf("UserID = %q, %v", id, ok)
	}
}

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func sign(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestJWT(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	kf := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	v := NewJWT(kf, "dock", "")

	valid := jwt.RegisteredClaims{
		Subject:   "user-42",
		Audience:  jwt.ClaimStrings{"dock"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	id, err := v.Verify(context.Background(), sign(t, key, jwt.SigningMethodRS256, valid))
	if err != nil || id != "user-42" {
		t.Fatalf("valid token: %q, %v", id, err)
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noSubject := valid
	noSubject.Subject = ""
	wrongAud := valid
	wrongAud.Audience = jwt.ClaimStrings{"other"}
	noExp := valid
	noExp.ExpiresAt = nil

	rejects := map[string]string{
		"expired":    sign(t, key, jwt.SigningMethodRS256, expired),
		"no subject": sign(t, key, jwt.SigningMethodRS256, noSubject),
		"audience":   sign(t, key, jwt.SigningMethodRS256, wrongAud),
		"no exp":     sign(t, key, jwt.SigningMethodRS256, noExp),
		"other key":  sign(t, other, jwt.SigningMethodRS256, valid),
		"alg PS256":  sign(t, key, jwt.SigningMethodPS256, valid),
		"garbage":    "not.a.jwt",
		"empty":      "",
	}
	for name, tok := range rejects {
		if _, err := v.Verify(context.Background(), tok); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("%s: err = %v, want ErrUnauthorized", name, err)
		}
	}
}

func TestNewJWKS_RequiresURL(t *testing.T) {
	if _, err := NewJWKS(context.Background(), "", "", ""); err == nil {
		t.Error("expected error for empty url")
	}
}
