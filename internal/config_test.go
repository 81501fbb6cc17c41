package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
	if cfg.UserID != "local" {
		t.Errorf("user id = %q, want local", cfg.UserID)
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_JWTMode(t *testing.T) {
	cfg := AuthConfig{Mode: "jwt"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "jwks_url is empty") {
		t.Fatalf("jwt without jwks_url: %v", err)
	}
	cfg = AuthConfig{Mode: "jwt", JWKSURL: "not a url"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("malformed jwks_url should fail")
	}
	cfg = AuthConfig{Mode: "jwt", JWKSURL: "https://issuer.example.com/.well-known/jwks.json"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid jwt config: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStoreConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr bool
	}{
		{"default sqlite", StoreConfig{SQLite: SQLiteConfig{Path: "x.db"}}, false},
		{"sqlite without path", StoreConfig{Driver: DriverSQLite}, true},
		{"mongo", StoreConfig{Driver: DriverMongo, Mongo: MongoConfig{URI: "mongodb://localhost", Database: "dock"}}, false},
		{"mongo without database", StoreConfig{Driver: DriverMongo, Mongo: MongoConfig{URI: "mongodb://localhost"}}, true},
		{"postgres", StoreConfig{Driver: DriverPostgres, Postgres: PostgresConfig{URL: "postgres://localhost/dock"}}, false},
		{"postgres without url", StoreConfig{Driver: DriverPostgres}, true},
		{"unknown driver", StoreConfig{Driver: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestViewsConfig_ViewConfig(t *testing.T) {
	v := (&ViewsConfig{}).ViewConfig()
	if len(v.MarketLabels) == 0 || len(v.Reserved.Titles) == 0 || v.RelatedLimit == 0 {
		t.Errorf("empty section should keep defaults: %+v", v)
	}

	v = (&ViewsConfig{
		MarketLabels:   []string{"Gold"},
		ReservedTitles: []string{},
		ReservedPaths:  []string{"vault:note/readme"},
		RelatedLimit:   3,
	}).ViewConfig()
	if len(v.MarketLabels) != 1 || v.MarketLabels[0] != "Gold" {
		t.Errorf("market labels = %v", v.MarketLabels)
	}
	if len(v.Reserved.Titles) != 0 || len(v.Reserved.Paths) != 1 {
		t.Errorf("reserved = %+v", v.Reserved)
	}
	if v.RelatedLimit != 3 {
		t.Errorf("related limit = %d", v.RelatedLimit)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}
