package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/config"
)

func TestMintTokenRoundTrip(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "hunter-sync"}
	now := time.Now()
	signed, err := mintToken(cfg, "calendar-ui", time.Hour, now)
	if err != nil {
		t.Fatalf("mintToken: %v", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "calendar-ui" || claims.Issuer != "hunter-sync" {
		t.Fatalf("claims = %+v", claims)
	}
	if got := claims.ExpiresAt.Time.Sub(now); got < 59*time.Minute || got > time.Hour+time.Second {
		t.Fatalf("ttl = %v", got)
	}
}

func TestMintTokenRequiresSecret(t *testing.T) {
	if _, err := mintToken(config.JWTConfig{}, "x", time.Hour, time.Now()); err == nil {
		t.Fatal("expected error without a secret")
	}
}

func TestEncodeSnapshot(t *testing.T) {
	entities := []domain.Assignment{{
		ID:      7,
		Kind:    domain.KindTask,
		Title:   "Read chapter 4",
		Status:  domain.StatusToDo,
		DueDate: time.Date(2024, 4, 24, 15, 0, 0, 0, time.UTC),
	}}

	var out bytes.Buffer
	if err := encode(&out, "yaml", entities); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	for _, want := range []string{"  id: 7", "  title: Read chapter 4", "  kind: task"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("yaml output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := encode(&out, "json", entities); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(out.String(), `"title": "Read chapter 4"`) {
		t.Fatalf("json output:\n%s", out.String())
	}

	if err := encode(&out, "xml", entities); err == nil {
		t.Fatal("expected unknown format error")
	}
}
