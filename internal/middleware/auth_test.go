package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"

	"github.com/gavinmorrow/hunter-extension-sub000/pkg/httpcontext"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func run(header string) (*fasthttp.RequestCtx, bool) {
	var rc fasthttp.RequestCtx
	if header != "" {
		rc.Request.Header.Set("Authorization", header)
	}
	called := false
	JWTAuth("secret", "hunter-sync", nil)(func(*fasthttp.RequestCtx) { called = true })(&rc)
	return &rc, called
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
		"iss":        "hunter-sync",
		"student_id": float64(4242),
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	rc, called := run("Bearer " + token)
	if !called {
		t.Fatalf("handler not called, status %d", rc.Response.StatusCode())
	}
	if sub, _ := rc.UserValue(httpcontext.UserValueSubject).(string); sub != "4242" {
		t.Fatalf("subject = %q", sub)
	}
}

func TestJWTAuthRejects(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
		"iss": "hunter-sync",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	cases := map[string]string{
		"missing":      "",
		"garbage":      "Bearer not-a-token",
		"wrong secret": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"iss": "hunter-sync"}),
		"wrong issuer": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"iss": "someone-else"}),
		"expired":      "Bearer " + expired,
		"none alg":     "Bearer " + sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"iss": "hunter-sync"}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rc, called := run(header)
			if called || rc.Response.StatusCode() != fasthttp.StatusUnauthorized {
				t.Fatalf("called=%v status=%d", called, rc.Response.StatusCode())
			}
		})
	}
}
