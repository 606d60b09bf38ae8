package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func newAuthTestApp(t *testing.T) *fiber.App {
	t.Helper()

	app := newTestApp(t)
	app.Get("/any", RequireAuth(testSecret), func(c *fiber.Ctx) error {
		return c.SendString(ClaimsFromCtx(c).Role)
	})
	app.Get("/super", RequireAuth(testSecret), RequireRole(RoleSuperAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleSuperAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString(none) error = %v", err)
	}
	noRole := signToken(t, testSecret, "", time.Hour)

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantBody      string
	}{
		{name: "valid token", authorization: bearer(t, "sales_rep"), wantStatus: fiber.StatusOK, wantBody: "sales_rep"},
		{name: "lowercase scheme", authorization: "bearer " + signToken(t, testSecret, RoleAdmin, time.Hour), wantStatus: fiber.StatusOK, wantBody: RoleAdmin},
		{name: "missing header", wantStatus: fiber.StatusUnauthorized},
		{name: "wrong scheme", authorization: "Basic abc", wantStatus: fiber.StatusUnauthorized},
		{name: "wrong secret", authorization: "Bearer " + signToken(t, []byte("other"), RoleAdmin, time.Hour), wantStatus: fiber.StatusUnauthorized},
		{name: "expired", authorization: "Bearer " + signToken(t, testSecret, RoleAdmin, -time.Minute), wantStatus: fiber.StatusUnauthorized},
		{name: "unsigned", authorization: "Bearer " + noneToken, wantStatus: fiber.StatusUnauthorized},
		{name: "no role claim", authorization: "Bearer " + noRole, wantStatus: fiber.StatusUnauthorized},
		{name: "garbage", authorization: "Bearer not.a.jwt", wantStatus: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newAuthTestApp(t)
			resp, body := performRequest(t, app, http.MethodGet, "/any", "", tt.authorization)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", resp.StatusCode, tt.wantStatus, string(body))
			}
			if tt.wantBody != "" && string(body) != tt.wantBody {
				t.Fatalf("body = %q, want %q", string(body), tt.wantBody)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	app := newAuthTestApp(t)

	resp, _ := performRequest(t, app, http.MethodGet, "/super", "", bearer(t, RoleSuperAdmin))
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("super_admin status = %d, want 204", resp.StatusCode)
	}

	resp, body := performRequest(t, app, http.MethodGet, "/super", "", bearer(t, RoleAdmin))
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("admin status = %d, want 403, body=%s", resp.StatusCode, string(body))
	}
}
