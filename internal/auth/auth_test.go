package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"genehub/internal/cache"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService([]byte("test-secret"), time.Hour, cache.NewMemoryStore(), nil)
}

func TestService_IssueAuthenticate_RoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, expiresAt, err := svc.Issue(ctx, "agent-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expiresAt=%v not in the future", expiresAt)
	}

	claims, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.AgentID != "agent-1" {
		t.Fatalf("agent=%s want=agent-1", claims.AgentID)
	}
}

func TestService_Authenticate_TamperedToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, "agent-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if _, err := svc.Authenticate(ctx, tampered); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestService_Authenticate_WrongSecret(t *testing.T) {
	ctx := context.Background()
	a := NewService([]byte("secret-a"), time.Hour, cache.NewMemoryStore(), nil)
	b := NewService([]byte("secret-b"), time.Hour, cache.NewMemoryStore(), nil)

	token, _, err := a.Issue(ctx, "agent-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Authenticate(ctx, token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestService_Issue_RotationRevokesOldToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, _, err := svc.Issue(ctx, "agent-1")
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, _, err := svc.Issue(ctx, "agent-1")
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}

	if _, err := svc.Authenticate(ctx, second); err != nil {
		t.Fatalf("authenticate second: %v", err)
	}
	if _, err := svc.Authenticate(ctx, first); err == nil {
		t.Fatal("rotated-out token still accepted")
	}
}

func TestService_Revoke(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, "agent-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(ctx, "agent-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); err == nil {
		t.Fatal("revoked token accepted")
	}
}

func newTestRouter(svc *Service, enabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(svc, enabled))
	echo := func(c *gin.Context) {
		agent, _ := AgentFromContext(c)
		c.JSON(http.StatusOK, gin.H{"agent": agent})
	}
	r.GET("/api/v1/tasks", echo)
	r.POST("/api/v1/tasks/:id/claim", echo)
	r.POST("/api/v1/agents/register", echo)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware_GuardsMutatingRoutes(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(svc, true)

	if w := do(t, r, http.MethodPost, "/api/v1/tasks/t-1/claim", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("code=%d want=401", w.Code)
	}

	token, _, err := svc.Issue(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w := do(t, r, http.MethodPost, "/api/v1/tasks/t-1/claim", token)
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d want=200 body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "agent-1") {
		t.Fatalf("claims not set: %s", w.Body.String())
	}
}

func TestMiddleware_ReadsAndRegisterStayOpen(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(svc, true)

	if w := do(t, r, http.MethodGet, "/api/v1/tasks", ""); w.Code != http.StatusOK {
		t.Fatalf("GET code=%d want=200", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/v1/agents/register", ""); w.Code != http.StatusOK {
		t.Fatalf("register code=%d want=200", w.Code)
	}
}

func TestMiddleware_DisabledPassesEverything(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(svc, false)

	if w := do(t, r, http.MethodPost, "/api/v1/tasks/t-1/claim", ""); w.Code != http.StatusOK {
		t.Fatalf("code=%d want=200", w.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Bearer  abc ", "abc"},
		{"abc", ""},
		{"Basic abc", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.in); got != tc.want {
			t.Fatalf("bearerToken(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}
