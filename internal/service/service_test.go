package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/yuv5120/SplitPay/internal/auth"
	"github.com/yuv5120/SplitPay/internal/cache"
	"github.com/yuv5120/SplitPay/internal/metrics"
	"github.com/yuv5120/SplitPay/internal/middleware"
	"github.com/yuv5120/SplitPay/internal/storage/sqlite"
	"github.com/yuv5120/SplitPay/pkg/splitpayv1"
)

// testEnv is a full server over a temp SQLite database and an in-memory Redis.
type testEnv struct {
	groups  splitpayv1.GroupServiceClient
	auth    splitpayv1.AuthServiceClient
	url     string
	store   *sqlite.SQLiteStore
	redis   *miniredis.Miniredis
	metrics *metrics.Metrics
	jwt     *auth.JWTManager
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "splitpay-service-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	m := metrics.New(prometheus.NewRegistry())
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	groupSvc := NewGroupService(store, cache.NewRedisCache(rdb, time.Minute), m)
	authSvc := NewAuthService(authenticator, jwtManager, store, logger)

	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager, PublicProcedures...),
		middleware.LoggingInterceptor(m),
	)

	mux := http.NewServeMux()
	mux.Handle(splitpayv1.NewGroupServiceHandler(groupSvc, interceptors))
	mux.Handle(splitpayv1.NewAuthServiceHandler(authSvc, interceptors))
	NewRESTHandler(groupSvc, jwtManager, store).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		groups:  splitpayv1.NewGroupServiceClient(http.DefaultClient, server.URL),
		auth:    splitpayv1.NewAuthServiceClient(http.DefaultClient, server.URL),
		url:     server.URL,
		store:   store,
		redis:   mr,
		metrics: m,
		jwt:     jwtManager,
	}
}

// register creates an account and returns its token.
func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()

	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&splitpayv1.RegisterRequest{
		Email:       email,
		DisplayName: "Test User",
		Password:    "password123",
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return resp.Msg.Token
}

// createTrip creates a three member group: alice, bob and charlie.
func (e *testEnv) createTrip(t *testing.T, token string) *splitpayv1.Group {
	t.Helper()

	resp, err := e.groups.CreateGroup(context.Background(), authed(token, &splitpayv1.CreateGroupRequest{
		Name: "Goa Trip",
		Members: []*splitpayv1.Member{
			{ID: "alice", Name: "Alice"},
			{ID: "bob", Name: "Bob"},
			{ID: "charlie", Name: "Charlie"},
		},
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

func (e *testEnv) addExpense(t *testing.T, token, groupID, paidBy string, amount float64, participants ...string) *splitpayv1.Expense {
	t.Helper()

	resp, err := e.groups.AddExpense(context.Background(), authed(token, &splitpayv1.AddExpenseRequest{
		GroupID:      groupID,
		Description:  "Expense",
		Amount:       amount,
		PaidBy:       paidBy,
		Participants: participants,
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	return resp.Msg.Expense
}

// authed wraps msg in a request carrying a bearer token.
func authed[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("code = %v, want %v (error: %v)", got, want, err)
	}
}
