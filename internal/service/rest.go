package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/yuv5120/SplitPay/internal/auth"
	"github.com/yuv5120/SplitPay/internal/middleware"
	"github.com/yuv5120/SplitPay/pkg/splitpayv1"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RESTHandler serves the JSON views used by the web client alongside the
// Connect API.
type RESTHandler struct {
	groups     *GroupService
	jwtManager *auth.JWTManager
	db         Pinger
}

// NewRESTHandler creates a REST handler. db may be nil to skip the
// database check in /health.
func NewRESTHandler(groups *GroupService, jwtManager *auth.JWTManager, db Pinger) *RESTHandler {
	return &RESTHandler{groups: groups, jwtManager: jwtManager, db: db}
}

// Register mounts the REST routes on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /groups", h.ListGroups)
	mux.HandleFunc("GET /groups/{id}", h.GetGroup)
}

// groupView is a group with its balances and settlement plan.
type groupView struct {
	*splitpayv1.Group
	Balances    map[string]float64       `json:"balances"`
	Settlements []*splitpayv1.Settlement `json:"settlements"`
	TotalSpent  float64                  `json:"totalSpent"`
}

type healthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Health reports liveness and database reachability.
func (h *RESTHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Success:   true,
		Message:   "Server is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			resp.Success = false
			resp.Message = "Database unavailable"
			middleware.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// GetGroup returns one group with balances keyed by member ID.
func (h *RESTHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx, err := middleware.Authenticate(r.Context(), h.jwtManager, r.Header.Get("Authorization"))
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	group, err := h.groups.loadOwnedGroup(ctx, r.PathValue("id"))
	if err != nil {
		writeConnectError(w, err)
		return
	}

	summary, err := h.groups.groupSummary(ctx, group)
	if err != nil {
		slog.Error("GetGroup balances failed", "group_id", group.ID, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Error calculating balances")
		return
	}
	balances := toBalancesResponse(summary)

	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{
		Success: true,
		Data: groupView{
			Group:       toWireGroup(group),
			Balances:    roundedBalances(summary.Balances),
			Settlements: balances.Settlements,
			TotalSpent:  balances.TotalSpent,
		},
	})
}

// ListGroups returns the caller's groups, newest first.
func (h *RESTHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	ctx, err := middleware.Authenticate(r.Context(), h.jwtManager, r.Header.Get("Authorization"))
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	groups, err := h.groups.store.ListGroupsByOwner(ctx, middleware.GetUserID(ctx))
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Error fetching groups")
		return
	}

	out := make([]*splitpayv1.Group, len(groups))
	for i, g := range groups {
		out[i] = toWireGroup(g)
	}
	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{Success: true, Data: out})
}

// writeConnectError maps a Connect error code to an HTTP status.
func writeConnectError(w http.ResponseWriter, err error) {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	switch connectErr.Code() {
	case connect.CodeUnauthenticated:
		middleware.WriteError(w, http.StatusUnauthorized, connectErr.Message())
	case connect.CodeInvalidArgument:
		middleware.WriteError(w, http.StatusBadRequest, connectErr.Message())
	case connect.CodeNotFound:
		middleware.WriteError(w, http.StatusNotFound, "Group not found")
	default:
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
