package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/yuv5120/SplitPay/internal/auth"
	"github.com/yuv5120/SplitPay/internal/cache"
	"github.com/yuv5120/SplitPay/internal/calculator"
	"github.com/yuv5120/SplitPay/internal/metrics"
	"github.com/yuv5120/SplitPay/internal/middleware"
	"github.com/yuv5120/SplitPay/internal/models"
	"github.com/yuv5120/SplitPay/internal/storage"
	"github.com/yuv5120/SplitPay/pkg/splitpayv1"
)

var (
	errGroupIDRequired   = errors.New("group_id is required")
	errExpenseIDRequired = errors.New("expense_id is required")
	errGroupNotFound     = errors.New("group not found")
	errMemberIDRequired  = errors.New("member id is required")
	errEmptyExpense      = errors.New("expense is empty")
)

// GroupService implements the Connect GroupService
type GroupService struct {
	splitpayv1.UnimplementedGroupServiceHandler
	store   storage.GroupStore
	cache   cache.BalanceCache
	metrics *metrics.Metrics
}

// NewGroupService creates a new GroupService with the given storage backend.
// A nil balanceCache disables caching; a nil m disables metrics.
func NewGroupService(store storage.GroupStore, balanceCache cache.BalanceCache, m *metrics.Metrics) *GroupService {
	if balanceCache == nil {
		balanceCache = cache.NopCache{}
	}
	return &GroupService{store: store, cache: balanceCache, metrics: m}
}

// requireUser returns the authenticated user ID or CodeUnauthenticated.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// loadOwnedGroup fetches a group the caller owns. Groups owned by someone else
// are reported as not found.
func (s *GroupService) loadOwnedGroup(ctx context.Context, groupID string) (*models.Group, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errGroupIDRequired)
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, errGroupNotFound)
	}
	if err != nil {
		slog.Error("Failed to load group", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if group.OwnerID != userID {
		slog.Warn("Group accessed by non-owner", "group_id", groupID, "user_id", userID)
		return nil, connect.NewError(connect.CodeNotFound, errGroupNotFound)
	}
	return group, nil
}

// invalidate drops cached balances after a write. Failures are only logged.
func (s *GroupService) invalidate(ctx context.Context, groupID string) {
	if err := s.cache.Invalidate(ctx, groupID); err != nil {
		slog.Warn("Failed to invalidate balance cache", "group_id", groupID, "error", err)
	}
}

// CreateGroup creates a new group owned by the caller.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[splitpayv1.CreateGroupRequest]) (*connect.Response[splitpayv1.CreateGroupResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	group := &models.Group{
		Name:    strings.TrimSpace(req.Msg.Name),
		OwnerID: userID,
		Members: fromWireMembers(req.Msg.Members),
	}
	if err := group.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	// Save to storage (generates IDs and timestamps)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Group created", "group_id", group.ID, "owner_id", userID)

	return connect.NewResponse(&splitpayv1.CreateGroupResponse{
		Group: toWireGroup(group),
	}), nil
}

// GetGroup retrieves a group with its members and expenses.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[splitpayv1.GetGroupRequest]) (*connect.Response[splitpayv1.GetGroupResponse], error) {
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.loadOwnedGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&splitpayv1.GetGroupResponse{
		Group: toWireGroup(group),
	}), nil
}

// ListGroups retrieves the caller's groups, newest first.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[splitpayv1.ListGroupsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsByOwner(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	out := make([]*splitpayv1.Group, len(groups))
	for i, g := range groups {
		out[i] = toWireGroup(g)
	}

	slog.Info("ListGroups successful", "user_id", userID, "count", len(groups))

	return connect.NewResponse(&splitpayv1.ListGroupsResponse{Groups: out}), nil
}

// UpdateGroup replaces a group's name and member list. Members still used by
// an expense cannot be removed.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[splitpayv1.UpdateGroupRequest]) (*connect.Response[splitpayv1.UpdateGroupResponse], error) {
	slog.Info("UpdateGroup request received",
		"group_id", req.Msg.GroupID,
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	existing, err := s.loadOwnedGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	updated := &models.Group{
		ID:        existing.ID,
		Name:      strings.TrimSpace(req.Msg.Name),
		OwnerID:   existing.OwnerID,
		Members:   fromWireMembers(req.Msg.Members),
		Expenses:  existing.Expenses,
		CreatedAt: existing.CreatedAt,
	}
	if err := updated.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	for id := range existing.ReferencedMembers() {
		if !updated.HasMember(id) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("%w: %s", storage.ErrMemberInUse, id))
		}
	}

	// The store re-checks references inside its transaction; an expense added
	// since the read above surfaces here.
	if err := s.store.UpdateGroup(ctx, updated); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errGroupNotFound)
		}
		if errors.Is(err, storage.ErrMemberInUse) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		}
		slog.Error("UpdateGroup failed", "group_id", updated.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.invalidate(ctx, updated.ID)

	slog.Info("Group updated", "group_id", updated.ID)

	return connect.NewResponse(&splitpayv1.UpdateGroupResponse{
		Group: toWireGroup(updated),
	}), nil
}

// DeleteGroup removes a group and its expenses.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[splitpayv1.DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error) {
	slog.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.loadOwnedGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errGroupNotFound)
		}
		slog.Error("DeleteGroup failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.invalidate(ctx, group.ID)

	slog.Info("Group deleted", "group_id", group.ID)

	return connect.NewResponse(&emptypb.Empty{}), nil
}

// AddExpense records an expense in a group.
func (s *GroupService) AddExpense(ctx context.Context, req *connect.Request[splitpayv1.AddExpenseRequest]) (*connect.Response[splitpayv1.AddExpenseResponse], error) {
	slog.Info("AddExpense request received",
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
		"paid_by", req.Msg.PaidBy,
		"participants_count", len(req.Msg.Participants),
	)

	group, err := s.loadOwnedGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		Description:  strings.TrimSpace(req.Msg.Description),
		Amount:       req.Msg.Amount,
		PaidBy:       req.Msg.PaidBy,
		Participants: req.Msg.Participants,
		Date:         req.Msg.Date,
	}
	if err := expense.Validate(group); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.store.AddExpense(ctx, group.ID, expense); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errGroupNotFound)
		}
		if errors.Is(err, storage.ErrNotAMember) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		}
		slog.Error("AddExpense failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.invalidate(ctx, group.ID)

	slog.Info("Expense added", "group_id", group.ID, "expense_id", expense.ID)

	return connect.NewResponse(&splitpayv1.AddExpenseResponse{
		Expense: toWireExpense(expense),
	}), nil
}

// DeleteExpense removes an expense from a group.
func (s *GroupService) DeleteExpense(ctx context.Context, req *connect.Request[splitpayv1.DeleteExpenseRequest]) (*connect.Response[emptypb.Empty], error) {
	slog.Info("DeleteExpense request received",
		"group_id", req.Msg.GroupID,
		"expense_id", req.Msg.ExpenseID,
	)

	if req.Msg.ExpenseID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errExpenseIDRequired)
	}
	group, err := s.loadOwnedGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteExpense(ctx, group.ID, req.Msg.ExpenseID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		slog.Error("DeleteExpense failed", "group_id", group.ID, "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.invalidate(ctx, group.ID)

	slog.Info("Expense deleted", "group_id", group.ID, "expense_id", req.Msg.ExpenseID)

	return connect.NewResponse(&emptypb.Empty{}), nil
}

// GetGroupBalances returns per-member balances and a simplified settlement plan.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[splitpayv1.GetGroupBalancesRequest]) (*connect.Response[splitpayv1.BalancesResponse], error) {
	slog.Info("GetGroupBalances request received", "group_id", req.Msg.GroupID)

	group, err := s.loadOwnedGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	summary, err := s.groupSummary(ctx, group)
	if err != nil {
		slog.Error("GetGroupBalances failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("GetGroupBalances successful",
		"group_id", group.ID,
		"settlements", len(summary.Settlements),
	)

	return connect.NewResponse(toBalancesResponse(summary)), nil
}

// CalculateBalances computes balances for an ad-hoc snapshot. It needs no
// account and stores nothing.
func (s *GroupService) CalculateBalances(ctx context.Context, req *connect.Request[splitpayv1.CalculateBalancesRequest]) (*connect.Response[splitpayv1.BalancesResponse], error) {
	slog.Info("CalculateBalances request received",
		"members_count", len(req.Msg.Members),
		"expenses_count", len(req.Msg.Expenses),
	)

	snapshot := &models.Group{Members: fromWireMembers(req.Msg.Members)}
	seen := make(map[string]bool, len(snapshot.Members))
	for _, m := range snapshot.Members {
		if m.ID == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errMemberIDRequired)
		}
		if seen[m.ID] {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: %s", models.ErrDuplicateMember, m.ID))
		}
		seen[m.ID] = true
	}

	expenses := make([]models.Expense, 0, len(req.Msg.Expenses))
	for i, e := range req.Msg.Expenses {
		if e == nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("expense %d: %w", i, errEmptyExpense))
		}
		expense := fromWireExpense(e)
		if err := expense.Validate(snapshot); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("expense %d: %w", i, err))
		}
		expenses = append(expenses, expense)
	}

	summary, err := s.summarize(snapshot.Members, expenses)
	if err != nil {
		slog.Error("CalculateBalances failed", "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	return connect.NewResponse(toBalancesResponse(summary)), nil
}

// groupSummary returns the group's balances, from the cache when possible.
// Cache failures fall back to computing. An entry whose version does not match
// the loaded snapshot was written from an older read and is recomputed.
func (s *GroupService) groupSummary(ctx context.Context, group *models.Group) (*calculator.Summary, error) {
	version := cache.Fingerprint(coreInput(group.Members, group.Expenses))

	cached, ok, err := s.cache.Get(ctx, group.ID)
	switch {
	case err != nil:
		slog.Warn("Balance cache read failed", "group_id", group.ID, "error", err)
		s.metrics.CacheLookup(metrics.CacheError)
	case ok && cached.Version == version:
		s.metrics.CacheLookup(metrics.CacheHit)
		return cached.Summary, nil
	case ok:
		slog.Debug("Discarding stale cached balances", "group_id", group.ID)
		s.metrics.CacheLookup(metrics.CacheStale)
	default:
		s.metrics.CacheLookup(metrics.CacheMiss)
	}

	summary, err := s.summarize(group.Members, group.Expenses)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, group.ID, &cache.Entry{Version: version, Summary: summary}); err != nil {
		slog.Warn("Balance cache write failed", "group_id", group.ID, "error", err)
	}
	return summary, nil
}

// summarize runs the balance engine on a snapshot and records metrics.
func (s *GroupService) summarize(members []models.Member, expenses []models.Expense) (*calculator.Summary, error) {
	cm, ce := coreInput(members, expenses)

	summary, err := calculator.Summarize(ce, cm)
	if err != nil {
		s.metrics.BalanceComputed(metrics.OutcomeInvalid, 0)
		return nil, fmt.Errorf("failed to compute balances: %w", err)
	}

	if err := calculator.CheckConservation(summary.Balances); err != nil {
		slog.Error("Balance inconsistency", "error", err)
		s.metrics.Inconsistency()
	}

	s.metrics.BalanceComputed(metrics.OutcomeOK, len(summary.Settlements))
	return summary, nil
}
