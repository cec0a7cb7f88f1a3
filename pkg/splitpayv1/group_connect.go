package splitpayv1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
)

// GroupServiceName is the fully-qualified name of the GroupService service.
const GroupServiceName = "splitpay.v1.GroupService"

// Procedure names for GroupService.
const (
	GroupServiceCreateGroupProcedure       = "/splitpay.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure          = "/splitpay.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure        = "/splitpay.v1.GroupService/ListGroups"
	GroupServiceUpdateGroupProcedure       = "/splitpay.v1.GroupService/UpdateGroup"
	GroupServiceDeleteGroupProcedure       = "/splitpay.v1.GroupService/DeleteGroup"
	GroupServiceAddExpenseProcedure        = "/splitpay.v1.GroupService/AddExpense"
	GroupServiceDeleteExpenseProcedure     = "/splitpay.v1.GroupService/DeleteExpense"
	GroupServiceGetGroupBalancesProcedure  = "/splitpay.v1.GroupService/GetGroupBalances"
	GroupServiceCalculateBalancesProcedure = "/splitpay.v1.GroupService/CalculateBalances"
)

// GroupServiceHandler is implemented by the group service.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[ListGroupsResponse], error)
	UpdateGroup(context.Context, *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error)
	AddExpense(context.Context, *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[emptypb.Empty], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[BalancesResponse], error)
	CalculateBalances(context.Context, *connect.Request[CalculateBalancesRequest]) (*connect.Response[BalancesResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithCodec()}, opts...)

	handlers := map[string]http.Handler{
		GroupServiceCreateGroupProcedure:       connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...),
		GroupServiceGetGroupProcedure:          connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...),
		GroupServiceListGroupsProcedure:        connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...),
		GroupServiceUpdateGroupProcedure:       connect.NewUnaryHandler(GroupServiceUpdateGroupProcedure, svc.UpdateGroup, opts...),
		GroupServiceDeleteGroupProcedure:       connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts...),
		GroupServiceAddExpenseProcedure:        connect.NewUnaryHandler(GroupServiceAddExpenseProcedure, svc.AddExpense, opts...),
		GroupServiceDeleteExpenseProcedure:     connect.NewUnaryHandler(GroupServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...),
		GroupServiceGetGroupBalancesProcedure:  connect.NewUnaryHandler(GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...),
		GroupServiceCalculateBalancesProcedure: connect.NewUnaryHandler(GroupServiceCalculateBalancesProcedure, svc.CalculateBalances, opts...),
	}
	return "/" + GroupServiceName + "/", serviceMux(handlers)
}

// serviceMux routes by exact procedure path.
func serviceMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// GroupServiceClient is a client for GroupService.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[ListGroupsResponse], error)
	UpdateGroup(context.Context, *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error)
	AddExpense(context.Context, *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[emptypb.Empty], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[BalancesResponse], error)
	CalculateBalances(context.Context, *connect.Request[CalculateBalancesRequest]) (*connect.Response[BalancesResponse], error)
}

// NewGroupServiceClient constructs a client for GroupService at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithCodec()}, opts...)
	return &groupServiceClient{
		createGroup:       connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:          connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:        connect.NewClient[emptypb.Empty, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		updateGroup:       connect.NewClient[UpdateGroupRequest, UpdateGroupResponse](httpClient, baseURL+GroupServiceUpdateGroupProcedure, opts...),
		deleteGroup:       connect.NewClient[DeleteGroupRequest, emptypb.Empty](httpClient, baseURL+GroupServiceDeleteGroupProcedure, opts...),
		addExpense:        connect.NewClient[AddExpenseRequest, AddExpenseResponse](httpClient, baseURL+GroupServiceAddExpenseProcedure, opts...),
		deleteExpense:     connect.NewClient[DeleteExpenseRequest, emptypb.Empty](httpClient, baseURL+GroupServiceDeleteExpenseProcedure, opts...),
		getGroupBalances:  connect.NewClient[GetGroupBalancesRequest, BalancesResponse](httpClient, baseURL+GroupServiceGetGroupBalancesProcedure, opts...),
		calculateBalances: connect.NewClient[CalculateBalancesRequest, BalancesResponse](httpClient, baseURL+GroupServiceCalculateBalancesProcedure, opts...),
	}
}

type groupServiceClient struct {
	createGroup       *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup          *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups        *connect.Client[emptypb.Empty, ListGroupsResponse]
	updateGroup       *connect.Client[UpdateGroupRequest, UpdateGroupResponse]
	deleteGroup       *connect.Client[DeleteGroupRequest, emptypb.Empty]
	addExpense        *connect.Client[AddExpenseRequest, AddExpenseResponse]
	deleteExpense     *connect.Client[DeleteExpenseRequest, emptypb.Empty]
	getGroupBalances  *connect.Client[GetGroupBalancesRequest, BalancesResponse]
	calculateBalances *connect.Client[CalculateBalancesRequest, BalancesResponse]
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListGroups(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *groupServiceClient) UpdateGroup(ctx context.Context, req *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error) {
	return c.updateGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *groupServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[emptypb.Empty], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *groupServiceClient) CalculateBalances(ctx context.Context, req *connect.Request[CalculateBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	return c.calculateBalances.CallUnary(ctx, req)
}

// UnimplementedGroupServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedGroupServiceHandler struct{}

var errUnimplemented = errors.New("not implemented")

func (UnimplementedGroupServiceHandler) CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errUnimplemented)
}

func (UnimplementedGroupServiceHandler) GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errUnimplemented)
}

func (UnimplementedGroupServiceHandler) ListGroups(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[ListGroupsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errUnimplemented)
}

func (UnimplementedGroupServiceHandler) UpdateGroup(context.Context, *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errUnimplemented)
}

func (UnimplementedGroupServiceHandler) DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errUnimplemented)
}

func (UnimplementedGroupServiceHandler) AddExpense(context.Context, *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errUnimplemented)
}

func (UnimplementedGroupServiceHandler) DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[emptypb.Empty], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errUnimplemented)
}

func (UnimplementedGroupServiceHandler) GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errUnimplemented)
}

func (UnimplementedGroupServiceHandler) CalculateBalances(context.Context, *connect.Request[CalculateBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errUnimplemented)
}
