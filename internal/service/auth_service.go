package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/yuv5120/SplitPay/internal/auth"
	"github.com/yuv5120/SplitPay/internal/middleware"
	"github.com/yuv5120/SplitPay/internal/storage"
	"github.com/yuv5120/SplitPay/pkg/splitpayv1"
)

// PublicProcedures run without an account. Every other procedure is rejected
// by middleware.RequireAuth unless it carries a valid token.
var PublicProcedures = []string{
	splitpayv1.AuthServiceRegisterProcedure,
	splitpayv1.AuthServiceLoginProcedure,
	splitpayv1.AuthServiceLogoutProcedure,
	splitpayv1.GroupServiceCalculateBalancesProcedure,
}

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[splitpayv1.RegisterRequest]) (*connect.Response[splitpayv1.AuthResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	user, err := s.authenticator.Register(ctx, auth.Registration{
		Email:       req.Msg.Email,
		DisplayName: req.Msg.DisplayName,
		Phone:       req.Msg.Phone,
		Credential:  req.Msg.Password,
	})
	if err != nil {
		s.logger.Error("Registration failed", "email", req.Msg.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrNameRequired):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered", "user_id", user.ID)

	return connect.NewResponse(&splitpayv1.AuthResponse{
		User:  toWireUser(user),
		Token: token,
	}), nil
}

// Login authenticates a user and returns a session token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[splitpayv1.LoginRequest]) (*connect.Response[splitpayv1.AuthResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("Login failed", "email", req.Msg.Email)
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		s.logger.Error("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User logged in", "user_id", user.ID)

	return connect.NewResponse(&splitpayv1.AuthResponse{
		User:  toWireUser(user),
		Token: token,
	}), nil
}

// Logout is a no-op: tokens are stateless and discarded by the client.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	s.logger.Info("Logout request", "user_id", middleware.GetUserID(ctx), "email", middleware.GetEmail(ctx))
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// GetCurrentUser returns the authenticated user's profile.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[splitpayv1.UserResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("GetCurrentUser request", "user_id", userID)

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		// Valid token for a deleted account
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}
	if err != nil {
		s.logger.Error("Failed to load user", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&splitpayv1.UserResponse{User: toWireUser(user)}), nil
}

// UpdateProfile changes the display name and phone number.
func (s *AuthService) UpdateProfile(ctx context.Context, req *connect.Request[splitpayv1.UpdateProfileRequest]) (*connect.Response[splitpayv1.UserResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("UpdateProfile request", "user_id", userID)

	displayName := strings.TrimSpace(req.Msg.DisplayName)
	if displayName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrNameRequired)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}
	if err != nil {
		s.logger.Error("Failed to load user", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	user.DisplayName = displayName
	user.Phone = strings.TrimSpace(req.Msg.Phone)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		s.logger.Error("UpdateProfile failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Profile updated", "user_id", userID)

	return connect.NewResponse(&splitpayv1.UserResponse{User: toWireUser(user)}), nil
}
