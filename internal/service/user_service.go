package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"buildledger/internal/apperror"
	"buildledger/internal/config"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,notblank"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=owner accountant"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *UserResponse `json:"user"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Me(ctx context.Context, actor model.ActingUser) (*UserResponse, error)
}

type userService struct {
	repo repository.UserRepository
	jwt  config.JWTConfig
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, jwtCfg config.JWTConfig) UserService {
	return &userService{repo: repo, jwt: jwtCfg}
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if !model.IsValidRole(req.Role) {
		return nil, apperror.Validation("role must be owner or accountant")
	}
	if len(req.Password) < 6 {
		return nil, apperror.Validation("password must be at least 6 characters")
	}
	email := normalizeEmail(req.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.FromDB(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	token, expiresAt, err := IssueAccessToken(s.jwt, model.ActingUser{ID: user.ID, Role: user.Role}, time.Now())
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, ExpiresAt: expiresAt, User: mapToResponse(user)}, nil
}

func (s *userService) Me(ctx context.Context, actor model.ActingUser) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, apperror.FromDB(err, "user")
	}
	return mapToResponse(user), nil
}

// IssueAccessToken signs an HS256 token for the user.
func IssueAccessToken(cfg config.JWTConfig, user model.ActingUser, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(cfg.Expiration)
	claims := AccessClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies a token and returns the user it was issued to.
func ParseAccessToken(cfg config.JWTConfig, token string) (model.ActingUser, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	var claims AccessClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...); err != nil {
		return model.ActingUser{}, apperror.Unauthorized("invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || !model.IsValidRole(claims.Role) {
		return model.ActingUser{}, apperror.Unauthorized("invalid token claims")
	}
	return model.ActingUser{ID: id, Role: claims.Role}, nil
}
