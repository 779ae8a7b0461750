package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"convolab/config"
	"convolab/internal/domain/user"
	"convolab/internal/repository"
	convolab_errors "convolab/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	accessTTL time.Duration
	hashCost  int
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: cfg.JWTExpiry,
		hashCost:  bcrypt.DefaultCost,
	}
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	AccessToken string
	ExpiresIn   int64
	User        user.PublicUser
}

type AccessClaims struct {
	jwt.RegisteredClaims
}

// Signup creates a user. The email lookup only filters the common case; the
// unique constraint on users.email decides races, and both paths surface as
// ErrAlreadyExists.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (user.PublicUser, error) {
	if err := validateSignup(in); err != nil {
		return user.PublicUser{}, err
	}

	if _, err := s.userRepo.GetUserByEmail(ctx, in.Email); err == nil {
		return user.PublicUser{}, convolab_errors.ErrAlreadyExists
	} else if !errors.Is(err, convolab_errors.ErrNotFound) {
		return user.PublicUser{}, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return user.PublicUser{}, err
	}

	newUser := &user.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return user.PublicUser{}, err
	}

	return newUser.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if in.Email == "" || in.Password == "" {
		return LoginResult{}, convolab_errors.ErrInvalidInput
	}

	u, err := s.userRepo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, convolab_errors.ErrNotFound) {
			return LoginResult{}, convolab_errors.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := comparePassword(u.PasswordHash, in.Password); err != nil {
		return LoginResult{}, convolab_errors.ErrInvalidCredentials
	}

	token, expiresIn, err := s.newAccessToken(u.ID)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		User:        u.Public(),
	}, nil
}

// Me returns the public view of the user with the given id.
func (s *AuthService) Me(ctx context.Context, userID int64) (user.PublicUser, error) {
	u, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return user.PublicUser{}, err
	}
	return u.Public(), nil
}

// ParseAccessToken validates token and returns the user id in its subject.
func (s *AuthService) ParseAccessToken(token string) (int64, error) {
	if token == "" {
		return 0, convolab_errors.ErrUnauthorized
	}
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return 0, convolab_errors.ErrUnauthorized
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, convolab_errors.ErrUnauthorized
	}
	return userID, nil
}

func (s *AuthService) newAccessToken(userID int64) (string, int64, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, fmt.Errorf("sign access token: %w", err)
	}
	return signed, int64(s.accessTTL.Seconds()), nil
}

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

func validateSignup(in SignupInput) error {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return convolab_errors.ErrInvalidInput
	}
	if len(in.Password) > maxPasswordBytes {
		return convolab_errors.ErrInvalidInput
	}
	return nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

func comparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
