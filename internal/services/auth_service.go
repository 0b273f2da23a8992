package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"sql-helper/internal/config"
	"sql-helper/internal/logger"
	"sql-helper/internal/models"
	"sql-helper/internal/pkg/errors"
	"sql-helper/internal/repository"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const (
	IdentityContextKey contextKey = "identity"
)

const minPasswordLength = 6

// Claims is what a verified token carries. SessionToken is the jti and
// names the session entry in the registry.
type Claims struct {
	Email        string
	SessionToken string
	ExpiresAt    time.Time
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type AuthService interface {
	Signup(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, claims *Claims, all bool) error
	VerifyToken(token string) (*Claims, error)
}

type authService struct {
	userRepo   repository.UserRepository
	sessions   SessionRegistry
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, sessions SessionRegistry, cfg config.AuthConfig) AuthService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &authService{
		userRepo:   userRepo,
		sessions:   sessions,
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cost,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Signup(ctx context.Context, email, password, name string) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "a valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, errors.Wrap(errors.ErrInvalidInput, "password must be at least 6 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hashedPassword),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.LogEvent(logrus.InfoLevel, "auth.signup", logrus.Fields{"identity": email})
	return user, nil
}

// Login issues a token and registers its session, evicting any other
// session the identity holds.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	sessionToken := uuid.NewString()
	expiresAt := s.now().Add(s.tokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": user.Email,
		"jti":   sessionToken,
		"exp":   expiresAt.Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign token")
	}

	if err := s.sessions.Create(ctx, user.Email, sessionToken); err != nil {
		return nil, errors.Unavailable(err, "failed to start session")
	}

	logger.LogEvent(logrus.InfoLevel, "auth.login", logrus.Fields{"identity": user.Email})
	return &LoginResult{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) Logout(ctx context.Context, claims *Claims, all bool) error {
	if claims == nil {
		return errors.ErrInvalidToken
	}
	if all {
		return s.sessions.Remove(ctx, claims.Email)
	}
	return s.sessions.RemoveOne(ctx, claims.Email, claims.SessionToken)
}

// VerifyToken checks signature and expiry only. Whether the session is still
// live is the registry's call.
func (s *authService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrInvalidToken
		}
		return s.jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return nil, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)
	if email == "" || jti == "" {
		return nil, errors.ErrInvalidToken
	}

	result := &Claims{Email: email, SessionToken: jti}
	if exp, ok := claims["exp"].(float64); ok {
		result.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return result, nil
}

func WithIdentityContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, IdentityContextKey, claims)
}

func IdentityFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(IdentityContextKey).(*Claims)
	return claims, ok && claims != nil
}
