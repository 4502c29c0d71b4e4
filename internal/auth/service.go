package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/repository"
	"github.com/talkincode/prodcatalog/pkg/common"
)

// Identity is the caller identity embedded in a verified token
type Identity struct {
	Email string `json:"email"`
}

// Claims signed into every access token. No expiry is set.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Options configures the Auth Service
type Options struct {
	TokenSecret string
	BcryptCost  int
}

// Service verifies credentials and issues/validates bearer tokens
type Service struct {
	users  repository.UserRepository
	ids    common.IDGenerator
	secret []byte
	cost   int
	now    func() time.Time
}

func NewService(users repository.UserRepository, ids common.IDGenerator, opts Options) *Service {
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:  users,
		ids:    ids,
		secret: []byte(opts.TokenSecret),
		cost:   cost,
		now:    time.Now,
	}
}

// Signup registers a new user with a salted password hash
func (s *Service) Signup(ctx context.Context, email, password string) error {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateCredentials(email, password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	user := &domain.User{
		ID:           s.ids.NextID(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}
	zap.L().Info("user registered", zap.String("email", email))
	return nil
}

// Login checks the credentials and returns a signed access token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateCredentials(email, password); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	switch {
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		zap.L().Warn("login rejected", zap.String("email", email))
		return "", errors.Wrapf(domain.ErrInvalidCredentials, "user %s", email)
	case err != nil:
		return "", errors.Wrap(err, "compare password hash")
	}

	return s.IssueToken(Identity{Email: user.Email})
}

// IssueToken signs an HS256 token for the identity
func (s *Service) IssueToken(id Identity) (string, error) {
	claims := Claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

// Verify validates a raw bearer token. domain.ErrUnauthorized when the token
// is absent, domain.ErrForbidden when it is present but not valid.
func (s *Service) Verify(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrUnauthorized
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(domain.ErrForbidden, err.Error())
	}
	if claims.Email == "" {
		return nil, errors.Wrap(domain.ErrForbidden, "token has no email claim")
	}
	return &Identity{Email: claims.Email}, nil
}
