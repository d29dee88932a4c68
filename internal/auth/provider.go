// Package auth はユーザー登録、ログイン、トークン検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/foodwallet/internal/model"
	"github.com/hitoshi/foodwallet/internal/repository"
)

var (
	// ErrInvalidCredential はメールアドレス・パスワード・トークンのいずれかが不正であることを表す。
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrEmailTaken はメールアドレスが既に登録されていることを表す。
	ErrEmailTaken = errors.New("email already registered")
)

// tokenIssuer はトークンのiss クレーム。
const tokenIssuer = "foodwallet"

// Claims は検証済みトークンの内容。
type Claims struct {
	AccountID string
	Email     string
	ExpiresAt time.Time
}

// IdentityProvider は認証基盤のインターフェース。
type IdentityProvider interface {
	// CreateAccount はログイン情報を作成し、アカウントIDを返す。
	CreateAccount(ctx context.Context, email, password string) (string, error)
	// DeleteAccount はログイン情報を削除する。
	DeleteAccount(ctx context.Context, accountID string) error
	// SignIn はメールアドレスとパスワードを検証し、署名済みトークンを返す。
	SignIn(ctx context.Context, email, password string) (string, error)
	// VerifyToken はトークンの署名と有効期限を検証する。
	VerifyToken(ctx context.Context, token string) (*Claims, error)
}

// tokenClaims はJWTに格納するクレーム。
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalProvider はbcryptとHS256署名のJWTによるIdentityProviderの実装。
type LocalProvider struct {
	accounts repository.AccountRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewLocalProvider はLocalProviderを生成する。
func NewLocalProvider(accounts repository.AccountRepository, secret string, ttl time.Duration) *LocalProvider {
	return &LocalProvider{
		accounts: accounts,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// CreateAccount はパスワードをbcryptでハッシュ化してアカウントを作成する。
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("failed to create account: %w", err)
	}
	return account.ID, nil
}

// DeleteAccount はアカウントを削除する。
func (p *LocalProvider) DeleteAccount(ctx context.Context, accountID string) error {
	if err := p.accounts.DeleteByID(ctx, accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// SignIn はパスワードを照合し、TOKEN_TTL の有効期限を持つトークンを発行する。
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (string, error) {
	account, err := p.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return "", ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredential
	}

	now := p.now()
	claims := tokenClaims{
		Email: account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken はHS256署名、発行者、有効期限を検証する。
func (p *LocalProvider) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	claims := &tokenClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredential
	}
	if claims.Issuer != tokenIssuer || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidCredential
	}
	if !p.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidCredential
	}

	return &Claims{
		AccountID: claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// NormalizeEmail は比較用にメールアドレスを小文字化し、前後の空白を除去する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
