package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/foodwallet/internal/model"
	"github.com/hitoshi/foodwallet/internal/repository"
	"github.com/hitoshi/foodwallet/internal/security"
	"github.com/hitoshi/foodwallet/internal/validation"
)

// SignupInput はユーザー登録の入力値を表す。
type SignupInput struct {
	FirstName       string `json:"first_name" validate:"required,personname"`
	LastName        string `json:"last_name" validate:"required,personname"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// LoginResult はログイン成功時の結果を表す。
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Service はユーザー登録・ログインのビジネスロジックを提供する。
// ログイン情報は IdentityProvider、プロフィールは UserRepository に保存し、
// 両者はメールアドレスとIDで対応付ける。
type Service struct {
	identity  IdentityProvider
	users     repository.UserRepository
	sanitizer security.TextSanitizer
	validate  *validator.Validate
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(identity IdentityProvider, users repository.UserRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		identity:  identity,
		users:     users,
		sanitizer: sanitizer,
		validate:  validation.New(),
		now:       time.Now,
	}
}

// Signup はログイン情報とユーザーを作成する。
// ユーザーの作成に失敗した場合は作成済みのログイン情報を削除する。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	in.FirstName = s.sanitizer.Clean(in.FirstName)
	in.LastName = s.sanitizer.Clean(in.LastName)
	in.Email = NormalizeEmail(in.Email)

	if err := s.validate.Struct(in); err != nil {
		return nil, model.NewValidationError(validation.Describe(err))
	}
	if in.Password != in.ConfirmPassword {
		return nil, model.NewPasswordMismatchError()
	}

	accountID, err := s.identity.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, model.NewEmailAlreadyRegisteredError()
		}
		slog.ErrorContext(ctx, "failed to create account", slog.String("error", err.Error()))
		return nil, model.NewIdentityUnavailableError()
	}

	now := s.now().UTC()
	user := &model.User{
		ID:        accountID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if delErr := s.identity.DeleteAccount(ctx, accountID); delErr != nil {
			slog.ErrorContext(ctx, "failed to roll back account after user creation failure",
				slog.String("account_id", accountID),
				slog.String("error", delErr.Error()),
			)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailAlreadyRegisteredError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.InfoContext(ctx, "new user created", slog.String("user_id", user.ID))
	return user, nil
}

// Login はメールアドレスとパスワードでログインし、トークンとユーザーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, model.NewInvalidCredentialError()
	}

	token, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			return nil, model.NewInvalidCredentialError()
		}
		slog.ErrorContext(ctx, "failed to sign in", slog.String("error", err.Error()))
		return nil, model.NewIdentityUnavailableError()
	}

	claims, err := s.identity.VerifyToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to verify issued token: %w", err)
	}
	user, err := s.userForClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt, User: user}, nil
}

// Authenticate はトークンを検証し、対応するユーザーを返す。
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}
	claims, err := s.identity.VerifyToken(ctx, token)
	if err != nil {
		return nil, model.NewInvalidCredentialError()
	}
	return s.userForClaims(ctx, claims)
}

// userForClaims はトークンのメールアドレスからユーザーを特定する。
func (s *Service) userForClaims(ctx context.Context, claims *Claims) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
