package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/foodwallet/internal/auth"
	"github.com/hitoshi/foodwallet/internal/model"
)

func TestAuthHandler_Signup_Success(t *testing.T) {
	var got auth.SignupInput
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, in auth.SignupInput) (*model.User, error) {
			got = in
			return &model.User{ID: testUserID}, nil
		},
	}
	h := NewAuthHandler(svc)

	body := `{"first_name":"Hanako","last_name":"Yamada","email":"hanako@example.com","password":"Secret#123","confirm_password":"Secret#123"}`
	w := httptest.NewRecorder()
	h.Signup(w, newRequest(http.MethodPost, "/api/auth/signup", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var resp map[string]bool
	decodeBody(t, w, &resp)
	if !resp["sign_up_successful"] {
		t.Errorf("sign_up_successful = %v, want true", resp["sign_up_successful"])
	}
	if got.FirstName != "Hanako" || got.ConfirmPassword != "Secret#123" {
		t.Errorf("service received %+v", got)
	}
}

func TestAuthHandler_Signup_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "不正なJSON",
			body:       `{"first_name":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeInvalidRequest,
		},
		{
			name:       "パスワード不一致",
			body:       `{}`,
			err:        model.NewPasswordMismatchError(),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodePasswordMismatch,
		},
		{
			name:       "メールアドレス重複",
			body:       `{}`,
			err:        model.NewEmailAlreadyRegisteredError(),
			wantStatus: http.StatusConflict,
			wantCode:   model.ErrCodeEmailAlreadyRegistered,
		},
		{
			name:       "認証基盤の障害",
			body:       `{}`,
			err:        model.NewIdentityUnavailableError(),
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeIdentityUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				signupFn: func(ctx context.Context, in auth.SignupInput) (*model.User, error) {
					return nil, tt.err
				},
			}
			w := httptest.NewRecorder()
			NewAuthHandler(svc).Signup(w, newRequest(http.MethodPost, "/api/auth/signup", tt.body))

			assertErrorCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestAuthHandler_Login_ReturnsToken(t *testing.T) {
	expires := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*auth.LoginResult, error) {
			if email != "hanako@example.com" || password != "Secret#123" {
				t.Errorf("unexpected credentials: %s / %s", email, password)
			}
			return &auth.LoginResult{
				Token:     "signed.jwt.token",
				ExpiresAt: expires,
				User:      &model.User{ID: testUserID, FirstName: "Hanako", LastName: "Yamada", Email: email},
			}, nil
		},
	}

	w := httptest.NewRecorder()
	NewAuthHandler(svc).Login(w, newRequest(http.MethodPost, "/api/auth/login",
		`{"email":"hanako@example.com","password":"Secret#123"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp loginResponse
	decodeBody(t, w, &resp)
	if resp.Token != "signed.jwt.token" {
		t.Errorf("token = %q", resp.Token)
	}
	if !resp.ExpiresAt.Equal(expires) {
		t.Errorf("expires_at = %v, want %v", resp.ExpiresAt, expires)
	}
	if resp.User.ID != testUserID || resp.User.Name != "Hanako Yamada" {
		t.Errorf("user = %+v", resp.User)
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	t.Run("必須項目の欠落", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewAuthHandler(&mockAuthService{}).Login(w, newRequest(http.MethodPost, "/api/auth/login", `{"email":"a@example.com"}`))
		assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeValidationFailed)
	})

	t.Run("認証情報が誤り", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewAuthHandler(&mockAuthService{}).Login(w, newRequest(http.MethodPost, "/api/auth/login",
			`{"email":"a@example.com","password":"wrong"}`))
		assertErrorCode(t, w, http.StatusUnauthorized, model.ErrCodeInvalidCredential)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	t.Run("認証済み", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Me(w, withUser(newRequest(http.MethodGet, "/api/auth/me", "")))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var resp meResponse
		decodeBody(t, w, &resp)
		want := meResponse{
			Message: "Token verified successfully",
			ID:      testUserID,
			Name:    "Hanako Yamada",
			Email:   "hanako@example.com",
		}
		if resp != want {
			t.Errorf("response = %+v, want %+v", resp, want)
		}
	})

	t.Run("未認証", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Me(w, newRequest(http.MethodGet, "/api/auth/me", ""))
		assertErrorCode(t, w, http.StatusUnauthorized, model.ErrCodeUnauthorized)
	})
}
