// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, not_found, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryAuth       = "auth"
	CategoryValidation = "validation"
	CategoryNotFound   = "not_found"
	CategoryUpstream   = "upstream"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeInvalidID              = "INVALID_ID"
	ErrCodePasswordMismatch       = "PASSWORD_MISMATCH"
	ErrCodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	ErrCodeNoItems                = "NO_ITEMS"
	ErrCodeInvalidProductCode     = "INVALID_PRODUCT_CODE"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeItemNotFound           = "ITEM_NOT_FOUND"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeInvalidCredential      = "INVALID_CREDENTIAL"
	ErrCodeLLMUnavailable         = "LLM_UNAVAILABLE"
	ErrCodeCatalogUnavailable     = "CATALOG_UNAVAILABLE"
	ErrCodeIdentityUnavailable    = "IDENTITY_UNAVAILABLE"
	ErrCodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	ErrCodeRouteNotFound          = "NOT_FOUND"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s", detail),
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidIDError はID形式不正エラーを生成する。
func NewInvalidIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("IDの形式が不正です: %s", id),
		Category: CategoryValidation,
		Action:   "正しいIDを指定してください。",
	}
}

// NewPasswordMismatchError は確認用パスワード不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "パスワードと確認用パスワードが一致しません。",
		Category: CategoryValidation,
		Action:   "同じパスワードを2回入力してください。",
	}
}

// NewEmailAlreadyRegisteredError はメールアドレス重複エラーを生成する。
func NewEmailAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyRegistered,
		Message:  "このメールアドレスは既に登録されています。",
		Category: CategoryValidation,
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewNoItemsError は在庫が空のためレシピを提案できない場合のエラーを生成する。
func NewNoItemsError() *APIError {
	return &APIError{
		Code:     ErrCodeNoItems,
		Message:  "冷蔵庫に食品が登録されていません。",
		Category: CategoryValidation,
		Action:   "食品を追加してから再度お試しください。",
	}
}

// NewInvalidProductCodeError は商品コード不正エラーを生成する。
func NewInvalidProductCodeError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProductCode,
		Message:  fmt.Sprintf("商品コードが不正です: %s", code),
		Category: CategoryValidation,
		Action:   "バーコードの数字を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: CategoryNotFound,
		Action:   "ログインし直してください。",
	}
}

// NewItemNotFoundError は食品未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定された食品が見つかりません: %s", itemID),
		Category: CategoryNotFound,
		Action:   "食品IDを確認してください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("商品が見つかりません: %s", code),
		Category: CategoryNotFound,
		Action:   "手動で食品を登録してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialError は認証情報不正エラーを生成する。
func NewInvalidCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "認証情報が無効です。",
		Category: CategoryAuth,
		Action:   "メールアドレスとパスワードを確認し、ログインし直してください。",
	}
}

// NewLLMUnavailableError は言語モデル呼び出し失敗エラーを生成する。
func NewLLMUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeLLMUnavailable,
		Message:  "アシスタントが応答しませんでした。",
		Category: CategoryUpstream,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCatalogUnavailableError は商品カタログ呼び出し失敗エラーを生成する。
func NewCatalogUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeCatalogUnavailable,
		Message:  "商品情報の取得に失敗しました。",
		Category: CategoryUpstream,
		Action:   "しばらく待ってから再度お試しいただくか、手動で食品を登録してください。",
	}
}

// NewIdentityUnavailableError は認証基盤の呼び出し失敗エラーを生成する。
func NewIdentityUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeIdentityUnavailable,
		Message:  "認証サービスに接続できませんでした。",
		Category: CategoryUpstream,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: CategorySystem,
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewRouteNotFoundError は存在しないパスへのリクエストに対するエラーを生成する。
func NewRouteNotFoundError(path string) *APIError {
	return &APIError{
		Code:     ErrCodeRouteNotFound,
		Message:  fmt.Sprintf("パスが見つかりません: %s", path),
		Category: CategoryNotFound,
		Action:   "URLを確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ出力する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// MalformedResponseError は言語モデルの応答が期待する形式でないことを表す。
// 呼び出し元には返さず、ログとメトリクスにのみ記録する。
type MalformedResponseError struct {
	Kind   string // recipes, kpis
	Reason string
	Raw    string
}

// Error はerrorインターフェースを実装する。
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %s", e.Kind, e.Reason)
}
