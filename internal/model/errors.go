package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Webフローでユーザーに提示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeCredentialNotFound = "CREDENTIAL_NOT_FOUND"
	ErrCodeTokenNotFound      = "TOKEN_NOT_FOUND"
	ErrCodeInvalidForm        = "INVALID_FORM"
)

// NewCredentialNotFoundError はクライアント資格情報が未登録の場合のエラーを生成する。
// 資格情報の不在は続行不能であり、呼び出し側は処理を中断しなければならない。
func NewCredentialNotFoundError(domainID string) *APIError {
	return &APIError{
		Code:     ErrCodeCredentialNotFound,
		Message:  fmt.Sprintf("ドメインのクライアント資格情報が登録されていません: %s", domainID),
		Category: "system",
		Action:   "管理者に連絡し、client_credentialsテーブルへの資格情報の登録を依頼してください。",
	}
}

// NewTokenNotFoundError はユーザーのアクセストークンが未取得の場合のエラーを生成する。
func NewTokenNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeTokenNotFound,
		Message:  fmt.Sprintf("ユーザーのアクセストークンが見つかりません: %s", userID),
		Category: "auth",
		Action:   "トップページからLINE WORKSへのログインをやり直してください。",
	}
}

// NewInvalidFormError はフォーム入力が不正な場合のエラーを生成する。
func NewInvalidFormError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidForm,
		Message:  fmt.Sprintf("フォームの入力値が不正です: %s", field),
		Category: "validation",
		Action:   "入力内容を確認して再度送信してください。",
	}
}
