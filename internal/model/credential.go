// Package model はドメインモデルを定義する。
package model

// ClientCredential はLINE WORKSのドメインごとのOAuthクライアント資格情報を表す。
// 手動プロビジョニングで投入され、本システムからは読み取り専用。
type ClientCredential struct {
	DomainID       string
	ClientID       string
	ClientSecret   string
	ServiceAccount string
	PrivateKey     string // PEM形式のRSA秘密鍵
	BotID          string
}
