package model

// AccessToken はユーザーまたはサービスアカウントのアクセストークンのキャッシュを表す。
// サービスアカウントのトークンはservice_accountをユーザーIDとして保存する。
type AccessToken struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	CreatedAt    int64 // epoch秒
	ExpiredAt    int64 // epoch秒
}

// Usable はトークンが指定時刻（epoch秒）時点で利用可能かを返す。
// expired_at >= now の間のみ利用可能。期限切れまたはレコード不在の場合は
// 呼び出し側が再取得する必要がある。
func (t *AccessToken) Usable(now int64) bool {
	return t.ExpiredAt >= now
}
