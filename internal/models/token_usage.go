package models

import "time"

// TokenUsage is one ledger row: the tokens an identity consumed in a single
// date bucket (YYYYMMDD). Rows are only ever incremented.
type TokenUsage struct {
	ID             uint      `gorm:"primarykey" json:"-"`
	UserID         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_token_usages_user_date,priority:1" json:"user_id"`
	UsageDate      string    `gorm:"type:char(8);not null;uniqueIndex:idx_token_usages_user_date,priority:2" json:"usage_date"`
	RequestTokens  int64     `gorm:"not null;default:0" json:"request_tokens"`
	ResponseTokens int64     `gorm:"not null;default:0" json:"response_tokens"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u TokenUsage) Total() int64 {
	return u.RequestTokens + u.ResponseTokens
}

func (TokenUsage) TableName() string {
	return "token_usages"
}
