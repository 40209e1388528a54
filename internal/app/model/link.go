package model

import "time"

// ShareLink is a pre-generated sequence of one-time codes published behind an opaque id.
// Everything except AccessCount is fixed at creation.
type ShareLink struct {
	ID    string   `db:"id" gorm:"primaryKey;size:32"`
	Codes []string `db:"codes" gorm:"type:text;serializer:json;not null"`
	// Period is the width in seconds of each code's validity window.
	Period int64 `db:"period" gorm:"not null"`
	// OriginTimestamp is the epoch second at which Codes[0]'s window starts.
	OriginTimestamp  int64     `db:"origin_timestamp" gorm:"not null"`
	BurnAfterReading bool      `db:"burn_after_reading" gorm:"not null"`
	ExpiresAt        time.Time `db:"expires_at" gorm:"index;not null"`
	AccessCount      int64     `db:"access_count" gorm:"not null;default:0"`
	CreatedAt        time.Time `db:"created_at" gorm:"autoCreateTime"`
}

// TableName pins the table name independent of GORM's pluralisation rules.
func (ShareLink) TableName() string {
	return "share_links"
}

// IsExpired reports whether the link is past its expiry at now.
func (l *ShareLink) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
