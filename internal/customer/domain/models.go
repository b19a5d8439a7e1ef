package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer owns the devices brought in for service.
type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Phone     string       `gorm:"not null;index" json:"phone"`
	Email     *string      `json:"email,omitempty"`
	Address   *string      `json:"address,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

// NormalizePhone keeps digits and a leading plus, so "+62 (811) 000-12" and
// "+6281100012" are the same customer at the desk. It returns "" when fewer
// than six digits remain.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ', r == '-', r == '(', r == ')', r == '.':
		default:
			return ""
		}
	}
	phone := b.String()
	if len(strings.TrimPrefix(phone, "+")) < 6 || len(phone) > 20 {
		return ""
	}
	return phone
}
