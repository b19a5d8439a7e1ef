// Package numbering issues human readable document numbers such as
// REQ-20250301-0007 from per-day counters.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ScopeRequest   = "REQ"
	ScopeSparePart = "SP"
)

var ErrInvalidScope = errors.New("invalid_scope")

type DailySequence struct {
	Scope string `gorm:"primaryKey;type:varchar(16)"`
	Day   string `gorm:"primaryKey;type:char(8)"`
	Value int64  `gorm:"not null"`
}

func (DailySequence) TableName() string { return "daily_sequences" }

// Generator must be called with the transaction that inserts the numbered row
// so a rolled back insert also rolls back its number.
type Generator interface {
	Next(ctx context.Context, tx *gorm.DB, scope string, at time.Time) (string, error)
}

type generator struct{}

func New() Generator {
	return &generator{}
}

func (g *generator) Next(ctx context.Context, tx *gorm.DB, scope string, at time.Time) (string, error) {
	scope = strings.ToUpper(strings.TrimSpace(scope))
	if scope == "" {
		return "", ErrInvalidScope
	}
	day := at.UTC().Format("20060102")

	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value": gorm.Expr("daily_sequences.value + 1"),
		}),
	}).Create(&DailySequence{Scope: scope, Day: day, Value: 1}).Error
	if err != nil {
		return "", err
	}

	var seq DailySequence
	err = tx.WithContext(ctx).
		Where("scope = ? AND day = ?", scope, day).
		Take(&seq).Error
	if err != nil {
		return "", err
	}

	return Format(scope, at, seq.Value), nil
}

func Format(scope string, at time.Time, value int64) string {
	return fmt.Sprintf("%s-%s-%04d", scope, at.UTC().Format("20060102"), value)
}

var Module = fx.Module("numbering",
	fx.Provide(New),
)
