// Package persist records match outcomes. The gorm/postgres recorder is
// used when a database is configured; otherwise results are dropped by
// the noop recorder and the server runs stateless.
package persist

import (
	"context"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reversus/internal/game"
)

// MatchResult is one finished match.
type MatchResult struct {
	ID        uint      `gorm:"primaryKey"`
	WinnerID  string    `gorm:"index"`
	LoserIDs  string    // comma-joined seat ids
	Mode      string    `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type Recorder struct {
	db *gorm.DB
}

// Open connects and migrates the match_results table.
func Open(dsn string) (*Recorder, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&MatchResult{}); err != nil {
		return nil, err
	}
	return &Recorder{db: db}, nil
}

func (r *Recorder) RecordMatchResult(ctx context.Context, winnerID string, loserIDs []string, mode game.Mode) error {
	return r.db.WithContext(ctx).Create(&MatchResult{
		WinnerID: winnerID,
		LoserIDs: JoinIDs(loserIDs),
		Mode:     string(mode),
	}).Error
}

// Noop discards results.
type Noop struct{}

func (Noop) RecordMatchResult(ctx context.Context, winnerID string, loserIDs []string, mode game.Mode) error {
	return nil
}

// JoinIDs flattens loser ids for the single-column schema.
func JoinIDs(ids []string) string {
	return strings.Join(ids, ",")
}
