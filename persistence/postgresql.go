// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/typerace/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS race_sessions (
            id SERIAL PRIMARY KEY,
            session_key VARCHAR(64) UNIQUE NOT NULL,
            room_code VARCHAR(16) NOT NULL,
            participants TEXT[] NOT NULL,
            total_chars INTEGER NOT NULL,
            played_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS race_results (
            id SERIAL PRIMARY KEY,
            session_key VARCHAR(64) NOT NULL REFERENCES race_sessions(session_key),
            user_id VARCHAR(255) NOT NULL,
            wpm DOUBLE PRECISION NOT NULL,
            accuracy DOUBLE PRECISION NOT NULL,
            chars_typed INTEGER NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_race_sessions_room_code ON race_sessions(room_code);
        CREATE INDEX IF NOT EXISTS idx_race_sessions_played_at ON race_sessions(played_at);
        CREATE INDEX IF NOT EXISTS idx_race_results_user_id ON race_results(user_id);
    `)

	return err
}

// RecordSession 保存游戏记录
func (p *PostgreSQL) RecordSession(ctx context.Context, rec *models.SessionRecord) (string, error) {
	key := newSessionKey()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO race_sessions (session_key, room_code, participants, total_chars, played_at)
        VALUES ($1, $2, $3, $4, $5)
    `, key, rec.RoomCode, pq.Array(rec.ParticipantIDs), rec.TotalChars, rec.Timestamp)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO race_results (session_key, user_id, wpm, accuracy, chars_typed)
        VALUES ($1, $2, $3, $4, $5)
    `)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, userID := range rec.ParticipantIDs {
		if _, err := stmt.ExecContext(ctx, key, userID, rec.WPM[userID], rec.Accuracy[userID], rec.CharsTyped[userID]); err != nil {
			return "", fmt.Errorf("insert result for %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return key, nil
}

// UserStats 查询玩家统计
func (p *PostgreSQL) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats := models.UserStats{UserID: userID}
	err := p.db.QueryRowContext(ctx, `
        SELECT COUNT(*), COALESCE(MAX(wpm), 0), COALESCE(AVG(wpm), 0), COALESCE(AVG(accuracy), 0)
        FROM race_results
        WHERE user_id = $1
    `, userID).Scan(&stats.Games, &stats.BestWPM, &stats.AverageWPM, &stats.AverageAccuracy)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && stats.Games == 0) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
