// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/typerace/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormGameSession{}, &models.GormSessionResult{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &GormPostgreSQL{db: db}, nil
}

// RecordSession writes the game and its result rows in one transaction.
func (p *GormPostgreSQL) RecordSession(ctx context.Context, rec *models.SessionRecord) (string, error) {
	session := models.GormGameSession{
		SessionKey: newSessionKey(),
		RoomCode:   rec.RoomCode,
		TotalChars: rec.TotalChars,
		PlayedAt:   rec.Timestamp,
		Results:    make([]models.GormSessionResult, 0, len(rec.ParticipantIDs)),
	}
	for _, userID := range rec.ParticipantIDs {
		session.Results = append(session.Results, models.GormSessionResult{
			UserID:     userID,
			WPM:        rec.WPM[userID],
			Accuracy:   rec.Accuracy[userID],
			CharsTyped: rec.CharsTyped[userID],
		})
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&session).Error
	})
	if err != nil {
		return "", err
	}
	return session.SessionKey, nil
}

func (p *GormPostgreSQL) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	var row struct {
		Games           int
		BestWPM         float64
		AverageWPM      float64
		AverageAccuracy float64
	}

	err := p.db.WithContext(ctx).
		Model(&models.GormSessionResult{}).
		Select(`COUNT(*) AS games,
            COALESCE(MAX(wpm), 0) AS best_wpm,
            COALESCE(AVG(wpm), 0) AS average_wpm,
            COALESCE(AVG(accuracy), 0) AS average_accuracy`).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Games == 0 {
		return nil, ErrRecordNotFound
	}

	return &models.UserStats{
		UserID:          userID,
		Games:           row.Games,
		BestWPM:         row.BestWPM,
		AverageWPM:      row.AverageWPM,
		AverageAccuracy: row.AverageAccuracy,
	}, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
