// Package dbmysql keeps the mutation audit trail in MySQL: one row per
// create, update and delete, separate from the document store the live
// views read.
package dbmysql

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/config"
)

// NewMySQL returns a GORM DB instance connected to MySQL
func NewMySQL(c config.MySQLConfig) (*gorm.DB, error) {
	if c.Database == "" {
		return nil, fmt.Errorf("mysql database is not set")
	}

	db, err := gorm.Open(mysql.Open(c.DSN()), &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Warn),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB error: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&AuditRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
