package infrastructure

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"scorecard-engine/domain"
)

// NewMySQLConnection opens the database, migrates the schema and, when seed
// is set and the database has no jobs, writes the demo data set.
func NewMySQLConnection(dsn string, seed bool, log *logrus.Entry) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	err = db.AutoMigrate(
		&domain.Job{},
		&domain.Candidate{},
		&domain.Template{},
		&domain.Criterion{},
		&domain.Scorecard{},
		&domain.Evaluation{},
		&domain.JobSummary{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("✅ Connected to MySQL and migrated schema")

	if seed {
		if err := seedJobs(db, log); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func seedJobs(db *gorm.DB, log *logrus.Entry) error {
	var count int64
	if err := db.Model(&domain.Job{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count jobs: %w", err)
	}
	if count > 0 {
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return seedDemo(gormSink{tx}, time.Now())
	})
	if err != nil {
		return fmt.Errorf("failed to seed jobs: %w", err)
	}

	log.Info("✅ Seeded demo job, templates, candidates and scorecards")
	return nil
}
