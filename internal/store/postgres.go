package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"horse.fit/jobdedup/internal/config"
	"horse.fit/jobdedup/internal/record"
)

const postgresInsertBatch = 500

// Postgres stores each table as a relation of the connected database.
type Postgres struct {
	gdb   *gorm.DB
	sqlDB *sql.DB
	opts  Options
}

func OpenPostgres(ctx context.Context, cfg *config.Config, opts Options) (*Postgres, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(resolveGormLogLevel(cfg.LogLevel, cfg.Environment)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get gorm sql db: %w", err)
	}
	maxOpen := int(cfg.DBMaxConns)
	if maxOpen <= 0 {
		maxOpen = 4
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 5000
	}
	return &Postgres{gdb: gdb, sqlDB: sqlDB, opts: opts}, nil
}

func (p *Postgres) ReadTable(ctx context.Context, name string) ([]record.Record, error) {
	db := p.gdb.WithContext(ctx)
	if !db.Migrator().HasTable(name) {
		return nil, fmt.Errorf("read %s: %w", name, ErrTableNotFound)
	}

	var out []record.Record
	for offset := 0; ; offset += p.opts.ChunkSize {
		limit := p.opts.ChunkSize
		if p.opts.MaxRows > 0 && offset+limit > p.opts.MaxRows {
			limit = p.opts.MaxRows - offset
		}
		if limit <= 0 {
			break
		}

		var rows []recordRow
		if err := db.Table(name).Order("position").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for _, row := range rows {
			out = append(out, row.toRecord())
		}
		if len(rows) < limit {
			break
		}
	}
	return out, nil
}

func (p *Postgres) WriteTable(ctx context.Context, name string, records []record.Record) error {
	if err := validateTableName(name); err != nil {
		return err
	}

	rows := make([]recordRow, len(records))
	for i, rec := range records {
		rows[i] = toRow(i+1, rec)
	}

	return p.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Migrator().HasTable(name) {
			if err := tx.Migrator().DropTable(name); err != nil {
				return fmt.Errorf("drop %s: %w", name, err)
			}
		}
		if err := tx.Table(name).AutoMigrate(&recordRow{}); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Table(name).CreateInBatches(rows, postgresInsertBatch).Error; err != nil {
			return fmt.Errorf("insert %s: %w", name, err)
		}
		return nil
	})
}

func (p *Postgres) ListTables(ctx context.Context, prefix string) ([]string, error) {
	names, err := p.gdb.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return filterPrefix(names, prefix), nil
}

func (p *Postgres) Close() error {
	if p == nil || p.sqlDB == nil {
		return nil
	}
	return p.sqlDB.Close()
}

func resolveGormLogLevel(appLogLevel, environment string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(appLogLevel)) {
	case "trace", "debug":
		return logger.Info
	case "warn", "warning", "info", "":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent", "disabled":
		return logger.Silent
	default:
		if strings.EqualFold(strings.TrimSpace(environment), "local") {
			return logger.Warn
		}
		return logger.Error
	}
}
