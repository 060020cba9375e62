// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mysql

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/rollupdb/database/plugin/metadata/internal/gormstore"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultMaxIdleConns = 10
	defaultMaxOpenConns = 100

	defaultConnMaxLifetime = time.Hour

	mysqlErrUnknownDatabase = 1049
)

// MetadataStoreMysql stores metadata in MySQL.
type MetadataStoreMysql struct {
	*gormstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger

	host            string
	port            uint
	user            string
	password        string
	database        string
	sslMode         string
	timeZone        string
	dsn             string // Data source name (MySQL connection string)
	maxOpenConns    int
	connMaxLifetime time.Duration
}

// New creates a new database
func New(
	host string,
	port uint,
	user string,
	password string,
	database string,
	sslMode string,
	timeZone string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStoreMysql, error) {
	return NewWithOptions(
		WithHost(host),
		WithPort(port),
		WithUser(user),
		WithPassword(password),
		WithDatabase(database),
		WithSSLMode(sslMode),
		WithTimeZone(timeZone),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// NewWithOptions creates a new database with options
func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	db := &MetadataStoreMysql{}

	// Apply options
	for _, opt := range opts {
		opt(db)
	}

	// Set defaults after options are applied (no side effects)
	if db.host == "" {
		db.host = "localhost"
	}
	if db.port == 0 {
		db.port = 3306
	}
	if db.user == "" {
		db.user = "root"
	}
	if db.database == "" {
		db.database = "rollupdb"
	}
	if db.timeZone == "" {
		db.timeZone = "UTC"
	}
	if db.maxOpenConns <= 0 {
		db.maxOpenConns = defaultMaxOpenConns
	}
	if db.connMaxLifetime <= 0 {
		db.connMaxLifetime = defaultConnMaxLifetime
	}

	// Note: Database initialization happens in Start()
	return db, nil
}

// Inject implements the plugin.Injectable interface
func (d *MetadataStoreMysql) Inject(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) {
	if logger != nil {
		d.logger = logger
	}
	if promRegistry != nil {
		d.promRegistry = promRegistry
	}
}

// buildDSN returns the DSN to connect with and the database name it selects
func (d *MetadataStoreMysql) buildDSN() (string, string) {
	dsn := strings.TrimSpace(d.dsn)
	if dsn != "" {
		if parsedDB, ok := parseMysqlDatabaseFromDSN(dsn); ok {
			return dsn, parsedDB
		}
		return dsn, d.database
	}
	cfg := mysql.Config{
		User:   d.user,
		Passwd: d.password,
		Net:    "tcp",
		Addr: fmt.Sprintf(
			"%s:%s",
			d.host,
			strconv.FormatUint(uint64(d.port), 10),
		),
		DBName:               d.database,
		ParseTime:            true,
		AllowNativePasswords: true,
	}
	if d.timeZone != "" {
		loc, err := time.LoadLocation(d.timeZone)
		if err != nil {
			loc = time.UTC
		}
		cfg.Loc = loc
	}
	if d.sslMode != "" {
		cfg.Params = map[string]string{
			"tls": d.sslMode,
		}
	}
	return cfg.FormatDSN(), d.database
}

func (d *MetadataStoreMysql) open(dsn string) (*gorm.DB, error) {
	return gorm.Open(
		gormmysql.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Start() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dsn, logDatabase := d.buildDSN()
	metadataDb, err := d.open(dsn)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != mysqlErrUnknownDatabase {
			return err
		}
		created, createErr := d.ensureDatabaseExists(dsn, logDatabase)
		if createErr != nil || !created {
			return errors.Join(err, createErr)
		}
		if metadataDb, err = d.open(dsn); err != nil {
			return err
		}
	}
	d.logger.Info(
		"connected to mysql metadata store",
		"component", "database",
		"host", d.host,
		"port", d.port,
		"database", logDatabase,
	)
	// Configure connection pool
	sqlDB, err := metadataDb.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(min(defaultMaxIdleConns, d.maxOpenConns))
	sqlDB.SetMaxOpenConns(d.maxOpenConns)
	sqlDB.SetConnMaxLifetime(d.connMaxLifetime)

	store, err := gormstore.New(metadataDb, d.logger, isTransientMysqlError)
	if err != nil {
		return errors.Join(err, sqlDB.Close())
	}
	d.Store = store
	return nil
}

func (d *MetadataStoreMysql) ensureDatabaseExists(
	dsn string,
	dbName string,
) (bool, error) {
	if dbName == "" {
		return false, nil
	}
	adminDsn, ok := stripDatabaseFromDSN(dsn)
	if !ok {
		return false, nil
	}
	adminDb, err := d.open(adminDsn)
	if err != nil {
		return false, err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return false, err
	}
	defer sqlAdminDb.Close()
	if result := adminDb.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)); result.Error != nil {
		return false, result.Error
	}
	return true, nil
}

func parseMysqlDatabaseFromDSN(dsn string) (string, bool) {
	base := dsn
	if idx := strings.Index(base, "?"); idx >= 0 {
		base = base[:idx]
	}
	slash := strings.LastIndex(base, "/")
	if slash < 0 || slash == len(base)-1 {
		return "", false
	}
	return base[slash+1:], true
}

func stripDatabaseFromDSN(dsn string) (string, bool) {
	base := dsn
	params := ""
	if idx := strings.Index(dsn, "?"); idx >= 0 {
		base = dsn[:idx]
		params = dsn[idx+1:]
	}
	slash := strings.LastIndex(base, "/")
	if slash < 0 {
		return "", false
	}
	base = base[:slash+1]
	if params == "" {
		return base, true
	}
	return base + "?" + params, true
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Stop() error {
	return d.Close()
}

// Close closes the database
func (d *MetadataStoreMysql) Close() error {
	// Guard against nil store (e.g., if Start() failed or was never called)
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}

// isTransientMysqlError reports lock wait timeouts, deadlocks and lost
// connections, which may succeed on retry
func isTransientMysqlError(err error) bool {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	switch mysqlErr.Number {
	case 1040, // too many connections
		1205, // lock wait timeout
		1213, // deadlock
		2006, // server has gone away
		2013: // lost connection during query
		return true
	default:
		return false
	}
}
