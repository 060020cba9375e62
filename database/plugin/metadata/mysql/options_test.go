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
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithHost(t *testing.T) {
	m := &MetadataStoreMysql{}
	option := WithHost("db.local")

	option(m)

	if m.host != "db.local" {
		t.Errorf("Expected host to be 'db.local', got '%s'", m.host)
	}
}

func TestWithPort(t *testing.T) {
	m := &MetadataStoreMysql{}
	option := WithPort(uint(3306))

	option(m)

	if m.port != 3306 {
		t.Errorf("Expected port to be 3306, got '%d'", m.port)
	}
}

func TestWithUser(t *testing.T) {
	m := &MetadataStoreMysql{}
	option := WithUser("root")

	option(m)

	if m.user != "root" {
		t.Errorf("Expected user to be 'root', got '%s'", m.user)
	}
}

func TestWithPassword(t *testing.T) {
	m := &MetadataStoreMysql{}
	option := WithPassword("secret")

	option(m)

	if m.password != "secret" {
		t.Errorf("Expected password to be set")
	}
}

func TestWithDatabase(t *testing.T) {
	m := &MetadataStoreMysql{}
	option := WithDatabase("rollupdb")

	option(m)

	if m.database != "rollupdb" {
		t.Errorf("Expected database to be 'rollupdb', got '%s'", m.database)
	}
}

func TestWithSSLMode(t *testing.T) {
	m := &MetadataStoreMysql{}
	option := WithSSLMode("require")

	option(m)

	if m.sslMode != "require" {
		t.Errorf("Expected sslMode to be 'require', got '%s'", m.sslMode)
	}
}

func TestWithTimeZone(t *testing.T) {
	m := &MetadataStoreMysql{}
	option := WithTimeZone("UTC")

	option(m)

	if m.timeZone != "UTC" {
		t.Errorf("Expected timeZone to be 'UTC', got '%s'", m.timeZone)
	}
}

func TestWithDSN(t *testing.T) {
	m := &MetadataStoreMysql{}
	option := WithDSN("root:secret@tcp(localhost:3306)/rollupdb?parseTime=true")

	option(m)

	if m.dsn != "root:secret@tcp(localhost:3306)/rollupdb?parseTime=true" {
		t.Errorf("Expected dsn to be set")
	}
}

func TestWithLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := &MetadataStoreMysql{}
	option := WithLogger(logger)

	option(m)

	if m.logger != logger {
		t.Errorf("Expected logger to be set")
	}
}

func TestWithPromRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := &MetadataStoreMysql{}
	option := WithPromRegistry(reg)

	option(m)

	if m.promRegistry != reg {
		t.Errorf("Expected promRegistry to be set")
	}
}

func TestWithMaxOpenConns(t *testing.T) {
	m := &MetadataStoreMysql{}
	WithMaxOpenConns(25)(m)
	assert.Equal(t, 25, m.maxOpenConns)
}

func TestWithConnMaxLifetime(t *testing.T) {
	m := &MetadataStoreMysql{}
	WithConnMaxLifetime(10 * time.Minute)(m)
	assert.Equal(t, 10*time.Minute, m.connMaxLifetime)
}

func TestNewWithOptionsDefaults(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost", m.host)
	assert.Equal(t, uint(3306), m.port)
	assert.Equal(t, "root", m.user)
	assert.Equal(t, "rollupdb", m.database)
	assert.Equal(t, defaultMaxOpenConns, m.maxOpenConns)
	assert.Equal(t, defaultConnMaxLifetime, m.connMaxLifetime)
	// Close before Start is a no-op
	require.NoError(t, m.Close())
}

func TestBuildDSN(t *testing.T) {
	m, err := NewWithOptions(
		WithHost("db.local"),
		WithUser("app"),
		WithPassword("secret"),
		WithDatabase("rollupdb"),
		WithSSLMode("preferred"),
	)
	require.NoError(t, err)
	dsn, dbName := m.buildDSN()
	assert.Equal(t, "rollupdb", dbName)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "db.local:3306", cfg.Addr)
	assert.Equal(t, "rollupdb", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "UTC", cfg.Loc.String())
}

func TestBuildDSNOverride(t *testing.T) {
	m, err := NewWithOptions(
		WithDatabase("ignored"),
		WithDSN("app:secret@tcp(localhost:3306)/ledger?parseTime=true"),
	)
	require.NoError(t, err)
	dsn, dbName := m.buildDSN()
	assert.Equal(t, "app:secret@tcp(localhost:3306)/ledger?parseTime=true", dsn)
	assert.Equal(t, "ledger", dbName)
}

func TestParseMysqlDatabaseFromDSN(t *testing.T) {
	testDefs := []struct {
		dsn    string
		dbName string
		ok     bool
	}{
		{dsn: "root@tcp(localhost:3306)/rollupdb", dbName: "rollupdb", ok: true},
		{dsn: "root@tcp(localhost:3306)/rollupdb?parseTime=true", dbName: "rollupdb", ok: true},
		{dsn: "root@tcp(localhost:3306)/", ok: false},
		{dsn: "nodatabase", ok: false},
	}
	for _, testDef := range testDefs {
		dbName, ok := parseMysqlDatabaseFromDSN(testDef.dsn)
		assert.Equal(t, testDef.ok, ok, testDef.dsn)
		assert.Equal(t, testDef.dbName, dbName, testDef.dsn)
	}
}

func TestStripDatabaseFromDSN(t *testing.T) {
	stripped, ok := stripDatabaseFromDSN("root@tcp(localhost:3306)/rollupdb?parseTime=true")
	require.True(t, ok)
	assert.Equal(t, "root@tcp(localhost:3306)/?parseTime=true", stripped)
	stripped, ok = stripDatabaseFromDSN("root@tcp(localhost:3306)/rollupdb")
	require.True(t, ok)
	assert.Equal(t, "root@tcp(localhost:3306)/", stripped)
	_, ok = stripDatabaseFromDSN("nodatabase")
	assert.False(t, ok)
}

func TestIsTransientMysqlError(t *testing.T) {
	testDefs := []struct {
		err       error
		transient bool
	}{
		{err: &mysql.MySQLError{Number: 1213}, transient: true},
		{err: &mysql.MySQLError{Number: 1205}, transient: true},
		{err: fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1040}), transient: true},
		{err: mysql.ErrInvalidConn, transient: true},
		{err: &mysql.MySQLError{Number: 1062}, transient: false},
		{err: errors.New("syntax error"), transient: false},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.transient, isTransientMysqlError(testDef.err), testDef.err.Error())
	}
}
