package sql

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/utilities"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"

	_ "github.com/go-sql-driver/mysql" //import for driver support
	_ "github.com/mattn/go-sqlite3"    //import for driver support
	_ "modernc.org/sqlite"             //import for driver support
)

const (
	DriverSqlite3 string = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverSqlite  string = "sqlite"  // modernc.org/sqlite (pure go)
	DriverMysql   string = "mysql"   // github.com/go-sql-driver/mysql
)

const (
	defaultDriver   = DriverSqlite3
	defaultFile     = "app/data.db"
	tableEmployees  = "Employees"
	defaultMysqlDsn = "%s:%s@tcp(%s:%s)/%s?parseTime=%t&foreign_key_checks=1"
)

type Sql interface {
	EmployeesRead(ctx context.Context) ([]*data.Employee, error)
	EmployeeRead(ctx context.Context, id int64) (*data.Employee, error)
	EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (int64, error)
	EmployeeUpdate(ctx context.Context, id int64, column data.Column, value string) error
	EmployeeDelete(ctx context.Context, id int64) error
}

type sqlStore struct {
	sync.RWMutex
	config struct {
		Driver         string        `json:"driver"`
		File           string        `json:"file"`
		Hostname       string        `json:"hostname"`
		Port           string        `json:"port"`
		Username       string        `json:"username"`
		Password       string        `json:"password"`
		Database       string        `json:"database"`
		QueryTimeout   time.Duration `json:"query_timeout"`
		ParseTime      bool          `json:"parse_time"`
		MaxOpenConns   int           `json:"max_open_conns"`
		ConnectRetries uint          `json:"connect_retries"`
	}
	*sql.DB
	utilities.Logger
	opened bool
}

func NewSql(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Sql
} {
	s := &sqlStore{Logger: utilities.NewNopLogger()}
	s.config.Driver = defaultDriver
	s.config.File = defaultFile
	for _, parameter := range parameters {
		switch v := parameter.(type) {
		case utilities.Logger:
			s.Logger = v
		}
	}
	return s
}

func (s *sqlStore) Configure(envs map[string]string) error {
	s.Lock()
	defer s.Unlock()

	if driver := envs["DATABASE_DRIVER"]; driver != "" {
		switch driver {
		default:
			return errors.Errorf("unsupported database driver: %s", driver)
		case DriverSqlite3, DriverSqlite, DriverMysql:
			s.config.Driver = driver
		}
	}
	if file := envs["DATABASE_FILE"]; file != "" {
		s.config.File = file
	}
	if databaseHost := envs["DATABASE_HOST"]; databaseHost != "" {
		s.config.Hostname = databaseHost
	}
	if databasePort := envs["DATABASE_PORT"]; databasePort != "" {
		s.config.Port = databasePort
	}
	if database := envs["DATABASE_NAME"]; database != "" {
		s.config.Database = database
	}
	if username := envs["DATABASE_USER"]; username != "" {
		s.config.Username = username
	}
	if password := envs["DATABASE_PASSWORD"]; password != "" {
		s.config.Password = password
	}
	if _, ok := envs["DATABASE_QUERY_TIMEOUT"]; ok {
		i, _ := strconv.ParseInt(envs["DATABASE_QUERY_TIMEOUT"], 10, 64)
		s.config.QueryTimeout = time.Duration(i) * time.Second
	}
	if _, ok := envs["DATABASE_PARSE_TIME"]; ok {
		s.config.ParseTime, _ = strconv.ParseBool(envs["DATABASE_PARSE_TIME"])
	}
	if maxOpenConns := envs["DATABASE_MAX_OPEN_CONNS"]; maxOpenConns != "" {
		i, err := strconv.Atoi(maxOpenConns)
		if err != nil {
			return errors.Wrap(err, "DATABASE_MAX_OPEN_CONNS")
		}
		s.config.MaxOpenConns = i
	}
	if connectRetries := envs["DATABASE_CONNECT_RETRIES"]; connectRetries != "" {
		i, err := strconv.ParseUint(connectRetries, 10, 32)
		if err != nil {
			return errors.Wrap(err, "DATABASE_CONNECT_RETRIES")
		}
		s.config.ConnectRetries = uint(i)
	}
	return nil
}

func (s *sqlStore) ping(ctx context.Context, db *sql.DB) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.config.ConnectRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.Info(ctx, "unable to ping database, retrying in %v: %s", next, err)
		}))
	return err
}

func (s *sqlStore) Open(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.opened {
		return nil
	}
	if s.config.Driver != DriverMysql {
		if dir := filepath.Dir(s.config.File); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrap(err, "unable to create database directory")
			}
		}
	}
	db, err := sql.Open(s.config.Driver, dataSourceName(s.config.Driver,
		s.config.File, s.config.Username, s.config.Password,
		s.config.Hostname, s.config.Port, s.config.Database,
		s.config.ParseTime))
	if err != nil {
		return errors.Wrapf(err, "unable to open %s database", s.config.Driver)
	}
	maxOpenConns := s.config.MaxOpenConns
	if maxOpenConns <= 0 && s.config.Driver != DriverMysql {
		//KIM: sqlite only allows a single writer, one connection
		// serializes statements instead of returning SQLITE_BUSY
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err := s.ping(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "unable to connect to %s database", s.config.Driver)
	}
	if err := bootstrap(ctx, db, s.config.Driver); err != nil {
		_ = db.Close()
		return err
	}
	s.DB = db
	s.opened = true
	s.Debug(ctx, "opened %s database", s.config.Driver)
	return nil
}

func (s *sqlStore) Close(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if !s.opened {
		return nil
	}
	s.opened = false
	if err := s.DB.Close(); err != nil {
		s.Error(ctx, "error while closing sql: %s", err)
	}
	return nil
}

func (s *sqlStore) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.QueryTimeout > 0 {
		return context.WithTimeout(ctx, s.config.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *sqlStore) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	rows, err := s.QueryContext(ctx, queryEmployeesRead)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	employees := []*data.Employee{}
	for rows.Next() {
		employee, err := employeeScan(rows.Scan)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}

func (s *sqlStore) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	row := s.QueryRowContext(ctx, queryEmployeeRead, id)
	employee, err := employeeScan(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrEmployeeNotFound
		}
		return nil, err
	}
	return employee, nil
}

func (s *sqlStore) EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (int64, error) {
	if err := employeePartial.Validate(); err != nil {
		return -1, err
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	result, err := s.ExecContext(ctx, queryEmployeeCreate,
		*employeePartial.Name, *employeePartial.Department)
	if err != nil {
		return -1, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return -1, err
	}
	return id, nil
}

// EmployeeUpdate doesn't confirm that the employee exists, updating a
// missing employee is not an error
func (s *sqlStore) EmployeeUpdate(ctx context.Context, id int64, column data.Column, value string) error {
	query, ok := queryEmployeeUpdate[column]
	if !ok {
		return errors.Wrapf(data.ErrInvalidColumn, "%d", column)
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if _, err := s.ExecContext(ctx, query, value, id); err != nil {
		return err
	}
	return nil
}

// EmployeeDelete doesn't confirm that the employee exists, deleting a
// missing employee is not an error
func (s *sqlStore) EmployeeDelete(ctx context.Context, id int64) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if _, err := s.ExecContext(ctx, queryEmployeeDelete, id); err != nil {
		return err
	}
	return nil
}
