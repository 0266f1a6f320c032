package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/antonio-alexander/go-employees/internal/data"

	"github.com/pkg/errors"
)

var (
	queryEmployeesRead  = fmt.Sprintf(`SELECT id, name, department FROM %s;`, tableEmployees)
	queryEmployeeRead   = fmt.Sprintf(`SELECT id, name, department FROM %s WHERE id = ?;`, tableEmployees)
	queryEmployeeCreate = fmt.Sprintf(`INSERT INTO %s (name, department) VALUES (?, ?);`, tableEmployees)
	queryEmployeeDelete = fmt.Sprintf(`DELETE FROM %s WHERE id = ?;`, tableEmployees)

	// one fixed statement per column, the column is never taken from input
	queryEmployeeUpdate = map[data.Column]string{
		data.ColumnName:       fmt.Sprintf(`UPDATE %s SET name = ? WHERE id = ?;`, tableEmployees),
		data.ColumnDepartment: fmt.Sprintf(`UPDATE %s SET department = ? WHERE id = ?;`, tableEmployees),
	}
)

var schema = map[string][]string{
	DriverSqlite3: {
		`CREATE TABLE IF NOT EXISTS Employees(
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			department TEXT NOT NULL
		);`,
	},
	DriverSqlite: {
		`CREATE TABLE IF NOT EXISTS Employees(
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			department TEXT NOT NULL
		);`,
	},
	DriverMysql: {
		`CREATE TABLE IF NOT EXISTS Employees(
			id INTEGER PRIMARY KEY AUTO_INCREMENT,
			name TEXT NOT NULL,
			department TEXT NOT NULL
		);`,
	},
}

func dataSourceName(driver, file, username, password, hostname, port, database string, parseTime bool) string {
	switch driver {
	default:
		return file
	case DriverSqlite3:
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", file)
	case DriverSqlite:
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", file)
	case DriverMysql:
		return fmt.Sprintf(defaultMysqlDsn, username, password, hostname,
			port, database, parseTime)
	}
}

// bootstrap creates the employees table if it doesn't already exist,
// it's safe to run more than once; foreign key enforcement is set per
// connection through the data source name
func bootstrap(ctx context.Context, db *sql.DB, driver string) error {
	statements, ok := schema[driver]
	if !ok {
		return errors.Errorf("no schema for driver: %s", driver)
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return errors.Wrap(err, "unable to bootstrap schema")
		}
	}
	return nil
}

func employeeScan(scanFx func(...interface{}) error) (*data.Employee, error) {
	employee := new(data.Employee)
	if err := scanFx(
		&employee.ID,
		&employee.Name,
		&employee.Department,
	); err != nil {
		return nil, err
	}
	return employee, nil
}
