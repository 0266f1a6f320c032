package sql_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/sql"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

var envs = map[string]string{
	"DATABASE_QUERY_TIMEOUT": "10",
	"DATABASE_PARSE_TIME":    "true",
}

func init() {
	envs = internal.Envs(envs, os.Environ())
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sqlTest struct {
	sql interface {
		internal.Opener
		internal.Configurer
	}
	sql.Sql
}

func newSqlTest() *sqlTest {
	sql := sql.NewSql()
	return &sqlTest{
		sql: sql,
		Sql: sql,
	}
}

func stringPtr(s string) *string {
	return &s
}

func (s *sqlTest) TestSql(t *testing.T) {
	// generate context
	ctx := context.TODO()

	// create employee
	name, department := internal.GenerateId()[:14], internal.GenerateId()[:16]
	id, err := s.EmployeeCreate(ctx, data.EmployeePartial{
		Name:       &name,
		Department: &department,
	})
	assert.Nil(t, err)
	assert.Greater(t, id, int64(0))
	defer func(id int64) {
		_ = s.EmployeeDelete(ctx, id)
	}(id)

	// read employees
	employeesRead, err := s.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.Contains(t, employeesRead, &data.Employee{
		ID:         id,
		Name:       name,
		Department: department,
	})

	// read employee
	employeeRead, err := s.EmployeeRead(ctx, id)
	assert.Nil(t, err)
	if assert.NotNil(t, employeeRead) {
		assert.Equal(t, id, employeeRead.ID)
		assert.Equal(t, name, employeeRead.Name)
		assert.Equal(t, department, employeeRead.Department)
	}

	// update employee name
	updatedName := internal.GenerateId()[:14]
	err = s.EmployeeUpdate(ctx, id, data.ColumnName, updatedName)
	assert.Nil(t, err)
	employeeRead, err = s.EmployeeRead(ctx, id)
	assert.Nil(t, err)
	if assert.NotNil(t, employeeRead) {
		assert.Equal(t, id, employeeRead.ID)
		assert.Equal(t, updatedName, employeeRead.Name)
		assert.Equal(t, department, employeeRead.Department)
	}

	// update employee department, values are stored verbatim
	updatedDepartment := "R&D / 'quoted'; DROP TABLE Employees;"
	err = s.EmployeeUpdate(ctx, id, data.ColumnDepartment, updatedDepartment)
	assert.Nil(t, err)
	employeeRead, err = s.EmployeeRead(ctx, id)
	assert.Nil(t, err)
	if assert.NotNil(t, employeeRead) {
		assert.Equal(t, updatedName, employeeRead.Name)
		assert.Equal(t, updatedDepartment, employeeRead.Department)
	}

	// update with an invalid column
	err = s.EmployeeUpdate(ctx, id, data.Column(0), "salary")
	assert.True(t, errors.Is(err, data.ErrInvalidColumn))

	// delete employee
	err = s.EmployeeDelete(ctx, id)
	assert.Nil(t, err)

	// read employee again
	employeeRead, err = s.EmployeeRead(ctx, id)
	assert.True(t, errors.Is(err, data.ErrEmployeeNotFound))
	assert.Nil(t, employeeRead)

	// delete and update employee again
	err = s.EmployeeDelete(ctx, id)
	assert.Nil(t, err)
	err = s.EmployeeUpdate(ctx, id, data.ColumnName, updatedName)
	assert.Nil(t, err)
	employeeRead, err = s.EmployeeRead(ctx, id)
	assert.True(t, errors.Is(err, data.ErrEmployeeNotFound))
	assert.Nil(t, employeeRead)
}

func (s *sqlTest) TestEmployeeCreateMalformed(t *testing.T) {
	ctx := context.TODO()

	_, err := s.EmployeeCreate(ctx, data.EmployeePartial{Name: stringPtr("Alice")})
	assert.True(t, errors.Is(err, data.ErrMalformedRequest))
	_, err = s.EmployeeCreate(ctx, data.EmployeePartial{Department: stringPtr("Eng")})
	assert.True(t, errors.Is(err, data.ErrMalformedRequest))

	// empty strings are allowed
	id, err := s.EmployeeCreate(ctx, data.EmployeePartial{
		Name:       stringPtr(""),
		Department: stringPtr(""),
	})
	assert.Nil(t, err)
	_ = s.EmployeeDelete(ctx, id)
}

func (s *sqlTest) TestIdStability(t *testing.T) {
	const nEmployees int = 10

	var wg sync.WaitGroup

	ctx := context.TODO()
	ids := make([]int64, nEmployees)
	for i := range nEmployees {
		id, err := s.EmployeeCreate(ctx, data.EmployeePartial{
			Name:       stringPtr(fmt.Sprintf("employee_%d", i)),
			Department: stringPtr("Eng"),
		})
		if !assert.Nil(t, err) {
			return
		}
		ids[i] = id
	}
	defer func() {
		for _, id := range ids {
			_ = s.EmployeeDelete(ctx, id)
		}
	}()

	// concurrently update the even employees and delete the odd ones
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()

			if i%2 == 1 {
				assert.Nil(t, s.EmployeeDelete(ctx, id))
				return
			}
			assert.Nil(t, s.EmployeeUpdate(ctx, id, data.ColumnName, "Bob"))
			assert.Nil(t, s.EmployeeUpdate(ctx, id, data.ColumnDepartment, "Ops"))
		}(i, id)
	}
	wg.Wait()
	for i, id := range ids {
		employee, err := s.EmployeeRead(ctx, id)
		if i%2 == 1 {
			assert.True(t, errors.Is(err, data.ErrEmployeeNotFound))
			continue
		}
		if assert.Nil(t, err) {
			assert.Equal(t, id, employee.ID)
			assert.Equal(t, "Bob", employee.Name)
			assert.Equal(t, "Ops", employee.Department)
		}
	}
}

func testSql(t *testing.T, envs map[string]string) {
	c := newSqlTest()

	ctx := context.TODO()
	err := c.sql.Configure(envs)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to configure sqlTest")
	}
	err = c.sql.Open(ctx)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to open sqlTest")
	}
	defer func() {
		_ = c.sql.Close(ctx)
	}()
	t.Run("Sql", c.TestSql)
	t.Run("EmployeeCreateMalformed", c.TestEmployeeCreateMalformed)
	t.Run("IdStability", c.TestIdStability)
}

func sqliteEnvs(t *testing.T, driver string) map[string]string {
	sqliteEnvs := make(map[string]string, len(envs)+2)
	for key, value := range envs {
		sqliteEnvs[key] = value
	}
	sqliteEnvs["DATABASE_DRIVER"] = driver
	sqliteEnvs["DATABASE_FILE"] = filepath.Join(t.TempDir(), "app", "data.db")
	return sqliteEnvs
}

func TestSqlSqlite3(t *testing.T) {
	testSql(t, sqliteEnvs(t, sql.DriverSqlite3))
}

func TestSqlSqlite(t *testing.T) {
	testSql(t, sqliteEnvs(t, sql.DriverSqlite))
}

func TestSqlMysql(t *testing.T) {
	if envs["DATABASE_HOST"] == "" {
		t.Skip("DATABASE_HOST not set, skipping mysql")
	}
	envs["DATABASE_DRIVER"] = sql.DriverMysql
	testSql(t, envs)
}

func TestBootstrapIdempotent(t *testing.T) {
	ctx := context.TODO()
	envs := sqliteEnvs(t, sql.DriverSqlite3)

	// open the same file twice, the second open must not fail or lose data
	s := sql.NewSql()
	err := s.Configure(envs)
	assert.Nil(t, err)
	err = s.Open(ctx)
	assert.Nil(t, err)
	id, err := s.EmployeeCreate(ctx, data.EmployeePartial{
		Name:       stringPtr("Alice"),
		Department: stringPtr("Eng"),
	})
	assert.Nil(t, err)
	err = s.Close(ctx)
	assert.Nil(t, err)

	s = sql.NewSql()
	err = s.Configure(envs)
	assert.Nil(t, err)
	err = s.Open(ctx)
	assert.Nil(t, err)
	defer func() {
		_ = s.Close(ctx)
	}()
	employee, err := s.EmployeeRead(ctx, id)
	assert.Nil(t, err)
	assert.Equal(t, &data.Employee{ID: id, Name: "Alice", Department: "Eng"}, employee)
	employees, err := s.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.Len(t, employees, 1)
}

func TestEmployeesReadEmpty(t *testing.T) {
	ctx := context.TODO()

	s := sql.NewSql()
	err := s.Configure(sqliteEnvs(t, sql.DriverSqlite))
	assert.Nil(t, err)
	err = s.Open(ctx)
	assert.Nil(t, err)
	defer func() {
		_ = s.Close(ctx)
	}()
	employees, err := s.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.NotNil(t, employees)
	assert.Empty(t, employees)
}

func TestConfigureUnsupportedDriver(t *testing.T) {
	s := sql.NewSql()
	err := s.Configure(map[string]string{"DATABASE_DRIVER": "postgres"})
	assert.NotNil(t, err)
}
