package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/antonio-alexander/go-employees/internal/data"
)

const (
	keyEmployees              string = "employees"
	keyEmployeesList          string = "employees_list"
	keyEmployeef              string = "employee_%d"
	errorWritingEmployeeCache string = "error while writing employee (%d): %s"
)

const defaultTimeout = 10 * time.Second

var (
	ErrEmployeeNotCached  = errors.New("employee not cached")
	ErrEmployeesNotCached = errors.New("employees not cached")
)

// Cache stores employees individually and, separately, the result of
// reading all employees; any change to an employee must invalidate the
// list as well
type Cache interface {
	EmployeeRead(ctx context.Context, id int64) (*data.Employee, error)
	EmployeesRead(ctx context.Context) ([]*data.Employee, error)
	EmployeesWrite(ctx context.Context, employees ...*data.Employee) error
	EmployeesListWrite(ctx context.Context, employees []*data.Employee) error
	EmployeesDelete(ctx context.Context, ids ...int64) error
	EmployeesListDelete(ctx context.Context) error
}

func copyEmployee(e *data.Employee) *data.Employee {
	employee := &data.Employee{}
	*employee = *e
	return employee
}

func employeeKey(id int64) string {
	return fmt.Sprintf(keyEmployeef, id)
}
