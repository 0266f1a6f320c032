package cache

import (
	"context"
	"sync"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/utilities"
)

type memoryCache struct {
	sync.RWMutex
	employees map[int64]*data.Employee //map[id]employee
	list      []int64
	listed    bool
	utilities.Logger
}

func NewMemory(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &memoryCache{
		employees: make(map[int64]*data.Employee),
		Logger:    utilities.NewNopLogger(),
	}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

func (c *memoryCache) Configure(envs map[string]string) error {
	return nil
}

func (c *memoryCache) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.employees = make(map[int64]*data.Employee)
	c.list, c.listed = nil, false
	return nil
}

func (c *memoryCache) Close(ctx context.Context) error {
	return nil
}

func (c *memoryCache) Clear(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.employees = make(map[int64]*data.Employee)
	c.list, c.listed = nil, false
	return nil
}

func (c *memoryCache) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	employee, ok := c.employees[id]
	if !ok {
		return nil, ErrEmployeeNotCached
	}
	return copyEmployee(employee), nil
}

func (c *memoryCache) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	if !c.listed {
		return nil, ErrEmployeesNotCached
	}
	employees := make([]*data.Employee, 0, len(c.list))
	for _, id := range c.list {
		e, ok := c.employees[id]
		if !ok {
			//KIM: a partial list is as good as no list
			return nil, ErrEmployeesNotCached
		}
		employees = append(employees, copyEmployee(e))
	}
	return employees, nil
}

func (c *memoryCache) EmployeesWrite(ctx context.Context, employees ...*data.Employee) error {
	c.Lock()
	defer c.Unlock()

	for _, e := range employees {
		c.employees[e.ID] = copyEmployee(e)
	}
	return nil
}

func (c *memoryCache) EmployeesListWrite(ctx context.Context, employees []*data.Employee) error {
	c.Lock()
	defer c.Unlock()

	list := make([]int64, 0, len(employees))
	for _, e := range employees {
		c.employees[e.ID] = copyEmployee(e)
		list = append(list, e.ID)
	}
	c.list, c.listed = list, true
	return nil
}

func (c *memoryCache) EmployeesDelete(ctx context.Context, ids ...int64) error {
	c.Lock()
	defer c.Unlock()

	for _, id := range ids {
		delete(c.employees, id)
	}
	c.list, c.listed = nil, false
	return nil
}

func (c *memoryCache) EmployeesListDelete(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.list, c.listed = nil, false
	return nil
}
