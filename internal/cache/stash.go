package cache

import (
	"context"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/utilities"

	"github.com/antonio-alexander/go-stash"
)

type stashCache struct {
	logger utilities.Logger
	stash interface {
		stash.Configurer
		stash.Parameterizer
		stash.Initializer
		stash.Shutdowner
	}
	stash.Stasher
}

// NewStash wraps a go-stash implementation (memory or redis), the stash
// must be provided as a parameter
func NewStash(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &stashCache{logger: utilities.NewNopLogger()}
	for _, p := range parameters {
		switch p := p.(type) {
		case utilities.Logger:
			c.logger = p
		case interface {
			stash.Configurer
			stash.Parameterizer
			stash.Initializer
			stash.Shutdowner
			stash.Stasher
		}:
			c.stash = p
			c.Stasher = p
		}
	}
	if c.stash != nil {
		c.stash.SetParameters(parameters...)
	}
	return c
}

func (c *stashCache) Error(ctx context.Context, format string, v ...any) {
	c.logger.Error(ctx, format, v...)
}

func (c *stashCache) Trace(ctx context.Context, format string, v ...any) {
	c.logger.Trace(ctx, format, v...)
}

func (c *stashCache) Configure(envs map[string]string) error {
	if c.stash != nil {
		if err := c.stash.Configure(envs); err != nil {
			return err
		}
	}
	return nil
}

func (c *stashCache) Open(ctx context.Context) error {
	if c.stash != nil {
		return c.stash.Initialize()
	}
	return nil
}

func (c *stashCache) Close(ctx context.Context) error {
	if c.stash != nil {
		return c.stash.Shutdown()
	}
	return nil
}

func (c *stashCache) Clear(ctx context.Context) error {
	if c.Stasher == nil {
		return nil
	}
	return c.Stasher.Clear()
}

func (c *stashCache) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	employee := &data.Employee{}
	if err := c.Stasher.Read(employeeKey(id), employee); err != nil {
		c.Trace(ctx, "cache miss for employee: %d (%s)", id, err)
		return nil, ErrEmployeeNotCached
	}
	c.Trace(ctx, "cache hit for employee: %d", id)
	return employee, nil
}

func (c *stashCache) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	var employees data.Employees

	if err := c.Stasher.Read(keyEmployeesList, &employees); err != nil {
		c.Trace(ctx, "cache miss for employees (%s)", err)
		return nil, ErrEmployeesNotCached
	}
	c.Trace(ctx, "cache hit for employees")
	return employees, nil
}

func (c *stashCache) EmployeesWrite(ctx context.Context, employees ...*data.Employee) error {
	for _, employee := range employees {
		if _, err := c.Stasher.Write(employeeKey(employee.ID), employee); err != nil {
			c.Error(ctx, errorWritingEmployeeCache, employee.ID, err)
			return err
		}
		c.Trace(ctx, "cached employee: %d", employee.ID)
	}
	return nil
}

func (c *stashCache) EmployeesListWrite(ctx context.Context, employees []*data.Employee) error {
	if err := c.EmployeesWrite(ctx, employees...); err != nil {
		return err
	}
	list := data.Employees(employees)
	if _, err := c.Stasher.Write(keyEmployeesList, &list); err != nil {
		c.Error(ctx, "error while writing employees: %s", err)
		return err
	}
	c.Trace(ctx, "cached employees: %d", len(employees))
	return nil
}

func (c *stashCache) EmployeesDelete(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		//KIM: deleting something that isn't stashed isn't interesting
		if err := c.Stasher.Delete(employeeKey(id)); err != nil {
			c.Trace(ctx, "unable to evict employee %d: %s", id, err)
			continue
		}
		c.Trace(ctx, "evicted cached employee: %d", id)
	}
	return c.EmployeesListDelete(ctx)
}

func (c *stashCache) EmployeesListDelete(ctx context.Context) error {
	if err := c.Stasher.Delete(keyEmployeesList); err != nil {
		c.Trace(ctx, "unable to evict employees: %s", err)
	}
	return nil
}
