package cache_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/cache"
	"github.com/antonio-alexander/go-employees/internal/data"

	"github.com/antonio-alexander/go-stash/memory"
	"github.com/stretchr/testify/assert"
)

var envs = map[string]string{
	"REDIS_ADDRESS": "localhost",
	"REDIS_PORT":    "6379",
	"REDIS_TIMEOUT": "10",
}

func init() {
	envs = internal.Envs(envs, os.Environ())
}

type cacheTest struct {
	cache interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
	}
	cache.Cache
}

func newCacheTest(cacheType string) *cacheTest {
	var c interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
		cache.Cache
	}

	switch cacheType {
	case "memory":
		c = cache.NewMemory()
	case "redis":
		c = cache.NewRedis()
	case "stash-memory":
		c = cache.NewStash(memory.New())
	}
	return &cacheTest{
		cache: c,
		Cache: c,
	}
}

func (c *cacheTest) TestCache(t *testing.T) {
	//create employees
	employees := []*data.Employee{
		{ID: 1, Name: internal.GenerateId(), Department: internal.GenerateId()},
		{ID: 2, Name: internal.GenerateId(), Department: internal.GenerateId()},
		{ID: 3, Name: internal.GenerateId(), Department: internal.GenerateId()},
		{ID: 4, Name: internal.GenerateId(), Department: internal.GenerateId()},
		{ID: 5, Name: internal.GenerateId(), Department: internal.GenerateId()},
	}

	//create context
	ctx := context.TODO()

	//clear cache
	err := c.cache.Clear(ctx)
	assert.Nil(t, err)

	// read employees before they're cached
	_, err = c.EmployeesRead(ctx)
	assert.True(t, errors.Is(err, cache.ErrEmployeesNotCached))
	_, err = c.EmployeeRead(ctx, employees[0].ID)
	assert.True(t, errors.Is(err, cache.ErrEmployeeNotCached))

	// write employees
	err = c.EmployeesWrite(ctx, employees...)
	assert.Nil(t, err)

	// read employee[0]
	employeeRead, err := c.EmployeeRead(ctx, employees[0].ID)
	assert.Nil(t, err)
	assert.Equal(t, employees[0], employeeRead)

	// read employee[1]
	employeeRead, err = c.EmployeeRead(ctx, employees[1].ID)
	assert.Nil(t, err)
	assert.Equal(t, employees[1], employeeRead)

	// writing employees individually doesn't cache the list
	_, err = c.EmployeesRead(ctx)
	assert.NotNil(t, err)

	// write list
	err = c.EmployeesListWrite(ctx, employees)
	assert.Nil(t, err)

	// read employees
	employeesRead, err := c.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.Equal(t, len(employees), len(employeesRead))
	for _, employee := range employees {
		assert.Contains(t, employeesRead, employee)
	}

	// invalidate the list
	err = c.EmployeesListDelete(ctx)
	assert.Nil(t, err)
	_, err = c.EmployeesRead(ctx)
	assert.NotNil(t, err)
	employeeRead, err = c.EmployeeRead(ctx, employees[2].ID)
	assert.Nil(t, err)
	assert.Equal(t, employees[2], employeeRead)

	// delete employee [1], this also invalidates the list
	err = c.EmployeesListWrite(ctx, employees)
	assert.Nil(t, err)
	err = c.EmployeesDelete(ctx, employees[1].ID)
	assert.Nil(t, err)
	_, err = c.EmployeesRead(ctx)
	assert.NotNil(t, err)

	//  attempt to read employee [1]
	employeeRead, err = c.EmployeeRead(ctx, employees[1].ID)
	assert.NotNil(t, err)
	assert.Nil(t, employeeRead)

	// an empty list can be cached
	err = c.EmployeesListWrite(ctx, []*data.Employee{})
	assert.Nil(t, err)
	employeesRead, err = c.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.Empty(t, employeesRead)

	// clear the cache
	err = c.cache.Clear(ctx)
	assert.Nil(t, err)
	_, err = c.EmployeeRead(ctx, employees[0].ID)
	assert.NotNil(t, err)
}

func (c *cacheTest) TestCopy(t *testing.T) {
	ctx := context.TODO()

	employee := &data.Employee{ID: 6, Name: "Alice", Department: "Eng"}
	err := c.EmployeesWrite(ctx, employee)
	assert.Nil(t, err)
	employee.Name = "Bob"
	employeeRead, err := c.EmployeeRead(ctx, 6)
	assert.Nil(t, err)
	if assert.NotNil(t, employeeRead) {
		assert.Equal(t, "Alice", employeeRead.Name)
	}
}

func testCache(t *testing.T, cacheType string) {
	c := newCacheTest(cacheType)

	ctx := context.TODO()
	err := c.cache.Configure(envs)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to configure cache")
	}
	err = c.cache.Open(ctx)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to open cache")
	}
	defer func() {
		if err := c.cache.Close(ctx); err != nil {
			t.Logf("error while closing cache: %s", err)
		}
	}()
	t.Run("Cache", c.TestCache)
	t.Run("Copy", c.TestCopy)
}

func TestCacheMemory(t *testing.T) {
	testCache(t, "memory")
}

func TestCacheStashMemory(t *testing.T) {
	testCache(t, "stash-memory")
}

func TestCacheStashClearUnopened(t *testing.T) {
	ctx := context.TODO()

	assert.Nil(t, cache.NewStash().Clear(ctx))
	assert.Nil(t, cache.NewRedis().Clear(ctx))
}

func TestCacheRedis(t *testing.T) {
	if _, ok := os.LookupEnv("REDIS_ADDRESS"); !ok {
		t.Skip("REDIS_ADDRESS not set, skipping redis")
	}
	testCache(t, "redis")
}

func TestCacheRedisConfigureDatabase(t *testing.T) {
	err := cache.NewRedis().Configure(map[string]string{"REDIS_DATABASE": "zero"})
	if assert.NotNil(t, err) {
		assert.Contains(t, err.Error(), "REDIS_DATABASE")
	}
}
