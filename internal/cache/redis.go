package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/utilities"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	sync.RWMutex
	redisClient *redis.Client
	config      struct {
		address  string
		port     string
		password string
		database int
		timeout  time.Duration
	}
	utilities.Logger
}

func NewRedis(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &redisCache{Logger: utilities.NewNopLogger()}
	c.config.address = "localhost"
	c.config.port = "6379"
	c.config.timeout = defaultTimeout
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

func (c *redisCache) Configure(envs map[string]string) error {
	c.Lock()
	defer c.Unlock()

	if redisAddress, ok := envs["REDIS_ADDRESS"]; ok && redisAddress != "" {
		c.config.address = redisAddress
	}
	if redisPort, ok := envs["REDIS_PORT"]; ok && redisPort != "" {
		c.config.port = redisPort
	}
	if redisPassword, ok := envs["REDIS_PASSWORD"]; ok {
		c.config.password = redisPassword
	}
	if redisDatabase, ok := envs["REDIS_DATABASE"]; ok && redisDatabase != "" {
		i, err := strconv.Atoi(redisDatabase)
		if err != nil {
			return errors.Wrap(err, "REDIS_DATABASE")
		}
		c.config.database = i
	}
	if redisTimeout, ok := envs["REDIS_TIMEOUT"]; ok {
		if i, _ := strconv.ParseInt(redisTimeout, 10, 64); i > 0 {
			c.config.timeout = time.Duration(i) * time.Second
		}
	}
	return nil
}

func (c *redisCache) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(c.config.address, c.config.port),
		Password: c.config.password,
		DB:       c.config.database,
	})
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return err
	}
	c.redisClient = redisClient
	return nil
}

func (c *redisCache) Close(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.redisClient == nil {
		return nil
	}
	if err := c.redisClient.Close(); err != nil {
		c.Error(ctx, "error while shutting down redis client: %s", err)
	}
	c.redisClient = nil
	return nil
}

func (c *redisCache) Clear(ctx context.Context) error {
	c.RLock()
	defer c.RUnlock()

	if c.redisClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	if _, err := c.redisClient.Del(ctx, keyEmployees, keyEmployeesList).Result(); err != nil {
		return err
	}
	return nil
}

func (c *redisCache) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	value, err := c.redisClient.HGet(ctx, keyEmployees, fmt.Sprint(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmployeeNotCached
		}
		return nil, err
	}
	employee := &data.Employee{}
	if err := employee.UnmarshalBinary([]byte(value)); err != nil {
		return nil, err
	}
	return employee, nil
}

func (c *redisCache) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	var employees data.Employees

	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	value, err := c.redisClient.Get(ctx, keyEmployeesList).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmployeesNotCached
		}
		return nil, err
	}
	if err := employees.UnmarshalBinary([]byte(value)); err != nil {
		return nil, err
	}
	return employees, nil
}

func (c *redisCache) EmployeesWrite(ctx context.Context, employees ...*data.Employee) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	values := make([]any, 0, 2*len(employees))
	for _, employee := range employees {
		bytes, err := employee.MarshalBinary()
		if err != nil {
			return err
		}
		values = append(values, fmt.Sprint(employee.ID), string(bytes))
	}
	if len(values) == 0 {
		return nil
	}
	if _, err := c.redisClient.HSet(ctx, keyEmployees, values...).Result(); err != nil {
		return err
	}
	return nil
}

func (c *redisCache) EmployeesListWrite(ctx context.Context, employees []*data.Employee) error {
	list := data.Employees(employees)
	bytes, err := list.MarshalBinary()
	if err != nil {
		return err
	}
	if err := c.EmployeesWrite(ctx, employees...); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	if _, err := c.redisClient.Set(ctx, keyEmployeesList, string(bytes), 0).Result(); err != nil {
		return err
	}
	return nil
}

func (c *redisCache) EmployeesDelete(ctx context.Context, ids ...int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	if len(ids) > 0 {
		fields := make([]string, 0, len(ids))
		for _, id := range ids {
			fields = append(fields, fmt.Sprint(id))
		}
		if _, err := c.redisClient.HDel(ctx, keyEmployees, fields...).Result(); err != nil {
			return err
		}
	}
	if _, err := c.redisClient.Del(ctx, keyEmployeesList).Result(); err != nil {
		return err
	}
	return nil
}

func (c *redisCache) EmployeesListDelete(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	if _, err := c.redisClient.Del(ctx, keyEmployeesList).Result(); err != nil {
		return err
	}
	return nil
}
