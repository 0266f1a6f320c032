package logic

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/cache"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/sql"
	"github.com/antonio-alexander/go-employees/internal/utilities"

	"github.com/cenkalti/backoff/v5"
)

type Logic interface {
	EmployeesRead(ctx context.Context) ([]*data.Employee, error)
	EmployeeRead(ctx context.Context, id int64) (*data.Employee, error)
	EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (int64, error)
	EmployeeUpdate(ctx context.Context, id int64, column data.Column, value string) error
	EmployeeDelete(ctx context.Context, id int64) error
}

type logic struct {
	sync.RWMutex
	sql     sql.Sql
	cache   cache.Cache
	counter utilities.Counter
	//KIM: generation is bumped on every invalidation, a read-through
	// only writes back what it read if no invalidation happened since
	cacheMu    sync.Mutex
	generation uint64
	config     struct {
		cacheEnabled    bool
		mutateDisabled  bool
		maxRetries      uint
		retryInterval   time.Duration
		retryExpBackoff bool
	}
	utilities.Logger
}

// NewLogic reads through the cache (when one is provided and enabled)
// and invalidates it on every mutation; the sql parameter is required
func NewLogic(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Logic
} {
	l := &logic{
		counter: utilities.NewCounter(),
		Logger:  utilities.NewNopLogger(),
	}
	l.config.retryInterval = time.Second
	for _, parameter := range parameters {
		switch v := parameter.(type) {
		case sql.Sql:
			l.sql = v
		case cache.Cache:
			l.cache = v
		case utilities.Counter:
			l.counter = v
		}
	}
	//KIM: sql and cache implementations embed a logger, so loggers
	// are matched separately to avoid picking one of them up
	for _, parameter := range parameters {
		switch v := parameter.(type) {
		case sql.Sql, cache.Cache:
		case utilities.Logger:
			l.Logger = v
		}
	}
	return l
}

func (l *logic) Configure(envs map[string]string) error {
	l.Lock()
	defer l.Unlock()

	if cacheEnabled, ok := envs["LOGIC_CACHE_ENABLED"]; ok {
		l.config.cacheEnabled, _ = strconv.ParseBool(cacheEnabled)
	}
	if mutateDisabled, ok := envs["LOGIC_MUTATE_DISABLED"]; ok {
		l.config.mutateDisabled, _ = strconv.ParseBool(mutateDisabled)
	}
	if maxRetries, ok := envs["CACHE_MAX_RETRIES"]; ok {
		i, _ := strconv.ParseUint(maxRetries, 10, 32)
		l.config.maxRetries = uint(i)
	}
	if retryInterval, ok := envs["CACHE_RETRY_INTERVAL"]; ok {
		if i, _ := strconv.Atoi(retryInterval); i > 0 {
			l.config.retryInterval = time.Duration(i) * time.Second
		}
	}
	if retryExpBackoff, ok := envs["CACHE_RETRY_EXP_BACKOFF"]; ok {
		l.config.retryExpBackoff, _ = strconv.ParseBool(retryExpBackoff)
	}
	return nil
}

func (l *logic) Open(ctx context.Context) error {
	l.Lock()
	defer l.Unlock()

	if l.sql == nil {
		return errors.New("sql not provided")
	}
	if l.config.cacheEnabled {
		if l.cache == nil {
			l.Info(ctx, "cache enabled but not provided, reading from sql only")
			l.config.cacheEnabled = false
			return nil
		}
		l.Info(ctx, "cache enabled")
	}
	return nil
}

func (l *logic) Close(ctx context.Context) error {
	return nil
}

func isNotCached(err error) bool {
	return errors.Is(err, cache.ErrEmployeeNotCached) ||
		errors.Is(err, cache.ErrEmployeesNotCached)
}

// cacheDo executes fx, retrying on failure when configured to; a cache
// miss is never retried
func (l *logic) cacheDo(ctx context.Context, fx func() error) error {
	var b backoff.BackOff

	if l.config.maxRetries == 0 {
		return fx()
	}
	switch {
	default:
		b = backoff.NewConstantBackOff(l.config.retryInterval)
	case l.config.retryExpBackoff:
		exponential := backoff.NewExponentialBackOff()
		exponential.InitialInterval = l.config.retryInterval
		b = exponential
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := fx(); err != nil {
			if isNotCached(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(l.config.maxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			l.Debug(ctx, "cache operation failed, retrying in %v: %s", next, err)
		}))
	return err
}

func (l *logic) cacheEnabled() bool {
	l.RLock()
	defer l.RUnlock()

	return l.config.cacheEnabled && l.cache != nil
}

func (l *logic) mutateDisabled() bool {
	l.RLock()
	defer l.RUnlock()

	return l.config.mutateDisabled
}

// cacheGeneration returns the generation a read-through must present to
// cacheWrite
func (l *logic) cacheGeneration() uint64 {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()

	return l.generation
}

// cacheWrite executes fx only if the cache hasn't been invalidated since
// generation was read; an invalidation can't interleave with fx
func (l *logic) cacheWrite(ctx context.Context, generation uint64, fx func() error) error {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()

	if l.generation != generation {
		l.Debug(ctx, "cache invalidated during read, skipping write")
		return nil
	}
	return l.cacheDo(ctx, fx)
}

func (l *logic) cacheInvalidate(ctx context.Context, fx func() error) error {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()

	l.generation++
	return l.cacheDo(ctx, fx)
}

func (l *logic) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	var generation uint64

	cacheEnabled := l.cacheEnabled()
	if cacheEnabled {
		var employees []*data.Employee

		err := l.cacheDo(ctx, func() (err error) {
			employees, err = l.cache.EmployeesRead(ctx)
			return
		})
		if err == nil {
			l.counter.IncrementHit(data.CounterKeyEmployees)
			return employees, nil
		}
		l.counter.IncrementMiss(data.CounterKeyEmployees)
		if !isNotCached(err) {
			l.Error(ctx, "error while reading employees from cache: %s", err)
		}
		generation = l.cacheGeneration()
	}
	employees, err := l.sql.EmployeesRead(ctx)
	if err != nil {
		return nil, err
	}
	if cacheEnabled {
		if err := l.cacheWrite(ctx, generation, func() error {
			return l.cache.EmployeesListWrite(ctx, employees)
		}); err != nil {
			l.Error(ctx, "error while writing employees to cache: %s", err)
		}
	}
	return employees, nil
}

func (l *logic) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	var generation uint64

	cacheEnabled := l.cacheEnabled()
	if cacheEnabled {
		var employee *data.Employee

		err := l.cacheDo(ctx, func() (err error) {
			employee, err = l.cache.EmployeeRead(ctx, id)
			return
		})
		if err == nil {
			l.counter.IncrementHit(data.CounterKeyEmployee(id))
			return employee, nil
		}
		l.counter.IncrementMiss(data.CounterKeyEmployee(id))
		if !isNotCached(err) {
			l.Error(ctx, "error while reading employee (%d) from cache: %s", id, err)
		}
		generation = l.cacheGeneration()
	}
	employee, err := l.sql.EmployeeRead(ctx, id)
	if err != nil {
		return nil, err
	}
	if cacheEnabled {
		if err := l.cacheWrite(ctx, generation, func() error {
			return l.cache.EmployeesWrite(ctx, employee)
		}); err != nil {
			l.Error(ctx, "error while writing employee (%d) to cache: %s", id, err)
		}
	}
	return employee, nil
}

func (l *logic) EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (int64, error) {
	if l.mutateDisabled() {
		return -1, data.ErrMutationDisabled
	}
	id, err := l.sql.EmployeeCreate(ctx, employeePartial)
	if err != nil {
		return -1, err
	}
	if l.cacheEnabled() {
		if err := l.cacheInvalidate(ctx, func() error {
			return l.cache.EmployeesListDelete(ctx)
		}); err != nil {
			l.Error(ctx, "error while invalidating employees in cache: %s", err)
		}
	}
	return id, nil
}

func (l *logic) EmployeeUpdate(ctx context.Context, id int64, column data.Column, value string) error {
	if l.mutateDisabled() {
		return data.ErrMutationDisabled
	}
	if err := l.sql.EmployeeUpdate(ctx, id, column, value); err != nil {
		return err
	}
	l.evict(ctx, id)
	return nil
}

func (l *logic) EmployeeDelete(ctx context.Context, id int64) error {
	if l.mutateDisabled() {
		return data.ErrMutationDisabled
	}
	if err := l.sql.EmployeeDelete(ctx, id); err != nil {
		return err
	}
	l.evict(ctx, id)
	return nil
}

func (l *logic) evict(ctx context.Context, id int64) {
	if !l.cacheEnabled() {
		return
	}
	if err := l.cacheInvalidate(ctx, func() error {
		return l.cache.EmployeesDelete(ctx, id)
	}); err != nil {
		l.Error(ctx, "error while deleting employee (%d) from cache: %s", id, err)
	}
}
