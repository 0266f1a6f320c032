package client_test

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/cache"
	"github.com/antonio-alexander/go-employees/internal/client"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/logic"
	"github.com/antonio-alexander/go-employees/internal/service"
	"github.com/antonio-alexander/go-employees/internal/sql"
	"github.com/antonio-alexander/go-employees/internal/utilities"

	"github.com/stretchr/testify/assert"
)

var envs = map[string]string{
	//sql
	"DATABASE_DRIVER":        "sqlite3",
	"DATABASE_QUERY_TIMEOUT": "10",

	//cache
	"REDIS_PORT":    "6379",
	"REDIS_TIMEOUT": "10",

	//logic
	"LOGIC_CACHE_ENABLED": "true",

	//client
	"CLIENT_PROTOCOL": "http",
	"CLIENT_TIMEOUT":  "10",
	"SSL_CA_FILE":     "",
	"SSL_KEY_FILE":    "",
	"SSL_CRT_FILE":    "",
}

func init() {
	envs = internal.Envs(envs, os.Environ())
}

type clientTest struct {
	sql interface {
		internal.Configurer
		internal.Opener
	}
	cache interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
		cache.Cache
	}
	logic interface {
		internal.Configurer
		internal.Opener
	}
	client interface {
		internal.Configurer
		internal.Opener
	}
	server *httptest.Server
	client.Client
}

func newClientTest(cacheType string) *clientTest {
	var c interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
		cache.Cache
	}

	switch cacheType {
	default:
		c = cache.NewMemory()
	case "redis":
		c = cache.NewRedis()
	}
	counter := utilities.NewCounter()
	sql := sql.NewSql()
	logic := logic.NewLogic(sql, c, counter)
	client := client.NewClient()
	return &clientTest{
		sql:    sql,
		cache:  c,
		logic:  logic,
		client: client,
		server: httptest.NewUnstartedServer(service.NewService(logic, c, counter)),
		Client: client,
	}
}

func (c *clientTest) Configure(envs map[string]string) error {
	if err := c.sql.Configure(envs); err != nil {
		return err
	}
	if err := c.cache.Configure(envs); err != nil {
		return err
	}
	if err := c.logic.Configure(envs); err != nil {
		return err
	}
	if err := c.client.Configure(envs); err != nil {
		return err
	}
	return nil
}

func (c *clientTest) Open(ctx context.Context) error {
	if err := c.sql.Open(ctx); err != nil {
		return err
	}
	if err := c.cache.Open(ctx); err != nil {
		return err
	}
	if err := c.logic.Open(ctx); err != nil {
		return err
	}
	c.server.Start()
	u, err := url.Parse(c.server.URL)
	if err != nil {
		return err
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return err
	}
	if err := c.client.Configure(map[string]string{
		"CLIENT_ADDRESS": host,
		"CLIENT_PORT":    port,
	}); err != nil {
		return err
	}
	return c.client.Open(ctx)
}

func (c *clientTest) Close(ctx context.Context) error {
	if err := c.client.Close(ctx); err != nil {
		return err
	}
	c.server.Close()
	if err := c.logic.Close(ctx); err != nil {
		return err
	}
	if err := c.cache.Close(ctx); err != nil {
		return err
	}
	return c.sql.Close(ctx)
}

func (c *clientTest) create(t *testing.T, name, department string) *data.Employee {
	ctx := context.TODO()
	err := c.EmployeeCreate(ctx, data.EmployeePartial{
		Name:       &name,
		Department: &department,
	})
	if !assert.Nil(t, err) {
		t.FailNow()
	}
	employees, err := c.EmployeesRead(ctx)
	assert.Nil(t, err)
	var found []*data.Employee
	for _, employee := range employees {
		if employee.Name == name && employee.Department == department {
			found = append(found, employee)
		}
	}
	if !assert.Len(t, found, 1) {
		t.FailNow()
	}
	return found[0]
}

func (c *clientTest) TestClient(t *testing.T) {
	ctx := internal.CtxWithCorrelationId(context.TODO(), internal.GenerateId())

	// create then list, then get
	name, department := internal.GenerateId()[:8], "Eng"
	employeeCreated := c.create(t, name, department)
	assert.NotZero(t, employeeCreated.ID)
	employeeRead, err := c.EmployeeRead(ctx, employeeCreated.ID)
	assert.Nil(t, err)
	assert.Equal(t, employeeCreated, employeeRead)

	// update only changes name, and is visible with the cache populated
	err = c.EmployeeUpdate(ctx, employeeCreated.ID, data.ColumnName.String(), "Bob")
	assert.Nil(t, err)
	employeeRead, err = c.EmployeeRead(ctx, employeeCreated.ID)
	assert.Nil(t, err)
	assert.Equal(t, &data.Employee{
		ID:         employeeCreated.ID,
		Name:       "Bob",
		Department: department,
	}, employeeRead)

	// values are escaped on the way out
	err = c.EmployeeUpdate(ctx, employeeCreated.ID, data.ColumnDepartment.String(), "a/b c")
	assert.Nil(t, err)
	employeeRead, err = c.EmployeeRead(ctx, employeeCreated.ID)
	assert.Nil(t, err)
	assert.Equal(t, "a/b c", employeeRead.Department)

	// invalid column leaves the row unchanged
	err = c.EmployeeUpdate(ctx, employeeCreated.ID, "salary", "100")
	assert.True(t, errors.Is(err, data.ErrInvalidColumn))
	employeeRead, err = c.EmployeeRead(ctx, employeeCreated.ID)
	assert.Nil(t, err)
	assert.Equal(t, "Bob", employeeRead.Name)
	assert.Equal(t, "a/b c", employeeRead.Department)

	// delete is visible on the next read
	err = c.EmployeeDelete(ctx, employeeCreated.ID)
	assert.Nil(t, err)
	_, err = c.EmployeeRead(ctx, employeeCreated.ID)
	assert.True(t, errors.Is(err, data.ErrEmployeeNotFound))

	// deleting again still succeeds
	err = c.EmployeeDelete(ctx, employeeCreated.ID)
	assert.Nil(t, err)
}

func (c *clientTest) TestErrors(t *testing.T) {
	ctx := context.TODO()

	_, err := c.EmployeeRead(ctx, 987654321)
	assert.True(t, errors.Is(err, data.ErrEmployeeNotFound))

	name := "Alice"
	err = c.EmployeeCreate(ctx, data.EmployeePartial{Name: &name})
	assert.True(t, errors.Is(err, data.ErrMalformedRequest))
}

func (c *clientTest) TestIdStability(t *testing.T) {
	const n = 8
	ctx := context.TODO()

	employees := make([]*data.Employee, 0, n)
	for i := 0; i < n; i++ {
		employees = append(employees, c.create(t, internal.GenerateId()[:8], "Ops"))
	}
	var wg sync.WaitGroup
	for i, employee := range employees {
		wg.Add(1)
		go func(i int, employee *data.Employee) {
			defer wg.Done()

			switch i % 2 {
			case 0:
				assert.Nil(t, c.EmployeeDelete(ctx, employee.ID))
			default:
				assert.Nil(t, c.EmployeeUpdate(ctx, employee.ID,
					data.ColumnDepartment.String(), "Eng"))
			}
		}(i, employee)
	}
	wg.Wait()
	for i, employee := range employees {
		employeeRead, err := c.EmployeeRead(ctx, employee.ID)
		switch i % 2 {
		case 0:
			assert.True(t, errors.Is(err, data.ErrEmployeeNotFound))
		default:
			assert.Nil(t, err)
			assert.Equal(t, &data.Employee{
				ID:         employee.ID,
				Name:       employee.Name,
				Department: "Eng",
			}, employeeRead)
		}
	}
}

func (c *clientTest) TestAdmin(t *testing.T) {
	ctx := context.TODO()

	employee := c.create(t, internal.GenerateId()[:8], "Eng")
	assert.Nil(t, c.CacheClear(ctx))
	assert.Nil(t, c.CacheCountersClear(ctx))
	_, err := c.EmployeeRead(ctx, employee.ID)
	assert.Nil(t, err)
	cacheCounters, err := c.CacheCountersRead(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 1, cacheCounters.CounterMisses[data.CounterKeyEmployee(employee.ID)])
	_, err = c.TimersRead(ctx)
	assert.Nil(t, err)
	assert.Nil(t, c.TimersClear(ctx))
}

func testClient(t *testing.T, cacheType string) {
	c := newClientTest(cacheType)
	envs := copyEnvs(map[string]string{
		"DATABASE_FILE": filepath.Join(t.TempDir(), "data.db"),
	})

	ctx := context.TODO()
	err := c.Configure(envs)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to configure testClient")
	}
	err = c.Open(ctx)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to open testClient")
	}
	defer func() {
		if err := c.Close(ctx); err != nil {
			t.Logf("error while closing testClient: %s", err)
		}
	}()
	if err := c.cache.Clear(ctx); err != nil {
		t.Logf("error while clearing cache: %s", err)
	}
	t.Run("Client", c.TestClient)
	t.Run("Errors", c.TestErrors)
	t.Run("IdStability", c.TestIdStability)
	t.Run("Admin", c.TestAdmin)
}

func copyEnvs(overrides map[string]string) map[string]string {
	c := make(map[string]string, len(envs)+len(overrides))
	for key, value := range envs {
		c[key] = value
	}
	for key, value := range overrides {
		c[key] = value
	}
	return c
}

func TestClientMemory(t *testing.T) {
	testClient(t, "memory")
}

func TestClientRedis(t *testing.T) {
	if envs["REDIS_ADDRESS"] == "" {
		t.Skip("REDIS_ADDRESS not set")
	}
	testClient(t, "redis")
}

func TestClientOpenUnsupportedProtocol(t *testing.T) {
	c := client.NewClient()
	assert.Nil(t, c.Configure(map[string]string{"CLIENT_PROTOCOL": "ftp"}))
	assert.NotNil(t, c.Open(context.TODO()))
}

func TestClientOpenSsl(t *testing.T) {
	for name, envs := range map[string]map[string]string{
		"missing_ca":       {"SSL_CA_FILE": filepath.Join(t.TempDir(), "ca.crt")},
		"crt_without_key":  {"SSL_CRT_FILE": filepath.Join(t.TempDir(), "client.crt")},
		"invalid_ca_bytes": {"SSL_CA_FILE": writeFile(t, "ca.crt", "not a certificate")},
	} {
		t.Run(name, func(t *testing.T) {
			c := client.NewClient()
			assert.Nil(t, c.Configure(envs))
			assert.NotNil(t, c.Open(context.TODO()))
		})
	}
}

func writeFile(t *testing.T, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
