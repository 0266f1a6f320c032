package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/utilities"

	"github.com/pkg/errors"
)

const (
	defaultProtocol string = "http"
	defaultAddress  string = "localhost"
	defaultPort     string = "8000"
	defaultTimeout  int64  = 10
)

type Client interface {
	EmployeesRead(ctx context.Context) ([]*data.Employee, error)
	EmployeeRead(ctx context.Context, id int64) (*data.Employee, error)
	EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) error
	EmployeeUpdate(ctx context.Context, id int64, column, value string) error
	EmployeeDelete(ctx context.Context, id int64) error
	CacheClear(ctx context.Context) error
	CacheCountersRead(ctx context.Context) (*data.CacheCounters, error)
	CacheCountersClear(ctx context.Context) error
	TimersRead(ctx context.Context) (*data.Timers, error)
	TimersClear(ctx context.Context) error
}

type client struct {
	sync.RWMutex
	config struct {
		protocol   string
		address    string
		port       string
		timeout    int64
		sslCaFile  string
		sslCrtFile string
		sslKeyFile string
	}
	address string
	utilities.Logger
	*http.Client
}

func NewClient(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Client
} {
	c := &client{
		Client: &http.Client{},
		Logger: utilities.NewNopLogger(),
	}
	c.config.protocol = defaultProtocol
	c.config.address = defaultAddress
	c.config.port = defaultPort
	c.config.timeout = defaultTimeout
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

// statusToError converts a non-success response back into the error
// the service started with
func statusToError(statusCode int, body []byte) error {
	var e data.Error

	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return errors.Errorf("status code: %d; %s", statusCode, string(body))
	}
	switch statusCode {
	default:
		return errors.Errorf("status code: %d; %s", statusCode, e.Error)
	case http.StatusNotFound:
		return wrapSentinel(data.ErrEmployeeNotFound, e.Error)
	case http.StatusBadRequest:
		return wrapSentinel(data.ErrInvalidColumn, e.Error)
	case http.StatusForbidden:
		return wrapSentinel(data.ErrMutationDisabled, e.Error)
	case http.StatusMethodNotAllowed:
		return wrapSentinel(data.ErrMethodNotAllowed, e.Error)
	case http.StatusUnprocessableEntity:
		if strings.Contains(e.Error, data.ErrInvalidEmployeeID.Error()) {
			return wrapSentinel(data.ErrInvalidEmployeeID, e.Error)
		}
		return wrapSentinel(data.ErrMalformedRequest, e.Error)
	}
}

func wrapSentinel(sentinel error, message string) error {
	if message == sentinel.Error() {
		return sentinel
	}
	return errors.Wrap(sentinel, strings.TrimSuffix(message, ": "+sentinel.Error()))
}

func (c *client) doRequest(ctx context.Context, uri, method string, input any, v ...any) error {
	_, err := internal.DoRequest(ctx, c.Client, uri, method, input, v...)
	if err != nil {
		var statusError *internal.StatusError

		if errors.As(err, &statusError) {
			err = statusToError(statusError.StatusCode, []byte(statusError.Body))
		}
		c.Debug(ctx, "%s %s: %s", method, uri, err)
		return err
	}
	return nil
}

func (c *client) Configure(envs map[string]string) error {
	c.Lock()
	defer c.Unlock()

	if address := envs["CLIENT_ADDRESS"]; address != "" {
		c.config.address = address
	}
	if port := envs["CLIENT_PORT"]; port != "" {
		c.config.port = port
	}
	if protocol := envs["CLIENT_PROTOCOL"]; protocol != "" {
		c.config.protocol = protocol
	}
	if timeout := envs["CLIENT_TIMEOUT"]; timeout != "" {
		i, err := strconv.ParseInt(timeout, 10, 64)
		if err != nil {
			return errors.Wrap(err, "CLIENT_TIMEOUT")
		}
		c.config.timeout = i
	}
	if sslCaFile, ok := envs["SSL_CA_FILE"]; ok {
		c.config.sslCaFile = sslCaFile
	}
	if sslKeyFile, ok := envs["SSL_KEY_FILE"]; ok {
		c.config.sslKeyFile = sslKeyFile
	}
	if sslCrtFile, ok := envs["SSL_CRT_FILE"]; ok {
		c.config.sslCrtFile = sslCrtFile
	}
	return nil
}

func (c *client) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	switch c.config.protocol {
	default:
		return errors.Errorf("unsupported protocol: %s", c.config.protocol)
	case "http", "https":
		c.address = fmt.Sprintf("%s://%s", c.config.protocol,
			net.JoinHostPort(c.config.address, c.config.port))
	}
	c.Client.Timeout = time.Duration(c.config.timeout) * time.Second
	transport, err := newTransport(c.config.sslCaFile, c.config.sslCrtFile,
		c.config.sslKeyFile)
	if err != nil {
		return err
	}
	c.Client.Transport = transport
	c.Debug(ctx, "client configured for %s", c.address)
	return nil
}

func (c *client) Close(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.Client.CloseIdleConnections()
	return nil
}

func (c *client) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	var employees []*data.Employee

	if err := c.doRequest(ctx, c.address+data.RouteEmployees, http.MethodGet, nil, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

func (c *client) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	employee := &data.Employee{}
	uri := fmt.Sprintf(c.address+data.RouteEmployeesEmployeeIDf, id)
	if err := c.doRequest(ctx, uri, http.MethodGet, nil, employee); err != nil {
		return nil, err
	}
	return employee, nil
}

func (c *client) EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) error {
	return c.doRequest(ctx, c.address+data.RouteEmployees, http.MethodPost, &employeePartial)
}

// EmployeeUpdate sends column as is, an unknown column is rejected by
// the service with data.ErrInvalidColumn
func (c *client) EmployeeUpdate(ctx context.Context, id int64, column, value string) error {
	uri := fmt.Sprintf(c.address+data.RouteEmployeesEmployeeIDColumnf, id,
		url.PathEscape(column), url.PathEscape(value))
	return c.doRequest(ctx, uri, http.MethodPut, nil)
}

func (c *client) EmployeeDelete(ctx context.Context, id int64) error {
	uri := fmt.Sprintf(c.address+data.RouteEmployeesEmployeeIDf, id)
	return c.doRequest(ctx, uri, http.MethodDelete, nil)
}

func (c *client) CacheClear(ctx context.Context) error {
	return c.doRequest(ctx, c.address+data.RouteCache, http.MethodDelete, nil)
}

func (c *client) CacheCountersRead(ctx context.Context) (*data.CacheCounters, error) {
	response := &data.CacheCounters{}
	if err := c.doRequest(ctx, c.address+data.RouteCacheCounters, http.MethodGet, nil, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *client) CacheCountersClear(ctx context.Context) error {
	return c.doRequest(ctx, c.address+data.RouteCacheCounters, http.MethodDelete, nil)
}

func (c *client) TimersRead(ctx context.Context) (*data.Timers, error) {
	response := &data.Timers{}
	if err := c.doRequest(ctx, c.address+data.RouteTimers, http.MethodGet, nil, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *client) TimersClear(ctx context.Context) error {
	return c.doRequest(ctx, c.address+data.RouteTimers, http.MethodDelete, nil)
}
