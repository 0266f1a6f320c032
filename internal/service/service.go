package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/logic"
	"github.com/antonio-alexander/go-employees/internal/utilities"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

const (
	defaultPort            string        = "8000"
	defaultShutdownTimeout time.Duration = 10 * time.Second
)

var (
	Version   string
	GitCommit string
	GitBranch string
)

func init() {
	if Version = data.Version; Version == "" {
		Version = "<no_version_provided>"
	}
	if GitCommit = data.GitCommit; GitCommit == "" {
		GitCommit = "<no_git_commit>"
	}
	if GitBranch = data.GitBranch; GitBranch == "" {
		GitBranch = "<no_git_branch>"
	}
}

type service struct {
	sync.RWMutex
	sync.WaitGroup
	config struct {
		address          string
		port             string
		shutdownTimeout  time.Duration
		allowedOrigins   []string
		allowedMethods   []string
		allowedHeaders   []string
		allowCredentials bool
		corsDisabled     bool
		corsDebug        bool
		timersEnabled    bool
	}
	ctx    context.Context
	cancel context.CancelFunc
	opened bool
	*mux.Router
	server *http.Server
	cache  internal.Clearer
	utilities.Logger
	utilities.Counter
	utilities.Timers
	logic.Logic
}

// NewService builds the router for the employees api; the returned value
// is also an http.Handler so it can be served without calling Open
func NewService(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	http.Handler
} {
	router := mux.NewRouter().UseEncodedPath()
	s := &service{
		Router:  router,
		server:  &http.Server{Handler: router},
		Logger:  utilities.NewNopLogger(),
		Counter: utilities.NewCounter(),
		Timers:  utilities.NewTimers(),
	}
	s.config.port = defaultPort
	s.config.shutdownTimeout = defaultShutdownTimeout
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case logic.Logic:
			s.Logic = p
		case internal.Clearer:
			s.cache = p
		case utilities.Counter:
			s.Counter = p
		case utilities.Timers:
			s.Timers = p
		}
	}
	//KIM: logic and the caches embed a logger, so loggers are
	// matched separately to avoid picking one of them up
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case logic.Logic, internal.Clearer:
		case utilities.Logger:
			s.Logger = p
		}
	}
	s.buildRoutes()
	return s
}

func (s *service) launchServer() error {
	started := make(chan struct{})
	chErr := make(chan error, 1)
	s.Add(1)
	go func() {
		defer s.WaitGroup.Done()
		defer close(chErr)

		if !s.config.corsDisabled {
			s.server.Handler = cors.New(cors.Options{
				AllowedOrigins:   s.config.allowedOrigins,
				AllowCredentials: s.config.allowCredentials,
				AllowedMethods:   s.config.allowedMethods,
				AllowedHeaders:   s.config.allowedHeaders,
				Debug:            s.config.corsDebug,
			}).Handler(s.Router)
		}
		close(started)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			chErr <- err
		}
	}()
	<-started
	select {
	case err := <-chErr:
		//KIM: here we're accounting for a situation where the server closes unexexpectedly
		// but quickly (within a second of starting); this allows us to respond to errors such as
		// the port being already used
		return err
	case <-time.After(time.Second):
		s.Info(s.ctx, "started server: %s", s.server.Addr)
		return nil
	}
}

func (s *service) startTimer(ctx context.Context, group string) func() {
	if !s.config.timersEnabled {
		return func() {}
	}
	stop := s.Timers.Start(group)
	return func() {
		s.Trace(ctx, "%s took %v", group, stop())
	}
}

func (s *service) endpointDefault(writer http.ResponseWriter, request *http.Request) {
	fmt.Fprintf(writer,
		"go-employees\n"+
			"Version: \"%s\"\n"+
			"Git Commit: \"%s\"\n"+
			"Git Branch: \"%s\"\n",
		Version, GitCommit, GitBranch)
}

func (s *service) endpointEmployeesRead(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxWithCorrelationId(request.Context(),
		getCorrelationId(request))
	defer s.startTimer(ctx, "employees_read")()
	employees, err := s.EmployeesRead(ctx)
	if err != nil {
		s.Error(ctx, "error while reading employees: %s", err)
		handleResponse(writer, err)
		return
	}
	if employees == nil {
		employees = []*data.Employee{}
	}
	handleResponse(writer, nil, employees)
	s.Trace(ctx, "executed employees_read: %d", len(employees))
}

func (s *service) endpointEmployeeRead(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxWithCorrelationId(request.Context(),
		getCorrelationId(request))
	defer s.startTimer(ctx, "employee_read")()
	id, err := employeeIDFromPath(mux.Vars(request))
	if err != nil {
		handleResponse(writer, err)
		return
	}
	employee, err := s.EmployeeRead(ctx, id)
	if err != nil {
		handleResponse(writer, err)
		return
	}
	handleResponse(writer, nil, employee)
	s.Trace(ctx, "executed employee_read: %d", id)
}

func (s *service) endpointEmployeeCreate(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxWithCorrelationId(request.Context(),
		getCorrelationId(request))
	defer s.startTimer(ctx, "employee_create")()
	defer request.Body.Close()
	employeePartial, err := employeePartialFromBody(request.Body)
	if err != nil {
		handleResponse(writer, err)
		return
	}
	id, err := s.EmployeeCreate(ctx, employeePartial)
	if err != nil {
		s.Error(ctx, "error while creating employee: %s", err)
		handleResponse(writer, err)
		return
	}
	handleResponse(writer, nil, &data.Message{Message: data.MessageEmployeeAdded})
	s.Trace(ctx, "executed employee_create: %d", id)
}

func (s *service) endpointEmployeeUpdate(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxWithCorrelationId(request.Context(),
		getCorrelationId(request))
	defer s.startTimer(ctx, "employee_update")()
	pathVariables := mux.Vars(request)
	id, err := employeeIDFromPath(pathVariables)
	if err != nil {
		handleResponse(writer, err)
		return
	}
	columnName, err := pathVariable(pathVariables, data.PathColumn)
	if err != nil {
		handleResponse(writer, data.ErrInvalidColumn)
		return
	}
	column, err := data.ParseColumn(columnName)
	if err != nil {
		s.Debug(ctx, "rejected employee_update: %s", err)
		//KIM: the body only ever carries the bare message
		handleResponse(writer, data.ErrInvalidColumn)
		return
	}
	value, err := newValueFromPath(pathVariables)
	if err != nil {
		handleResponse(writer, err)
		return
	}
	if err := s.EmployeeUpdate(ctx, id, column, value); err != nil {
		s.Error(ctx, "error while updating employee %d: %s", id, err)
		handleResponse(writer, err)
		return
	}
	handleResponse(writer, nil, &data.Message{Message: data.MessageEmployeeUpdated(column)})
	s.Trace(ctx, "executed employee_update: %d (%s)", id, column)
}

func (s *service) endpointEmployeeDelete(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxWithCorrelationId(request.Context(),
		getCorrelationId(request))
	defer s.startTimer(ctx, "employee_delete")()
	id, err := employeeIDFromPath(mux.Vars(request))
	if err != nil {
		handleResponse(writer, err)
		return
	}
	if err := s.EmployeeDelete(ctx, id); err != nil {
		s.Error(ctx, "error while deleting employee %d: %s", id, err)
		handleResponse(writer, err)
		return
	}
	handleResponse(writer, nil, &data.Message{Message: data.MessageEmployeeDeleted})
	s.Trace(ctx, "executed employee_delete: %d", id)
}

func (s *service) endpointCacheClear(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxWithCorrelationId(request.Context(),
		getCorrelationId(request))
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.Error(ctx, "error while clearing cache: %s", err)
			handleResponse(writer, err)
			return
		}
		s.Trace(ctx, "executed cache_clear")
	}
	handleResponse(writer, nil)
}

func (s *service) endpointCacheCountersRead(writer http.ResponseWriter, _ *http.Request) {
	handleResponse(writer, nil, s.Counter.ReadAll())
}

func (s *service) endpointCacheCountersClear(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxWithCorrelationId(request.Context(),
		getCorrelationId(request))
	s.Counter.Reset()
	handleResponse(writer, nil)
	s.Trace(ctx, "executed cache_counters_clear")
}

func (s *service) endpointTimersRead(writer http.ResponseWriter, _ *http.Request) {
	handleResponse(writer, nil, s.Timers.ReadAll())
}

func (s *service) endpointTimersClear(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxWithCorrelationId(request.Context(),
		getCorrelationId(request))
	s.Timers.Clear()
	handleResponse(writer, nil)
	s.Trace(ctx, "executed timers_clear")
}

// handle registers route, methods without a handler get a 405
func (s *service) handle(route string, handlers map[string]http.HandlerFunc) {
	s.Router.HandleFunc(route, func(writer http.ResponseWriter, request *http.Request) {
		handler, ok := handlers[request.Method]
		if !ok {
			handleResponse(writer, data.ErrMethodNotAllowed)
			return
		}
		handler(writer, request)
	})
}

func (s *service) buildRoutes() {
	s.Router.HandleFunc("/", s.endpointDefault)
	s.handle(data.RouteEmployees, map[string]http.HandlerFunc{
		http.MethodGet:  s.endpointEmployeesRead,
		http.MethodPost: s.endpointEmployeeCreate,
	})
	s.handle(data.RouteEmployeesSlash, map[string]http.HandlerFunc{
		http.MethodPost: s.endpointEmployeeCreate,
	})
	s.handle(data.RouteEmployeesEmployeeID, map[string]http.HandlerFunc{
		http.MethodGet:    s.endpointEmployeeRead,
		http.MethodDelete: s.endpointEmployeeDelete,
	})
	s.handle(data.RouteEmployeesEmployeeIDColumn, map[string]http.HandlerFunc{
		http.MethodPut: s.endpointEmployeeUpdate,
	})
	s.handle(data.RouteCache, map[string]http.HandlerFunc{
		http.MethodDelete: s.endpointCacheClear,
	})
	s.handle(data.RouteCacheCounters, map[string]http.HandlerFunc{
		http.MethodGet:    s.endpointCacheCountersRead,
		http.MethodDelete: s.endpointCacheCountersClear,
	})
	s.handle(data.RouteTimers, map[string]http.HandlerFunc{
		http.MethodGet:    s.endpointTimersRead,
		http.MethodDelete: s.endpointTimersClear,
	})
}

func (s *service) Configure(envs map[string]string) error {
	s.Lock()
	defer s.Unlock()

	if address, ok := envs["SERVICE_ADDRESS"]; ok {
		s.config.address = address
	}
	if port := envs["SERVICE_PORT"]; port != "" {
		s.config.port = port
	}
	if shutdownTimeoutString, ok := envs["SERVICE_SHUTDOWN_TIMEOUT"]; ok {
		if shutdownTimeoutInt, err := strconv.Atoi(shutdownTimeoutString); err == nil {
			if timeout := time.Duration(shutdownTimeoutInt) * time.Second; timeout > 0 {
				s.config.shutdownTimeout = timeout
			}
		}
	}
	if allowCredentialsString, ok := envs["SERVICE_CORS_ALLOW_CREDENTIALS"]; ok {
		if allowCredentials, err := strconv.ParseBool(allowCredentialsString); err == nil {
			s.config.allowCredentials = allowCredentials
		}
	}
	if allowedOrigins := envs["SERVICE_CORS_ALLOWED_ORIGINS"]; allowedOrigins != "" {
		s.config.allowedOrigins = strings.Split(allowedOrigins, ",")
	}
	if allowedMethods := envs["SERVICE_CORS_ALLOWED_METHODS"]; allowedMethods != "" {
		s.config.allowedMethods = strings.Split(allowedMethods, ",")
	}
	if allowedHeaders := envs["SERVICE_CORS_ALLOWED_HEADERS"]; allowedHeaders != "" {
		s.config.allowedHeaders = strings.Split(allowedHeaders, ",")
	}
	if corsDisabledString, ok := envs["SERVICE_CORS_DISABLED"]; ok {
		if corsDisabled, err := strconv.ParseBool(corsDisabledString); err == nil {
			s.config.corsDisabled = corsDisabled
		}
	}
	if corsDebug, ok := envs["SERVICE_CORS_DEBUG"]; ok {
		if corsDebug, err := strconv.ParseBool(corsDebug); err == nil {
			s.config.corsDebug = corsDebug
		}
	}
	if timersEnabled := envs["SERVICE_TIMERS_ENABLED"]; timersEnabled != "" {
		s.config.timersEnabled, _ = strconv.ParseBool(timersEnabled)
	}
	return nil
}

func (s *service) Open(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.opened {
		return nil
	}
	if s.Logic == nil {
		return errors.New("logic not provided")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.server.Addr = net.JoinHostPort(s.config.address, s.config.port)
	if err := s.launchServer(); err != nil {
		s.cancel()
		return err
	}
	s.opened = true
	return nil
}

func (s *service) Close(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if !s.opened {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.Error(ctx, "error while shutting down the server: %s", err)
	}
	s.cancel()
	s.Wait()
	s.opened = false
	return nil
}
