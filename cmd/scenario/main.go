package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/client"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/utilities"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
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

func main() {
	args := os.Args[1:]
	_ = godotenv.Load()
	envs := internal.Envs(nil, os.Environ())
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(args, envs, osSignal); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func durationFromEnv(envs map[string]string, key string, defaultDuration time.Duration) time.Duration {
	if s := envs[key]; s != "" {
		if i, err := strconv.Atoi(s); err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return defaultDuration
}

// scenarioIdStability has every client create employees, then concurrently
// update and delete them while reading back the survivors; every survivor
// must keep the id it was created with
func scenarioIdStability(ctx context.Context, envs map[string]string, logger utilities.Logger,
	clients ...client.Client) error {
	const correlationId string = "scenario_id_stability"
	const minClients int = 1
	const department string = "scenario"

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures int

	if len(clients) < minClients {
		return errors.New("not enough clients provided")
	}
	nEmployees := 10
	if i, err := strconv.Atoi(envs["SCENARIO_EMPLOYEES"]); err == nil && i > 0 {
		nEmployees = i
	}
	ctx = internal.CtxWithCorrelationId(ctx, correlationId)

	// create employees with unique names so they can be found in the list
	names := make(map[string]struct{})
	for i := 0; i < nEmployees; i++ {
		name := internal.GenerateId()[:14]
		if err := clients[i%len(clients)].EmployeeCreate(ctx, data.EmployeePartial{
			Name:       &name,
			Department: &department,
		}); err != nil {
			return err
		}
		names[name] = struct{}{}
	}
	employees, err := clients[0].EmployeesRead(ctx)
	if err != nil {
		return err
	}
	created := make(map[int64]string)
	for _, employee := range employees {
		if _, ok := names[employee.Name]; ok {
			created[employee.ID] = employee.Name
		}
	}
	if len(created) != nEmployees {
		return errors.Errorf("expected %d employees, found %d", nEmployees, len(created))
	}
	logger.Info(ctx, "created %d employees", len(created))

	// odd ids are deleted, even ids get their department updated
	deleted := make(map[int64]bool)
	i := 0
	for id := range created {
		deleted[id] = id%2 != 0
		wg.Add(1)
		go func(ctx context.Context, id int64, remove bool, client client.Client) {
			defer wg.Done()

			var err error

			ctx = internal.CtxWithCorrelationId(ctx, fmt.Sprintf("%s_%d", correlationId, id))
			if remove {
				err = client.EmployeeDelete(ctx, id)
			} else {
				err = client.EmployeeUpdate(ctx, id, data.ColumnDepartment.String(), department+"_updated")
			}
			if err != nil {
				logger.Error(ctx, "error while mutating employee %d: %s", id, err)
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}(ctx, id, deleted[id], clients[i%len(clients)])
		i++
	}
	wg.Wait()

	// read everything back through a different client
	reader := clients[len(clients)-1]
	for id, name := range created {
		employee, err := reader.EmployeeRead(ctx, id)
		switch {
		case deleted[id]:
			if !errors.Is(err, data.ErrEmployeeNotFound) {
				logger.Error(ctx, "employee %d was deleted but read returned: %v", id, err)
				failures++
			}
		case err != nil:
			logger.Error(ctx, "error while reading employee %d: %s", id, err)
			failures++
		case employee.ID != id || employee.Name != name || employee.Department != department+"_updated":
			logger.Error(ctx, "employee %d changed unexpectedly: %#v", id, employee)
			failures++
		}
	}
	for id, isDeleted := range deleted {
		if !isDeleted {
			_ = clients[0].EmployeeDelete(ctx, id)
		}
	}
	if failures > 0 {
		return errors.Errorf("id stability scenario failed %d check(s)", failures)
	}
	logger.Info(ctx, "id stability verified for %d employees", len(created))
	return nil
}

// scenarioReadAfterWrite has one client update an employee on an interval
// while the other clients read it, every read issued after an update
// completes must observe that update
func scenarioReadAfterWrite(ctx context.Context, envs map[string]string, logger utilities.Logger,
	clients ...client.Client) error {
	const correlationId string = "scenario_read_after_write"
	const minClients int = 2
	const department string = "scenario"

	var wg sync.WaitGroup
	var mu sync.RWMutex
	var stale int

	readInterval := durationFromEnv(envs, "SCENARIO_READ_INTERVAL", time.Second)
	updateInterval := durationFromEnv(envs, "SCENARIO_UPDATE_INTERVAL", 2*time.Second)
	scenarioDuration := durationFromEnv(envs, "SCENARIO_DURATION", 10*time.Second)
	if len(clients) < minClients {
		return errors.New("not enough clients provided")
	}
	ctx = internal.CtxWithCorrelationId(ctx, correlationId)

	// create employee using the first client
	name := internal.GenerateId()[:14]
	if err := clients[0].EmployeeCreate(ctx, data.EmployeePartial{
		Name:       &name,
		Department: &department,
	}); err != nil {
		return err
	}
	employees, err := clients[0].EmployeesRead(ctx)
	if err != nil {
		return err
	}
	id := int64(-1)
	for _, employee := range employees {
		if employee.Name == name {
			id = employee.ID
		}
	}
	if id < 0 {
		return errors.Errorf("created employee %q not found", name)
	}
	defer func(id int64) {
		_ = clients[0].EmployeeDelete(ctx, id)
		logger.Info(ctx, "deleted employee: %d", id)
	}(id)
	logger.Info(ctx, "created employee: %d", id)

	//generate start/stop channels
	start, stop := make(chan struct{}), make(chan struct{})
	lastWritten := name

	//create writer go routine
	wg.Add(1)
	go func(ctx context.Context, client client.Client) {
		defer wg.Done()

		tUpdate := time.NewTicker(updateInterval)
		defer tUpdate.Stop()
		<-start
		for {
			select {
			case <-stop:
				return
			case <-tUpdate.C:
				value := internal.GenerateId()[:14]
				mu.Lock()
				err := client.EmployeeUpdate(ctx, id, data.ColumnName.String(), value)
				if err == nil {
					lastWritten = value
				}
				mu.Unlock()
				if err != nil {
					logger.Error(ctx, "error while updating employee: %s", err)
				}
			}
		}
	}(ctx, clients[0])

	//create reader go routines
	for i := 1; i < len(clients); i++ {
		wg.Add(1)
		go func(ctx context.Context, clientNumber int, client client.Client) {
			defer wg.Done()

			ctx = internal.CtxWithCorrelationId(ctx, fmt.Sprintf("%s_%d", correlationId, clientNumber))
			tRead := time.NewTicker(readInterval)
			defer tRead.Stop()
			<-start
			for {
				select {
				case <-stop:
					return
				case <-tRead.C:
					mu.RLock()
					expected := lastWritten
					employee, err := client.EmployeeRead(ctx, id)
					mu.RUnlock()
					switch {
					case err != nil:
						logger.Error(ctx, "error while reading employee: %s", err)
					case employee.Name != expected:
						logger.Error(ctx, "stale read: expected %q, got %q", expected, employee.Name)
						mu.Lock()
						stale++
						mu.Unlock()
					}
				}
			}
		}(ctx, i, clients[i])
	}

	//clear cache counters and start the go routines
	if err := clients[0].CacheClear(ctx); err != nil {
		return err
	}
	if err := clients[0].CacheCountersClear(ctx); err != nil {
		return err
	}
	close(start)

	//allow go routines to run
	select {
	case <-ctx.Done():
	case <-time.After(scenarioDuration):
	}

	//stop go routines
	close(stop)
	wg.Wait()

	//use initial client to get hit/miss ratios from server
	cacheCounters, err := clients[0].CacheCountersRead(ctx)
	if err != nil {
		return err
	}
	hit := cacheCounters.CounterHits[data.CounterKeyEmployee(id)]
	miss := cacheCounters.CounterMisses[data.CounterKeyEmployee(id)]
	if total := hit + miss; total > 0 {
		logger.Info(ctx, "cache hit miss ratio (%d/%d): %0.2f%%",
			hit, total, float64(hit)/float64(total)*100)
	}
	if stale > 0 {
		return errors.Errorf("observed %d stale read(s)", stale)
	}
	return nil
}

func Main(args []string, envs map[string]string, osSignal chan (os.Signal)) error {
	var clients []client.Client
	var wg sync.WaitGroup

	//create context
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer cancel()

	// create logger
	logger := utilities.NewLogger()
	if err := logger.Configure(envs); err != nil {
		return err
	}

	//print version info
	logger.Info(ctx, "scenarios: go-employees v%s (%s) built from: %s",
		Version, GitCommit, GitBranch)

	nClients := 2
	if i, err := strconv.Atoi(envs["N_CLIENTS"]); err == nil && i > 0 {
		nClients = i
	}
	for range nClients {
		//create client
		client := client.NewClient(logger)
		if err := client.Configure(envs); err != nil {
			return err
		}
		if err := client.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Error(ctx, "error while closing client: %s", err)
			}
		}()
		clients = append(clients, client)
	}

	// execute scenario
	var err error
	switch scenario := envs["SCENARIO"]; scenario {
	default:
		err = errors.Errorf("unsupported scenario: %s", scenario)
	case "id_stability":
		logger.Info(ctx, "executing %s scenario", scenario)
		err = scenarioIdStability(ctx, envs, logger, clients...)
	case "read_after_write":
		logger.Info(ctx, "executing %s scenario", scenario)
		err = scenarioReadAfterWrite(ctx, envs, logger, clients...)
	}
	cancel()
	wg.Wait()
	return err
}
