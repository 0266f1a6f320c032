package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/client"
	"github.com/antonio-alexander/go-employees/internal/data"
	"github.com/antonio-alexander/go-employees/internal/utilities"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
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
	_ = godotenv.Load()
	envs := internal.Envs(nil, os.Environ())
	if err := Main(os.Args[1:], envs, os.Stdout); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

type clientCommand struct {
	envs   map[string]string
	logger interface {
		internal.Configurer
		utilities.Logger
	}
	client interface {
		internal.Configurer
		internal.Opener
		client.Client
	}
}

// run opens the client, executes fx and closes the client
func (c *clientCommand) run(cmd *cobra.Command, fx func(ctx context.Context, client client.Client) (any, error)) error {
	ctx := internal.CtxWithCorrelationId(cmd.Context(), internal.GenerateId())
	if err := c.logger.Configure(c.envs); err != nil {
		return err
	}
	if err := c.client.Configure(c.envs); err != nil {
		return err
	}
	if err := c.client.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.client.Close(ctx); err != nil {
			c.logger.Error(ctx, "error while closing client: %s", err)
		}
	}()
	item, err := fx(ctx, c.client)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	bytes, err := json.MarshalIndent(item, "", " ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(bytes))
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1, errors.Wrapf(data.ErrInvalidEmployeeID, "%q", s)
	}
	return id, nil
}

func newRootCommand(c *clientCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "client",
		Short:         "command line client for the go-employees service",
		Version:       fmt.Sprintf("%s (%s) built from: %s", Version, GitCommit, GitBranch),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			for _, flag := range []struct{ name, env string }{
				{"address", "CLIENT_ADDRESS"},
				{"port", "CLIENT_PORT"},
				{"protocol", "CLIENT_PROTOCOL"},
			} {
				if f := cmd.Flag(flag.name); f != nil && f.Changed {
					c.envs[flag.env] = f.Value.String()
				}
			}
		},
	}
	cmd.PersistentFlags().String("address", "", "service address (CLIENT_ADDRESS)")
	cmd.PersistentFlags().String("port", "", "service port (CLIENT_PORT)")
	cmd.PersistentFlags().String("protocol", "", "http or https (CLIENT_PROTOCOL)")
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "list all employees",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, client client.Client) (any, error) {
					employees, err := client.EmployeesRead(ctx)
					if employees == nil {
						employees = []*data.Employee{}
					}
					return employees, err
				})
			},
		},
		&cobra.Command{
			Use:   "get <employee_id>",
			Short: "read a single employee",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return c.run(cmd, func(ctx context.Context, client client.Client) (any, error) {
					return client.EmployeeRead(ctx, id)
				})
			},
		},
		&cobra.Command{
			Use:   "create <name> <department>",
			Short: "create an employee",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				name, department := args[0], args[1]
				return c.run(cmd, func(ctx context.Context, client client.Client) (any, error) {
					if err := client.EmployeeCreate(ctx, data.EmployeePartial{
						Name:       &name,
						Department: &department,
					}); err != nil {
						return nil, err
					}
					return &data.Message{Message: data.MessageEmployeeAdded}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "update <employee_id> <column> <new_value>",
			Short: "set a single column (name or department) of an employee",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				column, value := args[1], args[2]
				return c.run(cmd, func(ctx context.Context, client client.Client) (any, error) {
					if err := client.EmployeeUpdate(ctx, id, column, value); err != nil {
						return nil, err
					}
					//KIM: the service already rejected anything that doesn't parse
					c, _ := data.ParseColumn(column)
					return &data.Message{Message: data.MessageEmployeeUpdated(c)}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <employee_id>",
			Short: "delete an employee",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return c.run(cmd, func(ctx context.Context, client client.Client) (any, error) {
					if err := client.EmployeeDelete(ctx, id); err != nil {
						return nil, err
					}
					return &data.Message{Message: data.MessageEmployeeDeleted}, nil
				})
			},
		},
		newCacheCommand(c),
		newTimersCommand(c),
	)
	return cmd
}

func newCacheCommand(c *clientCommand) *cobra.Command {
	var clearCounters bool

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "clear the service cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client client.Client) (any, error) {
				return nil, client.CacheClear(ctx)
			})
		},
	}
	counters := &cobra.Command{
		Use:   "counters",
		Short: "read (or clear) the cache hit/miss counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client client.Client) (any, error) {
				if clearCounters {
					return nil, client.CacheCountersClear(ctx)
				}
				return client.CacheCountersRead(ctx)
			})
		},
	}
	counters.Flags().BoolVar(&clearCounters, "clear", false, "reset the counters")
	cmd.AddCommand(counters)
	return cmd
}

func newTimersCommand(c *clientCommand) *cobra.Command {
	var clearTimers bool

	cmd := &cobra.Command{
		Use:   "timers",
		Short: "read (or clear) the per endpoint timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client client.Client) (any, error) {
				if clearTimers {
					return nil, client.TimersClear(ctx)
				}
				return client.TimersRead(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&clearTimers, "clear", false, "clear the timers")
	return cmd
}

func Main(args []string, envs map[string]string, output io.Writer) error {
	logger := utilities.NewLogger()
	c := &clientCommand{
		envs:   envs,
		logger: logger,
		client: client.NewClient(logger),
	}
	cmd := newRootCommand(c)
	cmd.SetArgs(args)
	cmd.SetOut(output)
	return cmd.ExecuteContext(context.Background())
}
