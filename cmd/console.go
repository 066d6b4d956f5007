package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/encodeous/sospf/core"
	"github.com/encodeous/sospf/state"
	"github.com/spf13/cobra"
)

// Console runs operator commands, one per line, against the router of env
type Console struct {
	env *state.Env
	out io.Writer
}

func NewConsole(env *state.Env, out io.Writer) *Console {
	return &Console{env: env, out: out}
}

// Run reads commands until in is exhausted or the router stops. Closing in stops the router.
func (c *Console) Run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(c.out, ">> ")
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			if err := c.Exec(line); err != nil {
				fmt.Fprintln(c.out, "error:", err)
			}
		}
		if c.env.Context.Err() != nil {
			return nil
		}
		fmt.Fprint(c.out, ">> ")
	}
	err := sc.Err()
	if err == nil {
		err = errors.New("console input closed")
	}
	c.env.Cancel(err)
	return err
}

// Exec runs a single command line
func (c *Console) Exec(line string) error {
	root := c.commands()
	root.SetArgs(strings.Fields(line))
	root.SetOut(c.out)
	root.SetErr(c.out)
	return root.Execute()
}

// with runs fun on the main loop
func (c *Console) with(fun func(r *core.Router) error) error {
	_, err := c.env.DispatchWait(func(s *state.State) (any, error) {
		return nil, fun(core.Get[*core.Router](s))
	})
	return err
}

func intArg(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", state.ErrInvalidArgument, name, s)
	}
	return v, nil
}

type linkArgs struct {
	addr   string
	port   int
	id     state.NodeId
	weight int
}

func parseLinkArgs(args []string) (linkArgs, error) {
	if len(args) != 4 {
		return linkArgs{}, fmt.Errorf("%w: expected <addr> <port> <id> <weight>", state.ErrInvalidArgument)
	}
	port, err := intArg("port", args[1])
	if err != nil {
		return linkArgs{}, err
	}
	weight, err := intArg("weight", args[3])
	if err != nil {
		return linkArgs{}, err
	}
	return linkArgs{args[0], port, state.NodeId(args[2]), weight}, nil
}

func oneInt(name string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected <%s>", state.ErrInvalidArgument, name)
	}
	return intArg(name, args[0])
}

// commands builds a fresh command tree, cobra keeps parse state between executions
func (c *Console) commands() *cobra.Command {
	root := &cobra.Command{
		Use:           "",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:                "attach <addr> <port> <id> <weight>",
			Short:              "Add a link without contacting the peer",
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				la, err := parseLinkArgs(args)
				if err != nil {
					return err
				}
				return c.with(func(r *core.Router) error {
					port, err := r.Attach(la.addr, la.port, la.id, la.weight)
					if err == nil {
						fmt.Fprintf(c.out, "attached %s on port %d\n", la.id, port)
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:                "connect <addr> <port> <id> <weight>",
			Short:              "Add a link, run the handshake and announce it",
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				la, err := parseLinkArgs(args)
				if err != nil {
					return err
				}
				return c.with(func(r *core.Router) error {
					return r.Connect(la.addr, la.port, la.id, la.weight)
				})
			},
		},
		&cobra.Command{
			Use:   "start",
			Short: "Run the handshake on every link that is not TWO_WAY and announce",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.with(func(r *core.Router) error {
					return r.Start()
				})
			},
		},
		&cobra.Command{
			Use:                "disconnect <port>",
			Short:              "Withdraw the link on a port",
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				port, err := oneInt("port", args)
				if err != nil {
					return err
				}
				return c.with(func(r *core.Router) error {
					return r.Disconnect(port)
				})
			},
		},
		&cobra.Command{
			Use:   "neighbors",
			Short: "List TWO_WAY neighbours",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.with(func(r *core.Router) error {
					ids := r.Neighbors()
					if len(ids) == 0 {
						fmt.Fprintln(c.out, "no neighbors")
					}
					for _, id := range ids {
						fmt.Fprintln(c.out, id)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "detect <id>",
			Short: "Print the shortest path to a router",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.with(func(r *core.Router) error {
					p, err := r.Detect(state.NodeId(args[0]))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.out, p)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "quit",
			Short: "Disconnect every link and stop",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.with(func(r *core.Router) error {
					return r.Quit()
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Debug: list occupied ports",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.with(func(r *core.Router) error {
					for _, e := range r.ListPorts() {
						fmt.Fprintf(c.out, "%d\t%s %s\t%s %s\tweight %d\n", e.Port,
							e.Link.Local, e.Link.Local.Status, e.Link.Remote, e.Link.Remote.Status, e.Link.Weight)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "lsd",
			Short: "Debug: dump the link-state database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.with(func(r *core.Router) error {
					for _, lsa := range r.DumpLSD() {
						fmt.Fprintln(c.out, lsa)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:                "unsafe-remove <port>",
			Short:              "Debug: free a port without telling anyone",
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				port, err := oneInt("port", args)
				if err != nil {
					return err
				}
				return c.with(func(r *core.Router) error {
					l, err := r.ForceRemovePort(port)
					if err == nil {
						fmt.Fprintf(c.out, "removed %s from port %d\n", l.Remote, port)
					}
					return err
				})
			},
		},
	)
	return root
}
