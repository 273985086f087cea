package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/platinummonkey/tartalacrm/pkg/app"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Usage       string
	Description string
	Flags       *pflag.FlagSet
	Run         func(ctx context.Context, args []string) error
}

// Options configures the terminal side of the CLI. Zero fields fall back to
// the process standard streams and clock.
type Options struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// SessionFile holds the token of the last login.
	SessionFile string

	// ReadPassword reads a secret without echo. Defaults to the terminal
	// when In is one, and to a plain line read otherwise.
	ReadPassword func(prompt string) (string, error)

	Now func() time.Time

	Logger *observability.Logger
}

// CLI is the tartalacrm command-line client. It runs every command against
// the service of a, in process.
type CLI struct {
	app      *app.App
	out      io.Writer
	errOut   io.Writer
	prompt   *Prompter
	session  *Session
	now      func() time.Time
	logger   *observability.Logger
	commands map[string]*Command
}

// New creates the CLI on top of a
func New(a *app.App, opts Options) *CLI {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.SessionFile == "" {
		opts.SessionFile = DefaultSessionFile
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.ErrorLevel, opts.Err)
	}

	c := &CLI{
		app:     a,
		out:     opts.Out,
		errOut:  opts.Err,
		prompt:  NewPrompter(opts.In, opts.Out, opts.ReadPassword),
		session: NewSession(opts.SessionFile),
		now:     opts.Now,
		logger:  opts.Logger,
	}
	c.commands = map[string]*Command{}
	for _, cmd := range []*Command{
		c.newLoginCommand(),
		c.newLogoutCommand(),
		c.newWhoamiCommand(),
		c.newListItemsCommand(),
		c.newCreateItemCommand(),
		c.newUpdateItemCommand(),
		c.newDeleteItemCommand(),
		c.newPopulateCommand(),
	} {
		c.commands[cmd.Name] = cmd
	}
	return c
}

// Commands returns the registered commands by name
func (c *CLI) Commands() map[string]*Command {
	return c.commands
}

// Run executes the command named by args[0] and returns the process exit
// code. Failures are reported in French on the error stream.
func (c *CLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		c.usage()
		return 0
	}

	cmd, ok := c.commands[args[0]]
	if !ok {
		fmt.Fprintf(c.errOut, "Commande inconnue : %s\n\n", args[0])
		c.usage()
		return 2
	}

	if err := cmd.Flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(c.errOut, "%v\n", err)
		return 2
	}

	if err := cmd.Run(ctx, cmd.Flags.Args()); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(c.errOut, "%s\nUsage : tartalacrm %s\n", usageErr.msg, cmd.Usage)
			return 2
		}
		c.logger.WithError(err).WithField("command", cmd.Name).Debug("command failed")
		fmt.Fprintln(c.errOut, Describe(err))
		return 1
	}
	return 0
}

// usage prints the command usage
func (c *CLI) usage() {
	fmt.Fprintf(c.out, "Usage : tartalacrm <commande> [arguments]\n\nCommandes :\n")
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.out, "  %-14s %s\n", name, c.commands[name].Description)
	}
}

func (c *CLI) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

// usageError reports a malformed command line
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
