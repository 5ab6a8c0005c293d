// Package cli implements the protoreview command line interface.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/internal/httpserver"
	"github.com/effective-security/protoreview/pkg/llmfactory"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/standards"
	"github.com/effective-security/protoreview/tools"
	"github.com/effective-security/protoreview/tools/eventtools"
	"github.com/effective-security/protoreview/tools/standardstools"
)

const usage = `Usage: protoreview <command> [options]

Commands:
  review <file|->        Review a proto file for semantic issues
  server                 Run the HTTP review server
  list-aips              List available universal standards
  lookup-aip <number>    Look up a universal standard
  list-org-standards     List available organizational standards
  lookup-org-standard <id>  Look up an organizational standard
`

// CLI holds the command line environment. Factory overrides the model
// factory, mainly for tests; when nil the configured or auto-detected
// providers are used.
type CLI struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Factory llmfactory.Factory
}

// New creates a CLI bound to the given streams.
func New(in io.Reader, out, errOut io.Writer) *CLI {
	return &CLI{In: in, Out: out, Err: errOut}
}

// Run dispatches a subcommand and returns the process exit code.
func (c *CLI) Run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.Err, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "review":
		return c.runReview(args[1:])
	case "server":
		err = c.runServer(args[1:])
	case "list-aips":
		err = c.runListUniversal()
	case "lookup-aip":
		err = c.runLookupUniversal(args[1:])
	case "list-org-standards":
		err = c.runListOrg()
	case "lookup-org-standard":
		err = c.runLookupOrg(args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(c.Out, usage)
		return 0
	default:
		fmt.Fprintf(c.Err, "unknown command: %s\n\n%s", args[0], usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %s\n", err)
		return 1
	}
	return 0
}

func (c *CLI) factory() (llmfactory.Factory, error) {
	if c.Factory != nil {
		return c.Factory, nil
	}
	return llmfactory.Load("")
}

func (c *CLI) selectModel(f llmfactory.Factory, provider, model string) (llms.Model, error) {
	if model != "" {
		return f.ModelByName(model)
	}
	if provider != "" {
		return f.ModelByType(provider)
	}
	return f.DefaultModel()
}

func newRegistry() (*tools.Registry, error) {
	repo, err := standards.Load("")
	if err != nil {
		return nil, err
	}
	stdTools, err := standardstools.All(repo)
	if err != nil {
		return nil, err
	}
	evTools, err := eventtools.All()
	if err != nil {
		return nil, err
	}
	return tools.NewRegistry(append(stdTools, evTools...)...)
}

func (c *CLI) runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(c.Err)
	addr := fs.String("addr", httpserver.DefaultAddr, "address to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := c.factory()
	if err != nil {
		return err
	}
	registry, err := newRegistry()
	if err != nil {
		return err
	}

	srv := httpserver.New(f, registry, httpserver.WithAddr(*addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	fmt.Fprintf(c.Out, "Starting server on %s\n", *addr)
	return srv.Start()
}

func (c *CLI) runListUniversal() error {
	repo, err := standards.Load("")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, repo.UniversalIndex())
	return nil
}

func (c *CLI) runLookupUniversal(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: lookup-aip <number>")
	}
	repo, err := standards.Load("")
	if err != nil {
		return err
	}
	std, err := repo.GetUniversal(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, std.Markdown())
	return nil
}

func (c *CLI) runListOrg() error {
	repo, err := standards.Load("")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, repo.OrgIndex())
	return nil
}

func (c *CLI) runLookupOrg(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: lookup-org-standard <id>")
	}
	repo, err := standards.Load("")
	if err != nil {
		return err
	}
	std, err := repo.GetOrg(strings.ToUpper(strings.TrimSpace(args[0])))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, std.Markdown())
	return nil
}
