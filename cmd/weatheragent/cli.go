package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/weatheragent/internal/config"
	"github.com/hpungsan/weatheragent/internal/errors"
	"github.com/hpungsan/weatheragent/internal/httpapi"
	"github.com/hpungsan/weatheragent/internal/mcp"
	"github.com/hpungsan/weatheragent/internal/router"
)

// app carries configuration, streams, and the per-invocation runtime.
type app struct {
	cfg    *config.Config
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	styled bool
	rt     *runtime
}

// AskOutput is the `ask --json` result.
type AskOutput struct {
	ID            string `json:"id"`
	Capability    string `json:"capability"`
	Location      string `json:"location,omitempty"`
	Clarification bool   `json:"clarification"`
	Response      string `json:"response"`
}

// rootDescription warns that bare one-word queries can collide with commands.
const rootDescription = "A query given as arguments is answered directly. A one-word query that\n" +
	"is also a command name (tools, chat, help, ...) runs the command; use\n" +
	"`weatheragent ask <query>` to route it instead."

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config, in io.Reader, out, errOut io.Writer) *cli.App {
	a := &app{cfg: cfg, in: in, out: out, errOut: errOut, styled: isTerminal(out)}

	cliApp := &cli.App{
		Name:        "weatheragent",
		Usage:       "Ask about the weather, temperature, or rain in any city",
		UsageText:   "weatheragent [global options] [query...]\n   weatheragent command [command options]",
		Description: rootDescription,
		Version:     Version,
		Reader:      in,
		Writer:      out,
		ErrWriter:   errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "examples", Aliases: []string{"e"}, Usage: "Run the example queries and exit"},
			&cli.BoolFlag{Name: "debug", Usage: "Log at debug level"},
		},
		Before: a.setup,
		After:  a.teardown,
		Action: a.rootAction,
		Commands: []*cli.Command{
			a.askCmd(),
			a.chatCmd(),
			a.examplesCmd(),
			a.toolsCmd(),
			a.mcpCmd(),
			a.serveCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

func (a *app) setup(c *cli.Context) error {
	rt, err := newRuntime(c.Context, a.cfg, c.Bool("debug"))
	if err != nil {
		return outputError(err)
	}
	a.rt = rt
	return nil
}

func (a *app) teardown(_ *cli.Context) error {
	if a.rt != nil {
		_ = a.rt.logger.Sync()
	}
	return nil
}

// rootAction runs the examples, answers a query given as arguments, or
// starts the interactive session.
func (a *app) rootAction(c *cli.Context) error {
	if c.Bool("examples") {
		a.warnDemo()
		return a.runExamples(c.Context)
	}
	if c.NArg() > 0 {
		a.warnDemo()
		query := strings.Join(c.Args().Slice(), " ")
		fmt.Fprintln(a.out, a.rt.router.Route(c.Context, query))
		return nil
	}
	return a.runChat(c.Context)
}

// askCmd creates the ask command.
func (a *app) askCmd() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a single query",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the routing result as JSON"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("query is required"))
			}
			query := strings.Join(c.Args().Slice(), " ")
			res := a.rt.router.Resolve(c.Context, query)

			if !c.Bool("json") {
				a.warnDemo()
				fmt.Fprintln(a.out, res.Text)
				return nil
			}
			return a.outputJSON(AskOutput{
				ID:            ulid.Make().String(),
				Capability:    res.Capability.String(),
				Location:      res.Location,
				Clarification: res.Clarification(),
				Response:      res.Text,
			})
		},
	}
}

// chatCmd creates the chat command.
func (a *app) chatCmd() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive session",
		Action: func(c *cli.Context) error {
			return a.runChat(c.Context)
		},
	}
}

// examplesCmd creates the examples command.
func (a *app) examplesCmd() *cli.Command {
	return &cli.Command{
		Name:  "examples",
		Usage: "Run the example queries",
		Action: func(c *cli.Context) error {
			a.warnDemo()
			return a.runExamples(c.Context)
		},
	}
}

// toolsCmd creates the tools command.
func (a *app) toolsCmd() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "List the available tools and example queries",
		Action: func(_ *cli.Context) error {
			fmt.Fprintln(a.out, router.ToolsHelp())
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func (a *app) mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the tools to an MCP client over stdio",
		Action: func(_ *cli.Context) error {
			if isTerminal(a.in) {
				a.rt.logger.Warn("MCP server mode expects a client on stdin")
			}
			if err := mcp.Run(a.rt.router, a.cfg, a.rt.logger, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func (a *app) serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the router over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: a.cfg.HTTPAddr, Usage: "Listen address"},
		},
		Action: func(c *cli.Context) error {
			srv := httpapi.NewServer(httpapi.Options{
				Addr:     c.String("addr"),
				Router:   a.rt.router,
				Gatherer: a.rt.registry,
				Metrics:  a.rt.metrics,
				Logger:   a.rt.logger,
				Version:  Version,
			})
			fmt.Fprintf(a.errOut, "Weather agent listening on %s\n", srv.Addr())
			if a.rt.demo {
				a.rt.logger.Warn("no API key configured, conversational replies are canned", zap.String("env", config.EnvAPIKey))
			}
			if err := srv.Run(c.Context, a.cfg.ShutdownTimeout()); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// warnDemo tells the user when replies are simulated.
func (a *app) warnDemo() {
	if a.rt == nil || !a.rt.demo {
		return
	}
	fmt.Fprintf(a.errOut, "WARNING: %s environment variable is not set.\n", config.EnvAPIKey)
	fmt.Fprintln(a.errOut, "Running in demo mode with simulated AI responses.")
	fmt.Fprintln(a.errOut, "To use Google AI Studio, set the environment variable with your API key.")
	fmt.Fprintln(a.errOut)
}

// outputJSON writes v as indented JSON.
func (a *app) outputJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if aErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", aErr.Code, aErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// isTerminal reports whether stream is an interactive terminal.
func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
