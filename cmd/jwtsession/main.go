package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-jwt-session/app"
	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/internal/logging"
	"github.com/jrsteele09/go-jwt-session/session"
)

const usage = `Usage: jwtsession [-config file] <command> [args]

Commands:
  login [-remember] [-username u] [-merchant m]   log in and store tokens
  logout                                          revoke and clear tokens
  status                                          show the stored session
  fetch [-method GET] <path|url>                  request through the session
  forms [-submit id] <file.html>                  wire the forms of an HTML file
`

func main() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, opts ...app.Option) error {
	fs := flag.NewFlagSet("jwtsession", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "jwtsession.yaml", "YAML config file (optional)")
	banner := fs.Bool("banner", false, "print the application banner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("no command given")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.GetLogLevel(), stderr)

	if *banner {
		figure.NewFigure(cfg.GetAppName(), "cybermedium", true).Print()
		fmt.Fprintln(stdout)
	}

	prompter := newTerminalPrompter(stdin, stdout)
	opts = append([]app.Option{
		app.WithLogger(logger),
		app.WithSessionOptions(session.WithPrompter(prompter)),
	}, opts...)

	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	c := &cli{app: a, prompter: prompter, out: stdout, errOut: stderr}
	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "login":
		return c.login(ctx, rest)
	case "logout":
		return c.logout(ctx)
	case "status":
		return c.status(ctx)
	case "fetch":
		return c.fetch(ctx, rest)
	case "forms":
		return c.forms(ctx, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}
