package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/inventory-mgmt/invctl/internal/config"
	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describe(err))
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	flagSet := pflag.NewFlagSet("invctl", pflag.ContinueOnError)
	configPath := flagSet.StringP("config", "c", "", "YAML config file (default: $INVCTL_CONFIG)")
	showMetrics := flagSet.Bool("metrics", false, "print session metrics after the command")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	cmd, ok := findCommand(flagSet.Arg(0))
	if !ok {
		printHelp(flagSet)
		return fmt.Errorf("unknown command %q", flagSet.Arg(0))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.GetLogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	returnError = cmd.run(ctx, a, flagSet.Args()[1:])
	if *showMetrics {
		if err := a.metrics.WriteText(os.Stderr); err != nil {
			logger.Err(err).Msg("write metrics")
		}
	}
	return returnError
}

// describe turns the error taxonomy into the message a user should see.
func describe(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		return "invalid username or password"
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return "session expired, run `invctl login` again"
	case apperrors.Is(err, apperrors.ErrNetwork):
		return fmt.Sprintf("cannot reach the API: %v", err)
	}
	return err.Error()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: invctl [flags] COMMAND [args]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-36s %s\n", c.usage, c.summary)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
