// Command chatctl drives the chat service from the terminal: send a prompt
// to any configured provider, list models, and manage the settings file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/verity-ai/chatstream-go/pkg/config"
)

const version = "0.1.0"

// ioStreams wires stdout/stderr for commands and becomes injectable in tests.
type ioStreams struct {
	out io.Writer
	err io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	streams := ioStreams{out: os.Stdout, err: os.Stderr}
	if err := runCLI(ctx, os.Args[1:], streams); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(streams.err, err)
		os.Exit(1)
	}
}

func runCLI(ctx context.Context, argv []string, streams ioStreams) error {
	global := flag.NewFlagSet("chatctl", flag.ContinueOnError)
	global.SetOutput(streams.err)
	configPath := global.String("config", "", "Path to the settings file (defaults to the user config directory).")
	global.Usage = func() {
		fmt.Fprintln(streams.err, "chatctl - terminal chat client for LLM providers")
		fmt.Fprintln(streams.err, "\nUsage:")
		fmt.Fprintln(streams.err, "  chatctl [global flags] <command> [args]")
		fmt.Fprintln(streams.err, "\nCommands:")
		fmt.Fprintln(streams.err, "  chat    Send one prompt and print the reply")
		fmt.Fprintln(streams.err, "  models  List the models of a provider")
		fmt.Fprintln(streams.err, "  config  Manage the settings file")
		fmt.Fprintln(streams.err, "\nGlobal Flags:")
		global.PrintDefaults()
		fmt.Fprintln(streams.err, "\nRun 'chatctl <command> -h' for command-specific usage.")
	}
	if err := global.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		return fmt.Errorf("missing command")
	}
	sub := args[0]
	rest := args[1:]
	switch sub {
	case "chat":
		return chatCommand(ctx, rest, *configPath, streams)
	case "models":
		return modelsCommand(ctx, rest, *configPath, streams)
	case "config":
		return configCommand(rest, *configPath, streams)
	case "help", "-h", "--help":
		global.Usage()
		return nil
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", sub)
	}
}

func loadSettings(path string) (*config.Settings, error) {
	loader, err := config.NewLoader(path)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}
