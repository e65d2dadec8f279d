package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/verity-ai/chatstream-go/pkg/config"
)

func configCommand(argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("config", flag.ContinueOnError)
	set.SetOutput(streams.err)
	configFlag := set.String("config", cfgPath, "Path to the settings file.")
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: chatctl config [flags] <init|show|path>")
		fmt.Fprintln(streams.err, "\nCommands:")
		fmt.Fprintln(streams.err, "  init  Write a settings file with defaults")
		fmt.Fprintln(streams.err, "  show  Print the effective settings, credentials masked")
		fmt.Fprintln(streams.err, "  path  Print the settings file location")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	args := set.Args()
	if len(args) == 0 {
		set.Usage()
		return errors.New("config expects a subcommand")
	}
	loader, err := config.NewLoader(*configFlag)
	if err != nil {
		return err
	}
	switch args[0] {
	case "init":
		return configInit(loader, streams)
	case "show":
		return configShow(loader, streams)
	case "path":
		fmt.Fprintln(streams.out, loader.Path())
		return nil
	default:
		return fmt.Errorf("unknown config subcommand %q", args[0])
	}
}

func configInit(loader *config.Loader, streams ioStreams) error {
	path := loader.Path()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("settings already exist at %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check settings: %w", err)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(streams.out, "created %s\n", path)
	return nil
}

// configShow prints the loaded settings with credential values masked.
func configShow(loader *config.Loader, streams ioStreams) error {
	st, err := loader.Load()
	if err != nil {
		return err
	}
	masked := *st
	if len(st.Credentials) > 0 {
		masked.Credentials = make(map[string]string, len(st.Credentials))
		for k := range st.Credentials {
			masked.Credentials[k] = "***"
		}
	}
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = streams.out.Write(data)
	return err
}
