package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/verity-ai/chatstream-go/pkg/provider"
)

func modelsCommand(ctx context.Context, argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("models", flag.ContinueOnError)
	set.SetOutput(streams.err)
	var (
		providerFlag = set.String("provider", "", "Provider to list (defaults to the configured one).")
		liveFlag     = set.Bool("live", false, "Merge the vendor's live model listing into the catalog.")
		configFlag   = set.String("config", cfgPath, "Path to the settings file.")
	)
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: chatctl models [flags]")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	st, err := loadSettings(*configFlag)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(*providerFlag)
	if id == "" {
		id = st.Provider
	}
	cat := provider.Builtin()
	desc, err := cat.Get(id)
	if err != nil {
		return fmt.Errorf("%w (known: %s)", err, strings.Join(cat.IDs(), ", "))
	}
	if override := st.BaseURL(desc.ID); override != "" {
		desc = desc.Clone()
		desc.BaseURL = strings.TrimSuffix(override, "/")
	}

	models := desc.Models
	if *liveFlag {
		models, err = provider.ListLiveModels(ctx, desc, st.Credential(desc.ID))
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(streams.out, "%s (%s)\n", desc.ID, desc.Label)
	tw := tabwriter.NewWriter(streams.out, 2, 4, 2, ' ', 0)
	for _, m := range models {
		marker := " "
		if m.ID == desc.DefaultModel {
			marker = "*"
		}
		window := ""
		if m.ContextWindow > 0 {
			window = fmt.Sprintf("%d", m.ContextWindow)
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", marker, m.ID, m.Label, window)
	}
	return tw.Flush()
}
