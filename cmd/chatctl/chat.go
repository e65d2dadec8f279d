package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/config"
	"github.com/verity-ai/chatstream-go/pkg/provider"
	"github.com/verity-ai/chatstream-go/pkg/reader"
	"github.com/verity-ai/chatstream-go/pkg/service"
	"github.com/verity-ai/chatstream-go/pkg/telemetry"
	"github.com/verity-ai/chatstream-go/pkg/tools"
)

func chatCommand(ctx context.Context, argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("chat", flag.ContinueOnError)
	set.SetOutput(streams.err)
	var (
		providerFlag = set.String("provider", "", "Override the configured provider.")
		modelFlag    = set.String("model", "", "Override the configured model.")
		systemFlag   = set.String("system", "", "Override the system prompt.")
		noStreamFlag = set.Bool("no-stream", false, "Wait for the complete reply instead of streaming.")
		mcpFlag      = set.String("mcp", "", "MCP server command serving tools; enables tool use.")
		configFlag   = set.String("config", cfgPath, "Path to the settings file.")
	)
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: chatctl chat [flags] \"prompt\"")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
		fmt.Fprintln(streams.err, "\nExamples:")
		fmt.Fprintln(streams.err, "  chatctl chat \"explain SSE framing\"")
		fmt.Fprintln(streams.err, "  chatctl chat -provider anthropic -no-stream \"hello\"")
		fmt.Fprintln(streams.err, "  chatctl chat -mcp \"npx weather-server\" \"weather in Oslo?\"")
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	prompt := strings.TrimSpace(strings.Join(set.Args(), " "))
	if prompt == "" {
		return errors.New("chat requires a prompt")
	}

	st, err := loadSettings(*configFlag)
	if err != nil {
		return err
	}
	if *providerFlag != "" {
		st.Provider = *providerFlag
	}
	if *modelFlag != "" {
		st.Model = *modelFlag
	}
	if *systemFlag != "" {
		st.SystemPrompt = *systemFlag
	}
	if *noStreamFlag {
		off := false
		st.Stream = &off
	}

	shutdown, err := setupTelemetry(st)
	if err != nil {
		return err
	}
	defer shutdown()

	var opts []service.Option
	if *mcpFlag != "" {
		fields := strings.Fields(*mcpFlag)
		inv, err := tools.NewMCPInvoker(ctx, fields[0], fields[1:]...)
		if err != nil {
			return err
		}
		defer inv.Close()
		opts = append(opts, service.WithInvoker(inv))
		on := true
		st.ToolUse = &on
	}

	cc, err := chat.ResolveContext(st, provider.Builtin(), nil)
	if err != nil {
		return err
	}

	cb := reader.Callbacks{
		OnProgress:  func(delta string) { fmt.Fprint(streams.out, delta) },
		OnReasoning: func(delta string) { fmt.Fprint(streams.err, delta) },
		OnToolCall:  func(name string) { fmt.Fprintf(streams.err, "[tool] %s\n", name) },
	}
	ex, err := service.New(st, opts...).SendMessage(ctx, cc, chat.Message{Role: chat.RoleUser, Content: prompt}, cb)
	if err != nil {
		return err
	}

	fmt.Fprintln(streams.out)
	writeSummary(streams.err, cc, ex)
	return nil
}

func writeSummary(w io.Writer, cc *chat.ChatContext, ex *chat.Exchange) {
	suffix := ""
	if ex.Usage.Estimated {
		suffix = " (estimated)"
	}
	fmt.Fprintf(w, "%s/%s: %d in, %d out tokens%s, finish=%s\n",
		cc.Provider.ID, cc.Model.ID, ex.Usage.InputTokens, ex.Usage.OutputTokens, suffix, ex.FinishReason)
	if len(ex.UsedTools) > 0 {
		fmt.Fprintf(w, "tools: %s\n", strings.Join(ex.UsedTools, ", "))
	}
}

// setupTelemetry installs the trace manager when the settings enable it. The
// returned shutdown is always safe to call.
func setupTelemetry(st *config.Settings) (func(), error) {
	if !st.Telemetry.Enabled {
		return func() {}, nil
	}
	mgr, err := telemetry.NewManager(telemetry.Config{
		ServiceName:    "chatctl",
		ServiceVersion: version,
		Endpoint:       st.Telemetry.Endpoint,
		Insecure:       st.Telemetry.Insecure,
		SampleRatio:    st.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry setup: %w", err)
	}
	telemetry.SetDefault(mgr)
	return func() {
		telemetry.SetDefault(nil)
		_ = mgr.Shutdown(context.Background())
	}, nil
}
