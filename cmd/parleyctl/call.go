package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/parley/internal/bus"
	"github.com/MikeSquared-Agency/parley/internal/engine"
	"github.com/MikeSquared-Agency/parley/internal/localstate"
	"github.com/MikeSquared-Agency/parley/internal/session"
)

func newCallCmd() *cobra.Command {
	var assistantID string

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Run a live voice session and capture the transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			if assistantID == "" {
				assistantID = cfg.AssistantID
			}
			if assistantID == "" {
				return fmt.Errorf("no assistant id: pass --assistant or set assistant_id in the config")
			}
			return runCall(cmd.Context(), assistantID)
		},
	}
	cmd.Flags().StringVar(&assistantID, "assistant", "", "voice assistant id")
	return cmd
}

func runCall(ctx context.Context, assistantID string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	busClient, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		return fmt.Errorf("connect to bus: %w", err)
	}
	defer busClient.Close()

	eng, err := engine.NewNATS(busClient, logger)
	if err != nil {
		return fmt.Errorf("attach voice engine: %w", err)
	}

	state, err := localstate.Open(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open local state: %w", err)
	}
	defer state.Close()

	tee := &teeEngine{Engine: eng, display: printEvent}
	ctl := session.NewController(tee, state, logger)

	if err := ctl.Start(ctx, assistantID); err != nil {
		return err
	}
	fmt.Printf("session %s — connecting\n", ctl.SessionID())
	fmt.Println("commands: end, mute, export [file], new, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "end":
			if err := ctl.End(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case "mute":
			muted, err := ctl.ToggleMute()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			} else if muted {
				fmt.Println("muted")
			} else {
				fmt.Println("unmuted")
			}
		case "export":
			doc := ctl.Export(session.ExportOptions{Labels: cfg.Labels})
			if len(fields) > 1 {
				if err := os.WriteFile(fields[1], []byte(doc), 0o644); err != nil {
					fmt.Fprintln(os.Stderr, err)
					continue
				}
				fmt.Printf("wrote %s\n", fields[1])
			} else {
				name := session.ExportFilename(ctl.SessionID())
				if err := os.WriteFile(name, []byte(doc), 0o644); err != nil {
					fmt.Fprintln(os.Stderr, err)
					continue
				}
				fmt.Printf("wrote %s\n", name)
			}
		case "new":
			ctl.NewSession()
			if err := ctl.Start(ctx, assistantID); err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			fmt.Printf("session %s — connecting\n", ctl.SessionID())
		case "quit":
			_ = ctl.End()
			return nil
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
	return scanner.Err()
}

// teeEngine forwards engine events to both the display and the controller.
type teeEngine struct {
	engine.Engine
	display engine.Handler
}

func (t *teeEngine) OnEvent(h engine.Handler) {
	t.Engine.OnEvent(func(evt engine.Event) {
		t.display(evt)
		h(evt)
	})
}

func printEvent(evt engine.Event) {
	switch evt.Type {
	case engine.EventCallStart:
		fmt.Println("-- call started --")
	case engine.EventCallEnd:
		fmt.Println("-- call ended --")
	case engine.EventTranscript:
		if evt.Final {
			fmt.Printf("[%s] %s\n", evt.Role, evt.Text)
		}
	case engine.EventError:
		fmt.Fprintf(os.Stderr, "engine error: %v\n", evt.Err)
	}
}
