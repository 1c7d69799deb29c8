package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nerrad567/rotex-can-core/internal/canbus"
	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/entity"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/logging"
)

const defaultListen = 2 * time.Second

func newSendCmd(opts *options) *cobra.Command {
	var listen time.Duration
	cmd := &cobra.Command{
		Use:   "send <hex bytes>",
		Short: "Send one freeform request and print the replies",
		Long: `Send up to seven hex bytes on the request identifier, for example
"31 00 FA 01 D6 00 00", then listen for replies and decode every frame a
catalog entity recognises. The daemon must not be running on the same bus.`,
		Example: `  rotexcan send "31 00 FA 01 D6 00 00"
  rotexcan send --listen 5s "61 00 FA 0A 0C 00 00"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := entity.ParseHexBytes(args[0])
			if err != nil {
				return err
			}
			var command entity.Command
			copy(command[:], data)
			frame, err := canbus.NewFrame(catalog.RequestID, command[:])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(opts.configPath, true)
			if err != nil {
				return err
			}
			ents, err := catalog.Build(cfg.Entities, entity.DefaultFingerprint)
			if err != nil {
				return fmt.Errorf("building entity catalog: %w", err)
			}

			bus, err := canbus.Open(cfg.CAN, logging.New(cfg.Logging, version).Component("canbus"))
			if err != nil {
				return fmt.Errorf("opening CAN bus: %w", err)
			}
			defer bus.Close()

			return sendAndListen(cmd.Context(), bus, frame, ents, listen, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVarP(&listen, "listen", "l", defaultListen, "how long to wait for replies")
	return cmd
}

// sendAndListen transmits frame, collects replies for the listen window and
// prints them with any entity that decodes them.
func sendAndListen(ctx context.Context, bus canbus.Transport, frame canbus.Frame, ents []*entity.Entity, listen time.Duration, w io.Writer) error {
	rxCtx, cancel := context.WithTimeout(ctx, listen)
	defer cancel()

	frames := make(chan canbus.Frame, 64)
	rxErr := make(chan error, 1)
	go func() {
		rxErr <- bus.Receive(rxCtx, frames)
	}()

	if err := bus.Send(ctx, frame); err != nil {
		return fmt.Errorf("sending frame: %w", err)
	}
	pterm.Info.WithWriter(w).Printf("sent 0x%03X %s\n", frame.ID, formatData(frame.Data[:frame.Len]))

	rows := pterm.TableData{{"CAN ID", "Data", "Entity", "Value"}}
	for {
		select {
		case f := <-frames:
			rows = append(rows, replyRows(f, ents, time.Now())...)
		case err := <-rxErr:
			if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("receiving: %w", err)
			}
			if len(rows) == 1 {
				pterm.Warning.WithWriter(w).Println("no replies")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(rows).Render()
		}
	}
}

// replyRows decodes f against every entity; undecoded frames yield one row.
func replyRows(f canbus.Frame, ents []*entity.Entity, now time.Time) [][]string {
	id := fmt.Sprintf("0x%03X", f.ID)
	payload := f.Data[:f.Len]
	data := formatData(payload)

	var rows [][]string
	for _, e := range ents {
		ok, err := e.TryHandle(f.ID, payload, now)
		if !ok {
			continue
		}
		value := e.Value().String()
		if err != nil {
			value = err.Error()
		}
		rows = append(rows, []string{id, data, e.ID(), value})
	}
	if len(rows) == 0 {
		rows = append(rows, []string{id, data, "-", "-"})
	}
	return rows
}

func formatData(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}
