package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/entity"
)

func newEntitiesCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Print the entity catalog",
		Long: `Print the entities the daemon would poll with the current configuration.
With --all the full built-in catalog is listed, ignoring disabled entries and
interval overrides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var defs []entity.Definition
			if all {
				defs = catalog.Defaults()
			} else {
				cfg, err := loadConfig(opts.configPath, true)
				if err != nil {
					return err
				}
				ents, err := catalog.Build(cfg.Entities, entity.DefaultFingerprint)
				if err != nil {
					return fmt.Errorf("building entity catalog: %w", err)
				}
				for _, e := range ents {
					defs = append(defs, e.Definition())
				}
			}
			return pterm.DefaultTable.
				WithHasHeader().
				WithWriter(cmd.OutOrStdout()).
				WithData(entityRows(defs)).
				Render()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list the full built-in catalog")
	return cmd
}

// entityRows renders definitions as table rows, header first.
func entityRows(defs []entity.Definition) pterm.TableData {
	rows := pterm.TableData{{"ID", "Kind", "CAN ID", "Command", "Window", "Divider", "Unit", "Interval"}}
	for _, d := range defs {
		canID, command, window, interval := "-", "-", "-", "-"
		if !d.Command.IsZero() {
			canID = fmt.Sprintf("0x%03X", d.CanID)
			command = d.Command.String()
			window = fmt.Sprintf("%d+%d", d.Offset, d.Width)
		}
		if d.Interval > 0 {
			interval = d.Interval.String()
		}
		rows = append(rows, []string{
			d.ID,
			string(d.Variant.Kind()),
			canID,
			command,
			window,
			strconv.FormatFloat(d.Divider, 'f', -1, 64),
			unitOf(d.Variant),
			interval,
		})
	}
	return rows
}

func unitOf(v entity.Variant) string {
	switch v := v.(type) {
	case entity.Sensor:
		return v.Unit
	case entity.Number:
		return v.Unit
	}
	return ""
}
