package cli

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/facecam/internal/attendance"
	"github.com/ayusman/facecam/internal/config"
)

func newAttendanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Inspect saved attendance files",
	}

	show := &cobra.Command{
		Use:   "show [file]",
		Short: "Print an attendance CSV as a table",
		Long: `Print an attendance CSV written by the recognize demo. The file defaults
to the configured output (` + config.DefaultOutput + `).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := config.DefaultOutput
			if len(args) == 1 {
				file = args[0]
			} else if cfg, err := config.Load(mustGetString(cmd, "config")); err == nil {
				file = cfg.Recognition.Output
			}

			records, err := attendance.Load(file)
			if err != nil {
				return err
			}
			attendance.PrintTable(cmd.OutOrStdout(), records)
			return nil
		},
	}
	// Skip the root config load; show reads the config itself.
	show.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }

	cmd.AddCommand(show)
	return cmd
}
