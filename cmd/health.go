package cmd

import (
	"context"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print the face recognition health report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, _ *config.Config, b *backend) error {
			return outputJSON(b.checker.Check(ctx))
		})
	},
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Look for data, configuration and recognition quality problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, _ *config.Config, b *backend) error {
			return outputJSON(b.checker.Diagnose(ctx))
		})
	},
}

func init() {
	rootCmd.AddCommand(healthCmd, diagnosticsCmd)
}
