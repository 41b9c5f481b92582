package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Face recognition check-in and check-out service",
	Long: `Face Attendance records employee check-ins and check-outs from face
templates. A kiosk submits a probe template, the service matches it against
every enrolled employee and toggles their open attendance record.

Face data and attendance live in PostgreSQL. Employees can be synced from an
HR directory in MariaDB.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
