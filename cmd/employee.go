package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/spf13/cobra"
)

var employeeCmd = &cobra.Command{
	Use:   "employee",
	Short: "Employee directory commands",
}

var employeeSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync employees from the HR directory",
	Long: `Copy employees from the HR MariaDB directory into the attendance database.
New employees are inserted, names are updated, and employees marked inactive
in HR stop taking part in face recognition. Face data is never touched.

Requires HR_DATABASE_URL to be set (MariaDB DSN).

Examples:
  face-attendance employee sync
  HR_EMPLOYEE_TABLE=staff face-attendance employee sync`,
	RunE: runEmployeeSync,
}

func init() {
	rootCmd.AddCommand(employeeCmd)
	employeeCmd.AddCommand(employeeSyncCmd)
}

func runEmployeeSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	if cfg.HR.DatabaseURL == "" {
		return errors.New("HR_DATABASE_URL environment variable is required")
	}

	b, err := openBackend(ctx, cfg, logging.New(cfg.Log))
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Println("Connecting to HR MariaDB...")
	hrPool, err := mariadb.NewPool(cfg.HR.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to MariaDB: %w", err)
	}
	defer hrPool.Close()

	dir, err := mariadb.NewDirectory(hrPool, cfg.HR.Table)
	if err != nil {
		return err
	}

	n, err := b.service.SyncDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("syncing employees: %w", err)
	}
	fmt.Printf("Synced %d employees from %s\n", n, cfg.HR.Table)
	return nil
}
