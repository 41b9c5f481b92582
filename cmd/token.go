package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "API token commands",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <subject>",
	Short: "Issue a signed API token",
	Long: `Issue a bearer token for the API, signed with AUTH_JWT_SECRET.

Kiosk tokens can only verify faces; manager tokens can also enrol faces,
refresh the cache and read health reports.

Examples:
  face-attendance token issue lobby-kiosk --role kiosk --ttl 8760h
  face-attendance token issue jana --role manager`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenIssue,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().String("role", middleware.RoleKiosk, "Token role (kiosk or manager)")
	tokenIssueCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	role := mustGetString(cmd, "role")
	ttl := mustGetDuration(cmd, "ttl")

	if role != middleware.RoleKiosk && role != middleware.RoleManager {
		return fmt.Errorf("unknown role %q", role)
	}

	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET environment variable is required")
	}

	token, err := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).Issue(args[0], role, ttl)
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}
	fmt.Println(token)
	return nil
}
