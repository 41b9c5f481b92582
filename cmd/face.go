package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/spf13/cobra"
)

var faceCmd = &cobra.Command{
	Use:   "face",
	Short: "Face enrolment and verification commands",
}

var faceRegisterCmd = &cobra.Command{
	Use:   "register <employee-id>",
	Short: "Append face templates to an employee",
	Long: `Append one or more face templates to an employee's collection.

Templates are passed either as the base64 wire encoding (--data) or as a
JSON file holding an array of templates (--file).

Examples:
  face-attendance face register 42 --file alice.json
  face-attendance face register 42 --data W1swLjEsMC4yXV0=`,
	Args: cobra.ExactArgs(1),
	RunE: runFaceRegister,
}

var faceVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Match a probe template and record a check-in or check-out",
	Long: `Match a probe template against all enrolled employees. On a match above
the threshold the employee's attendance is toggled, exactly as a kiosk
request would do.

Examples:
  face-attendance face verify --file probe.json
  face-attendance face verify --file probe.json --image capture.jpg --threshold 80`,
	RunE: runFaceVerify,
}

var faceCountCmd = &cobra.Command{
	Use:   "count <employee-id>",
	Short: "Show how many templates an employee has",
	Args:  cobra.ExactArgs(1),
	RunE:  runFaceCount,
}

var faceClearCmd = &cobra.Command{
	Use:   "clear <employee-id>",
	Short: "Remove all face templates of an employee",
	Args:  cobra.ExactArgs(1),
	RunE:  runFaceClear,
}

var faceActiveCmd = &cobra.Command{
	Use:   "set-active <employee-id>",
	Short: "Enable or disable face recognition for an employee",
	Long: `Enable or disable face recognition for an employee without touching the
stored templates.

Examples:
  face-attendance face set-active 42 --active=false`,
	Args: cobra.ExactArgs(1),
	RunE: runFaceActive,
}

var facePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Keep only the newest templates of every employee",
	RunE:  runFacePrune,
}

func init() {
	rootCmd.AddCommand(faceCmd)
	faceCmd.AddCommand(faceRegisterCmd, faceVerifyCmd, faceCountCmd, faceClearCmd, faceActiveCmd, facePruneCmd)

	faceRegisterCmd.Flags().String("data", "", "Base64-encoded JSON array of templates")
	faceRegisterCmd.Flags().String("file", "", "JSON file with an array of templates")

	faceVerifyCmd.Flags().String("data", "", "Base64-encoded JSON probe template")
	faceVerifyCmd.Flags().String("file", "", "JSON file with the probe template")
	faceVerifyCmd.Flags().String("image", "", "Capture image to store with the record")
	faceVerifyCmd.Flags().Float64("threshold", 0, "Override the acceptance threshold (percent)")
	faceVerifyCmd.Flags().Bool("json", false, "Output as JSON")

	faceClearCmd.Flags().Bool("yes", false, "Do not ask for confirmation")

	faceActiveCmd.Flags().Bool("active", true, "Whether the employee takes part in recognition")

	facePruneCmd.Flags().Int("keep", 0, "Templates to keep per employee (default FACE_MAX_TEMPLATES)")
	facePruneCmd.Flags().Bool("json", false, "Output as JSON")
}

// readEncoded returns the wire encoding from --data, or encodes the raw JSON
// read from --file.
func readEncoded(cmd *cobra.Command) (string, error) {
	data := mustGetString(cmd, "data")
	file := mustGetString(cmd, "file")

	switch {
	case data != "" && file != "":
		return "", errors.New("use either --data or --file, not both")
	case data != "":
		return data, nil
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	default:
		return "", errors.New("face data is required: pass --data or --file")
	}
}

// withService loads config, opens the backend and runs fn.
func withService(fn func(ctx context.Context, cfg *config.Config, b *backend) error) error {
	ctx := context.Background()
	cfg := config.Load()
	b, err := openBackend(ctx, cfg, logging.New(cfg.Log))
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, cfg, b)
}

func runFaceRegister(cmd *cobra.Command, args []string) error {
	id, err := parseEmployeeID(args[0])
	if err != nil {
		return err
	}
	encoded, err := readEncoded(cmd)
	if err != nil {
		return err
	}

	return withService(func(ctx context.Context, _ *config.Config, b *backend) error {
		result, err := b.service.Register(ctx, id, encoded)
		if err != nil {
			return fmt.Errorf("registering employee %d: %w", id, err)
		}
		fmt.Printf("%s (employee %d now has %d templates)\n", result.Message, id, result.TemplatesCount)
		return nil
	})
}

func runFaceVerify(cmd *cobra.Command, args []string) error {
	encoded, err := readEncoded(cmd)
	if err != nil {
		return err
	}
	jsonOutput := mustGetBool(cmd, "json")

	var image string
	if path := mustGetString(cmd, "image"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		image = base64.StdEncoding.EncodeToString(raw)
	}

	ctx := context.Background()
	cfg := config.Load()
	if cmd.Flags().Changed("threshold") {
		cfg.Recognition.Threshold = mustGetFloat64(cmd, "threshold")
	}
	b, err := openBackend(ctx, cfg, logging.New(cfg.Log))
	if err != nil {
		return err
	}
	defer b.Close()

	result, err := b.service.Verify(ctx, encoded, image)
	if errors.Is(err, attendance.ErrNoCandidates) {
		result = &attendance.VerifyResult{Message: "No face encodings registered", Reason: attendance.ReasonNoCandidates}
	} else if err != nil {
		return fmt.Errorf("verifying: %w", err)
	}

	if jsonOutput {
		return outputJSON(result)
	}
	if !result.Success {
		fmt.Printf("Rejected: %s (%s, confidence %.2f%%)\n", result.Message, result.Reason, result.Confidence)
		return nil
	}
	fmt.Printf("%s: %s (employee %d, confidence %.2f%%)\n",
		result.Action, result.EmployeeName, result.EmployeeID, result.Confidence)
	return nil
}

func runFaceCount(cmd *cobra.Command, args []string) error {
	id, err := parseEmployeeID(args[0])
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, _ *config.Config, b *backend) error {
		n, err := b.service.TemplateCount(ctx, id)
		if err != nil {
			return fmt.Errorf("counting templates of employee %d: %w", id, err)
		}
		fmt.Printf("Employee %d has %d face templates\n", id, n)
		return nil
	})
}

func runFaceClear(cmd *cobra.Command, args []string) error {
	id, err := parseEmployeeID(args[0])
	if err != nil {
		return err
	}
	if !mustGetBool(cmd, "yes") {
		return fmt.Errorf("refusing to clear face data of employee %d without --yes", id)
	}
	return withService(func(ctx context.Context, _ *config.Config, b *backend) error {
		if err := b.service.ClearFaces(ctx, id); err != nil {
			return fmt.Errorf("clearing employee %d: %w", id, err)
		}
		fmt.Printf("Face data of employee %d removed\n", id)
		return nil
	})
}

func runFaceActive(cmd *cobra.Command, args []string) error {
	id, err := parseEmployeeID(args[0])
	if err != nil {
		return err
	}
	active := mustGetBool(cmd, "active")
	return withService(func(ctx context.Context, _ *config.Config, b *backend) error {
		if err := b.service.SetFaceActive(ctx, id, active); err != nil {
			return fmt.Errorf("updating employee %d: %w", id, err)
		}
		state := "enabled"
		if !active {
			state = "disabled"
		}
		fmt.Printf("Face recognition %s for employee %d\n", state, id)
		return nil
	})
}

func runFacePrune(cmd *cobra.Command, args []string) error {
	keep := mustGetInt(cmd, "keep")
	jsonOutput := mustGetBool(cmd, "json")

	return withService(func(ctx context.Context, cfg *config.Config, b *backend) error {
		if keep == 0 {
			keep = cfg.Recognition.MaxTemplates
		}
		if keep <= 0 {
			return errors.New("nothing to prune: pass --keep or set FACE_MAX_TEMPLATES")
		}
		report, err := b.service.Prune(ctx, keep)
		if err != nil {
			return fmt.Errorf("pruning templates: %w", err)
		}
		if jsonOutput {
			return outputJSON(report)
		}
		fmt.Printf("Scanned %d profiles, pruned %d, removed %d templates (keep %d)\n",
			report.ProfilesScanned, report.ProfilesPruned, report.TemplatesRemoved, keep)
		return nil
	})
}
