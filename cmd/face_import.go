package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var faceImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Enrol many employees from a JSON file",
	Long: `Append face templates for many employees at once.

The file holds a JSON array of entries. An entry names the employee by
employee_id or, when the ID is unknown, by name (matched ignoring case and
diacritics; the name must be unique):

  [
    {"employee_id": 42, "templates": [[0.12, -0.03, ...]]},
    {"name": "Jana Nováková", "templates": [[...], [...]]}
  ]

Examples:
  face-attendance face import enrolment.json
  face-attendance face import enrolment.json --concurrency 8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFaceImport,
}

func init() {
	faceCmd.AddCommand(faceImportCmd)

	faceImportCmd.Flags().Int("concurrency", constants.ImportWorkers, "Number of parallel workers")
	faceImportCmd.Flags().Bool("dry-run", false, "Resolve employees and validate templates without writing")
	faceImportCmd.Flags().Bool("json", false, "Output as JSON")
}

type importEntry struct {
	EmployeeID int64                `json:"employee_id"`
	Name       string               `json:"name"`
	Templates  []facematch.Template `json:"templates"`
}

// ImportResult summarises a face import run.
type ImportResult struct {
	Success       bool          `json:"success"`
	Entries       int           `json:"entries"`
	Registered    int           `json:"registered"`
	Templates     int           `json:"templates"`
	Errors        int           `json:"errors"`
	Failures      []importError `json:"failures,omitempty"`
	DryRun        bool          `json:"dry_run"`
	DurationMs    int64         `json:"duration_ms"`
	DurationHuman string        `json:"duration_human,omitempty"`
}

type importError struct {
	Entry int    `json:"entry"`
	Error string `json:"error"`
}

// loadImportFile reads and validates an import file. Every entry needs an
// employee reference and at least one template.
func loadImportFile(path string) ([]importEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var entries []importEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, e := range entries {
		if e.EmployeeID <= 0 && e.Name == "" {
			return nil, fmt.Errorf("entry %d: employee_id or name is required", i)
		}
		if len(e.Templates) == 0 {
			return nil, fmt.Errorf("entry %d: no templates", i)
		}
	}
	return entries, nil
}

// resolveEmployee returns the employee ID of an entry, looking the name up
// when no ID was given.
func resolveEmployee(ctx context.Context, employees database.EmployeeReader, e importEntry) (int64, error) {
	if e.EmployeeID > 0 {
		return e.EmployeeID, nil
	}
	matches, err := employees.FindEmployeesByName(ctx, e.Name)
	if err != nil {
		return 0, fmt.Errorf("looking up %q: %w", e.Name, err)
	}
	switch len(matches) {
	case 0:
		return 0, fmt.Errorf("no employee named %q", e.Name)
	case 1:
		return matches[0].ID, nil
	default:
		return 0, fmt.Errorf("%d employees named %q", len(matches), e.Name)
	}
}

func runFaceImport(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	dryRun := mustGetBool(cmd, "dry-run")
	jsonOutput := mustGetBool(cmd, "json")
	if concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}

	entries, err := loadImportFile(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg := config.Load()
	startTime := time.Now()

	b, err := openBackend(ctx, cfg, logging.New(cfg.Log))
	if err != nil {
		return err
	}
	defer b.Close()

	if !jsonOutput {
		fmt.Printf("Importing %d entries\n", len(entries))
		if dryRun {
			fmt.Println("DRY RUN - no changes will be written")
		}
		fmt.Println()
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(entries),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("employees"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var registered, templates int64
	var mu sync.Mutex
	var failures []importError
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry importEntry) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			n, err := importOne(ctx, b, entry, dryRun)
			if err != nil {
				mu.Lock()
				failures = append(failures, importError{Entry: i, Error: err.Error()})
				mu.Unlock()
			} else {
				atomic.AddInt64(&registered, 1)
				atomic.AddInt64(&templates, int64(n))
			}

			if bar != nil {
				bar.Add(1)
			}
		}(i, entry)
	}

	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	duration := time.Since(startTime)
	result := ImportResult{
		Success:       len(failures) == 0,
		Entries:       len(entries),
		Registered:    int(registered),
		Templates:     int(templates),
		Errors:        len(failures),
		Failures:      failures,
		DryRun:        dryRun,
		DurationMs:    duration.Milliseconds(),
		DurationHuman: duration.Round(time.Millisecond).String(),
	}

	if jsonOutput {
		result.DurationHuman = ""
		return outputJSON(result)
	}

	fmt.Println("\nImport complete!")
	fmt.Printf("  Entries:    %d\n", result.Entries)
	fmt.Printf("  Registered: %d\n", result.Registered)
	fmt.Printf("  Templates:  %d\n", result.Templates)
	if result.Errors > 0 {
		fmt.Printf("  Errors:     %d\n", result.Errors)
		for _, f := range result.Failures {
			fmt.Printf("    entry %d: %s\n", f.Entry, f.Error)
		}
	}
	fmt.Printf("  Duration:   %s\n", result.DurationHuman)
	return nil
}

// importOne registers one entry and returns the number of templates sent.
func importOne(ctx context.Context, b *backend, entry importEntry, dryRun bool) (int, error) {
	id, err := resolveEmployee(ctx, b.employees, entry)
	if err != nil {
		return 0, err
	}
	encoded, err := facematch.EncodeTemplates(entry.Templates)
	if err != nil {
		return 0, err
	}
	if dryRun {
		if _, err := facematch.ParseTemplateList(encoded); err != nil {
			return 0, err
		}
		if _, err := b.employees.GetEmployee(ctx, id); err != nil {
			return 0, fmt.Errorf("employee %d: %w", id, err)
		}
		return len(entry.Templates), nil
	}
	if _, err := b.service.Register(ctx, id, encoded); err != nil {
		return 0, fmt.Errorf("employee %d: %w", id, err)
	}
	return len(entry.Templates), nil
}
