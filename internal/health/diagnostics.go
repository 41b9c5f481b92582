package health

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/sirupsen/logrus"
)

// Issue categories reported by Diagnose.
const (
	IssueDataIntegrity      = "data_integrity"
	IssueConfiguration      = "configuration"
	IssueRecognitionQuality = "recognition_quality"
	IssueTemplateCollision  = "template_collision"
	IssueSystem             = "system"
)

// minAttemptsForRate avoids flagging a rejection rate computed from a
// handful of attempts.
const minAttemptsForRate = 20

// Issue is one problem found by Diagnose.
type Issue struct {
	Type     string `json:"type"`
	Severity Status `json:"severity"`
	Message  string `json:"message"`
}

// Diagnostics lists detected problems and what to do about them.
type Diagnostics struct {
	Timestamp       time.Time `json:"timestamp"`
	Issues          []Issue   `json:"issues"`
	Recommendations []string  `json:"recommendations"`
}

func (d *Diagnostics) add(kind string, severity Status, format string, args ...any) {
	d.Issues = append(d.Issues, Issue{Type: kind, Severity: severity, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) has(kind string) bool {
	return slices.ContainsFunc(d.Issues, func(i Issue) bool { return i.Type == kind })
}

// Diagnose inspects face data, configuration and recent recognition quality.
func (c *Checker) Diagnose(ctx context.Context) *Diagnostics {
	defer logging.Timed(c.log, "diagnostics")()

	d := &Diagnostics{Timestamp: c.now(), Issues: []Issue{}, Recommendations: []string{}}

	pool, names := c.checkFaceData(ctx, d)
	c.checkConfiguration(ctx, d)
	c.checkAttendancePatterns(ctx, d)
	c.checkRejectionRate(ctx, d)
	c.checkCollisions(d, pool, names)
	c.recommend(d)

	logging.For(c.log).WithFields(logrus.Fields{
		"issues":          len(d.Issues),
		"recommendations": len(d.Recommendations),
	}).Info("diagnostics completed")
	return d
}

// checkFaceData validates the templates of every active employee and returns
// the decodable ones for the collision scan.
func (c *Checker) checkFaceData(ctx context.Context, d *Diagnostics) ([]facematch.Candidate, map[int64]string) {
	employees, err := c.employees.ListActive(ctx)
	if err != nil {
		d.add(IssueSystem, StatusError, "Error checking face data integrity")
		logging.SystemError(c.log, "diagnostics", err, nil)
		return nil, nil
	}

	names := make(map[int64]string, len(employees))
	var pool []facematch.Candidate
	for _, emp := range employees {
		names[emp.ID] = emp.Name
		if emp.FaceEncoding == "" {
			d.add(IssueDataIntegrity, StatusWarning,
				"Employee %s has face recognition enabled but no face data", emp.Name)
			continue
		}
		tpls, err := facematch.DecodeTemplates(emp.FaceEncoding)
		switch {
		case err != nil:
			d.add(IssueDataIntegrity, StatusError, "Employee %s has corrupted face data", emp.Name)
			continue
		case len(tpls) == 0:
			d.add(IssueDataIntegrity, StatusError, "Employee %s has invalid face data format", emp.Name)
			continue
		case len(tpls) < c.limits.MinTemplates:
			d.add(IssueDataIntegrity, StatusWarning,
				"Employee %s has only %d face template(s)", emp.Name, len(tpls))
		}
		pool = append(pool, facematch.Candidate{EmployeeID: emp.ID, Name: emp.Name, Templates: tpls})
	}
	return pool, names
}

func (c *Checker) checkConfiguration(ctx context.Context, d *Diagnostics) {
	threshold := c.recognition.Threshold
	switch {
	case threshold < c.limits.ThresholdLow:
		d.add(IssueConfiguration, StatusWarning, "Face recognition threshold is set very low (%.1f%%)", threshold)
	case threshold > c.limits.ThresholdHigh:
		d.add(IssueConfiguration, StatusWarning, "Face recognition threshold is set very high (%.1f%%)", threshold)
	}

	if !c.recognition.StoreImages {
		return
	}
	s, err := c.system.Sample(ctx)
	if err != nil {
		logging.SystemError(c.log, "diagnostics", err, nil)
		return
	}
	if s.Disk.PercentUsed > c.limits.DiskWarningPercent {
		d.add(IssueConfiguration, StatusWarning,
			"Storing attendance images is enabled but disk space is low (%.1f%% used)", s.Disk.PercentUsed)
	}
}

func (c *Checker) checkAttendancePatterns(ctx context.Context, d *Diagnostics) {
	usage, err := c.attendance.EmployeeConfidence(ctx, c.now().Add(-constants.UsageWindow))
	if err != nil {
		d.add(IssueSystem, StatusError, "Error checking attendance patterns")
		logging.SystemError(c.log, "diagnostics", err, nil)
		return
	}
	slices.SortFunc(usage, func(a, b database.EmployeeUsage) int {
		switch {
		case a.AvgConfidence < b.AvgConfidence:
			return -1
		case a.AvgConfidence > b.AvgConfidence:
			return 1
		}
		return 0
	})
	for _, u := range usage {
		if u.AvgConfidence <= 0 || u.AvgConfidence >= c.limits.EmployeeConfidenceWarning {
			continue
		}
		d.add(IssueRecognitionQuality, StatusWarning,
			"Employee %s has consistently low recognition confidence (%.2f%%)", c.employeeName(ctx, u), u.AvgConfidence)
	}
}

func (c *Checker) checkRejectionRate(ctx context.Context, d *Diagnostics) {
	if c.attempts == nil {
		return
	}
	stats, err := c.attempts.AttemptStats(ctx, c.now().Add(-constants.RecentActivityWindow))
	if err != nil {
		logging.SystemError(c.log, "diagnostics", err, nil)
		return
	}
	if stats.Total < minAttemptsForRate {
		return
	}
	if rate := stats.RejectionRate(); rate > c.limits.RejectionRateWarning {
		d.add(IssueRecognitionQuality, StatusWarning,
			"%.1f%% of recognition attempts in the last 7 days were rejected", rate)
	}
}

func (c *Checker) checkCollisions(d *Diagnostics, pool []facematch.Candidate, names map[int64]string) {
	if len(pool) < 2 || c.limits.CollisionDistance <= 0 {
		return
	}
	index := database.NewTemplateIndex()
	index.Build(pool)

	seen := make(map[[2]int64]struct{})
	for _, col := range index.Collisions(c.limits.CollisionDistance) {
		pair := [2]int64{min(col.A.EmployeeID, col.B.EmployeeID), max(col.A.EmployeeID, col.B.EmployeeID)}
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		d.add(IssueTemplateCollision, StatusWarning,
			"Employees %s and %s have nearly identical face templates (distance %.3f)",
			names[pair[0]], names[pair[1]], col.Distance)
	}
}

func (c *Checker) recommend(d *Diagnostics) {
	if d.has(IssueDataIntegrity) {
		d.Recommendations = append(d.Recommendations,
			"Re-register face templates for employees with missing or corrupted data",
			"Ensure employees have at least 3-5 face templates registered from different angles",
		)
	}

	if d.has(IssueConfiguration) {
		switch {
		case c.recognition.Threshold > c.limits.ThresholdHigh:
			d.Recommendations = append(d.Recommendations,
				"Consider lowering the recognition threshold to improve success rate")
		case c.recognition.Threshold < c.limits.ThresholdLow:
			d.Recommendations = append(d.Recommendations,
				"Consider raising the recognition threshold to improve security")
		}
	}

	if d.has(IssueRecognitionQuality) {
		d.Recommendations = append(d.Recommendations,
			"Improve lighting conditions in the kiosk area",
			"Re-register face templates for employees with consistently low recognition confidence",
		)
	}
	if d.has(IssueTemplateCollision) {
		d.Recommendations = append(d.Recommendations,
			"Verify that overlapping templates were registered for the right employee and clear the wrong ones",
		)
	}

	d.Recommendations = append(d.Recommendations,
		"Regularly clean the camera lens for optimal recognition",
		"Consider updating face templates every 3-6 months",
	)
}
