// Package health reports on the state of the face recognition system: store
// contents, host resources, usage and recognition quality.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facecache"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/sirupsen/logrus"
)

// Status of a single check or of the whole report.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

func (s Status) rank() int {
	switch s {
	case StatusError:
		return 2
	case StatusWarning:
		return 1
	}
	return 0
}

// worst returns the most severe status.
func worst(statuses ...Status) Status {
	out := StatusOK
	for _, s := range statuses {
		if s.rank() > out.rank() {
			out = s
		}
	}
	return out
}

// CacheStatusSource exposes the encoding cache state.
type CacheStatusSource interface {
	Status() facecache.Status
}

// Deps are the data sources of a Checker. Attempts and Cache are optional.
type Deps struct {
	Employees  database.EmployeeReader
	Attendance database.AttendanceReader
	Attempts   database.AttemptRecorder
	Cache      CacheStatusSource
	System     SystemProbe
}

// Checker runs the health check and diagnostics.
type Checker struct {
	employees   database.EmployeeReader
	attendance  database.AttendanceReader
	attempts    database.AttemptRecorder
	cache       CacheStatusSource
	system      SystemProbe
	recognition config.RecognitionConfig
	limits      config.HealthConfig
	log         logrus.FieldLogger
	now         func() time.Time
}

// NewChecker creates a checker. A nil System probe samples the local host.
func NewChecker(deps Deps, cfg *config.Config, log logrus.FieldLogger) *Checker {
	if deps.System == nil {
		deps.System = NewHostProbe()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Checker{
		employees:   deps.Employees,
		attendance:  deps.Attendance,
		attempts:    deps.Attempts,
		cache:       deps.Cache,
		system:      deps.System,
		recognition: cfg.Recognition,
		limits:      cfg.Health,
		log:         log,
		now:         time.Now,
	}
}

// Result is the common part of every check.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func (r *Result) warn(format string, args ...any) {
	r.Status = worst(r.Status, StatusWarning)
	r.Message = fmt.Sprintf(format, args...)
}

type DatabaseCheck struct {
	Result
	EmployeeCount             int `json:"employee_count"`
	FaceRegisteredCount       int `json:"face_registered_count"`
	RecentFaceAttendanceCount int `json:"recent_face_attendance_count"`
}

type SystemCheck struct {
	Result
	*SystemStats
}

// EmployeeCount is a named per-employee counter.
type EmployeeCount struct {
	EmployeeID    int64   `json:"employee_id"`
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence,omitempty"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type UsageCheck struct {
	Result
	TotalFaceAttendances  int             `json:"total_face_attendances"`
	RecentFaceAttendances int             `json:"recent_face_attendances"`
	DailyUsage            []DayCount      `json:"daily_usage"`
	TopEmployees          []EmployeeCount `json:"top_employees"`
}

// ConfidenceRange is one bucket of the confidence distribution.
type ConfidenceRange struct {
	Range      string  `json:"range"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type PerformanceCheck struct {
	Result
	AvgConfidence float64           `json:"avg_confidence"`
	Distribution  []ConfidenceRange `json:"confidence_distribution"`
}

type CacheCheck struct {
	Result
	State facecache.Status `json:"state"`
}

type Checks struct {
	Database    DatabaseCheck    `json:"database_check"`
	System      SystemCheck      `json:"system_check"`
	Usage       UsageCheck       `json:"usage_statistics"`
	Performance PerformanceCheck `json:"recognition_performance"`
	Cache       CacheCheck       `json:"cache_check"`
}

// Report is the result of Check. Status is the worst status of all checks.
type Report struct {
	Status       Status    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	ResponseTime float64   `json:"response_time"`
	Checks       Checks    `json:"checks"`
}

// Check runs every check. Failures of individual sources are reported in the
// corresponding check, never as an error.
func (c *Checker) Check(ctx context.Context) *Report {
	start := c.now()
	report := &Report{Timestamp: start}

	now := c.now()
	stats, statsErr := c.attendance.FaceStats(ctx, now.Add(-constants.UsageWindow), now.Add(-constants.RecentActivityWindow))

	report.Checks.Database = c.checkDatabase(ctx, stats, statsErr)
	report.Checks.System = c.checkSystem(ctx)
	report.Checks.Usage = c.checkUsage(ctx, stats, statsErr)
	report.Checks.Performance = c.checkPerformance(stats, statsErr)
	report.Checks.Cache = c.checkCache()

	report.Status = worst(
		report.Checks.Database.Status,
		report.Checks.System.Status,
		report.Checks.Usage.Status,
		report.Checks.Performance.Status,
		report.Checks.Cache.Status,
	)
	report.ResponseTime = c.now().Sub(start).Seconds()

	logging.RecognitionMetrics(c.log, logrus.Fields{
		"health_status":  string(report.Status),
		"employees":      report.Checks.Database.EmployeeCount,
		"registered":     report.Checks.Database.FaceRegisteredCount,
		"avg_confidence": report.Checks.Performance.AvgConfidence,
	})
	return report
}

func (c *Checker) checkDatabase(ctx context.Context, stats *database.FaceAttendanceStats, statsErr error) DatabaseCheck {
	out := DatabaseCheck{Result: Result{Status: StatusOK, Message: "Database checks passed"}}

	total, registered, err := c.employees.CountEmployees(ctx)
	if err != nil {
		out.Status, out.Message = StatusError, "Database check failed"
		logging.SystemError(c.log, "health_database", err, nil)
		return out
	}
	out.EmployeeCount, out.FaceRegisteredCount = total, registered
	if total > 0 && registered == 0 {
		out.warn("No employees have registered face data")
	}

	if statsErr != nil {
		out.Status, out.Message = StatusError, "Database check failed"
		return out
	}
	out.RecentFaceAttendanceCount = stats.Recent
	return out
}

func (c *Checker) checkSystem(ctx context.Context) SystemCheck {
	out := SystemCheck{Result: Result{Status: StatusOK, Message: "System resources are adequate"}}

	s, err := c.system.Sample(ctx)
	if err != nil {
		out.warn("Could not check system resources")
		logging.SystemError(c.log, "health_system", err, nil)
		return out
	}
	out.SystemStats = s

	if s.Memory.PercentUsed > c.limits.MemoryWarningPercent {
		out.warn("High memory usage: %.1f%%", s.Memory.PercentUsed)
	}
	if s.Disk.PercentUsed > c.limits.DiskCriticalPercent {
		out.warn("Low disk space: %.1f%% used", s.Disk.PercentUsed)
	}
	if s.CPU.PercentUsed > c.limits.CPUWarningPercent {
		out.warn("High CPU usage: %.1f%%", s.CPU.PercentUsed)
	}
	return out
}

func (c *Checker) checkUsage(ctx context.Context, stats *database.FaceAttendanceStats, statsErr error) UsageCheck {
	out := UsageCheck{
		Result:       Result{Status: StatusOK, Message: "Usage statistics retrieved successfully"},
		DailyUsage:   []DayCount{},
		TopEmployees: []EmployeeCount{},
	}
	if statsErr != nil {
		out.warn("Error retrieving usage statistics")
		logging.SystemError(c.log, "health_usage", statsErr, nil)
		return out
	}
	out.TotalFaceAttendances = stats.Total
	out.RecentFaceAttendances = stats.InWindow

	now := c.now()
	daily, err := c.attendance.DailyFaceUsage(ctx, now.Add(-constants.RecentActivityWindow))
	if err != nil {
		out.warn("Error retrieving usage statistics")
		logging.SystemError(c.log, "health_usage", err, nil)
		return out
	}
	for _, d := range daily {
		out.DailyUsage = append(out.DailyUsage, DayCount{Date: d.Day.Format(time.DateOnly), Count: d.Count})
	}

	top, err := c.attendance.TopFaceUsers(ctx, now.Add(-constants.UsageWindow), constants.TopEmployeesLimit)
	if err != nil {
		out.warn("Error retrieving usage statistics")
		logging.SystemError(c.log, "health_usage", err, nil)
		return out
	}
	for _, u := range top {
		out.TopEmployees = append(out.TopEmployees, EmployeeCount{
			EmployeeID: u.EmployeeID,
			Name:       c.employeeName(ctx, u),
			Count:      u.Count,
		})
	}
	return out
}

// employeeName falls back to a lookup when the usage row carries no name.
func (c *Checker) employeeName(ctx context.Context, u database.EmployeeUsage) string {
	if u.Name != "" {
		return u.Name
	}
	if emp, err := c.employees.GetEmployee(ctx, u.EmployeeID); err == nil {
		return emp.Name
	}
	return "Unknown"
}

func (c *Checker) checkPerformance(stats *database.FaceAttendanceStats, statsErr error) PerformanceCheck {
	out := PerformanceCheck{
		Result:       Result{Status: StatusOK, Message: "Recognition performance is acceptable"},
		Distribution: []ConfidenceRange{},
	}
	if statsErr != nil {
		out.warn("Error checking recognition performance")
		return out
	}
	out.AvgConfidence = stats.AvgConfidence
	if out.AvgConfidence > 0 && out.AvgConfidence < c.limits.AvgConfidenceWarning {
		out.warn("Low average recognition confidence: %.2f%%", out.AvgConfidence)
	}

	b := stats.Buckets
	total := b.Total()
	for _, r := range []ConfidenceRange{
		{Range: "90-100%", Count: b.Excellent},
		{Range: "80-90%", Count: b.Good},
		{Range: "70-80%", Count: b.Fair},
		{Range: "Below 70%", Count: b.Low},
	} {
		if r.Count == 0 {
			continue
		}
		r.Percentage = float64(r.Count) / float64(total) * 100
		out.Distribution = append(out.Distribution, r)
	}

	if total > 0 {
		if low := float64(b.Low) / float64(total) * 100; low > c.limits.LowConfidenceShareWarning {
			out.warn("%.2f%% of recognitions have confidence below 70%%", low)
		}
	}
	return out
}

func (c *Checker) checkCache() CacheCheck {
	out := CacheCheck{Result: Result{Status: StatusOK}}
	if c.cache == nil {
		out.Message = "Encoding cache not configured"
		return out
	}
	out.State = c.cache.Status()
	switch {
	case !out.State.Exists:
		out.Message = "Encoding cache has not been built yet"
	case !out.State.Valid:
		out.Message = "Encoding cache is stale and will be rebuilt on the next verification"
	default:
		out.Message = fmt.Sprintf("Encoding cache holds %d employees", out.State.Size)
	}
	return out
}
