// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// MockEmployeeStore is a mock implementation of database.EmployeeWriter
type MockEmployeeStore struct {
	mu        sync.RWMutex
	employees map[int64]*database.Employee

	profileQueries int
	writes         int

	// Error injection
	GetError          error
	ListProfilesError error
	UpdateError       error
	UpsertError       error
}

// NewMockEmployeeStore creates a new mock employee store
func NewMockEmployeeStore() *MockEmployeeStore {
	return &MockEmployeeStore{
		employees: make(map[int64]*database.Employee),
	}
}

// AddEmployee adds an employee to the mock store
func (m *MockEmployeeStore) AddEmployee(emp database.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = &emp
}

// ProfileQueries returns how many times ListFaceProfiles was called
func (m *MockEmployeeStore) ProfileQueries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profileQueries
}

// WriteCount returns how many face data writes were committed
func (m *MockEmployeeStore) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MockEmployeeStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(m.employees))
	for id := range m.employees {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetEmployee returns a copy of the employee
func (m *MockEmployeeStore) GetEmployee(ctx context.Context, id int64) (*database.Employee, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, fmt.Errorf("employee %d: %w", id, database.ErrNotFound)
	}
	cp := *emp
	return &cp, nil
}

// FindEmployeesByName matches on the normalized name
func (m *MockEmployeeStore) FindEmployeesByName(ctx context.Context, name string) ([]database.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := facematch.NormalizeEmployeeName(name)
	var out []database.Employee
	for _, id := range m.sortedIDs() {
		if facematch.NormalizeEmployeeName(m.employees[id].Name) == want {
			out = append(out, *m.employees[id])
		}
	}
	return out, nil
}

// ListFaceProfiles returns active employees with face data, ordered by ID
func (m *MockEmployeeStore) ListFaceProfiles(ctx context.Context) ([]database.FaceProfile, error) {
	m.mu.Lock()
	m.profileQueries++
	m.mu.Unlock()
	if m.ListProfilesError != nil {
		return nil, m.ListProfilesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.FaceProfile
	for _, id := range m.sortedIDs() {
		emp := m.employees[id]
		if emp.FaceActive && emp.FaceEncoding != "" {
			out = append(out, database.FaceProfile{EmployeeID: emp.ID, Name: emp.Name, FaceEncoding: emp.FaceEncoding})
		}
	}
	return out, nil
}

// ListEnrolled returns employees with face data
func (m *MockEmployeeStore) ListEnrolled(ctx context.Context) ([]database.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Employee
	for _, id := range m.sortedIDs() {
		if m.employees[id].FaceEncoding != "" {
			out = append(out, *m.employees[id])
		}
	}
	return out, nil
}

// ListActive returns employees eligible for recognition
func (m *MockEmployeeStore) ListActive(ctx context.Context) ([]database.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Employee
	for _, id := range m.sortedIDs() {
		if m.employees[id].FaceActive {
			out = append(out, *m.employees[id])
		}
	}
	return out, nil
}

// CountEmployees returns total and registered counts
func (m *MockEmployeeStore) CountEmployees(ctx context.Context) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	registered := 0
	for _, emp := range m.employees {
		if emp.FaceEncoding != "" {
			registered++
		}
	}
	return len(m.employees), registered, nil
}

// UpdateFaceEncoding applies fn under the store lock
func (m *MockEmployeeStore) UpdateFaceEncoding(ctx context.Context, id int64, fn func(string) (string, error)) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return fmt.Errorf("employee %d: %w", id, database.ErrNotFound)
	}
	next, err := fn(emp.FaceEncoding)
	if err != nil {
		return err
	}
	emp.FaceEncoding = next
	emp.UpdatedAt = time.Now()
	m.writes++
	return nil
}

// SetFaceActive toggles recognition eligibility
func (m *MockEmployeeStore) SetFaceActive(ctx context.Context, id int64, active bool) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return fmt.Errorf("employee %d: %w", id, database.ErrNotFound)
	}
	emp.FaceActive = active
	return nil
}

// UpsertEmployees inserts new employees and renames existing ones
func (m *MockEmployeeStore) UpsertEmployees(ctx context.Context, employees []database.Employee) (int, error) {
	if m.UpsertError != nil {
		return 0, m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range employees {
		if cur, ok := m.employees[e.ID]; ok {
			cur.Name = e.Name
			cur.FaceActive = e.FaceActive
			continue
		}
		cp := e
		cp.FaceEncoding = ""
		m.employees[e.ID] = &cp
	}
	return len(employees), nil
}

// MockAttendanceStore is a mock implementation of database.AttendanceWriter
type MockAttendanceStore struct {
	mu      sync.RWMutex
	records []*database.AttendanceRecord
	nextID  int64
	writes  int

	// Error injection
	GetOpenError error
	CreateError  error
	CloseError   error
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{nextID: 1}
}

// AddRecord seeds a record
func (m *MockAttendanceStore) AddRecord(rec database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = m.nextID
	}
	if rec.ID >= m.nextID {
		m.nextID = rec.ID + 1
	}
	m.records = append(m.records, &rec)
}

// Records returns copies of all records in insertion order
func (m *MockAttendanceStore) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.AttendanceRecord, len(m.records))
	for i, r := range m.records {
		out[i] = *r
	}
	return out
}

// WriteCount returns the number of committed writes
func (m *MockAttendanceStore) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// GetOpenAttendance returns the open record of an employee
func (m *MockAttendanceStore) GetOpenAttendance(ctx context.Context, employeeID int64) (*database.AttendanceRecord, error) {
	if m.GetOpenError != nil {
		return nil, m.GetOpenError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.EmployeeID == employeeID && r.IsOpen() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

// CreateCheckIn inserts a new open record
func (m *MockAttendanceStore) CreateCheckIn(ctx context.Context, rec *database.AttendanceRecord) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.EmployeeID == rec.EmployeeID && r.IsOpen() {
			return database.ErrOpenAttendanceExists
		}
	}
	rec.ID = m.nextID
	m.nextID++
	cp := *rec
	m.records = append(m.records, &cp)
	m.writes++
	return nil
}

// CloseAttendance writes the check-out fields
func (m *MockAttendanceStore) CloseAttendance(ctx context.Context, rec *database.AttendanceRecord) error {
	if m.CloseError != nil {
		return m.CloseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == rec.ID {
			r.CheckOut = rec.CheckOut
			r.CheckOutMethod = rec.CheckOutMethod
			r.ConfidenceScore = rec.ConfidenceScore
			r.FaceImage = rec.FaceImage
			m.writes++
			return nil
		}
	}
	return fmt.Errorf("attendance %d: %w", rec.ID, database.ErrNotFound)
}

func (m *MockAttendanceStore) faceRecords(since time.Time) []*database.AttendanceRecord {
	var out []*database.AttendanceRecord
	for _, r := range m.records {
		if r.CheckInMethod == constants.MethodFace && !r.CheckIn.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

// FaceStats aggregates face attendances
func (m *MockAttendanceStore) FaceStats(ctx context.Context, window, recent time.Time) (*database.FaceAttendanceStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &database.FaceAttendanceStats{
		Total:  len(m.faceRecords(time.Time{})),
		Recent: len(m.faceRecords(recent)),
	}
	inWindow := m.faceRecords(window)
	stats.InWindow = len(inWindow)
	sum := 0.0
	for _, r := range inWindow {
		sum += r.ConfidenceScore
		switch {
		case r.ConfidenceScore >= 90:
			stats.Buckets.Excellent++
		case r.ConfidenceScore >= 80:
			stats.Buckets.Good++
		case r.ConfidenceScore >= 70:
			stats.Buckets.Fair++
		default:
			stats.Buckets.Low++
		}
	}
	if len(inWindow) > 0 {
		stats.AvgConfidence = sum / float64(len(inWindow))
	}
	return stats, nil
}

// DailyFaceUsage groups face attendances by UTC day
func (m *MockAttendanceStore) DailyFaceUsage(ctx context.Context, since time.Time) ([]database.DailyUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[time.Time]int)
	for _, r := range m.faceRecords(since) {
		counts[r.CheckIn.UTC().Truncate(24*time.Hour)]++
	}
	out := make([]database.DailyUsage, 0, len(counts))
	for day, n := range counts {
		out = append(out, database.DailyUsage{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (m *MockAttendanceStore) perEmployee(since time.Time) []database.EmployeeUsage {
	byID := make(map[int64]*database.EmployeeUsage)
	for _, r := range m.faceRecords(since) {
		u, ok := byID[r.EmployeeID]
		if !ok {
			u = &database.EmployeeUsage{EmployeeID: r.EmployeeID}
			byID[r.EmployeeID] = u
		}
		u.AvgConfidence = (u.AvgConfidence*float64(u.Count) + r.ConfidenceScore) / float64(u.Count+1)
		u.Count++
	}
	out := make([]database.EmployeeUsage, 0, len(byID))
	for _, u := range byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

// TopFaceUsers returns the most active employees
func (m *MockAttendanceStore) TopFaceUsers(ctx context.Context, since time.Time, limit int) ([]database.EmployeeUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.perEmployee(since)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// EmployeeConfidence returns per-employee average confidence
func (m *MockAttendanceStore) EmployeeConfidence(ctx context.Context, since time.Time) ([]database.EmployeeUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.perEmployee(since), nil
}

// MockAttemptRecorder is a mock implementation of database.AttemptRecorder
type MockAttemptRecorder struct {
	mu       sync.RWMutex
	attempts []database.RecognitionAttempt

	// Error injection
	RecordError error
}

// NewMockAttemptRecorder creates a new mock attempt recorder
func NewMockAttemptRecorder() *MockAttemptRecorder {
	return &MockAttemptRecorder{}
}

// Attempts returns recorded attempts
func (m *MockAttemptRecorder) Attempts() []database.RecognitionAttempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.RecognitionAttempt(nil), m.attempts...)
}

// RecordAttempt stores an attempt
func (m *MockAttemptRecorder) RecordAttempt(ctx context.Context, a *database.RecognitionAttempt) error {
	if m.RecordError != nil {
		return m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, *a)
	return nil
}

// AttemptStats counts attempts by outcome
func (m *MockAttemptRecorder) AttemptStats(ctx context.Context, since time.Time) (*database.AttemptStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s database.AttemptStats
	for _, a := range m.attempts {
		if a.CreatedAt.Before(since) {
			continue
		}
		s.Total++
		switch a.Outcome {
		case constants.OutcomeCheckIn:
			s.CheckIns++
		case constants.OutcomeCheckOut:
			s.CheckOuts++
		case constants.OutcomeRejected:
			s.Rejected++
		case constants.OutcomeNoCandidates:
			s.NoCandidates++
		}
	}
	return &s, nil
}

// MockDirectory is a mock implementation of database.DirectoryReader
type MockDirectory struct {
	Employees []database.Employee
	Error     error
}

// ListDirectory returns the configured employees
func (m *MockDirectory) ListDirectory(ctx context.Context) ([]database.Employee, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Employees, nil
}
