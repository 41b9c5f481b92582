package facecache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func encode(t *testing.T, tpls ...facematch.Template) string {
	t.Helper()
	s, err := facematch.EncodeTemplates(tpls)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return s
}

func seededStore(t *testing.T) *mock.MockEmployeeStore {
	t.Helper()
	store := mock.NewMockEmployeeStore()
	store.AddEmployee(database.Employee{ID: 1, Name: "Alice", FaceActive: true, FaceEncoding: encode(t, facematch.Template{1, 0, 0})})
	store.AddEmployee(database.Employee{ID: 2, Name: "Bob", FaceActive: true, FaceEncoding: encode(t, facematch.Template{0, 1, 0})})
	return store
}

func TestGet_ReusesWithinWindow(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	clock := newFakeClock()
	c := New(store, 600*time.Second, WithClock(clock.Now))

	first, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(599 * time.Second)
	second, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.ProfileQueries() != 1 {
		t.Errorf("expected 1 store query, got %d", store.ProfileQueries())
	}
	if len(first) != 2 || len(second) != 2 || &first[0] != &second[0] {
		t.Error("expected the same snapshot to be returned")
	}
}

func TestGet_RebuildsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	clock := newFakeClock()
	c := New(store, 600*time.Second, WithClock(clock.Now))

	c.Get(ctx)
	clock.Advance(600 * time.Second)
	c.Get(ctx)

	if store.ProfileQueries() != 2 {
		t.Errorf("expected rebuild at the window boundary, got %d queries", store.ProfileQueries())
	}
}

func TestInvalidate_NextGetRebuildsOnce(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	c := New(store, time.Hour)

	c.Get(ctx)
	if _, err := database.NewTemplateStore(store).Append(ctx, 1, []facematch.Template{{0, 0, 1}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	c.Invalidate()

	entries, _ := c.Get(ctx)
	c.Get(ctx)

	if store.ProfileQueries() != 2 {
		t.Errorf("expected exactly one rebuild after invalidate, got %d queries", store.ProfileQueries())
	}
	if len(entries[0].Templates) != 2 {
		t.Errorf("expected appended template to be visible, got %v", entries[0].Templates)
	}
}

func TestRebuild_ExcludesCorruptProfiles(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := mock.NewMockEmployeeStore()
	store.AddEmployee(database.Employee{ID: 1, Name: "A", FaceActive: true, FaceEncoding: encode(t, facematch.Template{1})})
	store.AddEmployee(database.Employee{ID: 2, Name: "B", FaceActive: true, FaceEncoding: "not-base64-json"})
	store.AddEmployee(database.Employee{ID: 3, Name: "C", FaceActive: true, FaceEncoding: encode(t, facematch.Template{2})})
	c := New(store, time.Hour, WithLogger(logger))

	entries, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].EmployeeID != 1 || entries[1].EmployeeID != 3 {
		t.Errorf("expected employees 1 and 3, got %+v", entries)
	}

	errorsLogged := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorsLogged++
			if e.Data["employee_id"] != int64(2) {
				t.Errorf("expected error for employee 2, got %v", e.Data["employee_id"])
			}
		}
	}
	if errorsLogged != 1 {
		t.Errorf("expected 1 logged error, got %d", errorsLogged)
	}
}

func TestRebuild_SkipsInactiveAndEmpty(t *testing.T) {
	store := mock.NewMockEmployeeStore()
	store.AddEmployee(database.Employee{ID: 1, FaceActive: false, FaceEncoding: encode(t, facematch.Template{1})})
	store.AddEmployee(database.Employee{ID: 2, FaceActive: true})
	store.AddEmployee(database.Employee{ID: 3, FaceActive: true, FaceEncoding: encode(t)})
	c := New(store, time.Hour)

	entries, _ := c.Get(context.Background())
	if len(entries) != 0 {
		t.Errorf("expected empty pool, got %+v", entries)
	}
}

func TestRebuild_StoreErrorKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	c := New(store, time.Hour)
	c.Get(ctx)

	store.ListProfilesError = errors.New("connection refused")
	c.Invalidate()
	if _, err := c.Get(ctx); err == nil {
		t.Fatal("expected store error")
	}

	st := c.Status()
	if !st.Exists || st.Size != 2 {
		t.Errorf("expected previous snapshot to survive, got %+v", st)
	}
	if st.Valid {
		t.Error("snapshot must not be valid after invalidate")
	}
}

func TestInvalidate_DuringRebuild(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	c := New(nil, time.Hour)
	c.source = sourceFunc(func(ctx context.Context) ([]database.FaceProfile, error) {
		profiles, err := store.ListFaceProfiles(ctx)
		// a registration lands while the rebuild is reading
		c.Invalidate()
		return profiles, err
	})

	c.Get(ctx)
	if c.Status().Valid {
		t.Error("snapshot built across an invalidation must not be valid")
	}
}

type sourceFunc func(ctx context.Context) ([]database.FaceProfile, error)

func (f sourceFunc) ListFaceProfiles(ctx context.Context) ([]database.FaceProfile, error) {
	return f(ctx)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := New(seededStore(t), 600*time.Second, WithClock(clock.Now))

	st := c.Status()
	if st.Exists || st.Valid || st.Size != 0 || st.ValidityPeriod != 600 {
		t.Errorf("unexpected initial status: %+v", st)
	}

	c.Get(ctx)
	clock.Advance(42 * time.Second)
	st = c.Status()
	if !st.Exists || !st.Valid || st.Size != 2 || st.AgeSeconds != 42 {
		t.Errorf("unexpected status after build: %+v", st)
	}

	clock.Advance(600 * time.Second)
	if c.Status().Valid {
		t.Error("expected expired snapshot to be invalid")
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	c := New(store, time.Hour)
	c.Get(ctx)

	store.AddEmployee(database.Employee{ID: 3, Name: "Carol", FaceActive: true, FaceEncoding: encode(t, facematch.Template{1, 1, 1})})
	n, err := c.Refresh(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected size 3, got %d", n)
	}
	if store.ProfileQueries() != 2 {
		t.Errorf("expected 2 queries, got %d", store.ProfileQueries())
	}
}

func TestCrossWorkerStaleness(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	clock := newFakeClock()
	workerA := New(store, 600*time.Second, WithClock(clock.Now))
	workerB := New(store, 600*time.Second, WithClock(clock.Now))
	workerA.Get(ctx)
	workerB.Get(ctx)

	// registration handled by worker A
	if _, err := database.NewTemplateStore(store).Append(ctx, 2, []facematch.Template{{0, 0, 1}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	workerA.Invalidate()

	a, _ := workerA.Get(ctx)
	b, _ := workerB.Get(ctx)
	if len(a[1].Templates) != 2 {
		t.Error("worker A should see the new template immediately")
	}
	if len(b[1].Templates) != 1 {
		t.Error("worker B keeps its snapshot until the window expires")
	}

	clock.Advance(600 * time.Second)
	b, _ = workerB.Get(ctx)
	if len(b[1].Templates) != 2 {
		t.Error("worker B should see the new template after expiry")
	}
}

func TestConcurrentReadersSeeCompleteSnapshots(t *testing.T) {
	ctx := context.Background()
	c := New(seededStore(t), time.Hour)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 50 {
				if i%5 == 0 {
					c.Invalidate()
				}
				entries, err := c.Get(ctx)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if len(entries) != 2 {
					t.Errorf("expected 2 entries, got %d", len(entries))
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestRebuild_CancelledCallerDoesNotAbortSharedLoad(t *testing.T) {
	store := seededStore(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	loadErr := make(chan error, 1)

	c := New(nil, time.Hour)
	c.source = sourceFunc(func(ctx context.Context) ([]database.FaceProfile, error) {
		close(entered)
		<-release
		loadErr <- ctx.Err()
		return store.ListFaceProfiles(ctx)
	})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(first)
		firstErr <- err
	}()
	<-entered

	second := make(chan []facematch.Candidate, 1)
	go func() {
		pool, err := c.Get(context.Background())
		if err != nil {
			t.Errorf("second Get() error = %v", err)
		}
		second <- pool
	}()

	cancel()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller: expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting for the rebuild")
	}

	close(release)
	if err := <-loadErr; err != nil {
		t.Errorf("shared load saw a cancelled context: %v", err)
	}
	select {
	case pool := <-second:
		if len(pool) != 2 {
			t.Errorf("expected 2 candidates, got %d", len(pool))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got the pool")
	}
}
