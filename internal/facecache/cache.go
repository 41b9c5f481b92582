// Package facecache keeps the decoded template pool of all eligible employees
// in memory for a bounded time. Each worker process owns one Cache.
package facecache

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ProfileSource yields the active, enrolled employees.
type ProfileSource interface {
	ListFaceProfiles(ctx context.Context) ([]database.FaceProfile, error)
}

// Status is the administrative view of the cache.
type Status struct {
	Exists         bool    `json:"cache_exists"`
	Valid          bool    `json:"cache_valid"`
	AgeSeconds     float64 `json:"cache_age_seconds"`
	Size           int     `json:"cache_size"`
	ValidityPeriod int     `json:"validity_period"`
}

// snapshot is immutable once published.
type snapshot struct {
	entries []facematch.Candidate
	builtAt time.Time
	gen     uint64
}

// Cache maps employees to their decoded templates. Readers always see a
// complete snapshot; rebuilds construct a new one and swap it in.
type Cache struct {
	source   ProfileSource
	validity time.Duration
	log      logrus.FieldLogger
	now      func() time.Time

	current atomic.Pointer[snapshot]
	gen     atomic.Uint64 // bumped by Invalidate
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for excluded profiles.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = l }
}

// New creates an empty cache. Nothing is loaded until the first Get.
func New(source ProfileSource, validity time.Duration, opts ...Option) *Cache {
	c := &Cache{
		source:   source,
		validity: validity,
		log:      logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) fresh(s *snapshot) bool {
	return s != nil && s.gen == c.gen.Load() && c.now().Sub(s.builtAt) < c.validity
}

// Get returns the current pool, rebuilding it when it is missing, expired or
// invalidated. Within the validity window the store is not queried.
func (c *Cache) Get(ctx context.Context) ([]facematch.Candidate, error) {
	if s := c.current.Load(); c.fresh(s) {
		return s.entries, nil
	}
	return c.Rebuild(ctx)
}

// Rebuild loads all profiles, decodes them and publishes a new snapshot.
// Concurrent callers for the same generation share one store query; a caller
// whose ctx ends stops waiting without cancelling the query for the others.
// Profiles that fail to decode are logged and left out.
func (c *Cache) Rebuild(ctx context.Context) ([]facematch.Candidate, error) {
	gen := c.gen.Load()
	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		// Shared by every waiter, so one cancelled request must not abort it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.StoreTimeout)
		defer cancel()
		profiles, err := c.source.ListFaceProfiles(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("loading face profiles: %w", err)
		}

		entries := make([]facematch.Candidate, 0, len(profiles))
		for _, p := range profiles {
			tpls, err := facematch.DecodeTemplates(p.FaceEncoding)
			if err != nil {
				logging.SystemError(c.log, "decode", err, logrus.Fields{"employee_id": p.EmployeeID})
				continue
			}
			if len(tpls) == 0 {
				continue
			}
			entries = append(entries, facematch.Candidate{
				EmployeeID: p.EmployeeID,
				Name:       p.Name,
				Templates:  tpls,
			})
		}

		c.publish(&snapshot{entries: entries, builtAt: c.now(), gen: gen})
		logging.For(c.log).WithFields(logrus.Fields{
			"employees": len(entries),
			"excluded":  len(profiles) - len(entries),
		}).Debug("encoding cache rebuilt")
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]facematch.Candidate), nil
	}
}

// publish swaps in s unless a snapshot of a newer generation is already live.
func (c *Cache) publish(s *snapshot) {
	for {
		cur := c.current.Load()
		if cur != nil && cur.gen > s.gen {
			return
		}
		if c.current.CompareAndSwap(cur, s) {
			return
		}
	}
}

// Invalidate forces the next Get to rebuild. The previous snapshot stays
// visible to Status until then.
func (c *Cache) Invalidate() {
	c.gen.Add(1)
}

// Refresh invalidates and rebuilds immediately, returning the new size.
func (c *Cache) Refresh(ctx context.Context) (int, error) {
	c.Invalidate()
	entries, err := c.Rebuild(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Status reports whether a snapshot exists, whether it is still valid, its
// age and its size.
func (c *Cache) Status() Status {
	st := Status{ValidityPeriod: int(c.validity / time.Second)}
	s := c.current.Load()
	if s == nil {
		return st
	}
	st.Exists = true
	st.Valid = c.fresh(s)
	st.AgeSeconds = c.now().Sub(s.builtAt).Seconds()
	st.Size = len(s.entries)
	return st
}
