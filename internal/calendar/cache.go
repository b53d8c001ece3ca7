package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"booking-calendar/internal/api"
	"booking-calendar/internal/metrics"
	"booking-calendar/internal/model"
	"booking-calendar/internal/notify"
	"booking-calendar/internal/store"
)

// EntryAPI is the slice of the API client the cache needs.
type EntryAPI interface {
	ListEntries(ctx context.Context, key model.WeekKey) ([]model.CalendarEntry, error)
	CreateEntry(ctx context.Context, e model.CalendarEntry) (model.CalendarEntry, error)
	CreateSeries(ctx context.Context, e model.CalendarEntry, s model.Series) ([]model.CalendarEntry, error)
	DeleteEntry(ctx context.Context, id int, email string) error
	DeleteSeries(ctx context.Context, seriesID int, email string) error
	DeleteUser(ctx context.Context, u model.UserRef) error
}

type Options struct {
	Location *time.Location
	Sink     notify.Sink
	Prefs    *store.Prefs
	Metrics  metrics.Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// Cache holds week buckets of entries. Network calls are never made while
// holding mu, and each state change is a single locked read-then-write.
type Cache struct {
	api     EntryAPI
	loc     *time.Location
	sink    notify.Sink
	prefs   *store.Prefs
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	buckets  map[model.WeekKey]model.Bucket
	inflight map[model.WeekKey]*pending
	failed   map[model.WeekKey]struct{}
	err      error
}

// pending collects mutations that succeed while a week is being fetched.
// They are replayed onto the snapshot before it is installed; the snapshot
// may predate them.
type pending struct {
	created       map[int]model.CalendarEntry
	deleted       map[int]struct{}
	deletedSeries map[int]struct{}
}

func newPending() *pending {
	return &pending{
		created:       make(map[int]model.CalendarEntry),
		deleted:       make(map[int]struct{}),
		deletedSeries: make(map[int]struct{}),
	}
}

func (p *pending) apply(b model.Bucket) {
	for id, e := range p.created {
		b[id] = e
	}
	for id, e := range b {
		_, gone := p.deleted[id]
		if gone || (e.SeriesID != nil && p.hasSeries(*e.SeriesID)) {
			delete(b, id)
		}
	}
}

func (p *pending) hasSeries(id int) bool {
	_, ok := p.deletedSeries[id]
	return ok
}

func NewCache(a EntryAPI, opts Options) *Cache {
	c := &Cache{
		api:      a,
		loc:      opts.Location,
		sink:     opts.Sink,
		prefs:    opts.Prefs,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
		buckets:  make(map[model.WeekKey]model.Bucket),
		inflight: make(map[model.WeekKey]*pending),
		failed:   make(map[model.WeekKey]struct{}),
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.sink == nil {
		c.sink = notify.Discard
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "calendar")
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Cache) Location() *time.Location { return c.loc }

// FetchWeek loads the bucket for key. It does nothing when the bucket is
// already loaded, a fetch for key is running, or an earlier fetch of key
// failed and ClearError has not been called since.
func (c *Cache) FetchWeek(ctx context.Context, key model.WeekKey) error {
	if _, err := ParseKey(key, c.loc); err != nil {
		return err
	}

	c.mu.Lock()
	_, loaded := c.buckets[key]
	_, running := c.inflight[key]
	_, failed := c.failed[key]
	if loaded || running || failed {
		c.mu.Unlock()
		c.metrics.RecordWeekFetch(metrics.FetchSkipped)
		return nil
	}
	c.inflight[key] = newPending()
	c.mu.Unlock()

	list, err := c.api.ListEntries(ctx, key)

	c.mu.Lock()
	ops := c.inflight[key]
	delete(c.inflight, key)
	if err != nil {
		c.failed[key] = struct{}{}
		c.err = err
		c.mu.Unlock()
		c.metrics.RecordWeekFetch(metrics.FetchFailed)
		c.logger.Warn("fetch week failed", "week", key, "error", err)
		c.sink.Notify(notify.New(notify.Error, notify.FetchFailed))
		return fmt.Errorf("fetch week %s: %w", key, err)
	}
	b := make(model.Bucket, len(list))
	for _, e := range list {
		b[e.ID] = Normalize(e, c.loc)
	}
	ops.apply(b)
	c.buckets[key] = b
	c.err = nil
	c.mu.Unlock()

	c.metrics.RecordWeekFetch(metrics.FetchLoaded)
	c.logger.Debug("week loaded", "week", key, "entries", len(b))
	return nil
}

// CreateEntry validates and submits e. The created entry is merged into the
// bucket of its start week; when that week is not loaded yet it is fetched,
// which brings the new entry along with the rest of the week.
func (c *Cache) CreateEntry(ctx context.Context, e model.CalendarEntry) (bool, error) {
	if err := e.Validate(c.now()); err != nil {
		return false, err
	}
	e.ID = model.NewEntryID
	e.SeriesID = nil

	created, err := c.api.CreateEntry(ctx, EncodeWallClock(e, c.loc))
	if err != nil {
		c.createFailed("create", err)
		return false, err
	}

	unloaded := c.mergeAndClear([]model.CalendarEntry{created})
	c.savePrefill(ctx, e)
	c.metrics.RecordMutation("create", true)
	c.logger.Info("entry created", "id", created.ID)
	c.sink.Notify(notify.New(notify.Success, notify.CreateSucceeded))

	// the booking exists on the server either way; a failed fetch is
	// reported by FetchWeek itself
	for _, key := range unloaded {
		if err := c.FetchWeek(ctx, key); err != nil {
			c.logger.Warn("load week of created entry", "week", key, "error", err)
		}
	}
	return true, nil
}

// CreateSeries submits a recurring booking. The server materializes the
// occurrences; each is merged into its own start week if loaded.
func (c *Cache) CreateSeries(ctx context.Context, e model.CalendarEntry, s model.Series) (bool, error) {
	if err := e.Validate(c.now()); err != nil {
		return false, err
	}
	if err := s.Validate(); err != nil {
		return false, err
	}
	e.ID = model.NewEntryID
	e.SeriesID = nil

	created, err := c.api.CreateSeries(ctx, EncodeWallClock(e, c.loc), s)
	if err != nil {
		c.createFailed("create_series", err)
		return false, err
	}

	c.mergeAndClear(created)
	c.savePrefill(ctx, e)
	c.metrics.RecordMutation("create_series", true)
	c.logger.Info("series created", "entries", len(created))
	c.sink.Notify(notify.New(notify.Success, notify.SeriesSucceeded))
	return true, nil
}

// mergeAndClear adds created entries to loaded buckets and to fetches in
// flight. It returns the start weeks that were neither.
func (c *Cache) mergeAndClear(created []model.CalendarEntry) []model.WeekKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	var unloaded []model.WeekKey
	for _, raw := range created {
		e := Normalize(raw, c.loc)
		key := KeyFor(e.Start, c.loc)
		if b, ok := c.buckets[key]; ok {
			b[e.ID] = e
		} else if ops, ok := c.inflight[key]; ok {
			ops.created[e.ID] = e
		} else if !slices.Contains(unloaded, key) {
			unloaded = append(unloaded, key)
		}
	}
	c.err = nil
	return unloaded
}

func (c *Cache) createFailed(op string, err error) {
	c.setErr(err)
	c.metrics.RecordMutation(op, false)
	c.logger.Warn(op+" failed", "error", err)
	if errors.Is(err, api.ErrConflict) {
		c.sink.Notify(notify.New(notify.Warning, notify.CreateConflict))
		return
	}
	c.sink.Notify(notify.New(notify.Error, notify.CreateFailed))
}

func (c *Cache) savePrefill(ctx context.Context, e model.CalendarEntry) {
	if c.prefs == nil {
		return
	}
	p := model.Prefill{FirstName: e.FirstName, LastName: e.LastName, Email: e.Email}
	if err := c.prefs.Save(ctx, p); err != nil {
		c.logger.Warn("save prefill", "error", err)
	}
}

// DeleteEntry removes id on the server and then from the bucket for key.
// Other buckets that also hold id are left as they are.
func (c *Cache) DeleteEntry(ctx context.Context, id int, email string, key model.WeekKey) error {
	if err := c.api.DeleteEntry(ctx, id, email); err != nil {
		c.deleteFailed("delete", err)
		return err
	}

	c.mu.Lock()
	if b, ok := c.buckets[key]; ok {
		delete(b, id)
	}
	if ops, ok := c.inflight[key]; ok {
		delete(ops.created, id)
		ops.deleted[id] = struct{}{}
	}
	c.err = nil
	c.mu.Unlock()

	c.metrics.RecordMutation("delete", true)
	c.logger.Info("entry deleted", "id", id, "week", key)
	c.sink.Notify(notify.New(notify.Success, notify.DeleteSucceeded))
	return nil
}

// DeleteSeries removes every occurrence of the series from every loaded
// bucket, and from weeks still being fetched, once the server accepts it.
func (c *Cache) DeleteSeries(ctx context.Context, seriesID int, email string) error {
	if err := c.api.DeleteSeries(ctx, seriesID, email); err != nil {
		c.deleteFailed("delete_series", err)
		return err
	}

	n := 0
	c.mu.Lock()
	for _, b := range c.buckets {
		for id, e := range b {
			if e.InSeries(seriesID) {
				delete(b, id)
				n++
			}
		}
	}
	for _, ops := range c.inflight {
		ops.deletedSeries[seriesID] = struct{}{}
	}
	c.err = nil
	c.mu.Unlock()

	c.metrics.RecordMutation("delete_series", true)
	c.logger.Info("series deleted", "series", seriesID, "removed", n)
	c.sink.Notify(notify.New(notify.Success, notify.DeleteSucceeded))
	return nil
}

func (c *Cache) deleteFailed(op string, err error) {
	c.setErr(err)
	c.metrics.RecordMutation(op, false)
	c.logger.Warn(op+" failed", "error", err)
	c.sink.Notify(notify.New(notify.Error, notify.DeleteFailed))
}

// DeleteUser erases a person's data on the server. Cached entries are not
// touched; the server anonymizes rather than removes them.
func (c *Cache) DeleteUser(ctx context.Context, u model.UserRef) error {
	if err := c.api.DeleteUser(ctx, u); err != nil {
		c.setErr(err)
		c.metrics.RecordMutation("delete_user", false)
		c.logger.Warn("delete user failed", "error", err)
		c.sink.Notify(notify.New(notify.Error, notify.UserDeleteFailed))
		return err
	}
	c.metrics.RecordMutation("delete_user", true)
	c.sink.Notify(notify.New(notify.Success, notify.UserDeleted))
	return nil
}

// ClearError resets the error and lets failed weeks be fetched again.
func (c *Cache) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = nil
	clear(c.failed)
}

func (c *Cache) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// State returns a deep copy of the cache.
func (c *Cache) State() model.CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := model.CacheState{
		Loading: len(c.inflight) > 0,
		Err:     c.err,
		Buckets: make(map[model.WeekKey]model.Bucket, len(c.buckets)),
	}
	for k, b := range c.buckets {
		out.Buckets[k] = b.Clone()
	}
	return out
}

// Bucket returns a copy of the bucket for key and whether it is loaded.
func (c *Cache) Bucket(key model.WeekKey) (model.Bucket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buckets[key]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// Entries returns the bucket for key ordered by start, then id.
func (c *Cache) Entries(key model.WeekKey) []model.CalendarEntry {
	b, _ := c.Bucket(key)
	out := make([]model.CalendarEntry, 0, len(b))
	for _, e := range b {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
