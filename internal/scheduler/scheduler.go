package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/KotFed0t/trading_terminal/internal/service"
	"github.com/KotFed0t/trading_terminal/utils"
	"github.com/go-co-op/gocron/v2"
)

// FetchFn loads the current value of a topic. It must return when ctx is done.
type FetchFn func(ctx context.Context) (any, error)

type Listener func(Snapshot)

// Snapshot is the observable state of one topic.
type Snapshot struct {
	Name      string
	Key       string
	Value     any
	Loaded    bool
	Fetching  bool
	UpdatedAt time.Time
	// Warning is set while the last fetch failed, Value keeps the last good one.
	Warning *service.StaleDataWarning
}

// Value returns the snapshot value as T.
func Value[T any](s Snapshot) (T, bool) {
	v, ok := s.Value.(T)
	return v, ok
}

type topic struct {
	name  string
	key   string
	fetch FetchFn
	gen   uint64

	ctx    context.Context
	cancel context.CancelFunc
	job    gocron.Job

	issued      uint64
	applied     uint64
	inflight    int
	fingerprint []byte
	snap        Snapshot
}

type Scheduler struct {
	scheduler gocron.Scheduler
	period    time.Duration
	now       func() time.Time

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu        sync.Mutex
	gen       uint64
	topics    map[string]*topic
	listeners []Listener
}

func New(period time.Duration, opts ...gocron.SchedulerOption) *Scheduler {
	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		panic(err.Error())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler:  scheduler,
		period:     period,
		now:        time.Now,
		baseCtx:    ctx,
		baseCancel: cancel,
		topics:     make(map[string]*topic),
	}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	for name, t := range s.topics {
		t.cancel()
		delete(s.topics, name)
	}
	s.mu.Unlock()

	s.baseCancel()
	_ = s.scheduler.Shutdown()
}

type Subscription struct {
	s *Scheduler
	t *topic
}

func (sub *Subscription) Name() string { return sub.t.name }
func (sub *Subscription) Key() string  { return sub.t.key }

// Close stops the topic. Completions still in flight are discarded.
func (sub *Subscription) Close() {
	sub.s.unsubscribe(sub.t)
}

// Refresh runs one out-of-cycle fetch.
func (sub *Subscription) Refresh() {
	sub.s.runNow(sub.t)
}

// Subscribe arms the name slot with key. The same key returns the active
// subscription untouched, a different key replaces it.
func (s *Scheduler) Subscribe(name, key string, fetch FetchFn) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.topics[name]; ok {
		if cur.key == key {
			return &Subscription{s: s, t: cur}, nil
		}
		s.dropLocked(cur)
	}

	s.gen++
	ctx, cancel := context.WithCancel(s.baseCtx)
	t := &topic{
		name:   name,
		key:    key,
		fetch:  fetch,
		gen:    s.gen,
		ctx:    ctx,
		cancel: cancel,
		snap:   Snapshot{Name: name, Key: key},
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.period),
		gocron.NewTask(s.taskWithRecover(t)),
		gocron.WithName(name+":"+key),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		slog.Error("Scheduler creating job error", slog.String("topic", name), slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("subscribe %s: %w", name, err)
	}
	t.job = job
	s.topics[name] = t

	slog.Debug("topic subscribed", slog.String("topic", name), slog.String("key", key), slog.Uint64("gen", t.gen))

	return &Subscription{s: s, t: t}, nil
}

// Unsubscribe closes the topic in the name slot, if any.
func (s *Scheduler) Unsubscribe(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.topics[name]; ok {
		s.dropLocked(t)
	}
}

func (s *Scheduler) unsubscribe(t *topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.topics[t.name]; ok && cur == t {
		s.dropLocked(t)
	}
}

func (s *Scheduler) dropLocked(t *topic) {
	t.cancel()
	delete(s.topics, t.name)
	if err := s.scheduler.RemoveJob(t.job.ID()); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		slog.Error("Scheduler removing job error", slog.String("topic", t.name), slog.Any("error", err))
	}
	slog.Debug("topic unsubscribed", slog.String("topic", t.name), slog.String("key", t.key))
}

// RefreshAll runs one out-of-cycle fetch for every active topic. Periodic
// timers are left as they are.
func (s *Scheduler) RefreshAll() {
	s.mu.Lock()
	active := make([]*topic, 0, len(s.topics))
	for _, t := range s.topics {
		active = append(active, t)
	}
	s.mu.Unlock()

	for _, t := range active {
		s.runNow(t)
	}
}

// Refresh runs one out-of-cycle fetch of the topic in the name slot.
func (s *Scheduler) Refresh(name string) {
	s.mu.Lock()
	t, ok := s.topics[name]
	s.mu.Unlock()
	if ok {
		s.runNow(t)
	}
}

func (s *Scheduler) runNow(t *topic) {
	if err := t.job.RunNow(); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		slog.Error("Scheduler run now error", slog.String("topic", t.name), slog.Any("error", err))
	}
}

// Get returns the snapshot of the active topic in the name slot.
func (s *Scheduler) Get(name string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[name]
	if !ok {
		return Snapshot{Name: name}, false
	}
	return t.snap, true
}

func (s *Scheduler) OnUpdate(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

type JobFn func(ctx context.Context) error

// NewIntervalJob runs fn every interval outside of any topic. Used for
// housekeeping that has no value to observe.
func (s *Scheduler) NewIntervalJob(name string, fn JobFn, interval time.Duration, startImmediately bool) error {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.jobWithRecover(name, fn)),
		opts...,
	)
	if err != nil {
		slog.Error("Scheduler creating job error", slog.String("jobName", name), slog.String("err", err.Error()))
		return fmt.Errorf("create job %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) jobWithRecover(name string, fn JobFn) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"Panic recovered in scheduler job",
					slog.String("jobName", name),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		ctx := utils.WithNewRqID(s.baseCtx)
		rqID := utils.GetRequestIDFromCtx(ctx)

		slog.Info("job start", slog.String("rqID", rqID), slog.String("jobName", name))

		if err := fn(ctx); err != nil {
			slog.Error("job failed", slog.String("rqID", rqID), slog.String("jobName", name), slog.Any("error", err))
			return
		}
		slog.Info("job completed", slog.String("rqID", rqID), slog.String("jobName", name))
	}
}

func (s *Scheduler) taskWithRecover(t *topic) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"Panic recovered in scheduler job",
					slog.String("topic", t.name),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		s.cycle(t)
	}
}

func (s *Scheduler) cycle(t *topic) {
	seq, ok := s.issue(t)
	if !ok {
		return
	}

	ctx := utils.WithNewRqID(t.ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("fetch start", slog.String("rqID", rqID), slog.String("topic", t.name), slog.Uint64("seq", seq))

	value, err := s.fetch(ctx, t)

	s.finish(t, seq, value, err)
	slog.Debug("fetch finished", slog.String("rqID", rqID), slog.String("topic", t.name), slog.Uint64("seq", seq))
}

func (s *Scheduler) fetch(ctx context.Context, t *topic) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(
				"Panic recovered in topic fetch",
				slog.String("topic", t.name),
				slog.Any("panic", r),
				slog.String("stacktrace", string(debug.Stack())),
			)
			err = fmt.Errorf("fetch %s: panic: %v", t.name, r)
		}
	}()
	return t.fetch(ctx)
}

// issue takes the next sequence number for t, false when t is no longer active.
func (s *Scheduler) issue(t *topic) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activeLocked(t) {
		return 0, false
	}
	t.issued++
	t.inflight++
	t.snap.Fetching = true
	return t.issued, true
}

func (s *Scheduler) activeLocked(t *topic) bool {
	cur, ok := s.topics[t.name]
	return ok && cur.gen == t.gen && t.ctx.Err() == nil
}

// finish applies a completion when its topic is still active and nothing
// issued later has been applied yet.
func (s *Scheduler) finish(t *topic, seq uint64, value any, err error) {
	s.mu.Lock()

	t.inflight--
	t.snap.Fetching = t.inflight > 0

	if !s.activeLocked(t) || seq <= t.applied {
		s.mu.Unlock()
		slog.Debug("completion discarded", slog.String("topic", t.name), slog.Uint64("seq", seq))
		return
	}
	t.applied = seq

	changed := s.applyLocked(t, value, err)
	snap := t.snap
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l(snap)
		}
	}
}

// applyLocked stores the outcome and reports whether listeners should hear about it.
func (s *Scheduler) applyLocked(t *topic, value any, err error) bool {
	now := s.now()

	if err != nil {
		wasStale := t.snap.Warning != nil
		since := now
		if wasStale {
			since = t.snap.Warning.Since
		}
		t.snap.Warning = &service.StaleDataWarning{Topic: t.name, Err: err, Since: since}
		slog.Error("fetch failed", slog.String("topic", t.name), slog.String("key", t.key), slog.Any("error", err))
		return !wasStale
	}

	wasStale := t.snap.Warning != nil
	t.snap.Warning = nil

	fp, mErr := json.Marshal(value)
	if mErr == nil && t.snap.Loaded && bytes.Equal(fp, t.fingerprint) {
		return wasStale
	}
	if mErr != nil {
		fp = nil
	}

	t.fingerprint = fp
	t.snap.Value = value
	t.snap.Loaded = true
	t.snap.UpdatedAt = now
	return true
}
