// Package scheduler drives recurring turns off a cron expression (C8, spec
// §4.5 "Scheduler"), grounded on cmd/gateway_cron.go's cron-job-through-the-
// turn-runtime dispatch idiom, generalized from a single bespoke job handler
// into a standing tick loop over many persisted schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/serialagent/gateway/internal/bus"
	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/sessions"
	"github.com/serialagent/gateway/internal/store"
	"github.com/serialagent/gateway/internal/turn"
)

// defaultMaxCatchupRuns is the last-resort catch_up cap when neither a
// schedule nor the process config set one (spec §9 Open Question, resolved
// to 5).
const defaultMaxCatchupRuns = 5

// Scheduler polls its schedule store on a fixed tick, firing any schedule
// whose cron expression is due, bounded by a per-schedule concurrency
// semaphore and the configured missed-tick policy.
type Scheduler struct {
	cfg     config.SchedulerConfig
	stores  *store.Stores
	runtime *turn.Runtime
	bus     bus.Publisher
	cron    gronx.Gronx

	mu   sync.Mutex
	sems map[string]chan struct{} // schedule id -> concurrency semaphore

	stop chan struct{}
	done chan struct{}
}

func New(cfg config.SchedulerConfig, stores *store.Stores, runtime *turn.Runtime, publisher bus.Publisher) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		stores:  stores,
		runtime: runtime,
		bus:     publisher,
		cron:    gronx.New(),
		sems:    make(map[string]chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	interval := 1 * time.Second
	if s.cfg.TickInterval != "" {
		if d, err := time.ParseDuration(s.cfg.TickInterval); err == nil && d > 0 {
			interval = d
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// Stop signals the tick loop to exit and waits for it to do so.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	schedules, err := s.stores.Schedules.List(ctx)
	if err != nil {
		slog.Warn("scheduler: list schedules failed", "err", err)
		return
	}

	for _, sch := range schedules {
		if !sch.Enabled {
			continue
		}
		if !sch.CooldownUntil.IsZero() && now.Before(sch.CooldownUntil) {
			continue
		}
		fires, err := s.dueFirings(sch, now)
		if err != nil {
			slog.Warn("scheduler: invalid cron expression", "schedule_id", sch.ID, "cron", sch.Cron, "err", err)
			continue
		}
		if len(fires) == 0 {
			continue
		}
		if !s.tryAcquire(sch) {
			continue // schedule's semaphore is at capacity
		}
		go s.runSchedule(ctx, sch, fires)
	}
}

// dueFirings reports which historical occurrences of sch's cron expression
// should fire at now, applying the missed-tick policy against sch.LastRun so
// a schedule that missed ticks while the process was down doesn't silently
// skip forever nor storm through every missed occurrence (spec §4.5 "Missed-
// tick policy", P7-P9). A single on-time firing is always just [now]; a gap
// since LastRun is resolved per missed_policy: skip drops it, run_once
// replays only the latest miss, catch_up replays up to max_catchup_runs of
// the oldest missed occurrences and drops the rest (P8).
func (s *Scheduler) dueFirings(sch *store.Schedule, now time.Time) ([]time.Time, error) {
	loc := time.UTC
	if sch.Timezone != "" {
		if l, err := time.LoadLocation(sch.Timezone); err == nil {
			loc = l
		}
	}
	ref := now.In(loc)

	due, err := s.cron.IsDue(sch.Cron, ref)
	if err != nil {
		return nil, err
	}
	if sch.LastRun.IsZero() {
		if due {
			return []time.Time{now}, nil
		}
		return nil, nil
	}

	missed, err := missedFireTimes(sch.Cron, sch.LastRun, now)
	if err != nil {
		return nil, err
	}
	if len(missed) == 0 {
		return nil, nil // next occurrence hasn't arrived yet
	}
	if due && len(missed) == 1 {
		return []time.Time{now}, nil // on time: no gap since LastRun
	}

	switch sch.MissedPolicy {
	case store.MissedRunOnce:
		return missed[len(missed)-1:], nil
	case store.MissedCatchUp:
		limit := sch.MaxCatchupRuns
		if limit <= 0 {
			limit = s.cfg.MaxCatchupRuns
		}
		if limit <= 0 {
			limit = defaultMaxCatchupRuns
		}
		if len(missed) > limit {
			return missed[:limit], nil
		}
		return missed, nil
	default: // store.MissedSkip, or unset
		return nil, nil
	}
}

// missedFireTimes walks sch's cron schedule forward from after (exclusive)
// to until (inclusive), returning every occurrence in between in
// chronological order.
func missedFireTimes(cronExpr string, after, until time.Time) ([]time.Time, error) {
	var fires []time.Time
	cursor := after
	for {
		next, err := gronx.NextTickAfter(cronExpr, cursor, false)
		if err != nil {
			return nil, err
		}
		if next.After(until) {
			return fires, nil
		}
		fires = append(fires, next)
		cursor = next
	}
}

// semaphoreFor returns sch's concurrency semaphore, sizing it to
// MaxConcurrency (default 1) on first use.
func (s *Scheduler) semaphoreFor(sch *store.Schedule) chan struct{} {
	capacity := sch.MaxConcurrency
	if capacity <= 0 {
		capacity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.sems[sch.ID]
	if !ok || cap(sem) != capacity {
		sem = make(chan struct{}, capacity)
		s.sems[sch.ID] = sem
	}
	return sem
}

// tryAcquire claims one slot in sch's semaphore (capacity = max_concurrency,
// spec §4.5 step 2), returning false without blocking if it's at capacity.
func (s *Scheduler) tryAcquire(sch *store.Schedule) bool {
	select {
	case s.semaphoreFor(sch) <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) release(sch *store.Schedule) {
	select {
	case <-s.semaphoreFor(sch):
	default:
	}
}

// runSchedule executes one turn per admitted firing in fires, in order, each
// producing its own delivery with a distinct created_at (P8, E2E scenario 5),
// then persists sch's bookkeeping once all firings have run (spec §4.5
// "Execution").
func (s *Scheduler) runSchedule(ctx context.Context, sch *store.Schedule, fires []time.Time) {
	defer s.release(sch)

	for _, firedAt := range fires {
		s.runFiring(ctx, sch, firedAt)
	}

	if next, nerr := gronx.NextTick(sch.Cron, false); nerr == nil {
		sch.NextRun = next
	}
	if uerr := s.stores.Schedules.Update(ctx, sch); uerr != nil {
		slog.Warn("scheduler: failed to persist schedule bookkeeping", "schedule_id", sch.ID, "err", uerr)
	}
}

// runFiring fetches sources, assembles the prompt, and executes one turn for
// sch as of firedAt, updating sch's in-memory bookkeeping in place. The
// caller persists sch once all of a tick's admitted firings have run.
func (s *Scheduler) runFiring(ctx context.Context, sch *store.Schedule, firedAt time.Time) {
	s.publish(sch.ID, bus.EventScheduleFired, map[string]string{"schedule_id": sch.ID, "name": sch.Name})

	timeout := time.Duration(sch.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt, changed := s.buildPrompt(runCtx, sch)
	if sch.DigestMode == store.DigestChangesOnly && !changed {
		s.publish(sch.ID, bus.EventScheduleSkipped, map[string]string{"schedule_id": sch.ID, "reason": "no_changes"})
		return
	}

	runID := fmt.Sprintf("sched-%s-%d", sch.ID, firedAt.UnixNano())
	sessionKey := sessions.BuildCronSessionKey(sch.AgentID, sch.ID, runID)

	result, err := s.runtime.Run(runCtx, turn.Input{
		SessionKey:     sessionKey,
		SessionID:      sessionKey,
		UserMessage:    prompt,
		Agent:          sch.AgentID,
		RoutingProfile: sch.RoutingProfile,
		RunID:          runID,
	})

	sch.LastRun = firedAt
	if err != nil {
		sch.ConsecutiveErrors++
		sch.LastError = err.Error()
		sch.CooldownUntil = time.Now().Add(cooldownFor(sch.ConsecutiveErrors, s.cfg.Backoff.ToBackoffConfig()))
		slog.Warn("scheduler: run failed", "schedule_id", sch.ID, "fired_at", firedAt, "err", err)
		return
	}
	sch.ConsecutiveErrors = 0
	sch.LastError = ""
	sch.CooldownUntil = time.Time{}
	if len(sch.DeliveryTargets) > 0 && result != nil {
		s.enqueueDelivery(runCtx, sch, result.Content, firedAt)
	}
}

// buildPrompt expands sch's prompt template with any configured source
// fetches, returning whether any source's content changed since last run.
func (s *Scheduler) buildPrompt(ctx context.Context, sch *store.Schedule) (string, bool) {
	if len(sch.Sources) == 0 {
		return sch.PromptTemplate, true
	}

	if sch.SourceStates == nil {
		sch.SourceStates = make(map[string]store.SourceState)
	}

	prompt := sch.PromptTemplate
	anyChanged := false
	for _, src := range sch.Sources {
		state := sch.SourceStates[src]
		res, err := fetchSource(ctx, src, sch.FetchConfig, &state)
		if err != nil {
			slog.Warn("scheduler: source fetch failed", "schedule_id", sch.ID, "source", src, "err", err)
			state.LastError = err.Error()
			sch.SourceStates[src] = state
			continue
		}
		state.LastFetchedAt = time.Now()
		state.LastHTTPStatus = res.Status
		state.LastError = ""
		if res.Changed {
			state.LastContentHash = contentHash([]byte(res.Content))
			anyChanged = true
			prompt += fmt.Sprintf("\n\n<source url=%q>\n%s\n</source>", src, res.Content)
		}
		sch.SourceStates[src] = state
	}
	return prompt, anyChanged
}

// enqueueDelivery creates one Delivery per configured target, stamped with
// createdAt so catch-up firings each carry the fire time they correspond to
// rather than all collapsing onto the wall-clock time the batch finished.
func (s *Scheduler) enqueueDelivery(ctx context.Context, sch *store.Schedule, content string, createdAt time.Time) {
	for i, target := range sch.DeliveryTargets {
		d := &store.Delivery{
			ID:         fmt.Sprintf("del-%s-%d-%d", sch.ID, createdAt.UnixNano(), i),
			Target:     target,
			ScheduleID: sch.ID,
			Content:    content,
			Status:     store.DeliveryPending,
			CreatedAt:  createdAt,
		}
		if err := s.stores.Deliveries.Create(ctx, d); err != nil {
			slog.Warn("scheduler: failed to enqueue delivery", "schedule_id", sch.ID, "target", target, "err", err)
		}
	}
}

func (s *Scheduler) publish(scheduleID, name string, payload interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{Name: name, Topic: "schedule:" + scheduleID, Payload: payload})
}

// RunNow triggers sch immediately, bypassing its cron schedule and cooldown,
// for the `schedule run-now` CLI command and its HTTP equivalent.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	sch, err := s.stores.Schedules.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.tryAcquire(sch) {
		return fmt.Errorf("schedule %q already has a run in flight", id)
	}
	s.runSchedule(ctx, sch, []time.Time{time.Now()})
	return nil
}

// DryRun resolves sch's prompt template against its configured sources
// without acquiring the run lock, executing the agent, or enqueueing any
// delivery — for the schedule dry-run HTTP endpoint.
func (s *Scheduler) DryRun(ctx context.Context, id string) (prompt string, sourcesChanged bool, err error) {
	sch, err := s.stores.Schedules.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	prompt, changed := s.buildPrompt(ctx, sch)
	return prompt, changed, nil
}

// ResetErrors clears a schedule's consecutive-failure count and cooldown,
// for the `schedule reset-errors` CLI command.
func (s *Scheduler) ResetErrors(ctx context.Context, id string) error {
	sch, err := s.stores.Schedules.Get(ctx, id)
	if err != nil {
		return err
	}
	sch.ConsecutiveErrors = 0
	sch.LastError = ""
	sch.CooldownUntil = time.Time{}
	return s.stores.Schedules.Update(ctx, sch)
}

