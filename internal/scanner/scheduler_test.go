package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jobtrail/jobtrail/internal/cache"
	"github.com/jobtrail/jobtrail/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeMailbox serves canned messages and records label activity
type fakeMailbox struct {
	mu       sync.Mutex
	ids      []string
	messages map[string]*core.NormalizedEmail
	fetches  int
}

func (m *fakeMailbox) ListMessages(ctx context.Context, query string, max int) ([]string, error) {
	return m.ids, nil
}

func (m *fakeMailbox) GetMessage(ctx context.Context, id string) (*core.NormalizedEmail, error) {
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, errors.New("message not found")
	}
	return msg, nil
}

func (m *fakeMailbox) ListLabels(ctx context.Context) ([]core.LabelRef, error) { return nil, nil }

func (m *fakeMailbox) CreateLabel(ctx context.Context, cfg core.LabelConfig) (*core.LabelRef, error) {
	return &core.LabelRef{ID: "L1", Name: cfg.Name}, nil
}

func (m *fakeMailbox) PatchLabel(ctx context.Context, id string, fields map[string]string) error {
	return nil
}

func (m *fakeMailbox) ModifyThreadLabels(ctx context.Context, threadID string, add, remove []string) error {
	return nil
}

func (m *fakeMailbox) GetThreadLabels(ctx context.Context, threadID string) ([]string, error) {
	return nil, nil
}

// fakeResolver returns a fixed mailbox or a scripted failure
type fakeResolver struct {
	mailbox core.Mailbox
	err     error
}

func (r *fakeResolver) Resolve(ctx context.Context, sessionID string) (core.Mailbox, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.mailbox, nil
}

// fakeEngine returns a fixed classification result
type fakeEngine struct {
	mu     sync.Mutex
	result *core.ClassificationResult
	calls  int
}

func (e *fakeEngine) Classify(ctx context.Context, email *core.NormalizedEmail) (*core.ClassificationResult, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return e.result, nil
}

// fakeApplier records label applications without touching a mailbox
type fakeApplier struct {
	mu      sync.Mutex
	applied []string
}

func (a *fakeApplier) Apply(ctx context.Context, mailbox core.Mailbox, threadID, labelName string) (string, error) {
	a.mu.Lock()
	a.applied = append(a.applied, labelName)
	a.mu.Unlock()
	return "L1", nil
}

// memJobStore is an in-memory core.JobStore
type memJobStore struct {
	mu      sync.Mutex
	records map[string]*core.JobRecord
}

func newMemJobStore() *memJobStore {
	return &memJobStore{records: make(map[string]*core.JobRecord)}
}

func (s *memJobStore) UpsertByExternalID(ctx context.Context, rec *core.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ExternalID] = rec
	return nil
}

func (s *memJobStore) FindByExternalID(ctx context.Context, id string) (*core.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id], nil
}

// memIgnoredStore is an in-memory core.IgnoredStore
type memIgnoredStore struct {
	mu      sync.Mutex
	records map[string]*core.IgnoredRecord
}

func newMemIgnoredStore() *memIgnoredStore {
	return &memIgnoredStore{records: make(map[string]*core.IgnoredRecord)}
}

func (s *memIgnoredStore) Create(ctx context.Context, rec *core.IgnoredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ExternalID]; !ok {
		s.records[rec.ExternalID] = rec
	}
	return nil
}

func (s *memIgnoredStore) FindByExternalID(ctx context.Context, id string) (*core.IgnoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id], nil
}

// staticRules serves the same custom rules for every session
type staticRules struct {
	rules []core.CustomLabelRule
}

func (r *staticRules) RulesFor(ctx context.Context, sessionID string) ([]core.CustomLabelRule, error) {
	return r.rules, nil
}

type fixture struct {
	scheduler *Scheduler
	mailbox   *fakeMailbox
	engine    *fakeEngine
	applier   *fakeApplier
	jobs      *memJobStore
	ignored   *memIgnoredStore
	seen      core.Cache
}

func newFixture(t *testing.T, opts Options, custom core.CustomRuleSource) *fixture {
	t.Helper()
	f := &fixture{
		mailbox: &fakeMailbox{messages: make(map[string]*core.NormalizedEmail)},
		engine:  &fakeEngine{},
		applier: &fakeApplier{},
		jobs:    newMemJobStore(),
		ignored: newMemIgnoredStore(),
		seen:    cache.NewMemoryCache(),
	}
	f.scheduler = New(
		&fakeResolver{mailbox: f.mailbox},
		f.engine,
		custom,
		f.applier,
		f.jobs,
		f.ignored,
		f.seen,
		opts,
		zap.NewNop(),
	)
	return f
}

func (f *fixture) addMessage(id string, email *core.NormalizedEmail) {
	email.ID = id
	if email.ThreadID == "" {
		email.ThreadID = "t-" + id
	}
	f.mailbox.ids = append(f.mailbox.ids, id)
	f.mailbox.messages[id] = email
}

func TestRunOnceClassifiesAndPersists(t *testing.T) {
	f := newFixture(t, Options{}, nil)
	f.engine.result = core.NewResult(core.CategoryInterview, core.ConfidenceHigh, "rule-phrase")
	f.addMessage("m1", &core.NormalizedEmail{Subject: "Interview invite"})

	outcome, err := f.scheduler.RunOnce(context.Background(), "s1", "newer_than:2d", 25)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Found)
	assert.Equal(t, 1, outcome.Processed)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "Jobs/Interview", outcome.Results[0].Label)

	assert.Equal(t, []string{"Jobs/Interview"}, f.applier.applied)

	rec, err := f.jobs.FindByExternalID(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, core.CategoryInterview, rec.Label)

	entry, err := f.seen.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestSeenMarkerSkipsBeforeFetch(t *testing.T) {
	f := newFixture(t, Options{}, nil)
	f.engine.result = core.NewResult(core.CategoryOffer, core.ConfidenceHigh, "rule-phrase")
	f.addMessage("m1", &core.NormalizedEmail{Subject: "Offer"})

	require.NoError(t, f.seen.Set(context.Background(), "m1", nil, time.Hour))

	outcome, err := f.scheduler.RunOnce(context.Background(), "s1", "q", 25)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Found)
	assert.Zero(t, outcome.Processed)
	assert.Zero(t, f.mailbox.fetches)
	assert.Zero(t, f.engine.calls)
}

func TestJobStoreDedupSurvivesSeenExpiry(t *testing.T) {
	f := newFixture(t, Options{}, nil)
	f.engine.result = core.NewResult(core.CategoryOffer, core.ConfidenceHigh, "rule-phrase")
	f.addMessage("m1", &core.NormalizedEmail{Subject: "Offer"})

	ctx := context.Background()
	_, err := f.scheduler.RunOnce(ctx, "s1", "q", 25)
	require.NoError(t, err)
	assert.Equal(t, 1, f.engine.calls)

	// A fresh seen cache models marker expiry; the job store still
	// catches the duplicate and backfills the marker.
	f.seen = cache.NewMemoryCache()
	f.scheduler.seen = f.seen

	outcome, err := f.scheduler.RunOnce(ctx, "s1", "q", 25)
	require.NoError(t, err)
	assert.Zero(t, outcome.Processed)
	assert.Equal(t, 1, f.engine.calls)
	assert.Len(t, f.applier.applied, 1)

	entry, err := f.seen.Get(ctx, "m1")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestIgnoredStoreDedup(t *testing.T) {
	f := newFixture(t, Options{}, nil)
	f.addMessage("m1", &core.NormalizedEmail{Subject: "Newsletter"})

	ctx := context.Background()
	require.NoError(t, f.ignored.Create(ctx, &core.IgnoredRecord{ExternalID: "m1", Reason: "no-match"}))

	outcome, err := f.scheduler.RunOnce(ctx, "s1", "q", 25)
	require.NoError(t, err)
	assert.Zero(t, outcome.Processed)
	assert.Zero(t, f.engine.calls)
}

func TestNoMatchRecordsIgnored(t *testing.T) {
	f := newFixture(t, Options{}, nil)
	f.addMessage("m1", &core.NormalizedEmail{Subject: "Lunch?", From: "friend@example.org"})

	ctx := context.Background()
	outcome, err := f.scheduler.RunOnce(ctx, "s1", "q", 25)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Processed)
	require.Len(t, outcome.Results, 1)
	assert.True(t, outcome.Results[0].Skipped)

	rec, err := f.ignored.FindByExternalID(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "no-match", rec.Reason)
	assert.Empty(t, f.applier.applied)
}

func TestSkipClassificationRecordsIgnored(t *testing.T) {
	f := newFixture(t, Options{}, nil)
	skip := core.NewResult(core.CategoryOther, core.ConfidenceMedium, "openai-ai")
	skip.IsSkip = true
	f.engine.result = skip
	f.addMessage("m1", &core.NormalizedEmail{Subject: "Something else"})

	ctx := context.Background()
	_, err := f.scheduler.RunOnce(ctx, "s1", "q", 25)
	require.NoError(t, err)

	rec, err := f.ignored.FindByExternalID(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "classified-skip", rec.Reason)
}

func TestCustomRulesPrecedeEngine(t *testing.T) {
	custom := &staticRules{rules: []core.CustomLabelRule{
		{LabelName: "Clients", Keywords: []string{"freelance"}, Enabled: true},
	}}
	f := newFixture(t, Options{}, custom)
	f.engine.result = core.NewResult(core.CategoryOffer, core.ConfidenceHigh, "rule-phrase")
	f.addMessage("m1", &core.NormalizedEmail{Subject: "Freelance contract"})

	outcome, err := f.scheduler.RunOnce(context.Background(), "s1", "q", 25)
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "Clients", outcome.Results[0].Label)
	assert.Zero(t, f.engine.calls)
	assert.Equal(t, []string{"Clients"}, f.applier.applied)
}

func TestRunOnceFailsOnMissingCredentials(t *testing.T) {
	f := newFixture(t, Options{}, nil)
	f.scheduler.resolver = &fakeResolver{}

	_, err := f.scheduler.RunOnce(context.Background(), "s1", "q", 25)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{DefaultInterval: time.Hour}, nil)
	defer f.scheduler.StopAll()

	first := f.scheduler.Start("s1", "q", 10)
	assert.True(t, first.Running)

	second := f.scheduler.Start("s1", "other-query", 99)
	assert.True(t, second.Running)
	assert.Equal(t, "q", second.Query)
	assert.Equal(t, 10, second.MaxResults)
}

func TestStopClearsSession(t *testing.T) {
	f := newFixture(t, Options{DefaultInterval: time.Hour}, nil)

	f.scheduler.Start("s1", "q", 10)
	f.scheduler.Stop("s1")

	status := f.scheduler.Status("s1")
	assert.False(t, status.Running)

	// Stopping twice or stopping an unknown session is harmless
	f.scheduler.Stop("s1")
	f.scheduler.Stop("never-started")
}

func TestCircuitBreakerStopsAfterConsecutiveErrors(t *testing.T) {
	f := newFixture(t, Options{
		DefaultInterval:      5 * time.Millisecond,
		MaxConsecutiveErrors: 3,
	}, nil)
	f.scheduler.resolver = &fakeResolver{err: errors.New("token revoked")}
	defer f.scheduler.StopAll()

	f.scheduler.Start("s1", "q", 10)

	require.Eventually(t, func() bool {
		return !f.scheduler.Status("s1").Running
	}, 2*time.Second, 10*time.Millisecond)

	status := f.scheduler.Status("s1")
	assert.GreaterOrEqual(t, status.ErrorCount, 3)
}

func TestSuccessResetsErrorBudget(t *testing.T) {
	f := newFixture(t, Options{DefaultInterval: time.Hour, MaxConsecutiveErrors: 3}, nil)

	sess := &session{id: "s1", query: "q", maxResults: 10, stopCh: make(chan struct{}), running: true}

	failing := &fakeResolver{err: errors.New("transient")}
	working := &fakeResolver{mailbox: f.mailbox}

	f.scheduler.resolver = failing
	f.scheduler.tick(sess)
	f.scheduler.tick(sess)
	assert.Equal(t, 2, f.scheduler.statusOf(sess).ErrorCount)

	f.scheduler.resolver = working
	f.scheduler.tick(sess)
	assert.Zero(t, f.scheduler.statusOf(sess).ErrorCount)
	assert.True(t, f.scheduler.statusOf(sess).Running)
}

// statusOf reads a session's state directly, for tests that drive
// ticks by hand.
func (s *Scheduler) statusOf(sess *session) *core.SessionStatus {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.status()
}

// gateResolver stalls inside Resolve and records how many scans are in
// flight at once.
type gateResolver struct {
	mailbox core.Mailbox
	hold    time.Duration

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (r *gateResolver) Resolve(ctx context.Context, sessionID string) (core.Mailbox, error) {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	r.mu.Unlock()

	time.Sleep(r.hold)

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()
	return r.mailbox, nil
}

func (r *gateResolver) max() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInFlight
}

func TestTicksForOneSessionNeverOverlap(t *testing.T) {
	f := newFixture(t, Options{DefaultInterval: time.Hour}, nil)
	gate := &gateResolver{mailbox: f.mailbox, hold: 20 * time.Millisecond}
	f.scheduler.resolver = gate

	sess := &session{id: "s1", query: "q", maxResults: 10, stopCh: make(chan struct{}), running: true}

	// A tick that outlasts the interval delays the next one instead of
	// running alongside it.
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.scheduler.tick(sess)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, gate.max())
}

func TestRunOnceSerializesWithScheduledTicks(t *testing.T) {
	f := newFixture(t, Options{DefaultInterval: time.Hour}, nil)
	gate := &gateResolver{mailbox: f.mailbox, hold: 20 * time.Millisecond}
	f.scheduler.resolver = gate
	defer f.scheduler.StopAll()

	f.scheduler.Start("s1", "q", 10)
	f.scheduler.mu.Lock()
	sess := f.scheduler.sessions["s1"]
	f.scheduler.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.scheduler.tick(sess)
	}()
	go func() {
		defer wg.Done()
		_, err := f.scheduler.RunOnce(context.Background(), "s1", "q", 10)
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.Equal(t, 1, gate.max())
}
