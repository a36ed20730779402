package scheduler

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/repo"
)

type countJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countJob) Name() string { return j.name }

func (j *countJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

// fakeDomain implements repo.Syncable.
type fakeDomain struct {
	mu        sync.Mutex
	name      model.Domain
	localOnly bool
	pending   bool
	flushErr  error
	syncErr   error
	flushes   int
	syncs     int
}

var _ repo.Syncable = (*fakeDomain)(nil)

func (d *fakeDomain) Name() model.Domain { return d.name }
func (d *fakeDomain) LocalOnly() bool { return d.localOnly }
func (d *fakeDomain) Warm() int { return 0 }
func (d *fakeDomain) Count() int { return 0 }

func (d *fakeDomain) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *fakeDomain) Sync(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.syncs++
	return 1, d.syncErr
}

func (d *fakeDomain) ForceFlush(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushes++
	if d.flushErr == nil {
		d.pending = false
	}
	return d.flushErr
}

func (d *fakeDomain) Push(ctx context.Context) error { return d.ForceFlush(ctx) }

type fakeSession struct {
	checks atomic.Int32
}

func (s *fakeSession) CheckAndRefresh(ctx context.Context) { s.checks.Add(1) }

// =============================================================================
// Scheduler Tests
// =============================================================================

func TestEveryRunsJob(t *testing.T) {
	s := New()
	job := &countJob{name: "tick"}
	require.NoError(t, s.Add("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestEveryZeroIntervalDisables(t *testing.T) {
	s := New()
	require.NoError(t, s.Every(0, &countJob{name: "off"}))
	assert.Empty(t, s.Status())
}

func TestAddRejectsDuplicatesAndBadSpecs(t *testing.T) {
	s := New()
	require.NoError(t, s.Every(time.Minute, &countJob{name: "a"}))
	assert.Error(t, s.Every(time.Minute, &countJob{name: "a"}))
	assert.Error(t, s.Add("not a spec", &countJob{name: "b"}))
}

func TestRemove(t *testing.T) {
	s := New()
	require.NoError(t, s.Every(time.Minute, &countJob{name: "a"}))
	s.Remove("a")
	assert.Empty(t, s.Status())
	assert.True(t, s.NextRun().IsZero())
}

func TestRunNowRecordsStatus(t *testing.T) {
	s := New()
	ok := &countJob{name: "ok"}
	bad := &countJob{name: "bad", err: stderrors.New("remote down")}
	require.NoError(t, s.Every(time.Hour, ok))
	require.NoError(t, s.Every(time.Hour, bad))

	require.NoError(t, s.RunNow(context.Background(), "ok"))
	assert.Error(t, s.RunNow(context.Background(), "bad"))
	assert.Error(t, s.RunNow(context.Background(), "missing"))

	st := s.Status()
	require.Len(t, st, 2)
	assert.Equal(t, "bad", st[0].Name)
	assert.Equal(t, "remote down", st[0].LastError)
	assert.Equal(t, 1, st[1].Runs)
	assert.Equal(t, "@every 1h0m0s", st[1].Spec)
}

func TestTickSkipsAfterSleep(t *testing.T) {
	s := New()
	job := &countJob{name: "j"}
	e := &entry{job: job}

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	s.lastTick = clock

	clock = clock.Add(time.Minute)
	s.tick(e)
	assert.EqualValues(t, 1, job.runs.Load())

	clock = clock.Add(3 * time.Hour)
	s.tick(e)
	assert.EqualValues(t, 1, job.runs.Load(), "stale run skipped")

	clock = clock.Add(time.Minute)
	s.tick(e)
	assert.EqualValues(t, 2, job.runs.Load())
}

// =============================================================================
// Job Tests
// =============================================================================

func TestRefreshJob(t *testing.T) {
	notes := &fakeDomain{name: model.DomainNotes}
	habits := &fakeDomain{name: model.DomainHabits, syncErr: stderrors.New("boom")}
	acts := &fakeDomain{name: model.DomainActivities, localOnly: true}

	job := &RefreshJob{Domains: []repo.Syncable{notes, habits, acts}}
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "habits")
	assert.Equal(t, 1, notes.syncs)
	assert.Equal(t, 0, acts.syncs)
}

func TestRefreshJobOffline(t *testing.T) {
	notes := &fakeDomain{name: model.DomainNotes}
	job := &RefreshJob{Domains: []repo.Syncable{notes}, Offline: true}
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, notes.syncs)
}

func TestPendingJob(t *testing.T) {
	clean := &fakeDomain{name: model.DomainNotes}
	dirty := &fakeDomain{name: model.DomainHabits, pending: true}
	failing := &fakeDomain{name: model.DomainVideos, pending: true, flushErr: stderrors.New("unavailable")}

	job := &PendingJob{Domains: []repo.Syncable{clean, dirty, failing}}
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "videos")

	assert.Equal(t, 0, clean.flushes)
	assert.Equal(t, 1, dirty.flushes)
	assert.False(t, dirty.Pending())
	assert.True(t, failing.Pending())

	offline := &PendingJob{Domains: []repo.Syncable{failing}, Offline: true}
	require.NoError(t, offline.Run(context.Background()))
	assert.Equal(t, 1, failing.flushes)
}

func TestTokenJob(t *testing.T) {
	sess := &fakeSession{}
	job := &TokenJob{Session: sess}
	require.NoError(t, job.Run(context.Background()))
	assert.EqualValues(t, 1, sess.checks.Load())
	assert.Equal(t, JobToken, job.Name())
}
