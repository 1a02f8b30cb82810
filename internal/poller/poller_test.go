package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/connections-cli/internal/ledger"
	"github.com/sells-group/connections-cli/internal/model"
	"github.com/sells-group/connections-cli/pkg/openai"
)

// fakeStore is an in-memory ledger used to observe scheduler writes.
type fakeStore struct {
	mu   sync.Mutex
	jobs map[string]model.Job
}

func newFakeStore(jobs ...model.Job) *fakeStore {
	s := &fakeStore{jobs: make(map[string]model.Job)}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

func (s *fakeStore) UpsertJob(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) GetJob(_ context.Context, jobID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ledger.ErrJobNotFound
	}
	return &j, nil
}

func (s *fakeStore) ListJobs(_ context.Context) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (s *fakeStore) ListActiveJobs(ctx context.Context) ([]model.Job, error) {
	all, _ := s.ListJobs(ctx)
	var out []model.Job
	for _, j := range all {
		if j.Status.IsActive() {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeStore) ListCompletedJobs(ctx context.Context) ([]model.Job, error) {
	all, _ := s.ListJobs(ctx)
	var out []model.Job
	for _, j := range all {
		if j.Status == model.JobStatusCompleted {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return ledger.ErrJobNotFound
	}
	delete(s.jobs, jobID)
	return nil
}

func (s *fakeStore) PutContacts(context.Context, string, []model.Contact) error { return nil }
func (s *fakeStore) GetContacts(context.Context, string) ([]model.Contact, error) {
	return nil, ledger.ErrJobNotFound
}
func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

// fakeClient serves canned batch states keyed by id.
type fakeClient struct {
	mu      sync.Mutex
	batches map[string]*openai.Batch
	errs    map[string]error
	listed  []openai.Batch
	polls   map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		batches: make(map[string]*openai.Batch),
		errs:    make(map[string]error),
		polls:   make(map[string]int),
	}
}

func (c *fakeClient) GetBatch(_ context.Context, batchID string) (*openai.Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls[batchID]++
	if err := c.errs[batchID]; err != nil {
		return nil, err
	}
	b, ok := c.batches[batchID]
	if !ok {
		return nil, eris.Errorf("no batch %s", batchID)
	}
	return b, nil
}

func (c *fakeClient) ListBatches(context.Context, int) ([]openai.Batch, error) {
	return c.listed, nil
}

func (c *fakeClient) UploadFile(context.Context, string, string, []byte) (*openai.File, error) {
	return nil, eris.New("not implemented")
}

func (c *fakeClient) CreateBatch(context.Context, openai.CreateBatchRequest) (*openai.Batch, error) {
	return nil, eris.New("not implemented")
}

func (c *fakeClient) CancelBatch(context.Context, string) (*openai.Batch, error) {
	return nil, eris.New("not implemented")
}

func (c *fakeClient) GetFileContent(context.Context, string) (string, error) {
	return "", eris.New("not implemented")
}

func activeJob(id string) model.Job {
	return model.Job{
		ID:        id,
		Status:    model.JobStatusInProgress,
		RowCount:  5,
		CreatedAt: time.Now().UTC(),
	}
}

func TestTick_UpdatesJobs(t *testing.T) {
	store := newFakeStore(activeJob("batch-1"), activeJob("batch-2"))
	client := newFakeClient()
	client.batches["batch-1"] = &openai.Batch{
		ID:            "batch-1",
		Status:        "completed",
		OutputFileID:  "file-out",
		RequestCounts: openai.RequestCounts{Total: 5, Completed: 5},
	}
	client.batches["batch-2"] = &openai.Batch{
		ID:            "batch-2",
		Status:        "in_progress",
		RequestCounts: openai.RequestCounts{Total: 5, Completed: 2},
	}

	sched := New(store, client)
	active, err := sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, active)

	done, err := store.GetJob(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, done.Status)
	assert.Equal(t, "file-out", done.OutputFileID)
	assert.Equal(t, 5, done.RowCount)
	require.NotNil(t, done.LastPolledAt)

	running, err := store.GetJob(context.Background(), "batch-2")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusInProgress, running.Status)
	require.NotNil(t, running.Counts)
	assert.Equal(t, 2, running.Counts.Completed)
}

func TestTick_NoActiveJobs(t *testing.T) {
	store := newFakeStore(model.Job{ID: "batch-1", Status: model.JobStatusCompleted})
	client := newFakeClient()

	sched := New(store, client)
	active, err := sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, active)
	assert.Empty(t, client.polls)
}

func TestTick_PerJobErrorIsolation(t *testing.T) {
	store := newFakeStore(activeJob("batch-ok"), activeJob("batch-bad"))
	client := newFakeClient()
	client.batches["batch-ok"] = &openai.Batch{ID: "batch-ok", Status: "completed"}
	client.errs["batch-bad"] = eris.New("remote unavailable")

	sched := New(store, client)
	active, err := sched.Tick(context.Background())
	require.NoError(t, err)
	// The failed job stays active so a later tick retries it.
	assert.Equal(t, 1, active)

	ok, err := store.GetJob(context.Background(), "batch-ok")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, ok.Status)

	bad, err := store.GetJob(context.Background(), "batch-bad")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusInProgress, bad.Status)
	assert.Nil(t, bad.LastPolledAt)
}

func TestTick_UnknownRemoteStatusKeepsRecord(t *testing.T) {
	store := newFakeStore(activeJob("batch-1"))
	client := newFakeClient()
	client.batches["batch-1"] = &openai.Batch{ID: "batch-1", Status: "paused"}

	sched := New(store, client)
	active, err := sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, active)

	job, err := store.GetJob(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusInProgress, job.Status)
}

func TestTick_JobDeletedMidTick(t *testing.T) {
	store := newFakeStore(activeJob("batch-1"))
	client := newFakeClient()
	client.batches["batch-1"] = &openai.Batch{ID: "batch-1", Status: "in_progress"}

	sched := New(store, client)

	// Simulate a concurrent delete between listing and the per-job reload.
	require.NoError(t, store.DeleteJob(context.Background(), "batch-1"))
	assert.False(t, sched.pollOne(context.Background(), "batch-1"))
}

func TestRun_StopWhenIdle(t *testing.T) {
	store := newFakeStore(activeJob("batch-1"))
	client := newFakeClient()
	client.batches["batch-1"] = &openai.Batch{ID: "batch-1", Status: "completed"}

	sched := New(store, client, WithInterval(10*time.Millisecond), WithStopWhenIdle())

	done := make(chan error, 1)
	go func() { done <- sched.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after draining active jobs")
	}

	job, err := store.GetJob(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
}

func TestRun_Stop(t *testing.T) {
	store := newFakeStore(activeJob("batch-1"))
	client := newFakeClient()
	client.batches["batch-1"] = &openai.Batch{ID: "batch-1", Status: "in_progress"}

	sched := New(store, client, WithInterval(time.Hour))

	done := make(chan error, 1)
	go func() { done <- sched.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	sched.Stop()
	sched.Stop() // idempotent

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRun_ContextCancel(t *testing.T) {
	store := newFakeStore(activeJob("batch-1"))
	client := newFakeClient()
	client.batches["batch-1"] = &openai.Batch{ID: "batch-1", Status: "in_progress"}

	sched := New(store, client, WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}

func TestReattach(t *testing.T) {
	known := activeJob("batch-known")
	store := newFakeStore(known)
	client := newFakeClient()
	client.listed = []openai.Batch{
		{ID: "batch-known", Status: "in_progress", CreatedAt: 1700000000},
		{ID: "batch-new", Status: "completed", OutputFileID: "file-out", CreatedAt: 1700001000,
			Metadata: map[string]string{"description": "imported"}},
		{ID: "batch-weird", Status: "warming_up", CreatedAt: 1700002000},
	}

	imported, err := Reattach(context.Background(), store, client, 50)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "batch-new", imported[0].ID)
	assert.Equal(t, "imported", imported[0].Description)

	// Known job untouched.
	got, err := store.GetJob(context.Background(), "batch-known")
	require.NoError(t, err)
	assert.Equal(t, known, *got)

	// Imported job persisted from the remote record.
	newbie, err := store.GetJob(context.Background(), "batch-new")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, newbie.Status)
	assert.Equal(t, "file-out", newbie.OutputFileID)

	// Unknown status skipped.
	_, err = store.GetJob(context.Background(), "batch-weird")
	assert.ErrorIs(t, err, ledger.ErrJobNotFound)
}
