package rewards

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quickearn/internal/db"
	"quickearn/internal/metrics"
	"quickearn/internal/models"
	"quickearn/internal/payments"
)

const secret = "s3cret"

// memStore mimics the Postgres store: pending guard plus referee bonus credit.
type memStore struct {
	mu          sync.Mutex
	clicks      map[string]models.Click
	bonus       map[string]float64
	balances    map[string]float64
	balanceErr  error
	dests       map[string]string
	destErr     error
	transitions int
}

func newMemStore() *memStore {
	return &memStore{
		clicks:   map[string]models.Click{},
		bonus:    map[string]float64{},
		balances: map[string]float64{},
		dests:    map[string]string{},
	}
}

func (m *memStore) addPending(id, user, app string) {
	m.clicks[id] = models.Click{
		ID: id, UserID: models.NewNullString(user), App: app,
		Status: models.ClickPending, Timestamp: time.Now().UTC(),
	}
}

func (m *memStore) TransitionClick(_ context.Context, clickID, userID string, status models.ClickStatus) (models.ClickTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clicks[clickID]
	if !ok || c.UserID.String != userID {
		return models.ClickTransition{}, db.ErrNotFound
	}
	if c.Status != models.ClickPending {
		return models.ClickTransition{}, db.ErrNotPending
	}
	m.transitions++
	c.Status = status
	m.clicks[clickID] = c
	tr := models.ClickTransition{Click: c}
	if status == models.ClickConfirmed {
		if b := m.bonus[c.App]; b > 0 {
			m.balances[userID] += b
			tr.Credited = b
		}
	}
	return tr, nil
}

func (m *memStore) GetBalance(_ context.Context, userID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balanceErr != nil {
		return 0, m.balanceErr
	}
	b, ok := m.balances[userID]
	if !ok {
		return 0, db.ErrNotFound
	}
	return b, nil
}

func (m *memStore) GetPayoutDestination(_ context.Context, userID string) (string, error) {
	if m.destErr != nil {
		return "", m.destErr
	}
	return m.dests[userID], nil
}

type recordedEvent struct {
	name  string
	attrs map[string]string
}

type fakeSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeSink) Emit(_ context.Context, name string, attrs map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{name, attrs})
}

type fakeNotifier struct {
	mu       sync.Mutex
	results  []Result
	ctxErrs  []error
	deadline bool
	release  chan struct{} // when set, OnReconciled blocks until it is closed
}

func (f *fakeNotifier) OnReconciled(ctx context.Context, _ Request, res Result) {
	if f.release != nil {
		<-f.release
	}
	_, hasDeadline := ctx.Deadline()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.deadline = hasDeadline
}

type failingInitiator struct{}

func (failingInitiator) InitiatePayout(context.Context, payments.Request) (payments.Result, error) {
	return payments.Result{}, errors.New("gateway timeout")
}

func newWorkflow(store *memStore, sink *fakeSink) *Workflow {
	engine := NewPayoutEngine(store, store, payments.NewSimulator(nil, zap.NewNop()), 100, zap.NewNop())
	return NewWorkflow(WorkflowDeps{Clicks: store, Engine: engine, Sink: sink, AdminSecret: secret}, zap.NewNop())
}

func TestReconcileConfirmWithPayout(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "CRED")
	store.bonus["CRED"] = 150
	store.dests["u1"] = "u1@upi"
	sink := &fakeSink{}
	wf := newWorkflow(store, sink)

	res, err := wf.Reconcile(context.Background(), "Bearer "+secret,
		Request{ClickID: "c1", UserID: "u1", Status: "confirmed", AppName: "CRED"})
	require.NoError(t, err)

	assert.Equal(t, "Click status updated to confirmed. Reward credited. Payout of ₹150 to u1@upi would be initiated.", res.Message)
	assert.Contains(t, res.Message, "credited")
	assert.Contains(t, res.Message, "150")
	assert.Contains(t, res.Message, "u1@upi")
	assert.Equal(t, 150.0, res.Credited)
	require.NotNil(t, res.Decision)
	assert.Equal(t, OutcomePayoutInitiated, res.Decision.Outcome)
	require.NotNil(t, res.Decision.Payout)
	assert.True(t, res.Decision.Payout.Simulated)
	assert.Equal(t, 150.0, store.balances["u1"], "simulated payout does not debit")

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, "referral_sync", ev.name)
	assert.Equal(t, map[string]string{
		"user_id":         "u1",
		"click_id":        "c1",
		"user_id_param":   "u1",
		"referral_status": "confirmed",
		"app_name":        "CRED",
	}, ev.attrs)
}

func TestReconcileConfirmBelowThreshold(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "CRED")
	store.bonus["CRED"] = 40
	store.dests["u1"] = "u1@upi"
	wf := newWorkflow(store, &fakeSink{})

	res, err := wf.Reconcile(context.Background(), "Bearer "+secret,
		Request{ClickID: "c1", UserID: "u1", Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "Click status updated to confirmed. Reward credited. Balance (₹40) is below payout threshold (₹100).", res.Message)
	assert.Contains(t, res.Message, "below payout threshold")
}

func TestReconcileConfirmNoBalanceRecord(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "Unlisted")
	wf := newWorkflow(store, &fakeSink{})

	res, err := wf.Reconcile(context.Background(), "Bearer "+secret,
		Request{ClickID: "c1", UserID: "u1", Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "Click status updated to confirmed. Reward credited. User reward record not found or balance is zero.", res.Message)
	assert.Equal(t, OutcomeRecordNotFound, res.Decision.Outcome)
}

func TestReconcileOutcomesAreExclusive(t *testing.T) {
	cases := []struct {
		name    string
		balance *float64
		dest    string
		want    Outcome
	}{
		{"payout", ptr(150), "u1@upi", OutcomePayoutInitiated},
		{"below", ptr(40), "u1@upi", OutcomeBelowThreshold},
		{"no record", nil, "u1@upi", OutcomeRecordNotFound},
		{"no destination", ptr(150), "", OutcomeDestinationMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			store.addPending("c1", "u1", "CRED")
			if tc.balance != nil {
				store.balances["u1"] = *tc.balance
			}
			store.dests["u1"] = tc.dest
			wf := newWorkflow(store, &fakeSink{})

			res, err := wf.Apply(context.Background(), Request{ClickID: "c1", UserID: "u1", Status: "confirmed"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Decision.Outcome)
		})
	}
}

func ptr(f float64) *float64 { return &f }

func TestReconcileReject(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "CRED")
	store.bonus["CRED"] = 150
	sink := &fakeSink{}
	wf := newWorkflow(store, sink)

	res, err := wf.Reconcile(context.Background(), "Bearer "+secret,
		Request{ClickID: "c1", UserID: "u1", Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, "Click status updated to rejected.", res.Message)
	assert.Nil(t, res.Decision)
	_, credited := store.balances["u1"]
	assert.False(t, credited)
	assert.Equal(t, "rejected", sink.events[0].attrs["referral_status"])
}

func TestReconcileUnauthorizedWritesNothing(t *testing.T) {
	for _, header := range []string{"", "Bearer wrong", secret, "bearer " + secret, "Bearer " + secret + " "} {
		store := newMemStore()
		store.addPending("c1", "u1", "CRED")
		sink := &fakeSink{}
		wf := newWorkflow(store, sink)

		_, err := wf.Reconcile(context.Background(), header, Request{ClickID: "c1", UserID: "u1", Status: "confirmed"})
		assert.ErrorIs(t, err, ErrUnauthorized, "header %q", header)
		assert.Zero(t, store.transitions)
		assert.Equal(t, models.ClickPending, store.clicks["c1"].Status)
		assert.Empty(t, sink.events)
	}
}

func TestReconcileMisconfigured(t *testing.T) {
	store := newMemStore()
	wf := NewWorkflow(WorkflowDeps{Clicks: store, Engine: NewPayoutEngine(store, store, nil, 0, zap.NewNop())}, zap.NewNop())

	_, err := wf.Reconcile(context.Background(), "Bearer ", Request{ClickID: "c1", UserID: "u1", Status: "confirmed"})
	assert.ErrorIs(t, err, ErrServerMisconfigured)
}

func TestReconcileAuthorizesBeforeValidating(t *testing.T) {
	wf := newWorkflow(newMemStore(), &fakeSink{})
	_, err := wf.Reconcile(context.Background(), "Bearer nope", Request{Status: "bogus"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestReconcileInvalidRequest(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "CRED")
	wf := newWorkflow(store, &fakeSink{})

	for _, req := range []Request{
		{ClickID: "c1", UserID: "u1", Status: "pending"},
		{ClickID: "c1", UserID: "u1", Status: "Confirmed"},
		{ClickID: "c1", UserID: "u1", Status: ""},
		{ClickID: "", UserID: "u1", Status: "confirmed"},
		{ClickID: "c1", UserID: "", Status: "confirmed"},
	} {
		_, err := wf.Reconcile(context.Background(), "Bearer "+secret, req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "%+v", req)
	}
	assert.Zero(t, store.transitions)
}

func TestReconcileUnknownPair(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "CRED")
	wf := newWorkflow(store, &fakeSink{})

	_, err := wf.Reconcile(context.Background(), "Bearer "+secret, Request{ClickID: "c1", UserID: "u2", Status: "confirmed"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "click not found for id: c1 and user: u2", err.Error())
	assert.Equal(t, models.ClickPending, store.clicks["c1"].Status)
}

func TestReconcileTwiceDoesNotDoubleCredit(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "CRED")
	store.bonus["CRED"] = 150
	wf := newWorkflow(store, &fakeSink{})
	req := Request{ClickID: "c1", UserID: "u1", Status: "confirmed"}

	_, err := wf.Reconcile(context.Background(), "Bearer "+secret, req)
	require.NoError(t, err)
	_, err = wf.Reconcile(context.Background(), "Bearer "+secret, req)
	assert.ErrorIs(t, err, ErrConflict)

	rejected := req
	rejected.Status = "rejected"
	_, err = wf.Reconcile(context.Background(), "Bearer "+secret, rejected)
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, 150.0, store.balances["u1"])
	assert.Equal(t, models.ClickConfirmed, store.clicks["c1"].Status)
}

func TestConcurrentReconcileHasOneWinner(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "CRED")
	store.bonus["CRED"] = 150
	wf := newWorkflow(store, &fakeSink{})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = wf.Apply(context.Background(), Request{ClickID: "c1", UserID: "u1", Status: "confirmed"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 150.0, store.balances["u1"])
}

func TestReconcileStoreFailure(t *testing.T) {
	wf := NewWorkflow(WorkflowDeps{Clicks: brokenStore{}, AdminSecret: secret}, zap.NewNop())
	_, err := wf.Reconcile(context.Background(), "Bearer "+secret, Request{ClickID: "c1", UserID: "u1", Status: "rejected"})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotContains(t, err.Error(), "connection refused")
}

type brokenStore struct{}

func (brokenStore) TransitionClick(context.Context, string, string, models.ClickStatus) (models.ClickTransition, error) {
	return models.ClickTransition{}, errors.New("dial tcp: connection refused")
}

func TestReconcileAppNameFallback(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "Groww")
	store.addPending("c2", "u1", "")
	sink := &fakeSink{}
	wf := newWorkflow(store, sink)

	_, err := wf.Apply(context.Background(), Request{ClickID: "c1", UserID: "u1", Status: "rejected"})
	require.NoError(t, err)
	_, err = wf.Apply(context.Background(), Request{ClickID: "c2", UserID: "u1", Status: "rejected"})
	require.NoError(t, err)

	assert.Equal(t, "Groww", sink.events[0].attrs["app_name"])
	assert.Equal(t, "Unknown App", sink.events[1].attrs["app_name"])
}

func TestReconcileNotifiesAndCounts(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "CRED")
	notifier := &fakeNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	engine := NewPayoutEngine(store, store, nil, 100, zap.NewNop())
	wf := NewWorkflow(WorkflowDeps{Clicks: store, Engine: engine, Notifier: notifier, Metrics: m, AdminSecret: secret}, zap.NewNop())

	_, err := wf.Apply(context.Background(), Request{ClickID: "c1", UserID: "u1", Status: "confirmed"})
	require.NoError(t, err)
	wf.Wait()
	require.Len(t, notifier.results, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconciliations.WithLabelValues("confirmed", "record_not_found")))
}

func TestApplyDoesNotWaitForNotifier(t *testing.T) {
	store := newMemStore()
	store.addPending("c1", "u1", "CRED")
	notifier := &fakeNotifier{release: make(chan struct{})}
	engine := NewPayoutEngine(store, store, nil, 100, zap.NewNop())
	wf := NewWorkflow(WorkflowDeps{Clicks: store, Engine: engine, Notifier: notifier, AdminSecret: secret}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	res, err := wf.Apply(ctx, Request{ClickID: "c1", UserID: "u1", Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, "Click status updated to rejected.", res.Message)

	// the request is over before the notifier gets to run
	cancel()
	close(notifier.release)
	wf.Wait()

	require.Len(t, notifier.results, 1)
	assert.NoError(t, notifier.ctxErrs[0])
	assert.True(t, notifier.deadline)
}

func TestDecideBalanceUnverifiable(t *testing.T) {
	store := newMemStore()
	store.balanceErr = errors.New("timeout")
	d := NewPayoutEngine(store, store, nil, 100, zap.NewNop()).Decide(context.Background(), "u1", "CRED", "c1")
	assert.Equal(t, OutcomeBalanceUnverifiable, d.Outcome)
	assert.Equal(t, "Could not verify balance for payout.", d.Message)
}

func TestDecideDestinationLookupError(t *testing.T) {
	store := newMemStore()
	store.balances["u1"] = 150
	store.destErr = errors.New("decrypt failed")
	d := NewPayoutEngine(store, store, nil, 100, zap.NewNop()).Decide(context.Background(), "u1", "CRED", "c1")
	assert.Equal(t, OutcomeDestinationMissing, d.Outcome)
	assert.Equal(t, "Reward credited, but payout failed: UPI ID not found on user profile.", d.Message)
}

func TestDecideInitiatorFailure(t *testing.T) {
	store := newMemStore()
	store.balances["u1"] = 150
	store.dests["u1"] = "u1@upi"
	d := NewPayoutEngine(store, store, failingInitiator{}, 100, zap.NewNop()).Decide(context.Background(), "u1", "CRED", "c1")
	assert.Equal(t, OutcomePayoutFailed, d.Outcome)
	assert.Equal(t, "Reward credited, but payout failed: gateway timeout", d.Message)
}

func TestDecideThresholdIsInclusive(t *testing.T) {
	store := newMemStore()
	store.balances["u1"] = 100
	store.dests["u1"] = "u1@upi"
	d := NewPayoutEngine(store, store, nil, 0, zap.NewNop()).Decide(context.Background(), "u1", "CRED", "c1")
	assert.Equal(t, OutcomePayoutInitiated, d.Outcome)
	assert.Equal(t, "Reward credited. Payout of ₹100 to u1@upi would be initiated.", d.Message)
}
