package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quickearn/internal/models"
)

type fakeRecorder struct {
	records []models.PayoutRecord
	err     error
}

func (f *fakeRecorder) RecordPayout(_ context.Context, rec models.PayoutRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func TestSimulatorInitiatePayout(t *testing.T) {
	rec := &fakeRecorder{}
	sim := NewSimulator(rec, zap.NewNop())

	res, err := sim.InitiatePayout(context.Background(), Request{
		UserID: "u1", Amount: 150, Destination: "u1@upi", Narration: "CRED",
	})
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	assert.Equal(t, "simulated", res.Status)
	assert.True(t, strings.HasPrefix(res.Reference, "QUICKEARN-PAYOUT-"))

	require.Len(t, rec.records, 1)
	assert.Equal(t, "u1", rec.records[0].UserID)
	assert.Equal(t, 150.0, rec.records[0].Amount)
	assert.Equal(t, res.Reference, rec.records[0].Reference)
	assert.True(t, rec.records[0].Simulated)
}

func TestSimulatorRecorderFailureIsNotFatal(t *testing.T) {
	sim := NewSimulator(&fakeRecorder{err: errors.New("db down")}, zap.NewNop())
	res, err := sim.InitiatePayout(context.Background(), Request{UserID: "u1", Amount: 100, Destination: "u1@upi"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reference)
}

func TestSimulatorRejectsBadRequests(t *testing.T) {
	sim := NewSimulator(nil, zap.NewNop())
	_, err := sim.InitiatePayout(context.Background(), Request{UserID: "u1", Amount: 100})
	assert.Error(t, err)
	_, err = sim.InitiatePayout(context.Background(), Request{UserID: "u1", Amount: 0, Destination: "u1@upi"})
	assert.Error(t, err)
}
