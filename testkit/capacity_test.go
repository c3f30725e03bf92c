package testkit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapacityGate(t *testing.T) {
	gate := NewCapacityGate()
	gate.SetAllowance("payments", 10)
	gate.DirectAllowances["payments"] = 12

	got, err := gate.Available(context.Background(), "payments")
	require.NoError(t, err)
	require.Equal(t, 10, got)

	require.NoError(t, gate.RecordUsage(context.Background(), "payments", 7))
	got, _ = gate.Available(context.Background(), "payments")
	require.Equal(t, 3, got)
	got, _ = gate.Allowance(context.Background(), "payments", false)
	require.Equal(t, 5, got)

	require.NoError(t, gate.RecordUsage(context.Background(), "payments", 7))
	got, _ = gate.Available(context.Background(), "payments")
	require.Zero(t, got)
	require.Equal(t, 14, gate.Used("payments"))
	require.Equal(t, []int{7, 7}, gate.Recorded())

	gate.Reset()
	got, _ = gate.Available(context.Background(), "payments")
	require.Equal(t, 10, got)

	boom := errors.New("boom")
	gate.AvailableErr = boom
	gate.RecordErr = boom
	_, err = gate.Available(context.Background(), "payments")
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, gate.RecordUsage(context.Background(), "payments", 1), boom)
}
