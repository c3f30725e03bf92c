package bulktransition

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestState_CanTransition(t *testing.T) {
	path := []State{StateStart, StateCapacityChecked, StateFetched, StateUsageRecorded, StateDispatched, StateComplete}
	for i := 0; i < len(path)-1; i++ {
		require.True(t, path[i].CanTransition(path[i+1]), "%s -> %s", path[i], path[i+1])
		for j := i + 2; j < len(path); j++ {
			if path[i] == StateFetched && path[j] == StateComplete {
				continue
			}
			require.False(t, path[i].CanTransition(path[j]), "%s must not skip to %s", path[i], path[j])
		}
	}

	require.True(t, StateFetched.CanTransition(StateComplete))
	require.True(t, StateCapacityChecked.CanTransition(StateFailed))
	require.False(t, StateComplete.CanTransition(StateFailed))
	require.False(t, StateFailed.CanTransition(StateStart))
	require.True(t, StateComplete.Terminal())
	require.True(t, StateFailed.Terminal())
	require.False(t, StateDispatched.Terminal())
}

func TestReport_AdvanceAndStatus(t *testing.T) {
	var nilReport *Report
	require.Empty(t, nilReport.Status())

	r := newReport("inv", "svc", "https://q", time.Unix(0, 0))
	require.False(t, r.advance(StateFetched))
	require.Equal(t, StateStart, r.State)

	require.True(t, r.advance(StateCapacityChecked))
	require.True(t, r.advance(StateFailed))
	require.Equal(t, "bulk transition: FAILED", r.Status())
	require.Equal(t, []State{StateStart, StateCapacityChecked, StateFailed}, r.Trail)
}

func TestErrors(t *testing.T) {
	noCap := &NoCapacityError{Service: "svc", Allowance: 0}
	require.ErrorIs(t, noCap, ErrNoCapacity)
	require.Equal(t, "bulk transition: no capacity available for svc (allowance 0)", noCap.Error())
	require.Equal(t, errorMessageNoCapacity, (&NoCapacityError{}).Error())

	cause := errors.New("timeout")
	inv := &InvocationError{Stage: StageFetch, Cause: cause}
	require.ErrorIs(t, inv, cause)
	require.Equal(t, "bulk transition: fetch: timeout", inv.Error())
	require.Equal(t, "bulk transition: capacity failed", (&InvocationError{Stage: StageCapacity}).Error())

	var nilInv *InvocationError
	require.NoError(t, nilInv.Unwrap())

	second := errors.New("second")
	proc := &ProcessingError{Failed: 2, Total: 5, Errs: []error{cause, second}}
	require.ErrorIs(t, proc, second)
	require.Equal(t, cause, proc.First())
	require.Equal(t, "bulk transition: 2 of 5 messages failed: timeout", proc.Error())
	require.Equal(t, "bulk transition: processing failed", (&ProcessingError{}).Error())
	require.NoError(t, (&ProcessingError{}).First())

	require.Contains(t, (&PanicError{MessageID: "m1", Value: "boom"}).Error(), "m1")
}

func TestULIDGenerator(t *testing.T) {
	a := ULIDGenerator{}.NewID()
	b := ULIDGenerator{}.NewID()
	require.Len(t, a, 26)
	require.NotEqual(t, a, b)
}
