package vertex

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestVertex_InitialState(t *testing.T) {
	v := New("a", nil)
	assert.Equal(t, NotReady, v.State())
	assert.Equal(t, cty.NilVal, v.Data())
}

func TestVertex_SetState_RejectsInvalid(t *testing.T) {
	v := New("a", nil)
	err := v.SetState(State(99), true, NewResultSet())
	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)
}

func TestVertex_SetState_FiresStartOnlyWhenRunning(t *testing.T) {
	started := make(chan struct{}, 1)
	v := New("a", nil)
	v.BindStart(func(results *ResultSet) { started <- struct{}{} })

	require.NoError(t, v.SetState(InProgress, false, nil))
	select {
	case <-started:
		t.Fatal("start fired while scheduler not running")
	default:
	}

	require.NoError(t, v.SetState(Ready, true, NewResultSet()))
	require.NoError(t, v.SetState(InProgress, true, NewResultSet()))
	<-started
}

func TestVertex_SetState_StartFiresOnce(t *testing.T) {
	calls := make(chan struct{}, 4)
	v := New("a", nil)
	v.BindStart(func(results *ResultSet) { calls <- struct{}{} })

	require.NoError(t, v.SetState(InProgress, true, NewResultSet()))
	require.NoError(t, v.SetState(InProgress, true, NewResultSet()))
	<-calls
	select {
	case <-calls:
		t.Fatal("start fired twice for one campaign")
	default:
	}
}

func TestVertex_OnTaskSuccess_NotifiesOnce(t *testing.T) {
	type report struct {
		id      string
		success bool
		data    cty.Value
		err     error
	}
	reports := make(chan report, 4)
	v := New("a", func(id string, success bool, data cty.Value, err error) {
		reports <- report{id, success, data, err}
	})

	v.OnTaskSuccess(cty.StringVal("first"))
	v.OnTaskSuccess(cty.StringVal("second"))
	v.OnTaskFailure(fmt.Errorf("boom"))

	got := <-reports
	assert.Equal(t, "a", got.id)
	assert.True(t, got.success)
	assert.Equal(t, cty.StringVal("first"), got.data)
	assert.Equal(t, cty.StringVal("first"), v.Data())

	select {
	case <-reports:
		t.Fatal("vertex notified more than once for one campaign")
	default:
	}
}

func TestVertex_ResetForNewCampaign_AllowsStartAgain(t *testing.T) {
	calls := make(chan struct{}, 4)
	v := New("a", nil)
	v.BindStart(func(results *ResultSet) { calls <- struct{}{} })

	require.NoError(t, v.SetState(InProgress, true, NewResultSet()))
	<-calls

	v.ResetForNewCampaign()
	assert.Equal(t, NotReady, v.State())

	require.NoError(t, v.SetState(InProgress, true, NewResultSet()))
	<-calls
}

func TestResultSet_SetGetSnapshot(t *testing.T) {
	rs := NewResultSet()
	_, ok := rs.Get("missing")
	assert.False(t, ok)

	rs.Set("a", cty.NumberIntVal(1))
	v, ok := rs.Get("a")
	require.True(t, ok)
	assert.Equal(t, cty.NumberIntVal(1), v)

	snap := rs.Snapshot()
	assert.Equal(t, map[string]cty.Value{"a": cty.NumberIntVal(1)}, snap)
}
