package audit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendAssignsSequentialNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	seq1, err := log.Append(&OrderAdmittedEvent{OrderID: 1})
	require.NoError(t, err)
	seq2, err := log.Append(&OrderRejectedEvent{OrderID: 2, Reason: "unknown_kind"})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), seq1)
	assert.Equal(t, uint64(2), seq2)
}

func TestLog_ReplayReturnsEventsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path)
	require.NoError(t, err)

	_, err = log.Append(&OrderAdmittedEvent{OrderID: 1})
	require.NoError(t, err)
	_, err = log.Append(&OrderCanceledEvent{OrderID: 1})
	require.NoError(t, err)
	require.NoError(t, log.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	var seen []uint64
	err = reopened.Replay(func(seq uint64, event interface{}) error {
		seen = append(seen, seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, seen)
}

func TestLog_RecoverContinuesSequenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log, err := Open(path)
	require.NoError(t, err)
	_, err = log.Append(&OrderAdmittedEvent{OrderID: 1})
	require.NoError(t, err)
	require.NoError(t, log.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	seq, err := reopened.Append(&OrderAdmittedEvent{OrderID: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq, "sequence must continue from the recovered log, not restart at 1")
}

func TestLog_ReplayOfMissingFileIsANoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.log")
	log := &Log{path: path}
	called := false
	err := log.Replay(func(uint64, interface{}) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}
