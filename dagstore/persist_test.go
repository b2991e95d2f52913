package dagstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/qrmesh/dagmix/ids"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	dir := t.TempDir()
	l, err := OpenLog(filepath.Join(dir, "dag.log"), filepath.Join(dir, "dag.index"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLogAppendAndLoadRoundTrip(t *testing.T) {
	l := openTestLog(t)
	v := newVertex("genesis", nil, time.Unix(42, 0).UTC())

	require.NoError(t, l.Append(v))

	got, err := l.Load(v.ID)
	require.NoError(t, err)
	require.Equal(t, v.ID, got.ID)
	require.Equal(t, v.Payload, got.Payload)
	require.True(t, v.Timestamp.Equal(got.Timestamp))
}

func TestLogLoadUnknownVertex(t *testing.T) {
	l := openTestLog(t)
	_, err := l.Load(ids.VertexID{1, 2, 3})
	require.ErrorIs(t, err, ErrUnknownVertex)
}

func TestLogPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "dag.log")
	indexPath := filepath.Join(dir, "dag.index")

	v := newVertex("genesis", nil, time.Unix(7, 0).UTC())

	l1, err := OpenLog(logPath, indexPath)
	require.NoError(t, err)
	require.NoError(t, l1.Append(v))
	require.NoError(t, l1.Close())

	l2, err := OpenLog(logPath, indexPath)
	require.NoError(t, err)
	defer l2.Close()

	got, err := l2.Load(v.ID)
	require.NoError(t, err)
	require.Equal(t, v.ID, got.ID)
}

func TestLogMultipleRecords(t *testing.T) {
	l := openTestLog(t)
	g := newVertex("genesis", nil, time.Unix(1, 0).UTC())
	child := newVertex("child", []ids.VertexID{g.ID}, time.Unix(2, 0).UTC())

	require.NoError(t, l.Append(g))
	require.NoError(t, l.Append(child))

	gotG, err := l.Load(g.ID)
	require.NoError(t, err)
	require.Equal(t, "genesis", string(gotG.Payload))

	gotChild, err := l.Load(child.ID)
	require.NoError(t, err)
	require.Equal(t, []ids.VertexID{g.ID}, gotChild.Parents)
}
