package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTx struct {
	pgx.Tx
	seen       map[int64]bool
	pending    []int64
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	id := args[1].(int64)
	if f.seen[id] {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	f.pending = append(f.pending, id)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	for _, id := range f.pending {
		f.seen[id] = true
	}
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

type fakeDB struct {
	seen map[int64]bool
	last *fakeTx
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	f.last = &fakeTx{seen: f.seen}
	return f.last, nil
}

func newInbox(store *fakeDB) *Inbox {
	i := New(store, "test-consumer", zap.NewNop())
	i.backoff = time.Millisecond
	return i
}

func TestProcess_RunsOncePerEvent(t *testing.T) {
	store := &fakeDB{seen: map[int64]bool{}}
	i := newInbox(store)

	calls := 0
	action := func(context.Context) error {
		calls++
		return nil
	}

	require.NoError(t, i.Process(context.Background(), 7, action))
	require.NoError(t, i.Process(context.Background(), 7, action))
	require.Equal(t, 1, calls)
}

func TestProcess_FailedActionIsNotRecorded(t *testing.T) {
	store := &fakeDB{seen: map[int64]bool{}}
	i := newInbox(store)

	calls := 0
	err := i.Process(context.Background(), 9, func(context.Context) error {
		calls++
		return errors.New("redis down")
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.True(t, store.last.rolledBack)
	require.False(t, store.seen[9])

	require.NoError(t, i.Process(context.Background(), 9, func(context.Context) error {
		return nil
	}))
	require.True(t, store.seen[9])
}

func TestProcess_RetriesUntilSuccess(t *testing.T) {
	store := &fakeDB{seen: map[int64]bool{}}
	i := newInbox(store)

	calls := 0
	err := i.Process(context.Background(), 3, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestProcess_WithoutEventIDSkipsRecording(t *testing.T) {
	store := &fakeDB{seen: map[int64]bool{}}
	i := newInbox(store)

	calls := 0
	action := func(context.Context) error {
		calls++
		return nil
	}

	require.NoError(t, i.Process(context.Background(), 0, action))
	require.NoError(t, i.Process(context.Background(), 0, action))
	require.Equal(t, 2, calls)
	require.Nil(t, store.last)
}
