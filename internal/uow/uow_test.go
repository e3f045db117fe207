package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx satisfies pgx.Tx for the commit and rollback paths the unit
// of work touches. The statement methods are never reached here.
type fakeTx struct {
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(ctx context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(ctx context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(ctx context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(ctx context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRow(ctx context.Context, _ string, _ ...any) pgx.Row { return nil }

func (t *fakeTx) Conn() *pgx.Conn { return nil }

type fakePool struct {
	txs  []*fakeTx
	opts []pgx.TxOptions
	// commitErrs[i] is handed to the i-th transaction.
	commitErrs []error
}

func (p *fakePool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	tx := &fakeTx{}
	if len(p.commitErrs) > len(p.txs) {
		tx.commitErr = p.commitErrs[len(p.txs)]
	}
	p.txs = append(p.txs, tx)
	p.opts = append(p.opts, txOptions)
	return tx, nil
}

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001"}
}

func TestDoRetriesOnSerializationFailure(t *testing.T) {
	pool := &fakePool{}
	u := &UoW{db: pool, attempts: 3}

	var hookRuns []int
	attempt := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx pgx.Tx, after func(AfterCommit)) error {
		attempt++
		n := attempt
		after(func(ctx context.Context) { hookRuns = append(hookRuns, n) })
		if attempt < 3 {
			return serializationFailure()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if len(pool.txs) != 3 {
		t.Fatalf("began %d transactions, want 3", len(pool.txs))
	}
	for i, tx := range pool.txs[:2] {
		if !tx.rolledBack || tx.committed {
			t.Errorf("attempt %d: rolledBack=%v committed=%v, want rollback only", i+1, tx.rolledBack, tx.committed)
		}
	}
	if !pool.txs[2].committed {
		t.Error("final attempt was never committed")
	}

	// Hooks registered by failed attempts must never fire.
	if len(hookRuns) != 1 || hookRuns[0] != 3 {
		t.Errorf("hooks ran for attempts %v, want only the committed attempt", hookRuns)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	pool := &fakePool{}
	u := &UoW{db: pool, attempts: 3}

	boom := errors.New("boom")
	hookRan := false
	err := u.Do(context.Background(), func(ctx context.Context, tx pgx.Tx, after func(AfterCommit)) error {
		after(func(ctx context.Context) { hookRan = true })
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do = %v, want the caller's error", err)
	}

	if len(pool.txs) != 1 {
		t.Errorf("began %d transactions, want 1", len(pool.txs))
	}
	if hookRan {
		t.Error("hook ran despite the transaction failing")
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	pool := &fakePool{}
	u := &UoW{db: pool, attempts: 3}

	hookRan := false
	err := u.Do(context.Background(), func(ctx context.Context, tx pgx.Tx, after func(AfterCommit)) error {
		after(func(ctx context.Context) { hookRan = true })
		return serializationFailure()
	})
	if err == nil {
		t.Fatal("Do succeeded, want retries exhausted")
	}

	var pge *pgconn.PgError
	if !errors.As(err, &pge) || pge.Code != "40001" {
		t.Errorf("Do = %v, want the serialization failure preserved", err)
	}
	if len(pool.txs) != 3 {
		t.Errorf("began %d transactions, want 3", len(pool.txs))
	}
	if hookRan {
		t.Error("hook ran despite every attempt failing")
	}
	for i, tx := range pool.txs {
		if tx.committed {
			t.Errorf("attempt %d was committed", i+1)
		}
	}
}

func TestDoRetriesOnCommitSerializationFailure(t *testing.T) {
	pool := &fakePool{commitErrs: []error{serializationFailure()}}
	u := &UoW{db: pool, attempts: 3}

	var hookRuns []int
	attempt := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx pgx.Tx, after func(AfterCommit)) error {
		attempt++
		n := attempt
		after(func(ctx context.Context) { hookRuns = append(hookRuns, n) })
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if len(pool.txs) != 2 {
		t.Fatalf("began %d transactions, want 2", len(pool.txs))
	}
	if len(hookRuns) != 1 || hookRuns[0] != 2 {
		t.Errorf("hooks ran for attempts %v, want only the committed attempt", hookRuns)
	}
}

func TestDoWithOptsIsolation(t *testing.T) {
	t.Run("defaultsToSerializable", func(t *testing.T) {
		pool := &fakePool{}
		u := &UoW{db: pool, attempts: 3}

		err := u.Do(context.Background(), func(ctx context.Context, tx pgx.Tx, after func(AfterCommit)) error {
			return nil
		})
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
		if got := pool.opts[0].IsoLevel; got != pgx.Serializable {
			t.Errorf("isolation = %v, want serializable", got)
		}
	})

	t.Run("callerOptionsWinThrough", func(t *testing.T) {
		pool := &fakePool{}
		u := &UoW{db: pool, attempts: 3}

		opts := &pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly}
		err := u.DoWithOpts(context.Background(), opts, func(ctx context.Context, tx pgx.Tx, after func(AfterCommit)) error {
			return nil
		})
		if err != nil {
			t.Fatalf("DoWithOpts: %v", err)
		}
		if got := pool.opts[0]; got.IsoLevel != pgx.ReadCommitted || got.AccessMode != pgx.ReadOnly {
			t.Errorf("options = %+v, want read committed read only", got)
		}
	})
}
