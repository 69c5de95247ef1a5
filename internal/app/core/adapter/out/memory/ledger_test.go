package memory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-finance/pkg/wal"
)

var ts = time.Date(2023, time.June, 15, 12, 0, 0, 0, time.UTC).Unix()

type factory func(t *testing.T, w *wal.WAL) usecase.Ledger

var factories = map[string]factory{
	"mutex": func(t *testing.T, w *wal.WAL) usecase.Ledger {
		t.Helper()
		l, err := NewMutexLedger(nil, w)
		if err != nil {
			t.Fatalf("NewMutexLedger err=%v", err)
		}
		return l
	},
	"lmax": func(t *testing.T, w *wal.WAL) usecase.Ledger {
		t.Helper()
		l, err := NewLMAXLedger(nil, w)
		if err != nil {
			t.Fatalf("NewLMAXLedger err=%v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		l.Start(ctx)
		t.Cleanup(func() {
			cancel()
			<-l.Done()
		})
		return l
	},
}

func openWAL(t *testing.T, path string) *wal.WAL {
	t.Helper()
	w, err := wal.NewWAL(path, wal.WithFsync(false))
	if err != nil {
		t.Fatalf("NewWAL err=%v", err)
	}
	return w
}

func cmd(op domain.Operation, owner string, amount int64) *domain.Command {
	return &domain.Command{
		CommandID: uuid.New(),
		Op:        op,
		Owner:     owner,
		Amount:    amount,
		CreatedAt: ts,
	}
}

func mustExecute(t *testing.T, l usecase.Ledger, c *domain.Command) *domain.Result {
	t.Helper()
	res, err := l.Execute(context.Background(), c)
	if err != nil {
		t.Fatalf("Execute(%s) err=%v", c.Op, err)
	}
	return res
}

func balanceOf(t *testing.T, l usecase.Ledger, owner string) int64 {
	t.Helper()
	acct, err := l.Snapshot(context.Background(), owner)
	if err != nil {
		t.Fatalf("Snapshot err=%v", err)
	}
	return acct.Balance
}

func eachLedger(t *testing.T, fn func(t *testing.T, newLedger factory)) {
	for name, f := range factories {
		t.Run(name, func(t *testing.T) {
			fn(t, f)
		})
	}
}

func TestExecuteAndSnapshot(t *testing.T) {
	eachLedger(t, func(t *testing.T, newLedger factory) {
		l := newLedger(t, nil)

		// 不存在的帳戶回傳空快照
		acct, err := l.Snapshot(context.Background(), "nobody")
		if err != nil || acct.Balance != 0 || len(acct.Transactions) != 0 {
			t.Fatalf("unexpected snapshot %+v err=%v", acct, err)
		}

		res := mustExecute(t, l, cmd(domain.OpDeposit, "alice", 100))
		if res.Balance != 100 || res.Sequence != 1 || len(res.Events) != 1 {
			t.Fatalf("unexpected result %+v", res)
		}
		mustExecute(t, l, cmd(domain.OpWithdraw, "alice", 30))

		acct, _ = l.Snapshot(context.Background(), "alice")
		if acct.Balance != 70 || len(acct.Transactions) != 2 || acct.Sequence != 2 {
			t.Fatalf("unexpected account %+v", acct)
		}

		// 快照與內部狀態獨立
		acct.Transactions[0].Amount = 1
		again, _ := l.Snapshot(context.Background(), "alice")
		if again.Transactions[0].Amount != 100 {
			t.Fatalf("snapshot shares memory with ledger")
		}

		// 失敗不改變序號
		_, err = l.Execute(context.Background(), cmd(domain.OpWithdraw, "alice", 1000))
		if !errors.Is(err, domain.ErrInsufficientBalance) {
			t.Fatalf("err=%v want ErrInsufficientBalance", err)
		}
		if res := mustExecute(t, l, cmd(domain.OpDeposit, "alice", 1)); res.Sequence != 3 {
			t.Fatalf("sequence=%d want=3", res.Sequence)
		}

		// 帳戶彼此獨立
		if b := balanceOf(t, l, "bob"); b != 0 {
			t.Fatalf("bob balance=%d", b)
		}
	})
}

func TestDuplicateCommand(t *testing.T) {
	eachLedger(t, func(t *testing.T, newLedger factory) {
		l := newLedger(t, nil)
		c := cmd(domain.OpDeposit, "alice", 50)
		first := mustExecute(t, l, c)

		resend := *c
		resend.Sequence = 0
		dup := mustExecute(t, l, &resend)
		if !dup.Duplicate || len(dup.Events) != 0 || dup.Balance != first.Balance || dup.Sequence != first.Sequence {
			t.Fatalf("unexpected duplicate result %+v", dup)
		}
		if b := balanceOf(t, l, "alice"); b != 50 {
			t.Fatalf("balance=%d want=50", b)
		}
	})
}

func TestRecoverFromWAL(t *testing.T) {
	eachLedger(t, func(t *testing.T, newLedger factory) {
		path := filepath.Join(t.TempDir(), "wal.log")
		w := openWAL(t, path)
		l := newLedger(t, w)

		deposit := cmd(domain.OpDeposit, "alice", 1000)
		mustExecute(t, l, deposit)
		mustExecute(t, l, &domain.Command{CommandID: uuid.New(), Op: domain.OpTakeLoan, Owner: "alice", Amount: 500, InterestRate: 10, Duration: 30, CreatedAt: ts})
		mustExecute(t, l, &domain.Command{CommandID: uuid.New(), Op: domain.OpSetBudget, Owner: "alice", Label: "Food", Amount: 10, Month: 6, Year: 2023, CreatedAt: ts})
		mustExecute(t, l, &domain.Command{CommandID: uuid.New(), Op: domain.OpAddExpense, Owner: "alice", Label: "Food", Description: "Lunch", Amount: 20, CreatedAt: ts})
		mustExecute(t, l, cmd(domain.OpDeposit, "bob", 7))
		// 失敗的指令不寫入 WAL
		if _, err := l.Execute(context.Background(), cmd(domain.OpWithdraw, "bob", 8)); err == nil {
			t.Fatalf("expected failure")
		}

		want, _ := l.Snapshot(context.Background(), "alice")
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}

		w2 := openWAL(t, path)
		defer w2.Close()
		recovered := newLedger(t, w2)
		got, _ := recovered.Snapshot(context.Background(), "alice")
		if got.Balance != want.Balance || got.Sequence != want.Sequence ||
			len(got.Transactions) != len(want.Transactions) ||
			len(got.Loans) != 1 || len(got.Budgets) != 1 || len(got.Expenses) != 1 {
			t.Fatalf("recovered %+v want %+v", got, want)
		}
		for i := range want.Transactions {
			if got.Transactions[i] != want.Transactions[i] {
				t.Fatalf("transaction %d differs", i)
			}
		}
		if b := balanceOf(t, recovered, "bob"); b != 7 {
			t.Fatalf("bob balance=%d want=7", b)
		}

		// 恢復後仍保有冪等紀錄
		dup := mustExecute(t, recovered, deposit)
		if !dup.Duplicate {
			t.Fatalf("command from WAL should be a duplicate")
		}
		if res := mustExecute(t, recovered, cmd(domain.OpDeposit, "alice", 1)); res.Sequence != want.Sequence+1 {
			t.Fatalf("sequence=%d want=%d", res.Sequence, want.Sequence+1)
		}
	})
}

func TestRecoverSkipsSeededSequences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w := openWAL(t, path)
	l, err := NewMutexLedger(nil, w)
	if err != nil {
		t.Fatal(err)
	}
	mustExecute(t, l, cmd(domain.OpDeposit, "alice", 10))
	mustExecute(t, l, cmd(domain.OpDeposit, "alice", 20))
	snap, _ := l.Snapshot(context.Background(), "alice")
	mustExecute(t, l, cmd(domain.OpDeposit, "alice", 40))
	w.Close()

	// 以序號 2 的快照為起點，只重放第 3 筆
	w2 := openWAL(t, path)
	defer w2.Close()
	l2, err := NewMutexLedger(map[string]*domain.Account{"alice": snap}, w2)
	if err != nil {
		t.Fatal(err)
	}
	if b := balanceOf(t, l2, "alice"); b != 70 {
		t.Fatalf("balance=%d want=70", b)
	}
}

func TestConcurrentDeposits(t *testing.T) {
	eachLedger(t, func(t *testing.T, newLedger factory) {
		l := newLedger(t, nil)
		const (
			owners     = 4
			goroutines = 50
			perG       = 20
		)
		var wg sync.WaitGroup
		for o := 0; o < owners; o++ {
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func(owner string) {
					defer wg.Done()
					for i := 0; i < perG; i++ {
						if _, err := l.Execute(context.Background(), cmd(domain.OpDeposit, owner, 1)); err != nil {
							t.Errorf("deposit err=%v", err)
							return
						}
					}
				}(fmt.Sprintf("owner-%d", o))
			}
		}
		wg.Wait()

		for o := 0; o < owners; o++ {
			acct, _ := l.Snapshot(context.Background(), fmt.Sprintf("owner-%d", o))
			if acct.Balance != goroutines*perG || acct.Sequence != goroutines*perG {
				t.Fatalf("owner-%d balance=%d seq=%d", o, acct.Balance, acct.Sequence)
			}
		}
	})
}

// TestConcurrentWithdrawNeverNegative 併發扣款時餘額不會變成負數
func TestConcurrentWithdrawNeverNegative(t *testing.T) {
	eachLedger(t, func(t *testing.T, newLedger factory) {
		l := newLedger(t, nil)
		mustExecute(t, l, cmd(domain.OpDeposit, "alice", 100))

		var wg sync.WaitGroup
		var mu sync.Mutex
		ok := 0
		for i := 0; i < 300; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.Execute(context.Background(), cmd(domain.OpWithdraw, "alice", 1)); err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if ok != 100 {
			t.Fatalf("successful withdrawals=%d want=100", ok)
		}
		if b := balanceOf(t, l, "alice"); b != 0 {
			t.Fatalf("balance=%d want=0", b)
		}
	})
}

func TestLMAXClosed(t *testing.T) {
	l, err := NewLMAXLedger(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	mustExecute(t, l, cmd(domain.OpDeposit, "alice", 1))
	cancel()
	<-l.Done()

	if _, err := l.Execute(context.Background(), cmd(domain.OpDeposit, "alice", 1)); !errors.Is(err, domain.ErrLedgerClosed) {
		t.Fatalf("err=%v want ErrLedgerClosed", err)
	}
	if _, err := l.Snapshot(context.Background(), "alice"); !errors.Is(err, domain.ErrLedgerClosed) {
		t.Fatalf("err=%v want ErrLedgerClosed", err)
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	l, _ := NewMutexLedger(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Execute(ctx, cmd(domain.OpDeposit, "alice", 1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if b := balanceOf(t, l, "alice"); b != 0 {
		t.Fatalf("balance=%d want=0", b)
	}
}

func TestAccountsSnapshot(t *testing.T) {
	eachLedger(t, func(t *testing.T, newLedger factory) {
		l := newLedger(t, nil)
		mustExecute(t, l, cmd(domain.OpDeposit, "alice", 5))
		mustExecute(t, l, cmd(domain.OpDeposit, "bob", 7))

		lister, ok := l.(interface {
			Accounts(context.Context) (map[string]*domain.Account, error)
		})
		if !ok {
			t.Fatalf("%T does not list accounts", l)
		}
		all, err := lister.Accounts(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 || all["alice"].Balance != 5 || all["bob"].Balance != 7 {
			t.Fatalf("unexpected accounts %+v", all)
		}
		all["alice"].Balance = 0
		if b := balanceOf(t, l, "alice"); b != 5 {
			t.Fatalf("accounts snapshot shares memory with ledger")
		}
	})
}
