package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const (
	walletA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	walletC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

// backends builds one instance of every Store implementation so each
// behavioral test runs against all of them.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	lvl, err := NewLevelStore(t.TempDir())
	if err != nil {
		t.Fatalf("open leveldb store: %v", err)
	}
	return map[string]Store{
		"memory":  NewMemStore(),
		"leveldb": lvl,
	}
}

func run(wallet types.Wallet, score, ts int64) types.RunRecord {
	return types.RunRecord{
		Wallet:      wallet,
		Score:       score,
		UnixMs:      ts,
		TxReference: fmt.Sprintf("0xtx%d", ts),
	}
}

func TestAppendAndTotals(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			Convey("Given an empty run ledger", t, func() {
				ctx := context.Background()

				Convey("When runs land for several wallets", func() {
					So(store.AppendRun(ctx, run(walletA, 100, 1)), ShouldBeNil)
					So(store.AppendRun(ctx, run(walletB, 250, 2)), ShouldBeNil)
					So(store.AppendRun(ctx, run(walletA, 50, 3)), ShouldBeNil)
					So(store.AppendRun(ctx, run(walletC, 250, 4)), ShouldBeNil)

					Convey("Then totals are per-wallet sums in first-seen order", func() {
						totals, err := store.Totals(ctx)
						So(err, ShouldBeNil)
						So(totals, ShouldHaveLength, 3)
						So(totals[0].Wallet, ShouldEqual, walletA)
						So(totals[0].Total, ShouldEqual, 150)
						So(totals[1].Wallet, ShouldEqual, walletB)
						So(totals[1].Total, ShouldEqual, 250)
						So(totals[2].Wallet, ShouldEqual, walletC)
						So(totals[2].Total, ShouldEqual, 250)
					})

					Convey("And Count reflects the tracked wallets", func() {
						So(store.Count(ctx), ShouldEqual, 3)
					})
				})
			})
			if err := store.Close(); err != nil {
				t.Fatalf("close store: %v", err)
			}
		})
	}
}

func TestAppendNormalizesAndRejects(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			Convey("Given a run ledger", t, func() {
				ctx := context.Background()

				Convey("Mixed-case wallets collapse to one entry", func() {
					upper := types.Wallet("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
					So(store.AppendRun(ctx, run(upper, 10, 1)), ShouldBeNil)
					So(store.AppendRun(ctx, run(walletA, 5, 2)), ShouldBeNil)

					totals, err := store.Totals(ctx)
					So(err, ShouldBeNil)
					So(totals, ShouldHaveLength, 1)
					So(totals[0].Wallet, ShouldEqual, types.Wallet(walletA))
					So(totals[0].Total, ShouldEqual, 15)
				})

				Convey("Empty wallets and negative scores are rejected", func() {
					So(store.AppendRun(ctx, run("", 10, 1)), ShouldEqual, ErrInvalidRecord)
					So(store.AppendRun(ctx, run(walletA, -1, 1)), ShouldEqual, ErrInvalidRecord)
				})

				Convey("A zero score still lands as a run", func() {
					before, err := store.History(ctx, walletB, 0)
					So(err, ShouldBeNil)
					So(store.AppendRun(ctx, run(walletB, 0, 9)), ShouldBeNil)
					after, err := store.History(ctx, walletB, 0)
					So(err, ShouldBeNil)
					So(len(after), ShouldEqual, len(before)+1)
				})
			})
			if err := store.Close(); err != nil {
				t.Fatalf("close store: %v", err)
			}
		})
	}
}

func TestHistoryNewestFirstAndTrim(t *testing.T) {
	cases := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemStore(WithHistoryLimit(5))
		},
		"leveldb": func(t *testing.T) Store {
			s, err := NewLevelStore(t.TempDir(), WithLevelHistoryLimit(5))
			if err != nil {
				t.Fatalf("open leveldb store: %v", err)
			}
			return s
		},
	}
	for name, open := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Each leaf re-runs the appends, so each leaf gets its own store.
			Convey("Given a store with a retention bound of 5", t, func() {
				store := open(t)
				Reset(func() {
					if err := store.Close(); err != nil {
						t.Errorf("close store: %v", err)
					}
				})

				for i := int64(1); i <= 8; i++ {
					So(store.AppendRun(ctx, run(walletA, i, i)), ShouldBeNil)
				}

				Convey("History is newest-first and trimmed to the bound", func() {
					runs, err := store.History(ctx, walletA, 0)
					So(err, ShouldBeNil)
					So(runs, ShouldHaveLength, 5)
					So(runs[0].Score, ShouldEqual, 8)
					So(runs[4].Score, ShouldEqual, 4)
				})

				Convey("A smaller limit truncates from the newest end", func() {
					runs, err := store.History(ctx, walletA, 2)
					So(err, ShouldBeNil)
					So(runs, ShouldHaveLength, 2)
					So(runs[0].Score, ShouldEqual, 8)
					So(runs[1].Score, ShouldEqual, 7)
				})

				Convey("Trimming never touches the lifetime total", func() {
					totals, err := store.Totals(ctx)
					So(err, ShouldBeNil)
					So(totals[0].Total, ShouldEqual, 36)
				})

				Convey("An unknown wallet has empty history", func() {
					runs, err := store.History(ctx, walletC, 0)
					So(err, ShouldBeNil)
					So(runs, ShouldBeEmpty)
				})
			})
		})
	}
}

func TestConcurrentAppendsKeepSumInvariant(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			const (
				workers   = 16
				perWorker = 25
			)
			wallets := []types.Wallet{walletA, walletB, walletC}

			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					wallet := wallets[w%len(wallets)]
					for i := 0; i < perWorker; i++ {
						if err := store.AppendRun(ctx, run(wallet, 3, int64(w*1000+i))); err != nil {
							t.Errorf("append: %v", err)
						}
					}
				}(w)
			}
			wg.Wait()

			totals, err := store.Totals(ctx)
			if err != nil {
				t.Fatalf("totals: %v", err)
			}
			var sum int64
			for _, wt := range totals {
				sum += wt.Total
			}
			if want := int64(workers * perWorker * 3); sum != want {
				t.Fatalf("lost update: total sum = %d, want %d", sum, want)
			}
		})
	}
}

func TestMemStoreClosed(t *testing.T) {
	Convey("Given a closed in-memory store", t, func() {
		store := NewMemStore()
		So(store.Close(), ShouldBeNil)

		Convey("All operations report the store as closed", func() {
			err := store.AppendRun(context.Background(), run(walletA, 1, 1))
			So(err, ShouldEqual, ErrClosed)
			_, err = store.Totals(context.Background())
			So(err, ShouldEqual, ErrClosed)
			_, err = store.History(context.Background(), walletA, 0)
			So(err, ShouldEqual, ErrClosed)
		})
	})
}

func TestLevelStoreReopenKeepsState(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewLevelStore(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.AppendRun(ctx, run(walletA, 7, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendRun(ctx, run(walletB, 9, 2)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewLevelStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	totals, err := reopened.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if len(totals) != 2 || totals[0].Wallet != walletA || totals[0].Total != 7 {
		t.Fatalf("unexpected totals after reopen: %+v", totals)
	}
	runs, err := reopened.History(ctx, walletA, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(runs) != 1 || runs[0].Score != 7 {
		t.Fatalf("unexpected history after reopen: %+v", runs)
	}
}
