/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/railway/repository"
	"github.com/tomoncle/railway/result"
	"github.com/tomoncle/railway/types"
)

type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID      int64  `bun:"id,pk,autoincrement"`
	Name    string `bun:"name,notnull"`
	Balance int64  `bun:"balance"`
	Status  string `bun:"status"`
}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxIdleConns(1000)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.NewCreateTable().Model((*Account)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRepository(t *testing.T) repository.Repository[Account] {
	t.Helper()
	return repository.NewRepository[Account](openTestDB(t))
}

func seedAccounts(t *testing.T, repo repository.Repository[Account], n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		status := "active"
		if i%2 == 0 {
			status = "inactive"
		}
		res := repo.Add(&Account{Name: fmt.Sprintf("account-%02d", i), Balance: int64(i * 100), Status: status})
		require.True(t, res.IsSuccess())
	}
	saved := repo.Save(context.Background())
	require.True(t, saved.IsSuccess(), "seed save failed: %s", saved.ErrorMessage())
	require.Equal(t, n, saved.MustValue())
}

func TestNewRepositoryNilDBPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { repository.NewRepository[Account](nil) })
}

func TestStagingAndSave(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	require.True(t, repo.Add(&Account{Name: "alice", Balance: 10}).IsSuccess())
	require.True(t, repo.Add(&Account{Name: "bob", Balance: 20}).IsSuccess())
	assert.Equal(t, 2, repo.Pending())

	// Staged changes are not visible before Save
	count := repo.Count(ctx, nil)
	require.True(t, count.IsSuccess())
	assert.Equal(t, 0, count.MustValue())

	saved := repo.Save(ctx)
	require.True(t, saved.IsSuccess(), saved.ErrorMessage())
	assert.Equal(t, 2, saved.MustValue())
	assert.Equal(t, 0, repo.Pending())

	count = repo.Count(ctx, nil)
	require.True(t, count.IsSuccess())
	assert.Equal(t, 2, count.MustValue())
}

func TestSaveWithEmptyChangeSet(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	saved := repo.Save(context.Background())
	require.True(t, saved.IsSuccess())
	assert.Equal(t, 0, saved.MustValue())
}

func TestRollbackDiscardsStagedChanges(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	require.True(t, repo.Add(&Account{Name: "alice"}).IsSuccess())
	require.True(t, repo.Add(&Account{Name: "bob"}).IsSuccess())
	require.Equal(t, 2, repo.Pending())

	require.True(t, repo.Rollback().IsSuccess())
	assert.Equal(t, 0, repo.Pending())

	saved := repo.Save(ctx)
	require.True(t, saved.IsSuccess())
	assert.Equal(t, 0, saved.MustValue())
	assert.Equal(t, 0, repo.Count(ctx, nil).MustValue())
}

func TestUpdateAndRemoveFlow(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 1)

	loaded := repo.First(ctx, nil)
	require.True(t, loaded.IsSuccess())
	account := loaded.MustValue()

	account.Balance = 999
	require.True(t, repo.Update(account).IsSuccess())
	saved := repo.Save(ctx)
	require.True(t, saved.IsSuccess())
	assert.Equal(t, 1, saved.MustValue())

	reloaded := repo.Get(ctx, account.ID)
	require.True(t, reloaded.IsSuccess())
	assert.Equal(t, int64(999), reloaded.MustValue().Balance)

	require.True(t, repo.Remove(account).IsSuccess())
	require.True(t, repo.Save(ctx).IsSuccess())

	missing := repo.Get(ctx, account.ID)
	assert.True(t, missing.IsFailure())
}

func TestGetMissingIsFailure(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	res := repo.Get(context.Background(), int64(9999))
	require.True(t, res.IsFailure())
	assert.Contains(t, res.ErrorMessage(), "no rows found")

	value, ok := res.Value()
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestGetNilIDIsFailure(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	res := repo.Get(context.Background(), nil)
	require.True(t, res.IsFailure())
	assert.Contains(t, res.ErrorMessage(), "id cannot be nil")
}

func TestStagingRejectsNilEntity(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	assert.True(t, repo.Add(nil).IsFailure())
	assert.True(t, repo.Update(nil).IsFailure())
	assert.True(t, repo.Remove(nil).IsFailure())
	assert.True(t, repo.AddAll(&Account{Name: "x"}, nil).IsFailure())
	// A rejected batch stages nothing
	assert.Equal(t, 0, repo.Pending())
}

func TestSaveFailureRestagesChanges(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	require.True(t, repo.Add(&Account{ID: 1, Name: "first"}).IsSuccess())
	require.True(t, repo.Add(&Account{ID: 1, Name: "second"}).IsSuccess())

	saved := repo.Save(ctx)
	require.True(t, saved.IsFailure())
	assert.Contains(t, saved.ErrorMessage(), "duplicate key")

	// Change set restored, nothing half-written
	assert.Equal(t, 2, repo.Pending())
	assert.Equal(t, 0, repo.Count(ctx, nil).MustValue())
}

func TestTransactionCommit(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	outcome := repo.Transaction(ctx, func(ctx context.Context, tx repository.Repository[Account]) result.Result[result.Unit] {
		if res := tx.Add(&Account{Name: "alice"}); res.IsFailure() {
			return result.Fail(res.ErrorMessage())
		}
		if res := tx.Add(&Account{Name: "bob"}); res.IsFailure() {
			return result.Fail(res.ErrorMessage())
		}
		return result.Done()
	})
	require.True(t, outcome.IsSuccess(), outcome.ErrorMessage())

	assert.Equal(t, 2, repo.Count(ctx, nil).MustValue())
}

func TestTransactionFailureRollsBack(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	outcome := repo.Transaction(ctx, func(ctx context.Context, tx repository.Repository[Account]) result.Result[result.Unit] {
		require.True(t, tx.Add(&Account{Name: "alice"}).IsSuccess())
		saved := tx.Save(ctx)
		require.True(t, saved.IsSuccess(), saved.ErrorMessage())

		// Written inside the transaction, visible to it
		require.Equal(t, 1, tx.Count(ctx, nil).MustValue())
		return result.Fail("boom")
	})
	require.True(t, outcome.IsFailure())
	assert.Equal(t, "boom", outcome.ErrorMessage())

	assert.Equal(t, 0, repo.Count(ctx, nil).MustValue())
}

func TestTransactionPanicRollsBack(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	outcome := repo.Transaction(ctx, func(ctx context.Context, tx repository.Repository[Account]) result.Result[result.Unit] {
		require.True(t, tx.Add(&Account{Name: "alice"}).IsSuccess())
		require.True(t, tx.Save(ctx).IsSuccess())
		panic("kaboom")
	})
	require.True(t, outcome.IsFailure())
	assert.Contains(t, outcome.ErrorMessage(), "transaction panicked: kaboom")

	assert.Equal(t, 0, repo.Count(ctx, nil).MustValue())
}

func TestTransactionNilFn(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	outcome := repo.Transaction(context.Background(), nil)
	require.True(t, outcome.IsFailure())
	assert.Contains(t, outcome.ErrorMessage(), "fn cannot be nil")
}

func TestStreamDrainsAllRows(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 25)

	var ids []int64
	for item := range repo.Stream(ctx, 10) {
		require.True(t, item.IsSuccess(), item.ErrorMessage())
		ids = append(ids, item.MustValue().ID)
	}

	require.Len(t, ids, 25)
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
}

func TestStreamAbandonedAfterCancel(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	seedAccounts(t, repo, 50)

	ctx, cancel := context.WithCancel(context.Background())
	stream := repo.Stream(ctx, 10)

	for i := 0; i < 5; i++ {
		item, ok := <-stream
		require.True(t, ok)
		require.True(t, item.IsSuccess())
	}
	cancel()

	// The producer must stop and close the channel
	done := make(chan struct{})
	go func() {
		for range stream {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not terminate after cancellation")
	}
}

func TestStreamInvalidBatchSize(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	var items []result.Result[*Account]
	for item := range repo.Stream(context.Background(), 0) {
		items = append(items, item)
	}
	require.Len(t, items, 1)
	require.True(t, items[0].IsFailure())
	assert.Contains(t, items[0].ErrorMessage(), "batchSize must be >= 1")
}

func TestStreamSurfacesReadErrors(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	repo := repository.NewRepository[Account](db)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "DROP TABLE accounts")
	require.NoError(t, err)

	var items []result.Result[*Account]
	for item := range repo.Stream(ctx, 10) {
		items = append(items, item)
	}
	require.Len(t, items, 1)
	require.True(t, items[0].IsFailure())
	assert.Contains(t, items[0].ErrorMessage(), "table does not exist")
}

func TestPageOverSeededRows(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 10)

	page := repo.Page(ctx, types.NewPageRequestWithOrders(2, 3, []string{"id ASC"}))
	require.True(t, page.IsSuccess(), page.ErrorMessage())
	assert.Equal(t, 10, page.TotalItems())
	assert.Equal(t, 4, page.TotalPages())

	items := page.Items()
	require.Len(t, items, 3)
	assert.Equal(t, int64(4), items[0].ID)
	assert.Equal(t, int64(5), items[1].ID)
	assert.Equal(t, int64(6), items[2].ID)
}

func TestPageBeyondRangeIsEmpty(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 10)

	page := repo.Page(ctx, types.NewDefaultPageRequest(5, 3))
	require.True(t, page.IsSuccess())
	assert.True(t, page.IsEmpty())
	assert.NotNil(t, page.Items())
	assert.Len(t, page.Items(), 0)
}

func TestPageWithFilter(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 10)

	filter := types.NewQueryFilter("status = ?", "active")
	page := repo.Page(ctx, types.NewPageRequestWithFilter(1, 10, filter))
	require.True(t, page.IsSuccess())
	assert.Equal(t, 5, page.TotalItems())
	for _, account := range page.Items() {
		assert.Equal(t, "active", account.Status)
	}
}

func TestPageInvalidRequestIsFailure(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	page := repo.Page(ctx, types.NewDefaultPageRequest(0, 10))
	require.True(t, page.IsFailure())
	assert.Contains(t, page.ErrorMessage(), "page must be >= 1")

	page = repo.Page(ctx, nil)
	require.True(t, page.IsFailure())
	assert.Contains(t, page.ErrorMessage(), "request cannot be nil")
}

func TestChangeNotifications(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	var events []types.ChangeEvent
	repo.OnChange(func(event types.ChangeEvent) {
		events = append(events, event)
	})

	account := &Account{Name: "alice"}
	require.True(t, repo.Add(account).IsSuccess())
	require.True(t, repo.Update(account).IsSuccess())
	require.True(t, repo.Remove(account).IsSuccess())

	// Notifications fire at staging time, before any save
	require.Len(t, events, 3)
	assert.Equal(t, types.ChangeAdded, events[0].Kind)
	assert.Equal(t, types.ChangeModified, events[1].Kind)
	assert.Equal(t, types.ChangeDeleted, events[2].Kind)
	for _, event := range events {
		assert.Equal(t, "accounts", event.Source)
		assert.Same(t, account, event.Entity)
		assert.NotEqual(t, "", event.ID.String())
	}
}

func TestChangeNotificationOrderAcrossBatch(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	var names []string
	repo.OnChange(func(event types.ChangeEvent) {
		names = append(names, event.Entity.(*Account).Name)
	})

	require.True(t, repo.AddAll(
		&Account{Name: "a"},
		&Account{Name: "b"},
		&Account{Name: "c"},
	).IsSuccess())

	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestBulkUpdate(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 10)

	res := repo.BulkUpdate(ctx, types.NewQueryFilter("status = ?", "inactive"), map[string]interface{}{"balance": 0})
	require.True(t, res.IsSuccess(), res.ErrorMessage())
	assert.Equal(t, 5, res.MustValue())

	drained := repo.Find(ctx, types.NewQueryFilter("balance = ?", 0))
	require.True(t, drained.IsSuccess())
	assert.Len(t, drained.MustValue(), 5)
}

func TestBulkUpdateRequiresColumns(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	res := repo.BulkUpdate(context.Background(), nil, nil)
	require.True(t, res.IsFailure())
	assert.Contains(t, res.ErrorMessage(), "no columns given")
}

func TestBulkDelete(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 10)

	res := repo.BulkDelete(ctx, types.NewQueryFilter("status = ?", "inactive"))
	require.True(t, res.IsSuccess())
	assert.Equal(t, 5, res.MustValue())
	assert.Equal(t, 5, repo.Count(ctx, nil).MustValue())

	// Nil filter matches everything
	res = repo.BulkDelete(ctx, nil)
	require.True(t, res.IsSuccess())
	assert.Equal(t, 5, res.MustValue())
	assert.Equal(t, 0, repo.Count(ctx, nil).MustValue())
}

func TestUpsert(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	first := &Account{ID: 1, Name: "alice", Balance: 100}
	res := repo.Upsert(ctx, []string{"name", "balance"}, []string{"id"}, first)
	require.True(t, res.IsSuccess(), res.ErrorMessage())

	// Same key again updates in place instead of duplicating
	res = repo.Upsert(ctx, []string{"name", "balance"}, []string{"id"}, &Account{ID: 1, Name: "alice", Balance: 250})
	require.True(t, res.IsSuccess(), res.ErrorMessage())

	assert.Equal(t, 1, repo.Count(ctx, nil).MustValue())
	reloaded := repo.Get(ctx, int64(1))
	require.True(t, reloaded.IsSuccess())
	assert.Equal(t, int64(250), reloaded.MustValue().Balance)
}

func TestUpsertValidation(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	res := repo.Upsert(ctx, nil, nil, &Account{Name: "x"})
	require.True(t, res.IsFailure())
	assert.Contains(t, res.ErrorMessage(), "fields cannot be empty")

	res = repo.Upsert(ctx, []string{"name"}, nil)
	require.True(t, res.IsFailure())
	assert.Contains(t, res.ErrorMessage(), "no entities given")
}

func TestProjection(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 4)

	names := repository.Projection(ctx, repo, nil, func(a *Account) string { return a.Name })
	require.True(t, names.IsSuccess())
	assert.Equal(t, []string{"account-01", "account-02", "account-03", "account-04"}, names.MustValue())

	balances := repository.Projection(ctx, repo, types.NewQueryFilter("status = ?", "active"), func(a *Account) int64 { return a.Balance })
	require.True(t, balances.IsSuccess())
	assert.Equal(t, []int64{100, 300}, balances.MustValue())

	missing := repository.Projection[Account, string](ctx, repo, nil, nil)
	require.True(t, missing.IsFailure())
	assert.Contains(t, missing.ErrorMessage(), "selector cannot be nil")
}

func TestFirstAndCountAndExists(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 3)

	first := repo.First(ctx, types.NewQueryFilter("status = ?", "inactive"))
	require.True(t, first.IsSuccess())
	assert.Equal(t, "account-02", first.MustValue().Name)

	none := repo.First(ctx, types.NewQueryFilter("status = ?", "frozen"))
	require.True(t, none.IsFailure())
	assert.Contains(t, none.ErrorMessage(), "no rows found")

	count := repo.Count(ctx, types.NewQueryFilter("status = ?", "active"))
	require.True(t, count.IsSuccess())
	assert.Equal(t, 2, count.MustValue())

	exists := repo.Exists(ctx, types.NewQueryFilter("name = ?", "account-03"))
	require.True(t, exists.IsSuccess())
	assert.True(t, exists.MustValue())

	exists = repo.Exists(ctx, types.NewQueryFilter("name = ?", "nobody"))
	require.True(t, exists.IsSuccess())
	assert.False(t, exists.MustValue())
}

func TestComposedFilterQuery(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAccounts(t, repo, 10)

	filter := types.NewQueryFilter("status = ?", "active").
		And(types.NewQueryFilter("balance > ?", 300))
	found := repo.Find(ctx, filter)
	require.True(t, found.IsSuccess())
	for _, account := range found.MustValue() {
		assert.Equal(t, "active", account.Status)
		assert.Greater(t, account.Balance, int64(300))
	}
	assert.Len(t, found.MustValue(), 3)
}

func TestConcurrentStagingIsSerialized(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				repo.Add(&Account{Name: fmt.Sprintf("worker-%d-%d", n, j)})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, repo.Pending())
}
