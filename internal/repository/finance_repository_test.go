package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

func TestWalletGetOrCreateDefault(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 300)
	repo := repository.NewWalletRepository(db)
	ctx := context.Background()

	wallet, err := repo.GetOrCreateDefault(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.DefaultWalletName, wallet.Name)
	assert.Equal(t, "VND", wallet.Currency)
	assert.True(t, wallet.IsActive)

	same, err := repo.GetOrCreateDefault(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, same.ID)
}

func TestWalletDeactivate(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 301)
	repo := repository.NewWalletRepository(db)
	ctx := context.Background()

	wallet := &model.Wallet{UserID: user.ID, Name: "Tài khoản ngân hàng", Currency: "VND", IsActive: true}
	require.NoError(t, repo.Create(ctx, wallet))

	require.NoError(t, repo.Deactivate(ctx, user.ID, wallet.ID))

	active, err := repo.ListByUser(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := repo.ListByUser(ctx, user.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	err = repo.Deactivate(ctx, user.ID, wallet.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCategoryGetOrCreate(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 302)
	repo := repository.NewCategoryRepository(db)
	ctx := context.Background()

	eating, err := repo.GetOrCreate(ctx, user.ID, "Ăn uống", model.EntryExpense)
	require.NoError(t, err)
	require.NotNil(t, eating)

	again, err := repo.GetOrCreate(ctx, user.ID, "Ăn uống", model.EntryExpense)
	require.NoError(t, err)
	assert.Equal(t, eating.ID, again.ID)

	// Same name under the other flow direction is a separate category.
	salary, err := repo.GetOrCreate(ctx, user.ID, "Ăn uống", model.EntryIncome)
	require.NoError(t, err)
	assert.NotEqual(t, eating.ID, salary.ID)

	none, err := repo.GetOrCreate(ctx, user.ID, "", model.EntryExpense)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCategoryDeleteDetachesReferences(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 303)
	ctx := context.Background()

	wallets := repository.NewWalletRepository(db)
	categories := repository.NewCategoryRepository(db)
	txns := repository.NewTransactionRepository(db)
	reminders := repository.NewReminderRepository(db)

	wallet, err := wallets.GetOrCreateDefault(ctx, user.ID)
	require.NoError(t, err)
	category, err := categories.GetOrCreate(ctx, user.ID, "Hóa đơn", model.EntryExpense)
	require.NoError(t, err)

	txn := &model.Transaction{
		UserID:     user.ID,
		WalletID:   wallet.ID,
		CategoryID: &category.ID,
		Type:       model.EntryExpense,
		Amount:     120000,
		OccurredAt: timeutil.Now(),
	}
	require.NoError(t, txns.Create(ctx, txn))

	reminder := &model.Reminder{
		UserID:       user.ID,
		Title:        "đóng tiền điện",
		Type:         model.EntryExpense,
		CategoryID:   &category.ID,
		ReminderDate: timeutil.StartOfDay(timeutil.Now()),
		Status:       model.ReminderPending,
		IsActive:     true,
	}
	require.NoError(t, reminders.Create(ctx, reminder))

	require.NoError(t, categories.Delete(ctx, user.ID, category.ID))

	keptTxn, err := txns.FindByID(ctx, user.ID, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, keptTxn.CategoryID)

	keptReminder, err := reminders.FindByID(ctx, user.ID, reminder.ID)
	require.NoError(t, err)
	assert.Nil(t, keptReminder.CategoryID)

	err = categories.Delete(ctx, user.ID, category.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestTransactionBalanceFlow(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 304)
	ctx := context.Background()

	wallets := repository.NewWalletRepository(db)
	txns := repository.NewTransactionRepository(db)

	wallet, err := wallets.GetOrCreateDefault(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, wallet.Balance)

	salary := &model.Transaction{UserID: user.ID, WalletID: wallet.ID, Type: model.EntryIncome, Amount: 50000, OccurredAt: timeutil.Now()}
	require.NoError(t, txns.Create(ctx, salary))

	coffee := &model.Transaction{UserID: user.ID, WalletID: wallet.ID, Type: model.EntryExpense, Amount: 20000, OccurredAt: timeutil.Now()}
	require.NoError(t, txns.Create(ctx, coffee))

	balance := func() int64 {
		w, err := wallets.FindByID(ctx, user.ID, wallet.ID)
		require.NoError(t, err)
		return w.Balance
	}
	assert.Equal(t, int64(30000), balance())

	coffee.Amount = 10000
	require.NoError(t, txns.Update(ctx, coffee))
	assert.Equal(t, int64(40000), balance())

	require.NoError(t, txns.Delete(ctx, user.ID, salary.ID))
	assert.Equal(t, int64(-10000), balance())
}

func TestTransactionRejectsForeignWallet(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	owner := seedUser(t, db, 305)
	intruder := seedUser(t, db, 306)
	ctx := context.Background()

	wallet, err := repository.NewWalletRepository(db).GetOrCreateDefault(ctx, owner.ID)
	require.NoError(t, err)

	txns := repository.NewTransactionRepository(db)
	err = txns.Create(ctx, &model.Transaction{
		UserID:     intruder.ID,
		WalletID:   wallet.ID,
		Type:       model.EntryExpense,
		Amount:     5000,
		OccurredAt: timeutil.Now(),
	})
	assert.True(t, apperr.IsNotFound(err))
}

func TestTransactionTotals(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 307)
	ctx := context.Background()

	wallets := repository.NewWalletRepository(db)
	categories := repository.NewCategoryRepository(db)
	txns := repository.NewTransactionRepository(db)

	wallet, err := wallets.GetOrCreateDefault(ctx, user.ID)
	require.NoError(t, err)
	food, err := categories.GetOrCreate(ctx, user.ID, "Ăn uống", model.EntryExpense)
	require.NoError(t, err)

	occurred := timeutil.Date(2025, time.July, 10, 12, 0, 0, 0)
	rows := []*model.Transaction{
		{UserID: user.ID, WalletID: wallet.ID, Type: model.EntryIncome, Amount: 1000000, OccurredAt: occurred},
		{UserID: user.ID, WalletID: wallet.ID, CategoryID: &food.ID, Type: model.EntryExpense, Amount: 70000, OccurredAt: occurred},
		{UserID: user.ID, WalletID: wallet.ID, CategoryID: &food.ID, Type: model.EntryExpense, Amount: 30000, OccurredAt: occurred.AddDate(0, 0, 5)},
		// Outside the month, must not count.
		{UserID: user.ID, WalletID: wallet.ID, Type: model.EntryExpense, Amount: 999999, OccurredAt: occurred.AddDate(0, 1, 0)},
	}
	for _, txn := range rows {
		require.NoError(t, txns.Create(ctx, txn))
	}

	from, to := timeutil.MonthRange(occurred)
	byType, err := txns.TotalsByType(ctx, user.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), byType[model.EntryIncome])
	assert.Equal(t, int64(100000), byType[model.EntryExpense])

	byCategory, err := txns.TotalsByCategory(ctx, user.ID, from, to)
	require.NoError(t, err)
	require.Len(t, byCategory, 2)

	var foodTotal int64
	for _, row := range byCategory {
		if row.CategoryID != nil && *row.CategoryID == food.ID {
			foodTotal = row.Total
		}
	}
	assert.Equal(t, int64(100000), foodTotal)
}

func TestTransactionListFilters(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 308)
	ctx := context.Background()

	wallets := repository.NewWalletRepository(db)
	txns := repository.NewTransactionRepository(db)

	wallet, err := wallets.GetOrCreateDefault(ctx, user.ID)
	require.NoError(t, err)

	base := timeutil.Date(2025, time.June, 1, 9, 0, 0, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, txns.Create(ctx, &model.Transaction{
			UserID:     user.ID,
			WalletID:   wallet.ID,
			Type:       model.EntryExpense,
			Amount:     int64(1000 * (i + 1)),
			OccurredAt: base.AddDate(0, 0, i),
		}))
	}

	limited, err := txns.ListByUser(ctx, user.ID, repository.TransactionFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	// Newest first.
	assert.Equal(t, int64(5000), limited[0].Amount)

	from := base.AddDate(0, 0, 3)
	ranged, err := txns.ListByUser(ctx, user.ID, repository.TransactionFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	byType, err := txns.ListByUser(ctx, user.ID, repository.TransactionFilter{Type: model.EntryIncome})
	require.NoError(t, err)
	assert.Empty(t, byType)
}

func TestPreferenceSetGet(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 309)
	repo := repository.NewPreferenceRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, user.ID, model.PrefDefaultCurrency)
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, repo.Set(ctx, user.ID, model.PrefDefaultCurrency, "VND"))
	value, err := repo.Get(ctx, user.ID, model.PrefDefaultCurrency)
	require.NoError(t, err)
	assert.Equal(t, "VND", value)

	require.NoError(t, repo.Set(ctx, user.ID, model.PrefDefaultCurrency, "USD"))
	value, err = repo.Get(ctx, user.ID, model.PrefDefaultCurrency)
	require.NoError(t, err)
	assert.Equal(t, "USD", value)

	require.NoError(t, repo.Set(ctx, user.ID, model.PrefAgendaTime, "06:00"))
	all, err := repo.All(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "06:00", all[model.PrefAgendaTime])
}
