package service

import (
	"context"
	"time"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/cache"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/session"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

const (
	walletResource      = "wallets"
	categoryResource    = "categories"
	transactionResource = "transactions"
	summaryResource     = "summary"
)

// WalletInput carries the editable wallet fields.
type WalletInput struct {
	Name     string
	Currency string
	Icon     string
	Color    string
}

// TransactionInput carries one money movement. An empty WalletID lands
// in the user's default wallet; Category names are created on first use.
type TransactionInput struct {
	WalletID   string
	Category   string
	Type       model.EntryType
	Amount     int64
	Note       string
	OccurredAt time.Time
}

// CategorySummary is one per-category line of a month summary.
type CategorySummary struct {
	Name  string
	Type  model.EntryType
	Total int64
}

// MonthSummary aggregates a civil month of money movement.
type MonthSummary struct {
	From         time.Time
	To           time.Time
	TotalIncome  int64
	TotalExpense int64
	ByCategory   []CategorySummary
}

// Net is income minus expense for the month.
func (m MonthSummary) Net() int64 {
	return m.TotalIncome - m.TotalExpense
}

// FinanceService wraps wallets, categories and transactions.
type FinanceService struct {
	wallets    *repository.WalletRepository
	categories *repository.CategoryRepository
	txns       *repository.TransactionRepository
	store      *cache.Store
	ttl        time.Duration
}

func NewFinanceService(
	wallets *repository.WalletRepository,
	categories *repository.CategoryRepository,
	txns *repository.TransactionRepository,
	store *cache.Store,
	ttl time.Duration,
) *FinanceService {
	return &FinanceService{wallets: wallets, categories: categories, txns: txns, store: store, ttl: ttl}
}

func (s *FinanceService) Wallets(ctx context.Context) ([]model.Wallet, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(walletResource, user.ID, "list")
	return cache.Fetch(s.store, key, s.ttl, func() ([]model.Wallet, error) {
		return s.wallets.ListByUser(ctx, user.ID, false)
	})
}

// AllWallets also lists deactivated wallets, for history views and
// exports that must still name them.
func (s *FinanceService) AllWallets(ctx context.Context) ([]model.Wallet, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(walletResource, user.ID, "list", "all")
	return cache.Fetch(s.store, key, s.ttl, func() ([]model.Wallet, error) {
		return s.wallets.ListByUser(ctx, user.ID, true)
	})
}

// DefaultWallet returns the user's oldest active wallet, creating one on
// first use.
func (s *FinanceService) DefaultWallet(ctx context.Context) (*model.Wallet, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	wallet, err := s.wallets.GetOrCreateDefault(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.store.Invalidate(cache.Prefix(walletResource, user.ID))
	return wallet, nil
}

func (s *FinanceService) CreateWallet(ctx context.Context, input WalletInput) (*model.Wallet, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, apperr.Invalid("wallets.Create", "name is required")
	}
	if input.Currency == "" {
		input.Currency = "VND"
	}

	wallet := model.Wallet{
		UserID:   user.ID,
		Name:     input.Name,
		Currency: input.Currency,
		Icon:     input.Icon,
		Color:    input.Color,
		IsActive: true,
	}
	if err := s.wallets.Create(ctx, &wallet); err != nil {
		return nil, err
	}
	s.store.Invalidate(cache.Prefix(walletResource, user.ID))
	return &wallet, nil
}

func (s *FinanceService) RenameWallet(ctx context.Context, id, name string) error {
	user, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		return apperr.Invalid("wallets.Rename", "name is required")
	}
	if err := s.wallets.Update(ctx, user.ID, id, map[string]interface{}{"name": name}); err != nil {
		return err
	}
	s.store.Invalidate(cache.Prefix(walletResource, user.ID))
	return nil
}

// RemoveWallet hides the wallet from listings. Its transactions remain.
func (s *FinanceService) RemoveWallet(ctx context.Context, id string) error {
	user, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.wallets.Deactivate(ctx, user.ID, id); err != nil {
		return err
	}
	s.store.Invalidate(cache.Prefix(walletResource, user.ID))
	return nil
}

func (s *FinanceService) Categories(ctx context.Context, typ model.EntryType) ([]model.Category, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(categoryResource, user.ID, "list", string(typ))
	return cache.Fetch(s.store, key, s.ttl, func() ([]model.Category, error) {
		return s.categories.ListByUser(ctx, user.ID, typ)
	})
}

// EnsureCategory resolves a category by name and flow direction,
// creating it on first use.
func (s *FinanceService) EnsureCategory(ctx context.Context, name string, typ model.EntryType) (*model.Category, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, apperr.Invalid("categories.Ensure", "unknown type "+string(typ))
	}
	category, err := s.categories.GetOrCreate(ctx, user.ID, name, typ)
	if err != nil {
		return nil, err
	}
	s.store.Invalidate(cache.Prefix(categoryResource, user.ID))
	return category, nil
}

// DeleteCategory drops the category; transactions and reminders that
// pointed at it become uncategorized.
func (s *FinanceService) DeleteCategory(ctx context.Context, id string) error {
	user, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, user.ID, id); err != nil {
		return err
	}
	s.store.Invalidate(cache.Prefix(categoryResource, user.ID))
	s.store.Invalidate(cache.Prefix(transactionResource, user.ID))
	s.store.Invalidate(cache.Prefix(summaryResource, user.ID))
	return nil
}

// Record books a transaction and moves the wallet balance with it.
func (s *FinanceService) Record(ctx context.Context, input TransactionInput) (*model.Transaction, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, apperr.Invalid("transactions.Record", "unknown type "+string(input.Type))
	}
	if input.Amount <= 0 {
		return nil, apperr.Invalid("transactions.Record", "amount must be positive")
	}
	if input.OccurredAt.IsZero() {
		input.OccurredAt = timeutil.Now()
	}

	walletID := input.WalletID
	if walletID == "" {
		wallet, err := s.wallets.GetOrCreateDefault(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		walletID = wallet.ID
	}

	var categoryID *string
	if input.Category != "" {
		category, err := s.categories.GetOrCreate(ctx, user.ID, input.Category, input.Type)
		if err != nil {
			return nil, err
		}
		categoryID = &category.ID
	}

	txn := model.Transaction{
		UserID:     user.ID,
		WalletID:   walletID,
		CategoryID: categoryID,
		Type:       input.Type,
		Amount:     input.Amount,
		Note:       input.Note,
		OccurredAt: input.OccurredAt,
	}
	if err := s.txns.Create(ctx, &txn); err != nil {
		return nil, err
	}
	s.invalidateMoney(user.ID)
	return &txn, nil
}

func (s *FinanceService) Transactions(ctx context.Context, f repository.TransactionFilter) ([]model.Transaction, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(transactionResource, user.ID, "list", f.Fingerprint())
	return cache.Fetch(s.store, key, s.ttl, func() ([]model.Transaction, error) {
		return s.txns.ListByUser(ctx, user.ID, f)
	})
}

// UpdateTransaction rebooks an existing movement with new values.
func (s *FinanceService) UpdateTransaction(ctx context.Context, id string, input TransactionInput) (*model.Transaction, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, apperr.Invalid("transactions.Update", "unknown type "+string(input.Type))
	}
	if input.Amount <= 0 {
		return nil, apperr.Invalid("transactions.Update", "amount must be positive")
	}

	txn, err := s.txns.FindByID(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}

	if input.WalletID != "" {
		txn.WalletID = input.WalletID
	}
	if input.Category != "" {
		category, err := s.categories.GetOrCreate(ctx, user.ID, input.Category, input.Type)
		if err != nil {
			return nil, err
		}
		txn.CategoryID = &category.ID
	}
	txn.Type = input.Type
	txn.Amount = input.Amount
	txn.Note = input.Note
	if !input.OccurredAt.IsZero() {
		txn.OccurredAt = input.OccurredAt
	}

	if err := s.txns.Update(ctx, txn); err != nil {
		return nil, err
	}
	s.invalidateMoney(user.ID)
	return txn, nil
}

// DeleteTransaction removes the movement and restores the wallet balance.
func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	user, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.txns.Delete(ctx, user.ID, id); err != nil {
		return err
	}
	s.invalidateMoney(user.ID)
	return nil
}

// MonthOverview aggregates anchor's month: totals per flow direction and
// per category, named for display.
func (s *FinanceService) MonthOverview(ctx context.Context, anchor time.Time) (*MonthSummary, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	from, to := timeutil.MonthRange(anchor)
	key := cache.Key(summaryResource, user.ID, "month", timeutil.FormatISODate(from))
	return cache.Fetch(s.store, key, s.ttl, func() (*MonthSummary, error) {
		byType, err := s.txns.TotalsByType(ctx, user.ID, from, to)
		if err != nil {
			return nil, err
		}
		byCategory, err := s.txns.TotalsByCategory(ctx, user.ID, from, to)
		if err != nil {
			return nil, err
		}
		categories, err := s.categories.ListByUser(ctx, user.ID, "")
		if err != nil {
			return nil, err
		}
		names := make(map[string]string, len(categories))
		for _, c := range categories {
			names[c.ID] = c.Name
		}

		summary := &MonthSummary{
			From:         from,
			To:           to,
			TotalIncome:  byType[model.EntryIncome],
			TotalExpense: byType[model.EntryExpense],
		}
		for _, row := range byCategory {
			name := "Khác"
			if row.CategoryID != nil {
				if n, ok := names[*row.CategoryID]; ok {
					name = n
				}
			}
			summary.ByCategory = append(summary.ByCategory, CategorySummary{Name: name, Type: row.Type, Total: row.Total})
		}
		return summary, nil
	})
}

func (s *FinanceService) invalidateMoney(userID uint) {
	s.store.Invalidate(cache.Prefix(transactionResource, userID))
	s.store.Invalidate(cache.Prefix(walletResource, userID))
	s.store.Invalidate(cache.Prefix(summaryResource, userID))
	s.store.Invalidate(cache.Prefix(categoryResource, userID))
}
