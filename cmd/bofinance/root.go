package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tm-quang/bofinance-sub000/internal/cache"
	"github.com/tm-quang/bofinance-sub000/internal/config"
	"github.com/tm-quang/bofinance-sub000/internal/export"
	"github.com/tm-quang/bofinance-sub000/internal/rates"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/service"
	"github.com/tm-quang/bofinance-sub000/internal/session"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "bofinance",
	Short: "Personal finance and planning assistant on Telegram",
	Long: `bofinance tracks money, tasks and reminders for each Telegram user.

The serve command runs the bot with its daily agenda and reminder
delivery; export dumps a user's data to CSV without touching Telegram.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

// stack bundles the services every command builds on.
type stack struct {
	cfg       config.Config
	log       zerolog.Logger
	db        *gorm.DB
	store     *cache.Store
	users     *repository.UserRepository
	reminders *repository.ReminderRepository
	sessions  *session.Manager
	tasks     *service.TaskService
	remindSvc *service.ReminderService
	finance   *service.FinanceService
	prefs     *service.PreferenceService
	agenda    *service.AgendaService
	exporter  *export.Exporter
	rates     *rates.Client
}

func buildStack() (*stack, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg.LogLevel)

	db, err := repository.NewDB(cfg.DatabasePath, log)
	if err != nil {
		return nil, err
	}

	store := cache.New()
	ttl := cfg.CacheTTL()

	users := repository.NewUserRepository(db)
	reminders := repository.NewReminderRepository(db)
	wallets := repository.NewWalletRepository(db)
	categories := repository.NewCategoryRepository(db)
	txns := repository.NewTransactionRepository(db)
	prefs := repository.NewPreferenceRepository(db)

	taskSvc := service.NewTaskService(repository.NewTaskRepository(db), store, ttl)
	reminderSvc := service.NewReminderService(reminders, categories, wallets, store, ttl)
	financeSvc := service.NewFinanceService(wallets, categories, txns, store, ttl)
	prefSvc := service.NewPreferenceService(prefs, store, ttl)
	agendaSvc := service.NewAgendaService(taskSvc, reminderSvc, financeSvc)

	return &stack{
		cfg:       cfg,
		log:       log,
		db:        db,
		store:     store,
		users:     users,
		reminders: reminders,
		sessions:  session.NewManager(users, store, ttl),
		tasks:     taskSvc,
		remindSvc: reminderSvc,
		finance:   financeSvc,
		prefs:     prefSvc,
		agenda:    agendaSvc,
		exporter:  export.NewExporter(taskSvc, reminderSvc, financeSvc),
		rates:     rates.NewClient(cfg.Rates, store),
	}, nil
}

func (s *stack) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}
