package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tm-quang/bofinance-sub000/internal/bot"
	"github.com/tm-quang/bofinance-sub000/internal/service"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and its schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := buildStack()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.cfg.RequireToken(); err != nil {
			return err
		}

		telegramBot, err := bot.New(st.cfg.TelegramToken, bot.Deps{
			Sessions:  st.sessions,
			Tasks:     st.tasks,
			Reminders: st.remindSvc,
			Finance:   st.finance,
			Prefs:     st.prefs,
			Agenda:    st.agenda,
			Exporter:  st.exporter,
			Rates:     st.rates,
			Log:       st.log,
		})
		if err != nil {
			return err
		}

		notifier := service.NewNotifier(st.users, st.reminders, st.agenda, telegramBot, st.log)

		scheduler := service.NewSchedulerService(timeutil.Location, st.log)
		if _, err := scheduler.ScheduleDaily(st.cfg.AgendaTime, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			notifier.BroadcastAgenda(jobCtx, timeutil.Now())
		}); err != nil {
			return err
		}
		if _, err := scheduler.ScheduleInterval(st.cfg.PollInterval(), func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			notifier.DeliverDueReminders(jobCtx, timeutil.Now())
		}); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()

		st.log.Info().
			Str("agenda_time", st.cfg.AgendaTime).
			Dur("poll_interval", st.cfg.PollInterval()).
			Msg("bofinance started")

		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		st.log.Info().Msg("shutdown complete")
		return nil
	},
}
