package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tm-quang/bofinance-sub000/internal/format"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/session"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

// Sender delivers one rendered message to a Telegram chat. The bot layer
// implements it; tests substitute their own.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Notifier runs the scheduled pushes: the morning agenda and due
// reminder alerts. It acts for every user in turn, without a Telegram
// update to hang a session on.
type Notifier struct {
	users     *repository.UserRepository
	reminders *repository.ReminderRepository
	agenda    *AgendaService
	sender    Sender
	log       zerolog.Logger
}

func NewNotifier(
	users *repository.UserRepository,
	reminders *repository.ReminderRepository,
	agenda *AgendaService,
	sender Sender,
	log zerolog.Logger,
) *Notifier {
	return &Notifier{users: users, reminders: reminders, agenda: agenda, sender: sender, log: log}
}

// BroadcastAgenda sends the daily digest to every known user. One failed
// delivery is logged and skipped; the rest still go out.
func (n *Notifier) BroadcastAgenda(ctx context.Context, now time.Time) {
	users, err := n.users.ListAll(ctx)
	if err != nil {
		n.log.Error().Err(err).Msg("agenda broadcast: list users")
		return
	}

	for i := range users {
		user := users[i]
		userCtx := session.WithUser(ctx, &user)
		text, err := n.agenda.Daily(userCtx, now)
		if err != nil {
			n.log.Error().Err(err).Uint("user_id", user.ID).Msg("agenda broadcast: build digest")
			continue
		}
		if err := n.sender.SendMessage(user.TelegramID, text); err != nil {
			n.log.Error().Err(err).Uint("user_id", user.ID).Msg("agenda broadcast: send")
		}
	}
}

// DeliverDueReminders pushes every reminder whose occurrence time has
// passed today and which has not been notified yet this civil day.
func (n *Notifier) DeliverDueReminders(ctx context.Context, now time.Time) {
	candidates, err := n.reminders.DueCandidates(ctx, now)
	if err != nil {
		n.log.Error().Err(err).Msg("reminder delivery: list candidates")
		return
	}
	if len(candidates) == 0 {
		return
	}

	users, err := n.users.ListAll(ctx)
	if err != nil {
		n.log.Error().Err(err).Msg("reminder delivery: list users")
		return
	}
	chats := make(map[uint]int64, len(users))
	for _, u := range users {
		chats[u.ID] = u.TelegramID
	}

	for _, reminder := range candidates {
		if !reminder.OccursOn(now) {
			continue
		}
		if reminder.DueAt(now).After(now) {
			continue
		}
		if reminder.LastNotifiedAt != nil && timeutil.SameDay(*reminder.LastNotifiedAt, now) {
			continue
		}
		chatID, ok := chats[reminder.UserID]
		if !ok {
			continue
		}

		if err := n.sender.SendMessage(chatID, renderReminderAlert(reminder)); err != nil {
			n.log.Error().Err(err).Str("reminder_id", reminder.ID).Msg("reminder delivery: send")
			continue
		}
		if err := n.reminders.MarkNotified(ctx, reminder.ID, now); err != nil {
			n.log.Error().Err(err).Str("reminder_id", reminder.ID).Msg("reminder delivery: mark notified")
		}
	}
}

func renderReminderAlert(reminder model.Reminder) string {
	var sb strings.Builder
	sb.WriteString("🔔 <b>Nhắc nhở</b>\n")
	sb.WriteString(html.EscapeString(strings.TrimSpace(reminder.Title)))
	if reminder.ReminderTime != "" {
		sb.WriteString(fmt.Sprintf("\n⏰ %s", reminder.ReminderTime))
	}
	if reminder.Amount != nil {
		sb.WriteString(fmt.Sprintf("\n💸 %s: %s", string(reminder.Type), format.Money(*reminder.Amount, "VND")))
	}
	if reminder.Notes != "" {
		sb.WriteString(fmt.Sprintf("\n📝 %s", html.EscapeString(reminder.Notes)))
	}
	return sb.String()
}
