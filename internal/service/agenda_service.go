package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tm-quang/bofinance-sub000/internal/format"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/session"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

// lookaheadDays bounds the digest's upcoming-deadline section.
const lookaheadDays = 3

// AgendaService builds the daily digest pushed to each user and shown by
// the today command.
type AgendaService struct {
	tasks     *TaskService
	reminders *ReminderService
	finance   *FinanceService
}

func NewAgendaService(tasks *TaskService, reminders *ReminderService, finance *FinanceService) *AgendaService {
	return &AgendaService{tasks: tasks, reminders: reminders, finance: finance}
}

// Daily renders the digest for now's civil day as Telegram HTML.
func (s *AgendaService) Daily(ctx context.Context, now time.Time) (string, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return "", err
	}

	today := timeutil.EndOfDay(now)
	dueSoon, err := s.tasks.List(ctx, repository.TaskFilter{OpenOnly: true, DueTo: &today})
	if err != nil {
		return "", err
	}

	tomorrow := timeutil.StartOfDay(now).AddDate(0, 0, 1)
	horizon := timeutil.EndOfDay(now.AddDate(0, 0, lookaheadDays))
	upcoming, err := s.tasks.ApproachingDeadline(ctx, tomorrow, horizon.Sub(tomorrow))
	if err != nil {
		return "", err
	}

	counts, err := s.tasks.Counts(ctx)
	if err != nil {
		return "", err
	}
	later := counts[model.TaskPending] + counts[model.TaskInProgress] - int64(len(dueSoon)) - int64(len(upcoming))

	reminders, err := s.reminders.ForDate(ctx, now)
	if err != nil {
		return "", err
	}
	wallets, err := s.finance.Wallets(ctx)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Chào %s!</b>\n", html.EscapeString(user.DisplayName())))
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", format.DayHeader(now)))

	builder.WriteString("🔥 <b>Việc cần làm hôm nay</b>\n")
	if len(dueSoon) == 0 {
		builder.WriteString("— không có việc đến hạn\n")
	} else {
		for _, task := range dueSoon {
			builder.WriteString(formatAgendaTask(task, now))
		}
	}

	if len(upcoming) > 0 {
		builder.WriteString("\n⏳ <b>Sắp đến hạn</b>\n")
		for _, task := range upcoming {
			builder.WriteString(formatAgendaTask(task, now))
		}
	}

	if later > 0 {
		builder.WriteString(fmt.Sprintf("\n🗂 Việc đang mở khác: <b>%d</b>\n", later))
	}

	builder.WriteString("\n🔔 <b>Nhắc nhở hôm nay</b>\n")
	if len(reminders) == 0 {
		builder.WriteString("— không có nhắc nhở\n")
	} else {
		for _, reminder := range reminders {
			builder.WriteString(formatAgendaReminder(reminder))
		}
	}

	if len(wallets) > 0 {
		var total int64
		for _, w := range wallets {
			total += w.Balance
		}
		builder.WriteString(fmt.Sprintf("\n👛 <b>Số dư</b>: %s", format.Money(total, "VND")))
		if len(wallets) > 1 {
			for _, w := range wallets {
				builder.WriteString(fmt.Sprintf("\n   • %s: %s", html.EscapeString(w.Name), format.Money(w.Balance, w.Currency)))
			}
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatAgendaTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if task.Deadline != nil {
		switch {
		case task.IsOverdue(now):
			icon = "⚠️"
		case task.Deadline.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))

	if len(task.Subtasks) > 0 {
		done := 0
		for _, st := range task.Subtasks {
			if st.Completed {
				done++
			}
		}
		sb.WriteString(fmt.Sprintf(" <i>(%d/%d)</i>", done, len(task.Subtasks)))
	} else if task.Progress > 0 {
		sb.WriteString(fmt.Sprintf(" <i>(%d%%)</i>", task.Progress))
	}

	if task.Deadline != nil {
		if task.IsOverdue(now) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ hạn %s — <b>quá hạn</b>", format.Date(*task.Deadline)))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ hạn %s", format.Date(*task.Deadline)))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatAgendaReminder(reminder model.Reminder) string {
	var sb strings.Builder

	icon := "🔔"
	if reminder.IsNote() {
		icon = "📝"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(reminder.Title))))

	if reminder.ReminderTime != "" {
		sb.WriteString(fmt.Sprintf(" — %s", reminder.ReminderTime))
	}
	if reminder.Amount != nil {
		sb.WriteString(fmt.Sprintf(" · %s %s", string(reminder.Type), format.Money(*reminder.Amount, "VND")))
	}

	sb.WriteByte('\n')
	return sb.String()
}
