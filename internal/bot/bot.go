package bot

import (
	"context"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/export"
	"github.com/tm-quang/bofinance-sub000/internal/format"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/rates"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/service"
	"github.com/tm-quang/bofinance-sub000/internal/session"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

const (
	cbTaskDonePrefix    = "task_done:"
	cbSubtaskPrefix     = "subtask:"
	cbReminderDone      = "rem_done:"
	cbReminderSkip      = "rem_skip:"
	cbReminderDelete    = "rem_del:"
	cbTransactionDelete = "txn_del:"
)

const (
	iconDefault  = "🟢"
	iconDue      = "⏳"
	iconOverdue  = "⚠️"
	iconNote     = "📝"
	iconReminder = "🔔"

	menuLabelToday     = "📅 Hôm nay"
	menuLabelTasks     = "📋 Công việc"
	menuLabelReminders = "🔔 Nhắc nhở"
	menuLabelWallets   = "👛 Ví"
	menuLabelSummary   = "📊 Tổng kết"
	menuLabelHelp      = "ℹ️ Trợ giúp"
)

// Bot aggregates the Telegram API with the services behind it.
type Bot struct {
	api       *tgbotapi.BotAPI
	sessions  *session.Manager
	tasks     *service.TaskService
	reminders *service.ReminderService
	finance   *service.FinanceService
	prefs     *service.PreferenceService
	agenda    *service.AgendaService
	exporter  *export.Exporter
	rates     *rates.Client
	log       zerolog.Logger
}

type Deps struct {
	Sessions  *session.Manager
	Tasks     *service.TaskService
	Reminders *service.ReminderService
	Finance   *service.FinanceService
	Prefs     *service.PreferenceService
	Agenda    *service.AgendaService
	Exporter  *export.Exporter
	Rates     *rates.Client
	Log       zerolog.Logger
}

func New(token string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	deps.Log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		api:       api,
		sessions:  deps.Sessions,
		tasks:     deps.Tasks,
		reminders: deps.Reminders,
		finance:   deps.Finance,
		prefs:     deps.Prefs,
		agenda:    deps.Agenda,
		exporter:  deps.Exporter,
		rates:     deps.Rates,
		log:       deps.Log,
	}, nil
}

// SendMessage delivers one HTML message; the notifier pushes through it.
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
		return b.sendText(msg.Chat.ID, "Mình chưa hiểu tin nhắn này. Gõ /help để xem các lệnh nhé.")
	}

	b.log.Info().
		Int64("user", msg.From.ID).
		Str("command", msg.Command()).
		Msg("command received")
	return b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	userCtx, err := b.auth(ctx, msg.From)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Không đăng nhập được, thử lại sau nhé.")
	}

	switch msg.Command() {
	case "start":
		return b.handleStart(userCtx, msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.handleToday(userCtx, msg.Chat.ID)
	case "tasks":
		return b.handleListTasks(userCtx, msg.Chat.ID)
	case "newtask":
		return b.handleNewTask(userCtx, msg)
	case "reminders":
		return b.handleListReminders(userCtx, msg.Chat.ID)
	case "newreminder":
		return b.handleNewReminder(userCtx, msg)
	case "thu":
		return b.handleQuickEntry(userCtx, msg, model.EntryIncome)
	case "chi":
		return b.handleQuickEntry(userCtx, msg, model.EntryExpense)
	case "history":
		return b.handleHistory(userCtx, msg.Chat.ID)
	case "wallets":
		return b.handleWallets(userCtx, msg.Chat.ID)
	case "summary":
		return b.handleSummary(userCtx, msg.Chat.ID)
	case "tygia":
		return b.handleRates(userCtx, msg)
	case "period":
		return b.handlePeriod(userCtx, msg)
	case "export":
		return b.handleExport(userCtx, msg.Chat.ID)
	default:
		return b.sendText(msg.Chat.ID, "Lệnh này chưa có. Xem /help để biết các lệnh được hỗ trợ.")
	}
}

func (b *Bot) auth(ctx context.Context, from *tgbotapi.User) (context.Context, error) {
	userCtx, _, err := b.sessions.Authenticate(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
	return userCtx, err
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "bạn"
	}

	text := fmt.Sprintf(
		"👋 Chào %s!\n<b>Mình là trợ lý tài chính và kế hoạch cá nhân.</b>\n\n"+
			"• /chi 45k Ăn uống — ghi một khoản chi\n"+
			"• /thu 5tr Lương — ghi một khoản thu\n"+
			"• /newtask Nộp báo cáo | 31/12 — thêm việc cần làm\n"+
			"• /newreminder Tiền điện | 05/09 | 350k — đặt nhắc nhở\n"+
			"• /today — xem việc, nhắc nhở và số dư hôm nay\n"+
			"• /help — toàn bộ lệnh",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Các lệnh</b>\n" +
		"• /today — tổng hợp hôm nay\n" +
		"• /tasks — danh sách việc, bấm nút để hoàn thành\n" +
		"• /newtask &lt;tên&gt; | &lt;dd/mm&gt; — thêm việc, hạn chót tùy chọn\n" +
		"• /reminders — nhắc nhở hôm nay và sắp tới\n" +
		"• /newreminder &lt;tên&gt; | &lt;dd/mm hh:mm&gt; | &lt;số tiền&gt; — đặt nhắc; bỏ số tiền thì thành ghi chú\n" +
		"• /thu, /chi &lt;số tiền&gt; &lt;danh mục&gt; | &lt;ghi chú&gt; — ghi thu chi (45k, 2tr đều hiểu)\n" +
		"• /history — các giao dịch gần đây\n" +
		"• /wallets — ví và số dư\n" +
		"• /summary — tổng kết tháng này\n" +
		"• /tygia [USD VND] — tỷ giá ngoại tệ\n" +
		"• /period week|month — khoảng xem công việc\n" +
		"• /export — xuất dữ liệu ra CSV"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleToday(ctx context.Context, chatID int64) error {
	text, err := b.agenda.Daily(ctx, timeutil.Now())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Không tổng hợp được: %s", escape(err.Error())))
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleNewTask(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Cú pháp: /newtask Nộp báo cáo | 31/12")
	}

	title, rest := splitOnce(args)
	input := service.TaskInput{Title: title}
	if rest != "" {
		deadline, err := parseQuickDate(rest, timeutil.Now())
		if err != nil {
			return b.sendText(msg.Chat.ID, "Không hiểu hạn chót. Dùng dạng <code>31/12</code> hoặc <code>31/12/2025</code>.")
		}
		input.Deadline = &deadline
	}

	task, err := b.tasks.Create(ctx, input)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Không lưu được: %s", escape(err.Error())))
	}

	var sb strings.Builder
	sb.WriteString("✅ <b>Đã thêm việc</b>\n")
	sb.WriteString(fmt.Sprintf("• %s\n", escape(normalizeTitle(task.Title))))
	if task.Deadline != nil {
		sb.WriteString(fmt.Sprintf("• Hạn chót: %s\n", format.Date(*task.Deadline)))
	}
	if err := b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String())); err != nil {
		return err
	}
	return b.handleListTasks(ctx, msg.Chat.ID)
}

func (b *Bot) handleListTasks(ctx context.Context, chatID int64) error {
	now := timeutil.Now()

	period, err := b.prefs.Get(ctx, model.PrefTaskPeriod)
	if err != nil {
		period = service.TaskPeriodWeek
	}

	var tasks []model.Task
	var header string
	if period == service.TaskPeriodMonth {
		header = "📋 <b>Công việc tháng này</b>"
		tasks, err = b.tasks.ForMonth(ctx, now)
	} else {
		header = "📋 <b>Công việc tuần này</b>"
		tasks, err = b.tasks.ForWeek(ctx, now)
	}
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Không lấy được danh sách: %s", escape(err.Error())))
	}

	open := tasks[:0:0]
	for _, task := range tasks {
		if task.IsOpen() {
			open = append(open, task)
		}
	}
	if len(open) == 0 {
		return b.sendText(chatID, "Không có việc nào đang mở trong khoảng này. Thêm việc mới bằng /newtask nhé.")
	}

	var builder strings.Builder
	builder.WriteString(header)
	builder.WriteString("\nBấm nút bên dưới để đánh dấu hoàn thành.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, task := range open {
		builder.WriteString(formatTaskLine(i+1, task, now))
		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ %d · %s", i+1, shortTitle(task.Title, 24)),
				cbTaskDonePrefix+task.ID,
			),
		})
		if row := subtaskButtons(i+1, task); len(row) > 0 {
			buttons = append(buttons, row)
		}
	}

	out := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	out.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleNewReminder(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Cú pháp: /newreminder Tiền điện | 05/09 07:30 | 350k\nBỏ phần số tiền nếu chỉ cần ghi chú.")
	}

	parts := strings.Split(args, "|")
	input := service.ReminderInput{Title: strings.TrimSpace(parts[0]), Notify: true}

	if len(parts) > 1 {
		when := strings.TrimSpace(parts[1])
		if when != "" {
			fields := strings.Fields(when)
			day, err := parseQuickDate(fields[0], timeutil.Now())
			if err != nil {
				return b.sendText(msg.Chat.ID, "Không hiểu ngày nhắc. Dùng dạng <code>05/09</code> hoặc <code>05/09/2025</code>.")
			}
			input.Date = day
			if len(fields) > 1 {
				input.TimeOfDay = fields[1]
			}
		}
	}
	if len(parts) > 2 {
		raw := strings.TrimSpace(parts[2])
		if raw != "" {
			amount, err := parseAmount(raw)
			if err != nil {
				return b.sendText(msg.Chat.ID, "Không hiểu số tiền. Ví dụ: <code>350k</code>, <code>2tr</code> hoặc <code>500000</code>.")
			}
			input.Amount = &amount
		}
	}

	reminder, err := b.reminders.Create(ctx, input)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Không lưu được: %s", escape(err.Error())))
	}

	var sb strings.Builder
	if reminder.IsNote() {
		sb.WriteString("📝 <b>Đã thêm ghi chú</b>\n")
	} else {
		sb.WriteString("🔔 <b>Đã đặt nhắc nhở</b>\n")
	}
	sb.WriteString(fmt.Sprintf("• %s\n", escape(normalizeTitle(reminder.Title))))
	sb.WriteString(fmt.Sprintf("• Ngày: %s", format.Date(reminder.ReminderDate)))
	if reminder.ReminderTime != "" {
		sb.WriteString(fmt.Sprintf(" lúc %s", reminder.ReminderTime))
	}
	sb.WriteByte('\n')
	if reminder.Amount != nil {
		sb.WriteString(fmt.Sprintf("• Số tiền: %s\n", format.Money(*reminder.Amount, "VND")))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleListReminders(ctx context.Context, chatID int64) error {
	reminders, err := b.reminders.List(ctx, repository.ReminderFilter{Status: model.ReminderPending})
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Không lấy được nhắc nhở: %s", escape(err.Error())))
	}
	if len(reminders) == 0 {
		return b.sendText(chatID, "Chưa có nhắc nhở nào. Thêm bằng /newreminder nhé.")
	}

	now := timeutil.Now()
	var builder strings.Builder
	builder.WriteString("🔔 <b>Nhắc nhở đang chờ</b>\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, reminder := range reminders {
		builder.WriteString(formatReminderLine(i+1, reminder, now))
		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %d", i+1), cbReminderDone+reminder.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏭ %d", i+1), cbReminderSkip+reminder.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d", i+1), cbReminderDelete+reminder.ID),
		})
	}

	out := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	out.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleQuickEntry(ctx context.Context, msg *tgbotapi.Message, typ model.EntryType) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		if typ == model.EntryIncome {
			return b.sendText(msg.Chat.ID, "Cú pháp: /thu 5tr Lương | thưởng dự án")
		}
		return b.sendText(msg.Chat.ID, "Cú pháp: /chi 45k Ăn uống | cơm trưa")
	}

	body, note := splitOnce(args)
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return b.sendText(msg.Chat.ID, "Thiếu số tiền. Ví dụ: /chi 45k Ăn uống")
	}
	amount, err := parseAmount(fields[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Không hiểu số tiền. Ví dụ: <code>45k</code>, <code>2tr</code> hoặc <code>500000</code>.")
	}
	category := strings.TrimSpace(strings.Join(fields[1:], " "))

	txn, err := b.finance.Record(ctx, service.TransactionInput{
		Type:     typ,
		Amount:   amount,
		Category: category,
		Note:     note,
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Không ghi được: %s", escape(err.Error())))
	}

	wallets, err := b.finance.Wallets(ctx)
	if err != nil {
		return err
	}
	var balance int64
	for _, w := range wallets {
		if w.ID == txn.WalletID {
			balance = w.Balance
		}
	}

	icon := "💸"
	if typ == model.EntryIncome {
		icon = "💰"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>Đã ghi %s %s</b>\n", icon, string(typ), format.Money(txn.Amount, "VND")))
	if category != "" {
		sb.WriteString(fmt.Sprintf("• Danh mục: %s\n", escape(category)))
	}
	if note != "" {
		sb.WriteString(fmt.Sprintf("• Ghi chú: %s\n", escape(note)))
	}
	sb.WriteString(fmt.Sprintf("• Số dư ví: %s", format.Money(balance, "VND")))
	return b.sendText(msg.Chat.ID, sb.String())
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64) error {
	txns, err := b.finance.Transactions(ctx, repository.TransactionFilter{Limit: 10})
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Không lấy được lịch sử: %s", escape(err.Error())))
	}
	if len(txns) == 0 {
		return b.sendText(chatID, "Chưa có giao dịch nào. Ghi khoản đầu tiên bằng /thu hoặc /chi nhé.")
	}

	var builder strings.Builder
	builder.WriteString("🧾 <b>Giao dịch gần đây</b>\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, txn := range txns {
		sign := "-"
		if txn.Type == model.EntryIncome {
			sign = "+"
		}
		builder.WriteString(fmt.Sprintf("%d. %s %s%s", i+1, format.Date(txn.OccurredAt), sign, format.Money(txn.Amount, "VND")))
		if txn.Note != "" {
			builder.WriteString(fmt.Sprintf(" · %s", escape(txn.Note)))
		}
		builder.WriteByte('\n')
		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d", i+1), cbTransactionDelete+txn.ID),
		})
	}

	out := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	out.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleWallets(ctx context.Context, chatID int64) error {
	wallets, err := b.finance.Wallets(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Không lấy được ví: %s", escape(err.Error())))
	}
	if len(wallets) == 0 {
		return b.sendText(chatID, "Chưa có ví nào. Ghi khoản thu chi đầu tiên là ví chính sẽ được tạo.")
	}

	var total int64
	var builder strings.Builder
	builder.WriteString("👛 <b>Ví của bạn</b>\n\n")
	for _, wallet := range wallets {
		builder.WriteString(fmt.Sprintf("• %s: %s\n", escape(wallet.Name), format.Money(wallet.Balance, wallet.Currency)))
		total += wallet.Balance
	}
	if len(wallets) > 1 {
		builder.WriteString(fmt.Sprintf("\nTổng: %s", format.Money(total, "VND")))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleSummary(ctx context.Context, chatID int64) error {
	summary, err := b.finance.MonthOverview(ctx, timeutil.Now())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Không tổng kết được: %s", escape(err.Error())))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📊 <b>Tổng kết tháng %d/%d</b>\n\n", summary.From.Month(), summary.From.Year()))
	builder.WriteString(fmt.Sprintf("💰 Thu: %s\n", format.Money(summary.TotalIncome, "VND")))
	builder.WriteString(fmt.Sprintf("💸 Chi: %s\n", format.Money(summary.TotalExpense, "VND")))
	builder.WriteString(fmt.Sprintf("🧮 Còn lại: %s\n", format.Money(summary.Net(), "VND")))

	if len(summary.ByCategory) > 0 {
		builder.WriteString("\n<b>Theo danh mục</b>\n")
		for _, line := range summary.ByCategory {
			builder.WriteString(fmt.Sprintf("• %s (%s): %s\n", escape(line.Name), string(line.Type), format.Amount(line.Total)))
		}
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleRates(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(strings.TrimSpace(msg.CommandArguments()))

	if len(args) >= 2 {
		from, to := args[0], args[1]
		rate, err := b.rates.Rate(ctx, from, to)
		if err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Không lấy được tỷ giá: %s", escape(err.Error())))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf(
			"💱 1 %s = %s %s",
			strings.ToUpper(from), strconv.FormatFloat(rate, 'f', -1, 64), strings.ToUpper(to),
		))
	}

	table, err := b.rates.Latest(ctx, "")
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Không lấy được tỷ giá: %s", escape(err.Error())))
	}

	vnd, ok := table.Rates["VND"]
	if !ok {
		return b.sendText(msg.Chat.ID, "Bảng tỷ giá không có VND.")
	}

	var builder strings.Builder
	builder.WriteString("💱 <b>Tỷ giá hôm nay</b>\n\n")
	for _, code := range []string{"USD", "EUR", "JPY", "SGD", "KRW"} {
		rate, ok := table.Rates[code]
		if !ok || rate <= 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("• 1 %s ≈ %s ₫\n", code, format.Amount(int64(math.Round(vnd/rate)))))
	}
	builder.WriteString("\nDùng /tygia USD VND để xem một cặp cụ thể.")
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handlePeriod(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(strings.ToLower(msg.CommandArguments()))
	if args == "" {
		period, err := b.prefs.Get(ctx, model.PrefTaskPeriod)
		if err != nil {
			return err
		}
		label := "tuần"
		if period == service.TaskPeriodMonth {
			label = "tháng"
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Đang xem công việc theo %s. Đổi bằng /period week hoặc /period month.", label))
	}

	if err := b.prefs.Set(ctx, model.PrefTaskPeriod, args); err != nil {
		if apperr.IsInvalid(err) {
			return b.sendText(msg.Chat.ID, "Chỉ nhận week hoặc month thôi.")
		}
		return err
	}

	label := "tuần"
	if args == service.TaskPeriodMonth {
		label = "tháng"
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Từ giờ /tasks sẽ xem theo %s.", label))
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) error {
	now := timeutil.Now()
	files := []struct {
		entity string
		render func(context.Context) ([]byte, error)
	}{
		{"cong_viec", b.exporter.Tasks},
		{"nhac_nho", b.exporter.Reminders},
		{"giao_dich", b.exporter.Transactions},
	}

	for _, file := range files {
		data, err := file.render(ctx)
		if err != nil {
			return b.sendText(chatID, fmt.Sprintf("Không xuất được dữ liệu: %s", escape(err.Error())))
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  export.Filename(file.entity, now),
			Bytes: data,
		})
		if _, err := b.api.Send(doc); err != nil {
			return err
		}
	}
	return b.sendText(chatID, "📦 Đã xuất xong 3 tệp CSV.")
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}

	userCtx, err := b.auth(ctx, cb.From)
	if err != nil {
		return err
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, cbTaskDonePrefix):
		id := strings.TrimPrefix(data, cbTaskDonePrefix)
		task, err := b.tasks.Complete(userCtx, id)
		if err != nil {
			if apperr.IsNotFound(err) {
				return b.sendText(chatID, "Việc này không còn nữa.")
			}
			return b.sendText(chatID, fmt.Sprintf("Lỗi: %s", escape(err.Error())))
		}
		if err := b.sendText(chatID, fmt.Sprintf("✅ Đã hoàn thành «%s».", escape(normalizeTitle(task.Title)))); err != nil {
			return err
		}
		return b.handleListTasks(userCtx, chatID)

	case strings.HasPrefix(data, cbSubtaskPrefix):
		// Payload is "<taskID>:<subtaskID>".
		payload := strings.TrimPrefix(data, cbSubtaskPrefix)
		taskID, subtaskID, ok := strings.Cut(payload, ":")
		if !ok {
			return nil
		}
		task, err := b.tasks.ToggleSubtask(userCtx, taskID, subtaskID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return b.sendText(chatID, "Mục này không còn nữa.")
			}
			return b.sendText(chatID, fmt.Sprintf("Lỗi: %s", escape(err.Error())))
		}
		return b.sendText(chatID, fmt.Sprintf("Tiến độ «%s»: %d%%.", escape(normalizeTitle(task.Title)), task.Progress))

	case strings.HasPrefix(data, cbReminderDone):
		id := strings.TrimPrefix(data, cbReminderDone)
		if err := b.reminders.Complete(userCtx, id); err != nil {
			if apperr.IsNotFound(err) {
				return b.sendText(chatID, "Nhắc nhở này không còn nữa.")
			}
			return b.sendText(chatID, fmt.Sprintf("Lỗi: %s", escape(err.Error())))
		}
		return b.sendText(chatID, "✅ Đã hoàn thành nhắc nhở.")

	case strings.HasPrefix(data, cbReminderSkip):
		id := strings.TrimPrefix(data, cbReminderSkip)
		if err := b.reminders.Skip(userCtx, id); err != nil {
			if apperr.IsNotFound(err) {
				return b.sendText(chatID, "Nhắc nhở này không còn nữa.")
			}
			return b.sendText(chatID, fmt.Sprintf("Lỗi: %s", escape(err.Error())))
		}
		return b.sendText(chatID, "⏭ Đã bỏ qua nhắc nhở.")

	case strings.HasPrefix(data, cbReminderDelete):
		id := strings.TrimPrefix(data, cbReminderDelete)
		if err := b.reminders.Delete(userCtx, id); err != nil {
			if apperr.IsNotFound(err) {
				return b.sendText(chatID, "Nhắc nhở này đã bị xóa rồi.")
			}
			return b.sendText(chatID, fmt.Sprintf("Lỗi: %s", escape(err.Error())))
		}
		return b.sendText(chatID, "🗑 Đã xóa nhắc nhở.")

	case strings.HasPrefix(data, cbTransactionDelete):
		id := strings.TrimPrefix(data, cbTransactionDelete)
		if err := b.finance.DeleteTransaction(userCtx, id); err != nil {
			if apperr.IsNotFound(err) {
				return b.sendText(chatID, "Giao dịch này không còn nữa.")
			}
			return b.sendText(chatID, fmt.Sprintf("Lỗi: %s", escape(err.Error())))
		}
		if err := b.sendText(chatID, "🗑 Đã xóa giao dịch và hoàn lại số dư."); err != nil {
			return err
		}
		return b.handleHistory(userCtx, chatID)

	default:
		return nil
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(msg.Text)
	var run func(context.Context, int64) error
	switch text {
	case menuLabelToday:
		run = b.handleToday
	case menuLabelTasks:
		run = b.handleListTasks
	case menuLabelReminders:
		run = b.handleListReminders
	case menuLabelWallets:
		run = b.handleWallets
	case menuLabelSummary:
		run = b.handleSummary
	case menuLabelHelp:
		run = func(context.Context, int64) error { return b.handleHelp(msg) }
	default:
		return false, nil
	}

	userCtx, err := b.auth(ctx, msg.From)
	if err != nil {
		return true, b.sendText(msg.Chat.ID, "Không đăng nhập được, thử lại sau nhé.")
	}
	return true, run(userCtx, msg.Chat.ID)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelReminders),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelWallets),
			tgbotapi.NewKeyboardButton(menuLabelSummary),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

// subtaskButtons builds one toggle button per checklist item. Telegram
// caps callback data at 64 bytes, so oversized ids are left out.
func subtaskButtons(index int, task model.Task) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	for j, st := range task.Subtasks {
		if len(row) == 4 {
			break
		}
		data := fmt.Sprintf("%s%s:%s", cbSubtaskPrefix, task.ID, st.ID)
		if len(data) > 64 {
			continue
		}
		mark := "☐"
		if st.Completed {
			mark = "☑"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d.%d", mark, index, j+1),
			data,
		))
	}
	return row
}

func formatTaskLine(index int, task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := iconDefault
	if task.Deadline != nil {
		switch {
		case task.IsOverdue(now):
			icon = iconOverdue
		case task.Deadline.Sub(now) <= 48*time.Hour:
			icon = iconDue
		}
	}

	sb.WriteString(fmt.Sprintf("%s <b>%d.</b> %s", icon, index, escape(normalizeTitle(task.Title))))
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
	sb.WriteByte('\n')

	if task.Deadline != nil {
		if task.IsOverdue(now) {
			sb.WriteString(fmt.Sprintf("   ⏰ hạn %s · <b>quá hạn</b>\n", format.Date(*task.Deadline)))
		} else {
			daysLeft := int(task.Deadline.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("   ⏰ hạn %s · còn ≈%d ngày\n", format.Date(*task.Deadline), daysLeft))
		}
	}
	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	for j, st := range task.Subtasks {
		mark := "☐"
		if st.Completed {
			mark = "☑"
		}
		sb.WriteString(fmt.Sprintf("   %s %d.%d %s\n", mark, index, j+1, escape(st.Title)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func formatReminderLine(index int, reminder model.Reminder, now time.Time) string {
	var sb strings.Builder

	icon := iconReminder
	if reminder.IsNote() {
		icon = iconNote
	}

	sb.WriteString(fmt.Sprintf("%s <b>%d.</b> %s\n", icon, index, escape(normalizeTitle(reminder.Title))))
	sb.WriteString(fmt.Sprintf("   📆 %s", format.Date(reminder.ReminderDate)))
	if reminder.ReminderTime != "" {
		sb.WriteString(fmt.Sprintf(" lúc %s", reminder.ReminderTime))
	}
	if reminder.Repeat != model.RepeatNone {
		sb.WriteString(" ♻️")
	}
	if timeutil.SameDay(reminder.ReminderDate, now) {
		sb.WriteString(" · <b>hôm nay</b>")
	}
	sb.WriteByte('\n')
	if reminder.Amount != nil {
		sb.WriteString(fmt.Sprintf("   💸 %s %s\n", string(reminder.Type), format.Money(*reminder.Amount, "VND")))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// splitOnce cuts "body | rest" on the first pipe; both halves trimmed.
func splitOnce(args string) (string, string) {
	body, rest, _ := strings.Cut(args, "|")
	return strings.TrimSpace(body), strings.TrimSpace(rest)
}

// parseAmount reads Vietnamese money shorthand: 45k is 45 nghìn, 2tr is
// 2 triệu, plain digits pass through. Grouping dots are ignored.
func parseAmount(raw string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")

	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "tr"):
		mult = 1_000_000
		s = strings.TrimSuffix(s, "tr")
	case strings.HasSuffix(s, "m"):
		mult = 1_000_000
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "k"):
		mult = 1_000
		s = strings.TrimSuffix(s, "k")
	}

	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("amount %q must be positive", raw)
	}
	return value * mult, nil
}

// parseQuickDate reads dd/mm or dd/mm/yyyy. A short date without a year
// means the next occurrence of that day.
func parseQuickDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	if t, err := time.ParseInLocation("02/01/2006", raw, timeutil.Location); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("02/01", raw, timeutil.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q", raw)
	}

	// 29/02 survives the year-less parse because year zero is a leap
	// year; a candidate whose day shifted under normalization is bogus.
	day, month := t.Day(), t.Month()
	candidate := timeutil.Date(now.Year(), month, day, 0, 0, 0, 0)
	if candidate.Day() != day || candidate.Before(timeutil.StartOfDay(now)) {
		candidate = timeutil.Date(now.Year()+1, month, day, 0, 0, 0, 0)
	}
	if candidate.Day() != day {
		return time.Time{}, fmt.Errorf("parse date %q", raw)
	}
	return candidate, nil
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}
