// Package export renders a user's data as UTF-8 CSV files, labeled in
// Vietnamese and byte-order-marked so spreadsheet apps detect the
// encoding.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tm-quang/bofinance-sub000/internal/format"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/service"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var taskStatusLabels = map[model.TaskStatus]string{
	model.TaskPending:    "Chờ xử lý",
	model.TaskInProgress: "Đang làm",
	model.TaskCompleted:  "Hoàn thành",
	model.TaskCancelled:  "Đã hủy",
}

var priorityLabels = map[model.TaskPriority]string{
	model.PriorityLow:    "Thấp",
	model.PriorityMedium: "Trung bình",
	model.PriorityHigh:   "Cao",
	model.PriorityUrgent: "Khẩn cấp",
}

var cadenceLabels = map[model.RepeatCadence]string{
	model.RepeatNone:    "Không lặp",
	model.RepeatDaily:   "Hàng ngày",
	model.RepeatWeekly:  "Hàng tuần",
	model.RepeatMonthly: "Hàng tháng",
	model.RepeatYearly:  "Hàng năm",
}

var reminderStatusLabels = map[model.ReminderStatus]string{
	model.ReminderPending:   "Chờ",
	model.ReminderCompleted: "Hoàn thành",
	model.ReminderSkipped:   "Bỏ qua",
}

// Exporter reads through the session-scoped services, so exports carry
// exactly what the requesting user can see.
type Exporter struct {
	tasks     *service.TaskService
	reminders *service.ReminderService
	finance   *service.FinanceService
}

func NewExporter(tasks *service.TaskService, reminders *service.ReminderService, finance *service.FinanceService) *Exporter {
	return &Exporter{tasks: tasks, reminders: reminders, finance: finance}
}

// Filename names an export file for its entity and day, e.g.
// cong_viec_20250825.csv.
func Filename(entity string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", strings.ToLower(entity), timeutil.In(now).Format("20060102"))
}

// Tasks renders every task of the current user.
func (e *Exporter) Tasks(ctx context.Context) ([]byte, error) {
	tasks, err := e.tasks.List(ctx, repository.TaskFilter{})
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		deadline := ""
		if task.Deadline != nil {
			deadline = format.Date(*task.Deadline)
		}
		done := 0
		for _, st := range task.Subtasks {
			if st.Completed {
				done++
			}
		}
		rows = append(rows, []string{
			task.Title,
			task.Description,
			taskStatusLabels[task.Status],
			priorityLabels[task.Priority],
			deadline,
			strconv.Itoa(task.Progress),
			strconv.Itoa(done),
			strconv.Itoa(len(task.Subtasks)),
			strings.Join(task.Tags, "; "),
			format.Date(task.CreatedAt),
		})
	}

	headers := []string{
		"Tiêu đề", "Mô tả", "Trạng thái", "Ưu tiên", "Hạn chót",
		"Tiến độ (%)", "Việc con xong", "Tổng việc con", "Thẻ", "Ngày tạo",
	}
	return writeCSV(headers, rows)
}

// Reminders renders the full reminder history, hidden rows included.
func (e *Exporter) Reminders(ctx context.Context) ([]byte, error) {
	reminders, err := e.reminders.List(ctx, repository.ReminderFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	categories, err := e.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(reminders))
	for _, r := range reminders {
		amount := ""
		if r.Amount != nil {
			amount = format.Amount(*r.Amount)
		}
		category := ""
		if r.CategoryID != nil {
			category = categories[*r.CategoryID]
		}
		rows = append(rows, []string{
			r.Title,
			string(r.Type),
			amount,
			category,
			format.Date(r.ReminderDate),
			r.ReminderTime,
			cadenceLabels[r.Repeat],
			reminderStatusLabels[r.Status],
			boolLabel(r.NotifyEnabled),
			boolLabel(!r.IsActive),
			r.Notes,
		})
	}

	headers := []string{
		"Tiêu đề", "Loại", "Số tiền", "Danh mục", "Ngày nhắc", "Giờ",
		"Lặp lại", "Trạng thái", "Thông báo", "Đã xóa", "Ghi chú",
	}
	return writeCSV(headers, rows)
}

// Transactions renders the money movements, newest first.
func (e *Exporter) Transactions(ctx context.Context) ([]byte, error) {
	txns, err := e.finance.Transactions(ctx, repository.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	categories, err := e.categoryNames(ctx)
	if err != nil {
		return nil, err
	}
	wallets, err := e.finance.AllWallets(ctx)
	if err != nil {
		return nil, err
	}
	walletNames := make(map[string]string, len(wallets))
	for _, w := range wallets {
		walletNames[w.ID] = w.Name
	}

	rows := make([][]string, 0, len(txns))
	for _, txn := range txns {
		category := ""
		if txn.CategoryID != nil {
			category = categories[*txn.CategoryID]
		}
		rows = append(rows, []string{
			format.Date(txn.OccurredAt),
			string(txn.Type),
			format.Amount(txn.Amount),
			category,
			walletNames[txn.WalletID],
			txn.Note,
		})
	}

	headers := []string{"Ngày", "Loại", "Số tiền", "Danh mục", "Ví", "Ghi chú"}
	return writeCSV(headers, rows)
}

func (e *Exporter) categoryNames(ctx context.Context) (map[string]string, error) {
	categories, err := e.finance.Categories(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func boolLabel(v bool) string {
	if v {
		return "Có"
	}
	return "Không"
}
