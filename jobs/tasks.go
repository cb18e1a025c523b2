package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskInventoryLowStockScan flags raw materials at or below min stock.
	TaskInventoryLowStockScan = "inventory:low_stock_scan"
	// TaskInvoiceOverdueScan flags unpaid invoices past their due date.
	TaskInvoiceOverdueScan = "invoices:overdue_scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: SMTP delivery is wired behind the ops mail relay.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// LowStockScanPayload configures a low-stock scan run.
type LowStockScanPayload struct {
	NotifyEmail string `json:"notify_email"`
}

// NewLowStockScanTask constructs the scan task.
func NewLowStockScanTask(notifyEmail string) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockScanPayload{NotifyEmail: notifyEmail})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryLowStockScan, data), nil
}

// OverdueScanPayload configures an overdue-invoice scan run.
type OverdueScanPayload struct {
	NotifyEmail string `json:"notify_email"`
	GraceDays   int    `json:"grace_days"`
}

// NewOverdueScanTask constructs the scan task.
func NewOverdueScanTask(notifyEmail string, graceDays int) (*asynq.Task, error) {
	data, err := json.Marshal(OverdueScanPayload{NotifyEmail: notifyEmail, GraceDays: graceDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceOverdueScan, data), nil
}
