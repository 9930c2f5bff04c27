package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/solarmon/solarmon/pkg/types"
)

// Payments covers a customer's billing.
type Payments struct {
	c Client
}

// CustomerHistory returns a page of a customer's past payments.
func (p *Payments) CustomerHistory(ctx context.Context, customerID int64, page, size int) types.Page[types.Payment] {
	return readPage[types.Payment](ctx, p.c, "fetch payment history", "/api/payments/customers/"+id(customerID)+"/history", nil, page, size)
}

// CustomerUpcoming returns a customer's upcoming payments.
func (p *Payments) CustomerUpcoming(ctx context.Context, customerID int64) []types.Payment {
	return readList[types.Payment](ctx, p.c, "fetch upcoming payments", "/api/payments/customers/"+id(customerID)+"/upcoming", nil)
}

// MethodsForCustomer returns a customer's payment methods. Failures yield no
// methods rather than a placeholder card.
func (p *Payments) MethodsForCustomer(ctx context.Context, customerID int64) types.PaymentMethods {
	m := readOne[types.PaymentMethods](ctx, p.c, "fetch payment methods", "/api/payments/customers/"+id(customerID)+"/methods", nil)
	if m == nil {
		return types.PaymentMethods{Methods: []types.PaymentMethod{}}
	}
	if m.Methods == nil {
		m.Methods = []types.PaymentMethod{}
	}
	return *m
}

// CustomerPlan returns a customer's active plan, or nil.
func (p *Payments) CustomerPlan(ctx context.Context, customerID int64) *types.PaymentPlan {
	return readOne[types.PaymentPlan](ctx, p.c, "fetch payment plan", "/api/payments/customers/"+id(customerID)+"/plan", nil)
}

// MakePayment submits a payment.
func (p *Payments) MakePayment(ctx context.Context, req types.PaymentRequest) (*types.Payment, error) {
	var out types.Payment
	if err := write(ctx, p.c, "make payment", http.MethodPost, "/api/payments/make-payment", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upcoming returns the signed-in customer's upcoming payments.
func (p *Payments) Upcoming(ctx context.Context) []types.Payment {
	return readList[types.Payment](ctx, p.c, "fetch upcoming payments", "/api/payments/upcoming", nil)
}

// Receipt returns the receipt of a payment, or nil.
func (p *Payments) Receipt(ctx context.Context, paymentID int64) *types.Payment {
	return readOne[types.Payment](ctx, p.c, "fetch payment receipt", "/api/payments/receipts/"+id(paymentID), nil)
}

// History returns a page of the signed-in customer's payments.
func (p *Payments) History(ctx context.Context, page, size int) types.Page[types.Payment] {
	return readPage[types.Payment](ctx, p.c, "fetch payment history", "/api/payments/history", nil, page, size)
}

// Dashboard returns the signed-in customer's payment dashboard, or nil.
func (p *Payments) Dashboard(ctx context.Context) *types.PaymentDashboard {
	return readOne[types.PaymentDashboard](ctx, p.c, "fetch payment dashboard", "/api/payments/dashboard", nil)
}

// PaymentCompliance covers admin management of overdue payments, reminders
// and plans.
type PaymentCompliance struct {
	c Client
}

// Overdue returns a page of overdue payments sorted by sortBy.
func (pc *PaymentCompliance) Overdue(ctx context.Context, page, size int, sortBy, direction string) types.Page[types.Payment] {
	if sortBy == "" {
		sortBy = "dueDate"
	}
	if direction == "" {
		direction = "asc"
	}
	q := url.Values{"sortBy": {sortBy}, "sortDirection": {direction}}
	return readPage[types.Payment](ctx, pc.c, "fetch overdue payments", "/api/admin/payments/overdue", q, page, size)
}

// GracePeriod returns the grace period configuration, or nil.
func (pc *PaymentCompliance) GracePeriod(ctx context.Context) *types.GracePeriodConfig {
	return readOne[types.GracePeriodConfig](ctx, pc.c, "fetch grace period config", "/api/admin/payments/grace-period-config", nil)
}

// UpdateGracePeriod replaces the grace period configuration.
func (pc *PaymentCompliance) UpdateGracePeriod(ctx context.Context, cfg types.GracePeriodConfig) (*types.GracePeriodConfig, error) {
	var out types.GracePeriodConfig
	if err := write(ctx, pc.c, "update grace period config", http.MethodPut, "/api/admin/payments/grace-period-config", nil, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reminders returns the reminder configuration, or nil.
func (pc *PaymentCompliance) Reminders(ctx context.Context) *types.ReminderConfig {
	return readOne[types.ReminderConfig](ctx, pc.c, "fetch reminder config", "/api/admin/payments/reminder-config", nil)
}

// UpdateReminders replaces the reminder configuration.
func (pc *PaymentCompliance) UpdateReminders(ctx context.Context, cfg types.ReminderConfig) (*types.ReminderConfig, error) {
	var out types.ReminderConfig
	if err := write(ctx, pc.c, "update reminder config", http.MethodPut, "/api/admin/payments/reminder-config", nil, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendReminder sends one reminder for a payment.
func (pc *PaymentCompliance) SendReminder(ctx context.Context, paymentID int64, reminderType string) error {
	body := map[string]string{"reminderType": reminderType}
	return write(ctx, pc.c, "send payment reminder", http.MethodPost, "/api/admin/payments/"+id(paymentID)+"/send-reminder", nil, body, nil)
}

// SendReminders sends the same reminder for several payments.
func (pc *PaymentCompliance) SendReminders(ctx context.Context, paymentIDs []int64, reminderType string) error {
	ids := make([]string, len(paymentIDs))
	for i, v := range paymentIDs {
		ids[i] = strconv.FormatInt(v, 10)
	}
	body := map[string]any{"paymentIds": ids, "reminderType": reminderType}
	return write(ctx, pc.c, "send payment reminders", http.MethodPost, "/api/admin/payments/reminders/send", nil, body, nil)
}

// RemindersFor returns the reminders sent for a payment.
func (pc *PaymentCompliance) RemindersFor(ctx context.Context, paymentID int64) []types.PaymentReminder {
	return readList[types.PaymentReminder](ctx, pc.c, "fetch payment reminders", "/api/admin/payments/"+id(paymentID)+"/reminders", nil)
}

// CustomerPlans returns every plan of a customer.
func (pc *PaymentCompliance) CustomerPlans(ctx context.Context, customerID int64) []types.PaymentPlan {
	return readList[types.PaymentPlan](ctx, pc.c, "fetch customer payment plans", "/api/admin/payments/customers/"+id(customerID)+"/plan", nil)
}

// CreatePlan adds a plan for a customer.
func (pc *PaymentCompliance) CreatePlan(ctx context.Context, customerID int64, plan types.PaymentPlan) (*types.PaymentPlan, error) {
	var out types.PaymentPlan
	if err := write(ctx, pc.c, "create payment plan", http.MethodPost, "/api/admin/payments/customers/"+id(customerID)+"/plan", nil, plan, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePlan changes a customer's plan.
func (pc *PaymentCompliance) UpdatePlan(ctx context.Context, customerID, planID int64, plan types.PaymentPlan) (*types.PaymentPlan, error) {
	var out types.PaymentPlan
	path := "/api/admin/payments/customers/" + id(customerID) + "/plan/" + id(planID)
	if err := write(ctx, pc.c, "update payment plan", http.MethodPut, path, nil, plan, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Plan returns a plan by ID, or nil.
func (pc *PaymentCompliance) Plan(ctx context.Context, planID int64) *types.PaymentPlan {
	return readOne[types.PaymentPlan](ctx, pc.c, "fetch payment plan", "/api/admin/payments/plans/"+id(planID), nil)
}

// RecordManualPayment records a payment received outside the portal.
func (pc *PaymentCompliance) RecordManualPayment(ctx context.Context, customerID int64, payment types.ManualPayment) (*types.Payment, error) {
	var out types.Payment
	path := "/api/admin/payments/customers/" + id(customerID) + "/manual-payment"
	if err := write(ctx, pc.c, "record manual payment", http.MethodPost, path, nil, payment, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InstallationPayments returns the payments of an installation.
func (pc *PaymentCompliance) InstallationPayments(ctx context.Context, installationID int64) []types.Payment {
	return readList[types.Payment](ctx, pc.c, "fetch installation payments", "/api/admin/payments/installations/"+id(installationID), nil)
}
