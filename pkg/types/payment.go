package types

// PaymentStatus is the lifecycle state of a single payment.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "PENDING"
	PaymentPaid          PaymentStatus = "PAID"
	PaymentOverdue       PaymentStatus = "OVERDUE"
	PaymentCancelled     PaymentStatus = "CANCELLED"
	PaymentRefunded      PaymentStatus = "REFUNDED"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentScheduled     PaymentStatus = "SCHEDULED"
	PaymentUpcoming      PaymentStatus = "UPCOMING"
)

// Payment is a single installment or manual payment.
type Payment struct {
	ID              int64         `json:"id"`
	InstallationID  int64         `json:"installationId"`
	CustomerName    string        `json:"customerName,omitempty"`
	CustomerEmail   string        `json:"customerEmail,omitempty"`
	PaymentPlanID   int64         `json:"paymentPlanId,omitempty"`
	PaymentPlanName string        `json:"paymentPlanName,omitempty"`
	Amount          float64       `json:"amount"`
	DueDate         LocalTime     `json:"dueDate"`
	PaidAt          LocalTime     `json:"paidAt"`
	Status          PaymentStatus `json:"status"`
	StatusReason    string        `json:"statusReason,omitempty"`
	DaysOverdue     int           `json:"daysOverdue,omitempty"`
	TransactionID   string        `json:"transactionId,omitempty"`
	PaymentMethod   string        `json:"paymentMethod,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	LateFee         float64       `json:"lateFee,omitempty"`
}

// PaymentRequest is the body of a customer-initiated payment.
type PaymentRequest struct {
	InstallationID int64   `json:"installationId,omitempty"`
	PaymentID      int64   `json:"paymentId,omitempty"`
	Amount         float64 `json:"amount"`
	PaymentMethod  string  `json:"paymentMethod"`
	Description    string  `json:"description,omitempty"`
}

// ManualPayment is an admin-recorded payment made outside the portal.
type ManualPayment struct {
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	PaymentDate   string  `json:"paymentDate"`
	Description   string  `json:"description,omitempty"`
	ReceiptNumber string  `json:"receiptNumber,omitempty"`
}

// PaymentFrequency is how often a plan bills.
type PaymentFrequency string

const (
	FrequencyWeekly       PaymentFrequency = "WEEKLY"
	FrequencyBiWeekly     PaymentFrequency = "BI_WEEKLY"
	FrequencyMonthly      PaymentFrequency = "MONTHLY"
	FrequencyQuarterly    PaymentFrequency = "QUARTERLY"
	FrequencySemiAnnually PaymentFrequency = "SEMI_ANNUALLY"
	FrequencyAnnually     PaymentFrequency = "ANNUALLY"
)

// PaymentPlan is a loan/financing plan attached to an installation.
type PaymentPlan struct {
	ID                    int64            `json:"id,omitempty"`
	InstallationID        int64            `json:"installationId,omitempty"`
	CustomerName          string           `json:"customerName,omitempty"`
	CustomerEmail         string           `json:"customerEmail,omitempty"`
	Name                  string           `json:"name,omitempty"`
	Description           string           `json:"description,omitempty"`
	TotalAmount           float64          `json:"totalAmount"`
	RemainingAmount       float64          `json:"remainingAmount,omitempty"`
	NumberOfPayments      int              `json:"numberOfPayments,omitempty"`
	RemainingInstallments int              `json:"remainingInstallments,omitempty"`
	InstallmentAmount     float64          `json:"installmentAmount,omitempty"`
	Frequency             PaymentFrequency `json:"frequency"`
	StartDate             LocalTime        `json:"startDate"`
	EndDate               LocalTime        `json:"endDate"`
	Status                string           `json:"status,omitempty"`
	InterestRate          float64          `json:"interestRate,omitempty"`
	LateFeeAmount         float64          `json:"lateFeeAmount,omitempty"`
	GracePeriodDays       int              `json:"gracePeriodDays,omitempty"`
	NextPaymentDate       LocalTime        `json:"nextPaymentDate"`
}

// PaymentDashboard summarizes a customer's financing position.
type PaymentDashboard struct {
	InstallationID        int64        `json:"installationId"`
	TotalAmount           float64      `json:"totalAmount"`
	RemainingAmount       float64      `json:"remainingAmount"`
	NextPaymentAmount     float64      `json:"nextPaymentAmount"`
	NextPaymentDueDate    LocalTime    `json:"nextPaymentDueDate"`
	TotalInstallments     int          `json:"totalInstallments"`
	RemainingInstallments int          `json:"remainingInstallments"`
	CompletedInstallments int          `json:"completedInstallments"`
	HasOverduePayments    bool         `json:"hasOverduePayments"`
	RecentPayments        []Payment    `json:"recentPayments"`
	UpcomingPayments      []Payment    `json:"upcomingPayments"`
	ActivePlan            *PaymentPlan `json:"activePlan,omitempty"`
}

// PaymentMethod is a stored means of payment.
type PaymentMethod struct {
	Type     string `json:"type"`
	LastFour string `json:"lastFour,omitempty"`
	Expiry   string `json:"expiry,omitempty"`
}

// PaymentMethods lists a customer's payment methods.
type PaymentMethods struct {
	DefaultMethod *PaymentMethod  `json:"defaultMethod,omitempty"`
	Methods       []PaymentMethod `json:"methods"`
}

// GracePeriodConfig controls overdue handling.
type GracePeriodConfig struct {
	NumberOfDays       int     `json:"numberOfDays"`
	ReminderFrequency  int     `json:"reminderFrequency"`
	AutoSuspendEnabled bool    `json:"autoSuspendEnabled"`
	LateFeesEnabled    bool    `json:"lateFeesEnabled"`
	LateFeePercentage  float64 `json:"lateFeePercentage"`
	LateFeeFixedAmount float64 `json:"lateFeeFixedAmount"`
}

// ReminderConfig controls automatic payment reminders.
type ReminderConfig struct {
	AutoSendReminders  bool   `json:"autoSendReminders"`
	FirstReminderDays  int    `json:"firstReminderDays"`
	SecondReminderDays int    `json:"secondReminderDays"`
	FinalReminderDays  int    `json:"finalReminderDays"`
	ReminderMethod     string `json:"reminderMethod"`
}

// PaymentReminder is a reminder that was sent for a payment.
type PaymentReminder struct {
	ID               int64     `json:"id"`
	PaymentID        int64     `json:"paymentId"`
	SentDate         LocalTime `json:"sentDate"`
	ReminderType     string    `json:"reminderType"`
	DeliveryStatus   string    `json:"deliveryStatus"`
	DeliveryChannel  string    `json:"deliveryChannel"`
	RecipientAddress string    `json:"recipientAddress"`
}
