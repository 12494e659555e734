package provider

import (
	"time"

	"github.com/shopspring/decimal"
)

// envelope models the wrapping structure of every provider response:
// {"code": 0, "desc": "ok", "data": ...}. A non-zero code or a null/absent
// data member both mean "no data". The desc field is log-only.
type envelope[T any] struct {
	Code int    `json:"code"`
	Desc string `json:"desc"`
	Data *T     `json:"data"`
}

// Wire payloads. Field names below are the ones the provider actually emits;
// encoding/json also accepts any case variant of them (exact match first,
// case-insensitive fallback), which covers the feed's inconsistent casing.

// balancePayload: accountNo, meterNo, balance, currentMonthConsumption,
// readingTime (free-text timestamp).
type balancePayload struct {
	AccountNo               string          `json:"accountNo"`
	MeterNo                 string          `json:"meterNo"`
	Balance                 decimal.Decimal `json:"balance"`
	CurrentMonthConsumption decimal.Decimal `json:"currentMonthConsumption"`
	ReadingTime             string          `json:"readingTime"`
}

// dailyPayload: date (free-text), consumption, unit (may be empty, defaults
// to kWh), cost (optional).
type dailyPayload struct {
	Date        string           `json:"date"`
	Consumption decimal.Decimal  `json:"consumption"`
	Unit        string           `json:"unit"`
	Cost        *decimal.Decimal `json:"cost"`
}

// monthlyPayload: year, month, consumption, unit, cost,
// averageDailyConsumption (both optional).
type monthlyPayload struct {
	Year                    int              `json:"year"`
	Month                   int              `json:"month"`
	Consumption             decimal.Decimal  `json:"consumption"`
	Unit                    string           `json:"unit"`
	Cost                    *decimal.Decimal `json:"cost"`
	AverageDailyConsumption *decimal.Decimal `json:"averageDailyConsumption"`
}

// rechargePayload: rechargeDate (free-text), amount, transactionId,
// paymentMethod, notes, status.
type rechargePayload struct {
	RechargeDate  string          `json:"rechargeDate"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	PaymentMethod string          `json:"paymentMethod"`
	Notes         string          `json:"notes"`
	Status        string          `json:"status"`
}

// eventPayload: eventDate (free-text), eventType, message, category,
// priority.
type eventPayload struct {
	EventDate string `json:"eventDate"`
	EventType string `json:"eventType"`
	Message   string `json:"message"`
	Category  string `json:"category"`
	Priority  string `json:"priority"`
}

// locationPayload: division, district, thana, area, postCode, fullAddress,
// latitude, longitude.
type locationPayload struct {
	Division    string           `json:"division"`
	District    string           `json:"district"`
	Thana       string           `json:"thana"`
	Area        string           `json:"area"`
	PostCode    string           `json:"postCode"`
	FullAddress string           `json:"fullAddress"`
	Latitude    *decimal.Decimal `json:"latitude"`
	Longitude   *decimal.Decimal `json:"longitude"`
}

// Parsed results handed to the sync layer. Timestamps are already canonical.

// Balance is the current snapshot for one account/meter pair.
type Balance struct {
	AccountNo               string
	MeterNo                 string
	Balance                 decimal.Decimal
	CurrentMonthConsumption decimal.Decimal
	ReadingTime             time.Time
}

// DailyConsumption is one day of usage from the provider.
type DailyConsumption struct {
	Date        time.Time
	Consumption decimal.Decimal
	Unit        string
	Cost        *decimal.Decimal
}

// MonthlyConsumption is one month of usage from the provider.
type MonthlyConsumption struct {
	Year                    int
	Month                   int
	Consumption             decimal.Decimal
	Unit                    string
	Cost                    *decimal.Decimal
	AverageDailyConsumption *decimal.Decimal
}

// Recharge is one top-up transaction from the provider.
type Recharge struct {
	RechargeDate  time.Time
	Amount        decimal.Decimal
	TransactionID string
	PaymentMethod string
	Notes         string
	Status        string
}

// Event is one notification from the provider's recent-events feed.
type Event struct {
	EventDate time.Time
	EventType string
	Message   string
	Category  string
	Priority  string
}

// Location is one customer address record from the provider.
type Location struct {
	Division    string
	District    string
	Thana       string
	Area        string
	PostCode    string
	FullAddress string
	Latitude    *decimal.Decimal
	Longitude   *decimal.Decimal
}
