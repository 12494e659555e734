package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"desco-report-backend/config"
)

// Provider endpoint paths, one per data category.
const (
	pathBalance  = "/api/tkdes/customer/getBalance"
	pathDaily    = "/api/tkdes/customer/getCustomerDailyConsumption"
	pathMonthly  = "/api/tkdes/customer/getCustomerMonthlyConsumption"
	pathRecharge = "/api/tkdes/customer/getRechargeHistory"
	pathEvents   = "/api/complaint/push-notification/getRecentEvent"
	pathLocation = "/api/common/getCustomerLocation"
)

// errNoData marks a response that is transport-complete but carries nothing:
// non-2xx status, non-zero envelope code, or a null data member.
var errNoData = errors.New("provider returned no data")

// timeLayouts are the timestamp shapes observed in provider payloads, tried
// in order. Dates are interpreted in the configured provider timezone.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Client fetches account data from the DESCO provider API. Every fetch
// method swallows transport and envelope failures: a failed category comes
// back empty so the caller treats it as "nothing to sync", never as fatal.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	loc       *time.Location
	log       *zap.Logger
}

// NewClient builds a provider client from configuration. An unknown timezone
// falls back to UTC with a logged warning.
func NewClient(cfg *config.ProviderConfig, log *zap.Logger) *Client {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn("invalid provider timezone, falling back to UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		loc:       loc,
		log:       log,
	}
}

// Balance fetches the current balance snapshot. Returns nil when the
// provider yields no data or the reading time cannot be parsed.
func (c *Client) Balance(ctx context.Context, accountNo, meterNo string) *Balance {
	q := url.Values{"accountNo": {accountNo}, "meterNo": {meterNo}}
	payload, err := getJSON[balancePayload](ctx, c, pathBalance, q)
	if err != nil {
		c.warn("balance", accountNo, err)
		return nil
	}

	readingTime, err := c.parseTime(payload.ReadingTime)
	if err != nil {
		c.log.Warn("skipping balance with unparseable reading time",
			zap.String("account_no", accountNo), zap.String("reading_time", payload.ReadingTime), zap.Error(err))
		return nil
	}

	return &Balance{
		AccountNo:               payload.AccountNo,
		MeterNo:                 payload.MeterNo,
		Balance:                 payload.Balance,
		CurrentMonthConsumption: payload.CurrentMonthConsumption,
		ReadingTime:             readingTime,
	}
}

// DailyConsumption fetches per-day usage for the given date range. Records
// with unparseable dates are skipped.
func (c *Client) DailyConsumption(ctx context.Context, accountNo, meterNo string, from, to time.Time) []DailyConsumption {
	q := url.Values{
		"accountNo": {accountNo},
		"meterNo":   {meterNo},
		"dateFrom":  {from.Format("2006-01-02")},
		"dateTo":    {to.Format("2006-01-02")},
	}
	payloads, err := getJSON[[]dailyPayload](ctx, c, pathDaily, q)
	if err != nil {
		c.warn("daily consumption", accountNo, err)
		return nil
	}

	out := make([]DailyConsumption, 0, len(*payloads))
	for _, p := range *payloads {
		date, err := c.parseTime(p.Date)
		if err != nil {
			c.log.Warn("skipping daily record with unparseable date",
				zap.String("account_no", accountNo), zap.String("date", p.Date), zap.Error(err))
			continue
		}
		unit := p.Unit
		if unit == "" {
			unit = "kWh"
		}
		out = append(out, DailyConsumption{Date: date, Consumption: p.Consumption, Unit: unit, Cost: p.Cost})
	}
	return out
}

// MonthlyConsumption fetches per-month usage for the given month range.
func (c *Client) MonthlyConsumption(ctx context.Context, accountNo, meterNo string, from, to time.Time) []MonthlyConsumption {
	q := url.Values{
		"accountNo": {accountNo},
		"meterNo":   {meterNo},
		"monthFrom": {from.Format("2006-01")},
		"monthTo":   {to.Format("2006-01")},
	}
	payloads, err := getJSON[[]monthlyPayload](ctx, c, pathMonthly, q)
	if err != nil {
		c.warn("monthly consumption", accountNo, err)
		return nil
	}

	out := make([]MonthlyConsumption, 0, len(*payloads))
	for _, p := range *payloads {
		unit := p.Unit
		if unit == "" {
			unit = "kWh"
		}
		out = append(out, MonthlyConsumption{
			Year:                    p.Year,
			Month:                   p.Month,
			Consumption:             p.Consumption,
			Unit:                    unit,
			Cost:                    p.Cost,
			AverageDailyConsumption: p.AverageDailyConsumption,
		})
	}
	return out
}

// RechargeHistory fetches top-up transactions for the given date range.
// Records with unparseable dates are skipped.
func (c *Client) RechargeHistory(ctx context.Context, accountNo, meterNo string, from, to time.Time) []Recharge {
	q := url.Values{
		"accountNo": {accountNo},
		"meterNo":   {meterNo},
		"dateFrom":  {from.Format("2006-01-02")},
		"dateTo":    {to.Format("2006-01-02")},
	}
	payloads, err := getJSON[[]rechargePayload](ctx, c, pathRecharge, q)
	if err != nil {
		c.warn("recharge history", accountNo, err)
		return nil
	}

	out := make([]Recharge, 0, len(*payloads))
	for _, p := range *payloads {
		date, err := c.parseTime(p.RechargeDate)
		if err != nil {
			c.log.Warn("skipping recharge with unparseable date",
				zap.String("account_no", accountNo), zap.String("recharge_date", p.RechargeDate), zap.Error(err))
			continue
		}
		out = append(out, Recharge{
			RechargeDate:  date,
			Amount:        p.Amount,
			TransactionID: p.TransactionID,
			PaymentMethod: p.PaymentMethod,
			Notes:         p.Notes,
			Status:        p.Status,
		})
	}
	return out
}

// RecentEvents fetches the account's notification feed. No date bound.
func (c *Client) RecentEvents(ctx context.Context, accountNo string) []Event {
	q := url.Values{"accountNo": {accountNo}}
	payloads, err := getJSON[[]eventPayload](ctx, c, pathEvents, q)
	if err != nil {
		c.warn("recent events", accountNo, err)
		return nil
	}

	out := make([]Event, 0, len(*payloads))
	for _, p := range *payloads {
		date, err := c.parseTime(p.EventDate)
		if err != nil {
			c.log.Warn("skipping event with unparseable date",
				zap.String("account_no", accountNo), zap.String("event_date", p.EventDate), zap.Error(err))
			continue
		}
		out = append(out, Event{
			EventDate: date,
			EventType: p.EventType,
			Message:   p.Message,
			Category:  p.Category,
			Priority:  p.Priority,
		})
	}
	return out
}

// CustomerLocations fetches the account's service address records.
func (c *Client) CustomerLocations(ctx context.Context, accountNo string) []Location {
	q := url.Values{"accountNo": {accountNo}}
	payloads, err := getJSON[[]locationPayload](ctx, c, pathLocation, q)
	if err != nil {
		c.warn("location", accountNo, err)
		return nil
	}

	out := make([]Location, 0, len(*payloads))
	for _, p := range *payloads {
		out = append(out, Location{
			Division:    p.Division,
			District:    p.District,
			Thana:       p.Thana,
			Area:        p.Area,
			PostCode:    p.PostCode,
			FullAddress: p.FullAddress,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
		})
	}
	return out
}

// Ping checks that the provider host answers at all. Any HTTP response
// counts; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) warn(category, accountNo string, err error) {
	if errors.Is(err, errNoData) {
		c.log.Warn("provider returned no data",
			zap.String("category", category), zap.String("account_no", accountNo))
		return
	}
	c.log.Warn("provider fetch failed",
		zap.String("category", category), zap.String("account_no", accountNo), zap.Error(err))
}

// parseTime converts a free-text provider timestamp into a canonical
// time.Time in the provider timezone.
func (c *Client) parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// getJSON performs one GET against the provider and unwraps the envelope.
func getJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", errNoData, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", errNoData, err)
	}
	if env.Code != 0 || env.Data == nil {
		return nil, fmt.Errorf("%w: code=%d desc=%q", errNoData, env.Code, env.Desc)
	}
	return env.Data, nil
}
