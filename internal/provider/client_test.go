package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"desco-report-backend/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(&config.ProviderConfig{
		BaseURL:   srv.URL,
		Timeout:   5 * time.Second,
		Timezone:  "UTC",
		UserAgent: "test-agent",
	}, zap.NewNop())
	return client, srv
}

func TestBalance(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tkdes/customer/getBalance", r.URL.Path)
		assert.Equal(t, "A1", r.URL.Query().Get("accountNo"))
		assert.Equal(t, "M1", r.URL.Query().Get("meterNo"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"desc":"ok","data":{
			"accountNo":"A1","meterNo":"M1","balance":120.50,
			"currentMonthConsumption":45.00,
			"readingTime":"2024-01-15T10:00:00"}}`))
	}))

	bal := client.Balance(context.Background(), "A1", "M1")
	require.NotNil(t, bal)
	assert.Equal(t, "A1", bal.AccountNo)
	assert.Equal(t, "M1", bal.MeterNo)
	assert.Equal(t, "120.5", bal.Balance.String())
	assert.Equal(t, "45", bal.CurrentMonthConsumption.String())
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), bal.ReadingTime)
}

func TestBalanceNoData(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-zero code", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":404,"desc":"not found","data":null}`))
		}},
		{"null data", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":0,"desc":"ok","data":null}`))
		}},
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>maintenance</html>`))
		}},
		{"unparseable reading time", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":0,"desc":"ok","data":{
				"accountNo":"A1","meterNo":"M1","balance":1,
				"currentMonthConsumption":1,"readingTime":"soon"}}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			assert.Nil(t, client.Balance(context.Background(), "A1", "M1"))
		})
	}
}

func TestDailyConsumptionSkipsBadDates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tkdes/customer/getCustomerDailyConsumption", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("dateFrom"))
		assert.NotEmpty(t, r.URL.Query().Get("dateTo"))

		w.Write([]byte(`{"code":0,"desc":"ok","data":[
			{"date":"2024-01-10","consumption":12.5,"unit":"kWh"},
			{"date":"yesterday","consumption":99},
			{"date":"2024-01-11","consumption":8.25}]}`))
	}))

	records := client.DailyConsumption(context.Background(), "A1", "M1",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.Len(t, records, 2)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, "12.5", records[0].Consumption.String())
	assert.Equal(t, "kWh", records[0].Unit)
	// Missing unit defaults.
	assert.Equal(t, "kWh", records[1].Unit)
}

func TestMonthlyConsumption(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2023-02", r.URL.Query().Get("monthFrom"))
		assert.Equal(t, "2024-01", r.URL.Query().Get("monthTo"))
		w.Write([]byte(`{"code":0,"desc":"ok","data":[
			{"year":2024,"month":1,"consumption":310.75,"cost":2480.00,"averageDailyConsumption":10.02}]}`))
	}))

	records := client.MonthlyConsumption(context.Background(), "A1", "M1",
		time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, records, 1)
	assert.Equal(t, 2024, records[0].Year)
	assert.Equal(t, 1, records[0].Month)
	require.NotNil(t, records[0].Cost)
	assert.Equal(t, "2480", records[0].Cost.String())
}

func TestRechargeHistory(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"desc":"ok","data":[
			{"rechargeDate":"2024-01-05 14:30:00","amount":500.00,
			 "transactionId":"TX100","paymentMethod":"bKash","status":"Completed"}]}`))
	}))

	records := client.RechargeHistory(context.Background(), "A1", "M1",
		time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.Len(t, records, 1)
	assert.Equal(t, "TX100", records[0].TransactionID)
	assert.Equal(t, time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC), records[0].RechargeDate)
	assert.Equal(t, "500", records[0].Amount.String())
}

func TestRecentEventsAndLocations(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/complaint/push-notification/getRecentEvent":
			w.Write([]byte(`{"code":0,"desc":"ok","data":[
				{"eventDate":"2024-01-12T09:00:00","eventType":"LowBalance",
				 "message":"Balance below 100 BDT","priority":"High"}]}`))
		case "/api/common/getCustomerLocation":
			w.Write([]byte(`{"code":0,"desc":"ok","data":[
				{"division":"Dhaka","district":"Dhaka","thana":"Mirpur",
				 "fullAddress":"House 1, Road 2, Mirpur","latitude":23.8041,"longitude":90.4152}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	events := client.RecentEvents(context.Background(), "A1")
	require.Len(t, events, 1)
	assert.Equal(t, "LowBalance", events[0].EventType)

	locations := client.CustomerLocations(context.Background(), "A1")
	require.Len(t, locations, 1)
	assert.Equal(t, "House 1, Road 2, Mirpur", locations[0].FullAddress)
	require.NotNil(t, locations[0].Latitude)
	assert.Equal(t, "23.8041", locations[0].Latitude.String())
}

func TestPing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden) // any response means reachable
	}))
	assert.NoError(t, client.Ping(context.Background()))

	unreachable := NewClient(&config.ProviderConfig{
		BaseURL: "http://127.0.0.1:1", Timeout: time.Second, Timezone: "UTC",
	}, zap.NewNop())
	assert.Error(t, unreachable.Ping(context.Background()))
}
