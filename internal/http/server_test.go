package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kharcha/internal/cache"
	"kharcha/internal/core"
	"kharcha/internal/ingest"
	"kharcha/internal/storage/memory"
)

var testNow = time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(store *memory.Store) *Server {
	return &Server{
		ingester:      ingest.NewService(store),
		store:         store,
		overviewCache: cache.NewLRUCache[overviewResponse](4, 30*time.Second),
		now:           func() time.Time { return testNow },
	}
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestCreateTransaction(t *testing.T) {
	store := memory.New()
	s := newTestServer(store)

	body := `{"amount": 250, "date": "2026-02-07", "merchant": "Starbucks Coffee"}`

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: status %d body %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create: status %d body %s", rec.Code, rec.Body)
	}
	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Result != "duplicate" {
		t.Fatalf("result %q", resp.Result)
	}

	if store.Len() != 1 {
		t.Fatalf("store holds %d, want 1", store.Len())
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s := newTestServer(memory.New())

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"unknown field", `{"amnt": 5}`, http.StatusBadRequest},
		{"missing amount", `{"date": "2026-02-07"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"amount": 0, "date": "2026-02-07"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"amount": -10, "date": "2026-02-07"}`, http.StatusUnprocessableEntity},
		{"missing date", `{"amount": 10}`, http.StatusUnprocessableEntity},
		{"bad date format", `{"amount": 10, "date": "07.02.2026"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/transactions", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status %d want %d, body %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestForceCreateBypassesDuplicateCheck(t *testing.T) {
	store := memory.New()
	s := newTestServer(store)

	body := `{"amount": 250, "date": "2026-02-07", "merchant": "Cafe"}`
	if rec := doRequest(t, s, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
		t.Fatalf("seed: %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodPost, "/api/transactions/force", body); rec.Code != http.StatusCreated {
		t.Fatalf("force: %d", rec.Code)
	}
	if store.Len() != 2 {
		t.Fatalf("store holds %d, want 2", store.Len())
	}
}

func TestScanReceipt(t *testing.T) {
	store := memory.New()
	s := newTestServer(store)

	t.Run("parseable receipt is ingested", func(t *testing.T) {
		body := `{"text": "Order Receipt\nChai Point\nPayment Date\n07/02/2026\nPaid\n₹180.00"}`
		rec := doRequest(t, s, http.MethodPost, "/api/receipts", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status %d body %s", rec.Code, rec.Body)
		}
		var resp ingestResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Parsed == nil || resp.Parsed.Amount == nil || *resp.Parsed.Amount != 180 {
			t.Fatalf("parsed fields: %+v", resp.Parsed)
		}
		if resp.Parsed.Merchant == nil || *resp.Parsed.Merchant != "Chai Point" {
			t.Fatalf("merchant: %v", resp.Parsed.Merchant)
		}
	})

	t.Run("unparseable text returns invalid with parsed fields", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/receipts", `{"text": "hello there"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status %d", rec.Code)
		}
		var resp ingestResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Result != "invalid" || resp.Parsed == nil {
			t.Fatalf("resp: %+v", resp)
		}
	})

	t.Run("empty text is processed, missing text is not", func(t *testing.T) {
		if rec := doRequest(t, s, http.MethodPost, "/api/receipts", `{"text": ""}`); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("empty text: status %d", rec.Code)
		}
		if rec := doRequest(t, s, http.MethodPost, "/api/receipts", `{}`); rec.Code != http.StatusBadRequest {
			t.Fatalf("missing text: status %d", rec.Code)
		}
	})
}

func TestDeleteTransaction(t *testing.T) {
	store := memory.New()
	s := newTestServer(store)

	if rec := doRequest(t, s, http.MethodPost, "/api/transactions", `{"amount": 10, "date": "2026-02-07"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed: %d", rec.Code)
	}
	txns, _ := store.ListTransactions(context.Background())
	id := txns[0].ID.String()

	if rec := doRequest(t, s, http.MethodDelete, "/api/transactions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/api/transactions/"+id, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("delete again: %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/api/transactions/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}

func TestOverview(t *testing.T) {
	store := memory.New()
	s := newTestServer(store)

	t.Run("empty store no profile", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/overview", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		var resp overviewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Profile != nil || resp.CurrentMonthTotal != 0 {
			t.Fatalf("resp: %+v", resp)
		}
		if len(resp.TrailingMonths) != 3 {
			t.Fatalf("trailing months: %d", len(resp.TrailingMonths))
		}
	})

	t.Run("totals reflect writes despite caching", func(t *testing.T) {
		if rec := doRequest(t, s, http.MethodPut, "/api/profile", `{"name": "Asha", "monthly_allowance": 1000}`); rec.Code != http.StatusOK {
			t.Fatalf("profile: %d", rec.Code)
		}
		if rec := doRequest(t, s, http.MethodPost, "/api/transactions", `{"amount": 100, "date": "2026-02-03", "merchant": "A"}`); rec.Code != http.StatusCreated {
			t.Fatalf("tx this month: %d", rec.Code)
		}
		if rec := doRequest(t, s, http.MethodPost, "/api/transactions", `{"amount": 50, "date": "2026-01-28", "merchant": "B"}`); rec.Code != http.StatusCreated {
			t.Fatalf("tx last month: %d", rec.Code)
		}

		rec := doRequest(t, s, http.MethodGet, "/api/overview", "")
		var resp overviewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.CurrentMonthTotal != 100 {
			t.Fatalf("current month total %v", resp.CurrentMonthTotal)
		}
		if resp.Profile == nil || resp.Profile.Name != "Asha" {
			t.Fatalf("profile: %+v", resp.Profile)
		}
		if resp.Remaining == nil || *resp.Remaining != 900 {
			t.Fatalf("remaining: %v", resp.Remaining)
		}
		if resp.Progress == nil || *resp.Progress != 0.1 {
			t.Fatalf("progress: %v", resp.Progress)
		}
		wantMonths := []core.MonthlySpend{{Month: "Dec", Total: 0}, {Month: "Jan", Total: 50}, {Month: "Feb", Total: 100}}
		for i, want := range wantMonths {
			if resp.TrailingMonths[i] != want {
				t.Fatalf("month %d = %+v, want %+v", i, resp.TrailingMonths[i], want)
			}
		}

		// A new write purges the cache; the next overview sees it.
		if rec := doRequest(t, s, http.MethodPost, "/api/transactions", `{"amount": 25, "date": "2026-02-10", "merchant": "C"}`); rec.Code != http.StatusCreated {
			t.Fatalf("extra tx: %d", rec.Code)
		}
		rec = doRequest(t, s, http.MethodGet, "/api/overview", "")
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.CurrentMonthTotal != 125 {
			t.Fatalf("current month total after write %v", resp.CurrentMonthTotal)
		}
	})
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(memory.New())

	if rec := doRequest(t, s, http.MethodGet, "/api/profile", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get before create: %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodPut, "/api/profile", `{"name": "", "monthly_allowance": 100}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank name: %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodPut, "/api/profile", `{"name": "Asha", "monthly_allowance": -5}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative allowance: %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodPut, "/api/profile", `{"name": "Asha", "monthly_allowance": 25000}`); rec.Code != http.StatusOK {
		t.Fatalf("save: %d", rec.Code)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/profile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "Asha" || resp.MonthlyAllowance != 25000 {
		t.Fatalf("profile: %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(memory.New())
	if rec := doRequest(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
}
