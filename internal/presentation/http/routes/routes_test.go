package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/application/cart"
	"github.com/sangkips/tillpoint/internal/application/service"
	"github.com/sangkips/tillpoint/internal/config"
	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/infrastructure/changefeed"
	"github.com/sangkips/tillpoint/internal/infrastructure/memory"
	"github.com/sangkips/tillpoint/internal/presentation/http/handler"
	"github.com/sangkips/tillpoint/internal/presentation/ws"
	"github.com/sangkips/tillpoint/pkg/printer"
	"github.com/sangkips/tillpoint/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type hostSpy struct {
	mu   sync.Mutex
	docs []*printer.Document
}

func (h *hostSpy) Print(_ context.Context, doc *printer.Document) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.docs = append(h.docs, doc)
	return nil
}

func (h *hostSpy) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.docs)
}

type testServer struct {
	router  *gin.Engine
	jwt     *utils.JWTManager
	host    *hostSpy
	product entity.Product
}

type envelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Step     string          `json:"step"`
	Critical bool            `json:"critical"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	loc := time.UTC

	store := memory.NewStore(loc)
	tea := &entity.Product{Name: "Tea", Price: decimal.NewFromInt(20), Profit: decimal.NewFromInt(5)}
	if err := store.Products().Create(context.Background(), tea); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	carts := cart.NewRegistry()
	feed := changefeed.NewLocalFeed()
	book := service.NewInvoiceBook(store.Orders(), loc, 7, log)
	billing := service.NewBillingService(store.Orders(), store.Lines(), store.Products(),
		carts, book, feed, service.NewOrphanRegistry(), loc, log)
	products := service.NewProductService(store.Products(), log)
	host := &hostSpy{}
	settings := service.NewSettingsService(store.Settings(), entity.ShopSettings{Name: "Corner Shop"}, log)
	printerService := service.NewPrinterService(printer.NewDispatcher(nil, host, log), billing,
		settings, loc, service.PrinterSettings{Type: "none"}, log)

	cfg := &config.Config{
		App:       config.AppConfig{Name: "tillpoint"},
		RateLimit: config.RateLimitConfig{Requests: 1000, Duration: 1},
	}
	jwt := utils.NewJWTManager("routes-test-secret", time.Hour)

	router := Setup(&Handlers{
		Health:   handler.NewHealthHandler(cfg.App.Name, billing, printerService),
		Product:  handler.NewProductHandler(products),
		Cart:     handler.NewCartHandler(service.NewCartService(carts, products, log), billing),
		Invoice:  handler.NewInvoiceHandler(billing, printerService),
		Printer:  handler.NewPrinterHandler(printerService),
		Settings: handler.NewSettingsHandler(settings),
		WS:       handler.NewWSHandler(ws.NewHub(log), billing, nil),
	}, &Deps{
		JWTManager:      jwt,
		Cfg:             cfg,
		IdempotencyRepo: store.Idempotency(),
		Logger:          log,
	})

	return &testServer{router: router, jwt: jwt, host: host, product: *tea}
}

func (s *testServer) token(t *testing.T, roles ...string) string {
	t.Helper()
	tok, err := s.jwt.GenerateAccessToken("till-1", roles)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, want, w.Body.String())
	}
}

// billOne creates a cart holding qty of the seeded product and bills it.
func (s *testServer) billOne(t *testing.T, token string, qty int) service.BillResult {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/carts", token, nil)
	expectStatus(t, w, http.StatusCreated)
	var c cart.Cart
	decode(t, w, &c)

	w = s.do(t, http.MethodPost, "/api/v1/carts/"+c.ID.String()+"/items", token,
		map[string]any{"product_id": s.product.ID, "quantity": qty})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodPost, "/api/v1/carts/"+c.ID.String()+"/bill", token, nil)
	expectStatus(t, w, http.StatusCreated)
	var result service.BillResult
	decode(t, w, &result)
	return result
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodGet, "/api/v1/products", "", nil), http.StatusUnauthorized)
	expectStatus(t, s.do(t, http.MethodGet, "/api/v1/products", "not-a-token", nil), http.StatusUnauthorized)
	expectStatus(t, s.do(t, http.MethodGet, "/api/v1/products", s.token(t, utils.RoleCashier), nil), http.StatusOK)
}

func TestOnlyManagersCreateProducts(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"name": "Bread", "price": "55.00", "profit": "10.00"}

	w := s.do(t, http.MethodPost, "/api/v1/products", s.token(t, utils.RoleCashier), body)
	expectStatus(t, w, http.StatusForbidden)

	w = s.do(t, http.MethodPost, "/api/v1/products", s.token(t, utils.RoleManager), body)
	expectStatus(t, w, http.StatusCreated)
	var p entity.Product
	decode(t, w, &p)
	if p.ID == 0 || p.Name != "Bread" || !p.Price.Equal(decimal.NewFromInt(55)) {
		t.Errorf("created product = %+v", p)
	}
}

func TestBillingNumbersInvoicesPerDay(t *testing.T) {
	s := newTestServer(t)
	cashier := s.token(t, utils.RoleCashier)

	first := s.billOne(t, cashier, 1)
	second := s.billOne(t, cashier, 2)
	if first.Invoice.Ordinal != 1 || second.Invoice.Ordinal != 2 {
		t.Fatalf("ordinals = %d, %d, want 1, 2", first.Invoice.Ordinal, second.Invoice.Ordinal)
	}
	if !second.Invoice.TotalAmount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("total = %s, want 40", second.Invoice.TotalAmount)
	}

	w := s.do(t, http.MethodGet, "/api/v1/invoices/next-number", cashier, nil)
	expectStatus(t, w, http.StatusOK)
	var next struct {
		Next int `json:"next"`
	}
	decode(t, w, &next)
	if next.Next != 3 {
		t.Errorf("next number = %d, want 3", next.Next)
	}

	// deleting needs a manager, and renumbers the rest of the day
	path := fmt.Sprintf("/api/v1/invoices/%d", first.Invoice.ID)
	expectStatus(t, s.do(t, http.MethodDelete, path, cashier, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodDelete, path, s.token(t, utils.RoleManager), nil), http.StatusNoContent)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d", second.Invoice.ID), cashier, nil)
	expectStatus(t, w, http.StatusOK)
	var inv entity.Invoice
	decode(t, w, &inv)
	if inv.Ordinal != 1 {
		t.Errorf("ordinal after delete = %d, want 1", inv.Ordinal)
	}

	expectStatus(t, s.do(t, http.MethodGet, path, cashier, nil), http.StatusNotFound)
}

func TestBillingEmptyCartIsRejected(t *testing.T) {
	s := newTestServer(t)
	cashier := s.token(t, utils.RoleCashier)

	w := s.do(t, http.MethodPost, "/api/v1/carts", cashier, nil)
	var c cart.Cart
	decode(t, w, &c)

	w = s.do(t, http.MethodPost, "/api/v1/carts/"+c.ID.String()+"/bill", cashier, nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestBillReplaysIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	cashier := s.token(t, utils.RoleCashier)

	w := s.do(t, http.MethodPost, "/api/v1/carts", cashier, nil)
	var c cart.Cart
	decode(t, w, &c)
	s.do(t, http.MethodPost, "/api/v1/carts/"+c.ID.String()+"/items", cashier,
		map[string]any{"product_id": s.product.ID, "quantity": 1})

	billPath := "/api/v1/carts/" + c.ID.String() + "/bill"
	w1 := s.do(t, http.MethodPost, billPath, cashier, nil, "Idempotency-Key", "bill-42")
	expectStatus(t, w1, http.StatusCreated)

	// the cart is retired, so only a replay can answer 201 here
	w2 := s.do(t, http.MethodPost, billPath, cashier, nil, "Idempotency-Key", "bill-42")
	expectStatus(t, w2, http.StatusCreated)
	if w2.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("second bill was not replayed")
	}
	if w1.Body.String() != w2.Body.String() {
		t.Errorf("replayed body differs:\n%s\n%s", w1.Body.String(), w2.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/v1/invoices", cashier, nil)
	expectStatus(t, w, http.StatusOK)
	var page struct {
		Items []entity.Invoice `json:"items"`
	}
	decode(t, w, &page)
	if len(page.Items) != 1 {
		t.Errorf("invoices = %d, want 1", len(page.Items))
	}
}

func TestEditInvoiceKeepsNumber(t *testing.T) {
	s := newTestServer(t)
	cashier := s.token(t, utils.RoleCashier)

	s.billOne(t, cashier, 1)
	target := s.billOne(t, cashier, 1)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/edit", target.Invoice.ID), cashier, nil)
	expectStatus(t, w, http.StatusCreated)
	var c cart.Cart
	decode(t, w, &c)
	if c.EditingOrderID == nil || *c.EditingOrderID != target.Invoice.ID {
		t.Fatalf("editing order = %v, want %d", c.EditingOrderID, target.Invoice.ID)
	}

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/carts/%s/items/%d", c.ID, s.product.ID), cashier,
		map[string]any{"quantity": 3})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodPost, "/api/v1/carts/"+c.ID.String()+"/bill", cashier, nil)
	expectStatus(t, w, http.StatusCreated)
	var result service.BillResult
	decode(t, w, &result)
	if result.Invoice.ID != target.Invoice.ID || result.Invoice.Ordinal != 2 {
		t.Errorf("edited invoice = #%d ordinal %d, want #%d ordinal 2",
			result.Invoice.ID, result.Invoice.Ordinal, target.Invoice.ID)
	}
	if !result.Invoice.TotalAmount.Equal(decimal.NewFromInt(60)) {
		t.Errorf("total = %s, want 60", result.Invoice.TotalAmount)
	}
}

func TestPrintReceiptFallsBackToHostForUntrustedCaller(t *testing.T) {
	s := newTestServer(t)
	cashier := s.token(t, utils.RoleCashier)
	billed := s.billOne(t, cashier, 1)

	w := s.do(t, http.MethodPost, "/api/v1/printer/receipt", cashier,
		map[string]any{"order_id": billed.Invoice.ID, "direct": true})
	expectStatus(t, w, http.StatusOK)
	var result service.PrintResult
	decode(t, w, &result)
	if result.Channel != printer.ChannelHost || result.Ordinal != 1 {
		t.Errorf("print result = %+v", result)
	}
	if s.host.count() != 1 {
		t.Errorf("host printed %d documents, want 1", s.host.count())
	}
}

func TestPrintReceiptUnknownInvoice(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/printer/receipt", s.token(t, utils.RoleCashier),
		map[string]any{"order_id": 999})
	expectStatus(t, w, http.StatusNotFound)
	if s.host.count() != 0 {
		t.Error("nothing should be printed for a missing invoice")
	}
}

func TestReceiptHTML(t *testing.T) {
	s := newTestServer(t)
	cashier := s.token(t, utils.RoleCashier)
	billed := s.billOne(t, cashier, 2)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d/receipt.html", billed.Invoice.ID), cashier, nil)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Corner Shop") {
		t.Error("receipt page is missing the shop name")
	}
}

func TestSettingsUpdateChangesReceiptHeader(t *testing.T) {
	s := newTestServer(t)
	cashier := s.token(t, utils.RoleCashier)
	body := map[string]any{"name": "Mama Mboga Stores", "footer": "Karibu tena"}

	expectStatus(t, s.do(t, http.MethodPut, "/api/v1/settings", cashier, body), http.StatusForbidden)
	w := s.do(t, http.MethodPut, "/api/v1/settings", s.token(t, utils.RoleManager), body)
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/api/v1/settings", cashier, nil)
	expectStatus(t, w, http.StatusOK)
	var settings entity.ShopSettings
	decode(t, w, &settings)
	if settings.Name != "Mama Mboga Stores" {
		t.Fatalf("settings = %+v", settings)
	}

	billed := s.billOne(t, cashier, 1)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d/receipt.html", billed.Invoice.ID), cashier, nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Mama Mboga Stores") || !strings.Contains(w.Body.String(), "Karibu tena") {
		t.Error("receipt does not carry the updated settings")
	}
}
