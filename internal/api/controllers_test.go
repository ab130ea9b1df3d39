package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"execution-core/internal/asset"
	"execution-core/internal/balance"
	"execution-core/internal/events"
	"execution-core/internal/exec"
	"execution-core/internal/monitor"
	"execution-core/internal/pricing"
	"execution-core/internal/risk"
	"execution-core/internal/state"
	"execution-core/pkg/exchange/sim"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := sim.New(sim.DefaultFixture())
	gate, err := risk.NewInMemory(risk.DefaultConfig())
	if err != nil {
		t.Fatalf("risk gate: %v", err)
	}
	positions := state.NewManager(nil)
	bal := balance.NewManager(gw, 0, 0)
	bal.Sync()

	seq := exec.NewSequencer(exec.Deps{
		Gateway:   gw,
		Assets:    asset.NewRegistry(gw),
		Pricer:    pricing.NewEngine(gw, 0.01),
		Gate:      gate,
		Positions: positions,
		Balance:   bal,
	})

	hash, err := HashPassword("swordfish")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	return NewServer(Options{
		Bus:       events.NewBus(),
		Gate:      gate,
		Positions: positions,
		Balance:   bal,
		Sequencer: seq,
		Assets:    asset.NewRegistry(gw),
		Metrics:   monitor.NewMetrics(),
		JWTSecret: "test-secret",
		Operator:  Credential{Username: "ops", PasswordHash: hash},
		Meta:      SystemMeta{DryRun: true, Venue: "sim", Version: "test"},
	})
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, s *Server) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "ops",
		"password": "swordfish",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "ops",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/positions", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/positions", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", w.Code)
	}
}

func TestOpenAndCloseTradeRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/trade/open", token, map[string]any{
		"symbol":       "BTC",
		"market":       "PERP",
		"side":         "LONG",
		"type":         "MARKET",
		"notional_usd": 5000,
		"leverage":     5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("open status = %d, body %s", w.Code, w.Body.String())
	}
	var out exec.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if !out.Success || !out.Filled {
		t.Fatalf("outcome = %+v", out)
	}

	w = doJSON(t, s, http.MethodGet, "/api/positions", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("positions status = %d", w.Code)
	}
	var positions struct {
		Positions []struct {
			Symbol string  `json:"Symbol"`
			Qty    float64 `json:"Qty"`
		} `json:"positions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &positions); err != nil {
		t.Fatal(err)
	}
	if len(positions.Positions) != 1 || positions.Positions[0].Symbol != "BTC" {
		t.Fatalf("positions = %s", w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/trade/close", token, map[string]any{
		"symbol": "BTC",
		"market": "PERP",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("close status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestOpenTradeRiskDenied(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/trade/open", token, map[string]any{
		"symbol":       "BTC",
		"market":       "PERP",
		"side":         "LONG",
		"type":         "MARKET",
		"notional_usd": 50000, // above the default 10000 cap
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", w.Code, w.Body.String())
	}
	var out exec.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Success || out.Reason == "" {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestRiskConfigRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s)

	w := doJSON(t, s, http.MethodGet, "/api/risk", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get risk status = %d", w.Code)
	}

	cfg := risk.DefaultConfig()
	cfg.MaxLeverage = 3
	w = doJSON(t, s, http.MethodPut, "/api/risk/config", token, cfg)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	if got := s.Gate.Config().MaxLeverage; got != 3 {
		t.Errorf("max leverage = %d, want 3", got)
	}

	cfg.MaxLeverage = 0
	w = doJSON(t, s, http.MethodPut, "/api/risk/config", token, cfg)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid config status = %d, want 422", w.Code)
	}
	if got := s.Gate.Config().MaxLeverage; got != 3 {
		t.Errorf("config after rejected update = %d, want 3", got)
	}
}

func TestSystemStatusAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/system/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status["venue"] != "sim" || status["dry_run"] != true {
		t.Errorf("status = %v", status)
	}

	w = doJSON(t, s, http.MethodGet, "/api/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
}

func TestOrdersWithoutPersistence(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s)
	w := doJSON(t, s, http.MethodGet, "/api/orders", token, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 without a database", w.Code)
	}
}
