package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/models"
	"github.com/markjakearzadon/apostas-gobackend/internal/services"
)

type stubProcessor struct {
	mu       sync.Mutex
	payments map[string]*services.ProcessorPayment
	gets     int
	creates  int
	getErr   error
}

func (p *stubProcessor) CreatePreference(_ context.Context, _ services.PreferenceRequest) (*services.PreferenceResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	return &services.PreferenceResponse{ID: "pref-1", InitPoint: "https://mp/checkout/pref-1"}, nil
}

func (p *stubProcessor) CreatePixPayment(_ context.Context, _ services.PixPaymentRequest, _ string) (*services.ProcessorPayment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	out := &services.ProcessorPayment{ID: 42, Status: "pending"}
	out.PointOfInteraction.TransactionData.QRCode = "000201"
	out.PointOfInteraction.TransactionData.QRCodeBase64 = "iVBOR"
	return out, nil
}

func (p *stubProcessor) GetPayment(_ context.Context, id string) (*services.ProcessorPayment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets++
	if p.getErr != nil {
		return nil, p.getErr
	}
	pay, ok := p.payments[id]
	if !ok {
		return nil, errors.New("mercado pago error: status 404")
	}
	return pay, nil
}

type stubStore struct {
	mu      sync.Mutex
	bets    map[string]models.Bet
	pending map[string]models.PendingBet
	queries int
}

func newStubStore() *stubStore {
	return &stubStore{bets: map[string]models.Bet{}, pending: map[string]models.PendingBet{}}
}

func (s *stubStore) CreateConfirmed(_ context.Context, b *models.Bet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bets[b.ID]; ok {
		return false, nil
	}
	s.bets[b.ID] = *b
	return true, nil
}

func (s *stubStore) ExistsConfirmed(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bets[id]
	return ok, nil
}

func (s *stubStore) FindByPhone(_ context.Context, phone string) ([]models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	var out []models.Bet
	for _, b := range s.bets {
		if b.Phone == phone {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubStore) StagePending(_ context.Context, p *models.PendingBet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.PaymentID] = *p
	return nil
}

func (s *stubStore) GetPending(_ context.Context, id string) (*models.PendingBet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &p, nil
}

func (s *stubStore) DeletePending(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	return nil
}

func approved(t *testing.T, id int64, amount float64) *services.ProcessorPayment {
	t.Helper()
	ref, err := services.EncodeReference(services.Reference{Bet: "Flamengo 2x1", Phone: "5511999999999"})
	require.NoError(t, err)
	return &services.ProcessorPayment{ID: id, Status: "approved", TransactionAmount: amount, ExternalReference: ref}
}

type testEnv struct {
	proc   *stubProcessor
	store  *stubStore
	router *mux.Router
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	proc := &stubProcessor{payments: map[string]*services.ProcessorPayment{}}
	store := newStubStore()
	svc := services.NewPaymentService(proc, store, nil, services.PaymentConfig{PublicURL: "https://apostas.example.com"}, zap.NewNop())

	ph := NewPaymentHandler(svc, secret, zap.NewNop())
	bh := NewBetHandler(svc, zap.NewNop())

	r := mux.NewRouter()
	r.HandleFunc("/criar-pagamento", ph.CreateCheckout).Methods(http.MethodPost)
	r.HandleFunc("/gerar-pagamento", ph.CreatePix).Methods(http.MethodPost)
	r.HandleFunc("/webhook", ph.Webhook).Methods(http.MethodPost)
	r.HandleFunc("/notificacao", ph.Webhook).Methods(http.MethodPost)
	r.HandleFunc("/status-pagamento/{paymentId}", bh.PaymentStatus).Methods(http.MethodGet)
	r.HandleFunc("/consultar-apostas/{telefone}", bh.ListByPhone).Methods(http.MethodGet)
	return &testEnv{proc: proc, store: store, router: r}
}

func (f *testEnv) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateCheckoutHandler(t *testing.T) {
	f := newTestEnv(t, "")

	rec := f.do(http.MethodPost, "/criar-pagamento", `{"aposta":"Flamengo 2x1","telefone":"5511999999999","valor":"10.50"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.CheckoutPayment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "https://mp/checkout/pref-1", out.InitPoint)
}

func TestCreateHandlersRejectInvalidInput(t *testing.T) {
	f := newTestEnv(t, "")
	for _, path := range []string{"/criar-pagamento", "/gerar-pagamento"} {
		for _, body := range []string{
			`{"telefone":"5511999999999","valor":10}`,
			`{"aposta":"X","telefone":"5511999999999","valor":-1}`,
			`{"aposta":"X","telefone":"123","valor":10}`,
			`not json`,
		} {
			rec := f.do(http.MethodPost, path, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", path, body)
			assert.Contains(t, rec.Body.String(), `"erro"`)
		}
	}
	assert.Zero(t, f.proc.creates)
}

func TestCreatePixHandlerStagesPendingBet(t *testing.T) {
	f := newTestEnv(t, "")

	rec := f.do(http.MethodPost, "/gerar-pagamento", `{"aposta":"X","telefone":"5511999999999","valor":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.PixPayment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "42", out.PaymentID)
	assert.Equal(t, "000201", out.QRCode)
	assert.Contains(t, f.store.pending, "42")
}

func TestWebhookApprovedTwiceRecordsOneBet(t *testing.T) {
	f := newTestEnv(t, "")
	f.proc.payments["123"] = approved(t, 123, 10)

	for i := 0; i < 2; i++ {
		rec := f.do(http.MethodPost, "/notificacao?id=123&type=payment", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	}
	assert.Len(t, f.store.bets, 1)
	assert.Equal(t, models.BetStatusPaid, f.store.bets["123"].Status)
}

func TestWebhookDedupsOnFetchedPaymentID(t *testing.T) {
	f := newTestEnv(t, "")
	pay := approved(t, 999, 10)
	f.proc.payments["999"] = pay
	f.proc.payments["0999"] = pay

	for _, target := range []string{
		"/notificacao?id=999&type=payment",
		"/notificacao?id=0999&type=payment",
		"/notificacao?id=999%3Fa%3D1&type=payment",
		"/notificacao?id=999%23x&type=payment",
	} {
		rec := f.do(http.MethodPost, target, "")
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
	for _, body := range []string{
		`{"type":"payment","data":{"id":"0999"}}`,
		`{"type":"payment","data":{"id":"999?a=2"}}`,
	} {
		rec := f.do(http.MethodPost, "/webhook", body)
		assert.Equal(t, http.StatusOK, rec.Code, body)
	}

	require.Len(t, f.store.bets, 1)
	assert.Equal(t, "999", f.store.bets["999"].PaymentID)
	assert.Equal(t, 3, f.proc.gets)
}

func TestWebhookReadsJSONBody(t *testing.T) {
	f := newTestEnv(t, "")
	f.proc.payments["555"] = approved(t, 555, 20)

	rec := f.do(http.MethodPost, "/webhook", `{"action":"payment.updated","type":"payment","data":{"id":555}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, f.store.bets, "555")
}

func TestWebhookIgnoresBodyStatus(t *testing.T) {
	f := newTestEnv(t, "")
	pending := approved(t, 777, 10)
	pending.Status = "pending"
	f.proc.payments["777"] = pending

	rec := f.do(http.MethodPost, "/webhook", `{"type":"payment","data":{"id":"777"},"status":"approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.store.bets)
}

func TestWebhookNonPaymentTopicIsAcknowledged(t *testing.T) {
	f := newTestEnv(t, "")

	rec := f.do(http.MethodPost, "/webhook?topic=merchant_order&id=9", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.proc.gets)
}

func TestWebhookFetchFailureAsksForRedelivery(t *testing.T) {
	f := newTestEnv(t, "")
	f.proc.getErr = errors.New("connection reset")

	rec := f.do(http.MethodPost, "/notificacao?id=1&type=payment", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, f.store.bets)
}

func TestWebhookSignature(t *testing.T) {
	f := newTestEnv(t, "s3cret")
	f.proc.payments["123"] = approved(t, 123, 10)

	rec := f.do(http.MethodPost, "/webhook?data.id=123&type=payment", "",
		"x-request-id", "req-1", "x-signature", "ts=1,v1=00")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.proc.gets)

	rec = f.do(http.MethodPost, "/webhook?data.id=123&type=payment", "",
		"x-request-id", "req-1", "x-signature", signedHeader("s3cret", "id:123;request-id:req-1;ts:1;", "1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, f.store.bets, "123")
}

func signedHeader(secret, manifest, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return "ts=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentStatusHandler(t *testing.T) {
	f := newTestEnv(t, "")

	rec := f.do(http.MethodGet, "/status-pagamento/123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"paymentId":"123","status":"pending"}`, rec.Body.String())

	f.proc.payments["123"] = approved(t, 123, 10)
	f.do(http.MethodPost, "/notificacao?id=123&type=payment", "")

	rec = f.do(http.MethodGet, "/status-pagamento/123", "")
	assert.JSONEq(t, `{"paymentId":"123","status":"approved"}`, rec.Body.String())
}

func TestListByPhoneHandler(t *testing.T) {
	f := newTestEnv(t, "")

	rec := f.do(http.MethodGet, "/consultar-apostas/5511999999999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.proc.payments["123"] = approved(t, 123, 15.75)
	f.do(http.MethodPost, "/notificacao?id=123&type=payment", "")

	rec = f.do(http.MethodGet, "/consultar-apostas/5511999999999", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bets []models.Bet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bets))
	require.Len(t, bets, 1)
	assert.Equal(t, 15.75, bets[0].Amount)
	assert.Equal(t, "Flamengo 2x1", bets[0].Bet)
}

func TestListByPhoneRejectsShortPhone(t *testing.T) {
	f := newTestEnv(t, "")
	queriesBefore := f.store.queries

	rec := f.do(http.MethodGet, "/consultar-apostas/1199999", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, queriesBefore, f.store.queries)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(services.ErrInvalidRequest))
	assert.Equal(t, http.StatusNotFound, statusFor(services.ErrNotFound))
	assert.Equal(t, http.StatusBadGateway, statusFor(services.ErrUpstream))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(services.ErrDisabled))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
