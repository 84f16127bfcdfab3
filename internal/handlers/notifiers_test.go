package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/services"
)

func TestFixtureHandlerList(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "71", r.URL.Query().Get("league"))
		_, _ = w.Write([]byte(`{"errors":[],"response":[{"fixture":{"id":1,"date":"2025-04-12T19:00:00-03:00","status":{"short":"FT"}},
			"league":{"name":"Serie A"},"teams":{"home":{"name":"Palmeiras"},"away":{"name":"Santos"}},"goals":{"home":2,"away":0}}]}`))
	}))
	defer upstream.Close()

	h := NewFixtureHandler(services.NewFixtureService("key", upstream.URL, nil, time.Minute, zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/jogos?league=71&season=2025", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"home":"Palmeiras"`)
	assert.Contains(t, rec.Body.String(), `"home_goals":2`)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/jogos?league=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFixtureHandlerUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	h := NewFixtureHandler(services.NewFixtureService("key", upstream.URL, nil, time.Minute, zap.NewNop()), zap.NewNop())
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/jogos?date=2025-04-12", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestWhatsAppHandlerSend(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer upstream.Close()

	h := NewWhatsAppHandler(services.NewWhatsAppService("tok", "1234", upstream.URL, zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Send(rec, httptest.NewRequest(http.MethodPost, "/enviar-whatsapp", strings.NewReader(`{"telefone":"5511999999999","mensagem":"Aposta confirmada"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message_id":"wamid.1","telefone":"5511999999999"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Send(rec, httptest.NewRequest(http.MethodPost, "/enviar-whatsapp", strings.NewReader(`{"telefone":"5511999999999"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWhatsAppHandlerDisabled(t *testing.T) {
	h := NewWhatsAppHandler(services.NewWhatsAppService("", "", "http://127.0.0.1:1", zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Send(rec, httptest.NewRequest(http.MethodPost, "/enviar-whatsapp", strings.NewReader(`{"telefone":"5511999999999","mensagem":"oi"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
