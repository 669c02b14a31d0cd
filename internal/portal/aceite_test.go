package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ConectCRM/api-portal/internal/models"
)

// servidorPortal monta um backend completo de portal para os testes do
// fluxo, devolvendo a proposta informada e aceitando as escritas.
func servidorPortal(t *testing.T, p models.PropostaPublica) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/portal/proposta/"+p.Token, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("/api/portal/proposta/"+p.Token+"/view", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/portal/proposta/"+p.Token+"/acao", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/api/portal/proposta/"+p.Token+"/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/propostas/"+p.Token+"/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/portal/ip", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"ip": "10.0.0.1"})
	})
	return httptest.NewServer(mux)
}

func TestFluxoCompletoDeAceite(t *testing.T) {
	p := propostaDeTeste("abc123")
	srv := servidorPortal(t, p)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Ambiente: AmbienteProducao})
	fluxo := NovoFluxo(c, "abc123", "")

	if err := fluxo.Carregar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fluxo.Estado() != EstadoPronto {
		t.Fatalf("expected ready, got %q", fluxo.Estado())
	}
	// primeira visualização avança otimisticamente
	if fluxo.StatusExibido() != models.StatusVisualizada {
		t.Fatalf("expected visualizada, got %q", fluxo.StatusExibido())
	}
	if !fluxo.PodeDecidir() {
		t.Fatalf("expected decision enabled, blocked by %q", fluxo.MotivoBloqueio())
	}

	if err := fluxo.Aceitar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fluxo.Estado() != EstadoAceito {
		t.Fatalf("expected accepted, got %q", fluxo.Estado())
	}
	if fluxo.StatusExibido() != models.StatusAprovada {
		t.Fatalf("expected aprovada, got %q", fluxo.StatusExibido())
	}
	if fluxo.StatusServidor() != models.StatusAprovada {
		t.Fatalf("expected server-confirmed aprovada, got %q", fluxo.StatusServidor())
	}

	// segunda decisão é bloqueada
	if err := fluxo.Aceitar(context.Background()); err != ErrDecisaoBloqueada {
		t.Fatalf("expected ErrDecisaoBloqueada, got %v", err)
	}
}

func TestFluxoDemonstracaoSemBackend(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close()

	cache := novoFakeCache()
	c := NewClient(Config{BaseURL: srv.URL, Ambiente: AmbienteDesenvolvimento, Cache: cache})
	fluxo := NovoFluxo(c, "DEMO123", "")

	if err := fluxo.Carregar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fluxo.Estado() != EstadoPronto {
		t.Fatalf("expected ready, got %q", fluxo.Estado())
	}
	if fluxo.Proposta().ValorTotal != 3000.0 {
		t.Fatalf("expected simulated total 3000.0, got %v", fluxo.Proposta().ValorTotal)
	}
	if !fluxo.PodeDecidir() {
		t.Fatalf("expected decision enabled, blocked by %q", fluxo.MotivoBloqueio())
	}

	if err := fluxo.Aceitar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fluxo.Estado() != EstadoAceito {
		t.Fatalf("expected accepted, got %q", fluxo.Estado())
	}
	// sem backend, o aceite fica apenas no espelho local
	if fluxo.StatusServidor() == models.StatusAprovada {
		t.Fatal("server status should not be confirmed without backend")
	}
	if fluxo.StatusExibido() != models.StatusAprovada {
		t.Fatalf("expected optimistic aprovada, got %q", fluxo.StatusExibido())
	}
	if len(cache.pendencias) != 1 {
		t.Fatalf("expected 1 pendência, got %d", len(cache.pendencias))
	}
}

func TestFluxoPropostaExpiradaNaChegada(t *testing.T) {
	p := propostaDeTeste("abc123")
	p.DataValidade = time.Now().Add(-48 * time.Hour)
	srv := servidorPortal(t, p)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Ambiente: AmbienteProducao})
	fluxo := NovoFluxo(c, "abc123", "")

	if err := fluxo.Carregar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fluxo.StatusExibido() != models.StatusExpirada {
		t.Fatalf("expected expirada on arrival, got %q", fluxo.StatusExibido())
	}
	if fluxo.PodeDecidir() {
		t.Fatal("expected decision blocked for expired proposta")
	}
	if fluxo.MotivoBloqueio() != "Proposta expirada" {
		t.Fatalf("unexpected motivo: %q", fluxo.MotivoBloqueio())
	}
	if err := fluxo.Aceitar(context.Background()); err != ErrDecisaoBloqueada {
		t.Fatalf("expected ErrDecisaoBloqueada, got %v", err)
	}
}

func TestFluxoPropostaNaoEncontrada(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Ambiente: AmbienteProducao})
	fluxo := NovoFluxo(c, "nao-existe", "")

	if err := fluxo.Carregar(context.Background()); err != nil {
		t.Fatalf("404 should not be an error: %v", err)
	}
	if fluxo.Estado() != EstadoErro {
		t.Fatalf("expected error state, got %q", fluxo.Estado())
	}
	if fluxo.Mensagem() != "Proposta não encontrada ou link inválido." {
		t.Fatalf("unexpected mensagem: %q", fluxo.Mensagem())
	}
}

func TestFluxoErroDeCarregamento(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Ambiente: AmbienteProducao})
	fluxo := NovoFluxo(c, "abc123", "")

	if err := fluxo.Carregar(context.Background()); err == nil {
		t.Fatal("expected error in producao")
	}
	if fluxo.Estado() != EstadoErro {
		t.Fatalf("expected error state, got %q", fluxo.Estado())
	}
	if fluxo.Mensagem() != "Erro ao carregar a proposta. Tente novamente." {
		t.Fatalf("unexpected mensagem: %q", fluxo.Mensagem())
	}
}

func TestFluxoRejeicaoExigeConfirmacao(t *testing.T) {
	p := propostaDeTeste("abc123")
	srv := servidorPortal(t, p)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Ambiente: AmbienteProducao})
	fluxo := NovoFluxo(c, "abc123", "")
	if err := fluxo.Carregar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// confirmar sem iniciar
	if err := fluxo.ConfirmarRejeicao(context.Background()); err != ErrRejeicaoSemConfirmacao {
		t.Fatalf("expected ErrRejeicaoSemConfirmacao, got %v", err)
	}

	if err := fluxo.Rejeitar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fluxo.AguardandoConfirmacao() {
		t.Fatal("expected pending confirmation")
	}
	// iniciar não muda o status
	if fluxo.StatusExibido() != models.StatusVisualizada {
		t.Fatalf("status should not change before confirmation, got %q", fluxo.StatusExibido())
	}

	fluxo.CancelarRejeicao()
	if fluxo.AguardandoConfirmacao() {
		t.Fatal("expected confirmation cancelled")
	}
	if err := fluxo.ConfirmarRejeicao(context.Background()); err != ErrRejeicaoSemConfirmacao {
		t.Fatalf("expected ErrRejeicaoSemConfirmacao after cancel, got %v", err)
	}

	if err := fluxo.Rejeitar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fluxo.ConfirmarRejeicao(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fluxo.Estado() != EstadoRejeitado {
		t.Fatalf("expected rejected, got %q", fluxo.Estado())
	}
	if fluxo.StatusExibido() != models.StatusRejeitada {
		t.Fatalf("expected rejeitada, got %q", fluxo.StatusExibido())
	}
}

func TestFluxoFalhaTotalVoltaParaPronto(t *testing.T) {
	p := propostaDeTeste("abc123")
	srv := servidorPortal(t, p)

	// sem cache local: a falha do portal não tem para onde cair
	c := NewClient(Config{BaseURL: srv.URL, Ambiente: AmbienteProducao})
	fluxo := NovoFluxo(c, "abc123", "")
	if err := fluxo.Carregar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	srv.Close()
	if err := fluxo.Aceitar(context.Background()); err == nil {
		t.Fatal("expected error on total failure")
	}
	if fluxo.Estado() != EstadoPronto {
		t.Fatalf("expected back to ready, got %q", fluxo.Estado())
	}
	if fluxo.Mensagem() != "Erro ao atualizar a proposta. Tente novamente." {
		t.Fatalf("unexpected mensagem: %q", fluxo.Mensagem())
	}
	if fluxo.StatusExibido() != models.StatusVisualizada {
		t.Fatalf("status should be unchanged, got %q", fluxo.StatusExibido())
	}
}
