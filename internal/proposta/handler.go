package proposta

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ConectCRM/api-portal/internal/models"
	"github.com/ConectCRM/api-portal/internal/moeda"
	"github.com/ConectCRM/api-portal/internal/notificacao"
	"github.com/ConectCRM/api-portal/internal/token"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Handler encapsula DB e repositories do domínio de propostas.
type Handler struct {
	DB         *gorm.DB
	Repository Repository
	Tokens     token.Repository
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		DB:         db,
		Repository: NewRepository(),
		Tokens:     token.NewRepository(),
	}
}

type registrarViewRequest struct {
	IP            string `json:"ip"`
	UserAgent     string `json:"userAgent"`
	Timestamp     string `json:"timestamp"`
	ResolucaoTela string `json:"resolucaoTela"`
	Referrer      string `json:"referrer"`
}

type registrarAcaoRequest struct {
	Acao      string         `json:"acao"`
	Timestamp string         `json:"timestamp"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"userAgent"`
	Dados     map[string]any `json:"dados"`
}

type atualizarStatusRequest struct {
	Status      string `json:"status"`
	Observacoes string `json:"observacoes"`
	Fonte       string `json:"fonte"`
}

type reativarRequest struct {
	NovaDataValidade string `json:"novaDataValidade"`
}

// CriarProposta trata POST /propostas (rota interna): registra a
// proposta e já emite o token de acesso do portal.
func (h *Handler) CriarProposta(w http.ResponseWriter, r *http.Request) {
	var p models.PropostaPublica
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	if p.Numero == "" || p.Cliente.Nome == "" {
		http.Error(w, "Os campos 'numero' e 'cliente.nome' são obrigatórios", http.StatusBadRequest)
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.StatusEnviada
	}

	if err := h.Repository.Salvar(h.DB, &p); err != nil {
		http.Error(w, "Erro ao salvar proposta", http.StatusInternalServerError)
		return
	}

	t, err := h.Tokens.GerarParaProposta(h.DB, p.ID)
	if err != nil {
		http.Error(w, "Proposta criada, mas o token falhou", http.StatusInternalServerError)
		return
	}
	p.Token = t.Token

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}

// ObterPropostaPublica trata GET /api/portal/proposta/{identificador}.
// Resolve por token ou número, avança enviada → visualizada na primeira
// abertura e aplica a expiração por validade na resposta.
func (h *Handler) ObterPropostaPublica(w http.ResponseWriter, r *http.Request) {
	identificador := mux.Vars(r)["identificador"]

	p, err := h.Repository.BuscarPorIdentificador(h.DB, identificador)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrada) {
			http.Error(w, "Proposta não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao buscar proposta", http.StatusInternalServerError)
		return
	}

	agora := time.Now()
	if p.Status == models.StatusEnviada && !p.Expirada(agora) {
		if mudou, err := h.Repository.MarcarComoVisualizada(h.DB, p.ID); err == nil && mudou {
			p.Status = models.StatusVisualizada
			_ = h.Repository.RegistrarVisualizacao(h.DB, &VisualizacaoProposta{
				PropostaID: p.ID,
				IP:         ipDoRequest(r),
				UserAgent:  r.UserAgent(),
				Timestamp:  agora,
			})
		}
	}

	// expiração consultiva: não persiste, só reflete na resposta
	visao := *p
	visao.Status = p.StatusEfetivo(agora)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(visao)
}

// RegistrarView trata PUT /api/portal/proposta/{token}/view. Grava o
// log de visualização e, na primeira, avança o status.
func (h *Handler) RegistrarView(w http.ResponseWriter, r *http.Request) {
	identificador := mux.Vars(r)["token"]

	p, err := h.Repository.BuscarPorIdentificador(h.DB, identificador)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrada) {
			http.Error(w, "Proposta não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao buscar proposta", http.StatusInternalServerError)
		return
	}

	var req registrarViewRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.IP == "" {
		req.IP = ipDoRequest(r)
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	if err := h.Repository.RegistrarVisualizacao(h.DB, &VisualizacaoProposta{
		PropostaID:    p.ID,
		IP:            req.IP,
		UserAgent:     req.UserAgent,
		ResolucaoTela: req.ResolucaoTela,
		Referrer:      req.Referrer,
		Timestamp:     parseTimestamp(req.Timestamp),
	}); err != nil {
		http.Error(w, "Erro ao registrar visualização", http.StatusInternalServerError)
		return
	}

	mudou, _ := h.Repository.MarcarComoVisualizada(h.DB, p.ID)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"registrada":       true,
		"statusAtualizado": mudou,
	})
}

// RegistrarAcao trata POST /api/portal/proposta/{token}/acao.
func (h *Handler) RegistrarAcao(w http.ResponseWriter, r *http.Request) {
	identificador := mux.Vars(r)["token"]

	p, err := h.Repository.BuscarPorIdentificador(h.DB, identificador)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrada) {
			http.Error(w, "Proposta não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao buscar proposta", http.StatusInternalServerError)
		return
	}

	var req registrarAcaoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Acao) == "" {
		http.Error(w, "JSON inválido ou ação vazia", http.StatusBadRequest)
		return
	}

	if err := h.Repository.RegistrarAcao(h.DB, &AcaoProposta{
		PropostaID: p.ID,
		Acao:       req.Acao,
		IP:         req.IP,
		UserAgent:  req.UserAgent,
		Dados:      req.Dados,
		Timestamp:  parseTimestamp(req.Timestamp),
	}); err != nil {
		http.Error(w, "Erro ao registrar ação", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"registrada": true})
}

// AtualizarStatusPortal trata PUT /api/portal/proposta/{token}/status,
// o lado autoritativo da dupla escrita do cliente.
func (h *Handler) AtualizarStatusPortal(w http.ResponseWriter, r *http.Request) {
	h.atualizarStatus(w, r, mux.Vars(r)["token"], "portal")
}

// AtualizarStatusCRM trata PUT /propostas/{token}/status, a rota
// espelho do registro principal. Mesmas validações, fonte distinta.
func (h *Handler) AtualizarStatusCRM(w http.ResponseWriter, r *http.Request) {
	h.atualizarStatus(w, r, mux.Vars(r)["token"], "portal-cliente")
}

func (h *Handler) atualizarStatus(w http.ResponseWriter, r *http.Request, identificador, fontePadrao string) {
	p, err := h.Repository.BuscarPorIdentificador(h.DB, identificador)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrada) {
			http.Error(w, "Proposta não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao buscar proposta", http.StatusInternalServerError)
		return
	}

	var req atualizarStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		http.Error(w, "o campo 'status' é obrigatório", http.StatusBadRequest)
		return
	}
	fonte := req.Fonte
	if fonte == "" {
		fonte = fontePadrao
	}

	atualizada, err := h.Repository.AtualizarStatus(h.DB, p.ID, req.Status, fonte, req.Observacoes)
	if err != nil {
		switch {
		case errors.Is(err, ErrTransicaoInvalida):
			http.Error(w, "Transição de status não permitida", http.StatusConflict)
		case errors.Is(err, ErrPropostaExpirada):
			http.Error(w, "Proposta expirada", http.StatusConflict)
		default:
			http.Error(w, "Erro ao atualizar status", http.StatusInternalServerError)
		}
		return
	}

	// notificação é melhor esforço, nunca segura a resposta
	if req.Status == models.StatusAprovada || req.Status == models.StatusRejeitada {
		go notificacao.EnviarWebhookDecisao(atualizada.Numero, atualizada.Cliente.Nome, atualizada.ValorTotal, req.Status)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(atualizada)
}

// GerarToken trata POST /propostas/{id}/gerar-token (rota interna).
func (h *Handler) GerarToken(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.Repository.BuscarPorID(h.DB, id); err != nil {
		if errors.Is(err, ErrNaoEncontrada) {
			http.Error(w, "Proposta não encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Erro ao buscar proposta", http.StatusInternalServerError)
		return
	}

	t, err := h.Tokens.GerarParaProposta(h.DB, id)
	if err != nil {
		http.Error(w, "Erro ao gerar token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(t)
}

// ObterIP trata GET /api/portal/ip: eco do IP usado nos payloads de
// visualização.
func (h *Handler) ObterIP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"ip": ipDoRequest(r)})
}

// ObterEstatisticas trata GET /propostas/{id}/estatisticas (interna).
func (h *Handler) ObterEstatisticas(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	est, err := h.Repository.Estatisticas(h.DB, id)
	if err != nil {
		http.Error(w, "Erro ao obter estatísticas", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(est)
}

// ListarExpiradas trata GET /propostas/expiradas (interna).
func (h *Handler) ListarExpiradas(w http.ResponseWriter, r *http.Request) {
	lista, err := h.Repository.ListarExpiradas(h.DB, time.Now())
	if err != nil {
		http.Error(w, "Erro ao listar propostas expiradas", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(lista)
}

// Reativar trata POST /propostas/{id}/reativar (interna): nova validade
// e novo token de acesso.
func (h *Handler) Reativar(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req reativarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	novaValidade, err := time.Parse(time.RFC3339, req.NovaDataValidade)
	if err != nil || novaValidade.Before(time.Now()) {
		http.Error(w, "O campo 'novaDataValidade' deve ser uma data futura", http.StatusBadRequest)
		return
	}

	if err := h.Repository.Reativar(h.DB, id, novaValidade); err != nil {
		switch {
		case errors.Is(err, ErrNaoEncontrada):
			http.Error(w, "Proposta não encontrada", http.StatusNotFound)
		case errors.Is(err, ErrTransicaoInvalida):
			http.Error(w, "Proposta já decidida não pode ser reativada", http.StatusConflict)
		default:
			http.Error(w, "Erro ao reativar proposta", http.StatusInternalServerError)
		}
		return
	}

	t, err := h.Tokens.GerarParaProposta(h.DB, id)
	if err != nil {
		http.Error(w, "Proposta reativada, mas o token falhou", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"novoToken": t.Token})
}

// ExportarCSV trata GET /propostas/exportar (interna): dump das
// propostas com valores já formatados para planilha.
func (h *Handler) ExportarCSV(w http.ResponseWriter, r *http.Request) {
	lista, err := h.Repository.ListarTodas(h.DB)
	if err != nil {
		http.Error(w, "Erro ao exportar propostas", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="propostas.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"numero", "titulo", "cliente", "status", "valorTotal", "dataEnvio", "dataValidade"})
	for _, p := range lista {
		_ = cw.Write([]string{
			p.Numero,
			p.Titulo,
			p.Cliente.Nome,
			p.Status,
			moeda.FormatarBRL(p.ValorTotal),
			p.DataEnvio.Format("02/01/2006"),
			p.DataValidade.Format("02/01/2006"),
		})
	}
	cw.Flush()
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}

func ipDoRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		partes := strings.Split(xff, ",")
		return strings.TrimSpace(partes[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
