package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ConectCRM/api-portal/internal/models"
	"github.com/ConectCRM/api-portal/internal/utils"
)

const (
	// AmbienteProducao desliga os fallbacks locais: falhas de rede são
	// propagadas ao chamador em vez de mascaradas com dados simulados.
	AmbienteProducao        = "producao"
	AmbienteDesenvolvimento = "desenvolvimento"

	timeoutPadrao = 10 * time.Second

	validadeTokenLocal = 30 * 24 * time.Hour
)

var (
	ErrCarregarProposta = errors.New("erro ao carregar proposta do portal")
	ErrGerarToken       = errors.New("erro ao gerar token público")
	ErrSemCacheLocal    = errors.New("cache local não configurado")
)

// Config reúne as dependências do cliente do portal.
type Config struct {
	BaseURL     string
	Ambiente    string // AmbienteProducao | AmbienteDesenvolvimento
	Cache       Cache  // espelho local; opcional, mas sem ele não há fallback
	HTTPCliente *http.Client
}

// Client fala com os dois lados da sincronização: o endpoint público do
// portal e o registro principal de propostas do CRM. Leituras têm
// fallback para dados simulados fora de produção; escritas têm fallback
// para o cache local mais a fila de pendências.
type Client struct {
	baseURL  string
	ambiente string
	cache    Cache
	http     *http.Client
}

func NewClient(cfg Config) *Client {
	hc := cfg.HTTPCliente
	if hc == nil {
		hc = &http.Client{Timeout: timeoutPadrao}
	}
	ambiente := cfg.Ambiente
	if ambiente == "" {
		ambiente = AmbienteDesenvolvimento
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		ambiente: ambiente,
		cache:    cfg.Cache,
		http:     hc,
	}
}

func (c *Client) producao() bool { return c.ambiente == AmbienteProducao }

// MetadadosVisualizacao acompanha o registro de visualização. Campos em
// branco são preenchidos com valores padrão.
type MetadadosVisualizacao struct {
	IP            string    `json:"ip"`
	UserAgent     string    `json:"userAgent"`
	Timestamp     time.Time `json:"timestamp"`
	ResolucaoTela string    `json:"resolucaoTela"`
	Referrer      string    `json:"referrer"`
}

// ResultadoSync descreve o desfecho de uma atualização de status.
type ResultadoSync struct {
	PortalOK      bool
	EspelhoOK     bool
	FallbackLocal bool
}

// Sincronizado indica que a escrita autoritativa (portal) foi aceita.
// A falha isolada do espelho não derruba a sincronização.
func (r ResultadoSync) Sincronizado() bool { return r.PortalOK }

// BuscarPropostaPublica resolve a proposta por token ou número.
// 404 devolve (nil, nil). Outras falhas devolvem erro em produção e uma
// proposta simulada fora dela. No sucesso, dispara o registro de
// visualização (melhor esforço, nunca bloqueia).
func (c *Client) BuscarPropostaPublica(ctx context.Context, identificador string) (*models.PropostaPublica, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/portal/proposta/%s", c.baseURL, identificador), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fallbackLeitura(identificador, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fallbackLeitura(identificador, fmt.Errorf("portal respondeu %d", resp.StatusCode))
	}

	var proposta models.PropostaPublica
	if err := json.NewDecoder(resp.Body).Decode(&proposta); err != nil {
		return c.fallbackLeitura(identificador, err)
	}

	// visualização é telemetria: registra e segue
	c.RegistrarVisualizacao(ctx, identificador, MetadadosVisualizacao{})

	return &proposta, nil
}

func (c *Client) fallbackLeitura(identificador string, causa error) (*models.PropostaPublica, error) {
	if c.producao() {
		return nil, fmt.Errorf("%w: %v", ErrCarregarProposta, causa)
	}
	log.Printf("[portal][client] API indisponível, usando proposta simulada: %v", causa)
	return propostaSimulada(identificador, time.Now()), nil
}

// RegistrarVisualizacao envia os metadados de visualização para o
// portal. Falhas são apenas registradas em log: a visualização nunca
// pode bloquear o carregamento da proposta.
func (c *Client) RegistrarVisualizacao(ctx context.Context, token string, meta MetadadosVisualizacao) {
	if meta.IP == "" {
		meta.IP = c.ObterIP(ctx)
	}
	if meta.UserAgent == "" {
		meta.UserAgent = "portal-cliente-go"
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	if err := c.enviarJSON(ctx, http.MethodPut,
		fmt.Sprintf("%s/api/portal/proposta/%s/view", c.baseURL, token), meta); err != nil {
		log.Printf("[portal][client] erro ao registrar visualização: %v", err)
		return
	}
	log.Printf("[portal][client] visualização registrada para token %s", token)
}

// RegistrarAcao envia um evento nomeado com payload livre. Melhor
// esforço, mesma política da visualização.
func (c *Client) RegistrarAcao(ctx context.Context, token, acao string, dados map[string]any) {
	payload := map[string]any{
		"acao":      acao,
		"timestamp": time.Now().Format(time.RFC3339),
		"ip":        c.ObterIP(ctx),
		"userAgent": "portal-cliente-go",
		"dados":     dados,
	}
	if err := c.enviarJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/portal/proposta/%s/acao", c.baseURL, token), payload); err != nil {
		log.Printf("[portal][client] erro ao registrar ação %q: %v", acao, err)
	}
}

// AtualizarStatus executa a dupla escrita do status: o endpoint do
// portal é o veredito de sucesso; o registro principal do CRM é um
// espelho de melhor esforço. Se a escrita do portal falhar, o novo
// status vai para o cache local e uma pendência é anexada à fila de
// sincronização (que nada drena automaticamente).
func (c *Client) AtualizarStatus(ctx context.Context, token, novoStatus string) (ResultadoSync, error) {
	var res ResultadoSync
	agora := time.Now()

	errPortal := c.enviarJSON(ctx, http.MethodPut,
		fmt.Sprintf("%s/api/portal/proposta/%s/status", c.baseURL, token), map[string]any{
			"status":    novoStatus,
			"timestamp": agora.Format(time.RFC3339),
			"ip":        c.ObterIP(ctx),
			"userAgent": "portal-cliente-go",
		})
	res.PortalOK = errPortal == nil

	// escrita espelho no registro principal, sem ordem garantida em
	// relação à do portal
	errEspelho := c.enviarJSON(ctx, http.MethodPut,
		fmt.Sprintf("%s/propostas/%s/status", c.baseURL, token), map[string]any{
			"status":      novoStatus,
			"observacoes": fmt.Sprintf("Proposta %s via portal do cliente", novoStatus),
			"dataAceite":  agora.Format(time.RFC3339),
			"fonte":       "portal",
		})
	res.EspelhoOK = errEspelho == nil

	if res.PortalOK {
		if !res.EspelhoOK {
			log.Printf("[portal][client] sincronização parcial: espelho CRM falhou: %v", errEspelho)
		}
		c.RegistrarAcao(ctx, token, novoStatus, nil)
		return res, nil
	}

	log.Printf("[portal][client] escrita no portal falhou, usando fallback local: %v", errPortal)
	if c.cache == nil {
		return res, fmt.Errorf("%w: %v", ErrSemCacheLocal, errPortal)
	}
	if err := c.cache.AtualizarStatusProposta(token, novoStatus); err != nil {
		return res, fmt.Errorf("fallback local falhou: %w", err)
	}
	if err := c.cache.AnexarPendencia(SincronizacaoPendente{
		Token:     token,
		Status:    novoStatus,
		Timestamp: agora,
		Tipo:      "status_update",
	}); err != nil {
		return res, fmt.Errorf("registro de pendência falhou: %w", err)
	}
	res.FallbackLocal = true
	return res, nil
}

// GerarTokenPublico pede ao backend um token de acesso para a proposta.
// Fora de produção, a falha gera um token numérico de 6 dígitos local,
// guardado no cache com validade de 30 dias. Colisão não é verificada;
// o espaço de tokens é assumido grande o bastante para uso de teste.
func (c *Client) GerarTokenPublico(ctx context.Context, propostaID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/propostas/%s/gerar-token", c.baseURL, propostaID), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var corpo struct {
				Token string `json:"token"`
			}
			if derr := json.NewDecoder(resp.Body).Decode(&corpo); derr == nil && corpo.Token != "" {
				return corpo.Token, nil
			}
		}
		err = fmt.Errorf("portal respondeu %d", resp.StatusCode)
	}

	if c.producao() {
		return "", fmt.Errorf("%w: %v", ErrGerarToken, err)
	}

	log.Printf("[portal][client] API indisponível, gerando token local: %v", err)
	tokenLocal, gerr := utils.GerarTokenNumerico()
	if gerr != nil {
		return "", gerr
	}
	if c.cache != nil {
		agora := time.Now()
		if serr := c.cache.SalvarToken(TokenLocal{
			Token:      tokenLocal,
			PropostaID: propostaID,
			CriadoEm:   agora,
			ValidoAte:  agora.Add(validadeTokenLocal),
		}); serr != nil {
			log.Printf("[portal][client] erro ao guardar token local: %v", serr)
		}
	}
	log.Printf("[portal][client] token gerado localmente: %s para proposta %s", tokenLocal, propostaID)
	return tokenLocal, nil
}

// ObterIP consulta o endpoint de eco de IP do portal. Nunca falha:
// devolve "unknown" quando não consegue resolver.
func (c *Client) ObterIP(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/portal/ip", nil)
	if err != nil {
		return "unknown"
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "unknown"
	}
	defer resp.Body.Close()

	var corpo struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&corpo); err != nil || corpo.IP == "" {
		return "unknown"
	}
	return corpo.IP
}

func (c *Client) enviarJSON(ctx context.Context, metodo, url string, payload any) error {
	corpo, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, metodo, url, bytes.NewReader(corpo))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s respondeu %d", metodo, url, resp.StatusCode)
	}
	return nil
}

// propostaSimulada devolve a proposta de demonstração usada quando a
// API não está disponível fora de produção.
func propostaSimulada(identificador string, agora time.Time) *models.PropostaPublica {
	numero := identificador
	if len(identificador) <= 6 {
		numero = "PROP-" + identificador
	}
	token := "DEMO123"
	if len(identificador) <= 6 {
		token = identificador
	}

	return &models.PropostaPublica{
		ID:     "mock-" + identificador,
		Numero: numero,
		Titulo: "Proposta Comercial - " + numero,
		Cliente: models.Cliente{
			Nome:  "João Silva",
			Email: "joao@exemplo.com",
		},
		Empresa: models.Empresa{
			Nome:     "ConectCRM",
			Endereco: "Goiânia/GO",
			Telefone: "(62) 99668-9991",
			Email:    "conectcrm@gmail.com",
		},
		Vendedor: models.Vendedor{
			Nome:     "Vendedor Demo",
			Email:    "vendedor@conectcrm.com",
			Telefone: "(62) 99668-9991",
		},
		Produtos: []models.ProdutoProposta{
			{
				Nome:          "Sistema CRM Premium",
				Descricao:     "Solução completa de gestão de relacionamento com cliente",
				Quantidade:    1,
				ValorUnitario: 2500.0,
				ValorTotal:    2500.0,
			},
			{
				Nome:          "Treinamento e Suporte",
				Descricao:     "Capacitação da equipe e suporte técnico por 12 meses",
				Quantidade:    1,
				ValorUnitario: 500.0,
				ValorTotal:    500.0,
			},
		},
		ValorTotal:   3000.0,
		Status:       models.StatusEnviada,
		DataEnvio:    agora.Add(-24 * time.Hour),
		DataValidade: agora.Add(15 * 24 * time.Hour),
		Token:        token,
		Condicoes: models.Condicoes{
			FormaPagamento: "Cartão de Crédito ou Boleto (12x sem juros)",
			PrazoEntrega:   "15 dias úteis após aprovação",
			Garantia:       "12 meses",
			Observacoes:    "Proposta válida por 15 dias. Entre em contato para esclarecimentos.",
		},
	}
}
