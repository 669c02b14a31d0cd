package models

import (
	"time"
)

// Convenção de status do ciclo de vida da proposta.
// Os valores são os mesmos trafegados pela API e exibidos no portal.
const (
	StatusEnviada     = "enviada"
	StatusVisualizada = "visualizada"
	StatusAprovada    = "aprovada"
	StatusRejeitada   = "rejeitada"
	StatusExpirada    = "expirada"
)

// Empresa emissora da proposta (somente exibição).
type Empresa struct {
	Nome     string `json:"nome"`
	Logo     string `json:"logo,omitempty"`
	Endereco string `json:"endereco"`
	Telefone string `json:"telefone"`
	Email    string `json:"email"`
}

// Cliente destinatário da proposta (somente exibição).
type Cliente struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
}

// Vendedor responsável pela proposta (somente exibição).
type Vendedor struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Telefone string `json:"telefone"`
}

// ProdutoProposta é um item de linha da proposta. O ValorTotal do item
// vem calculado do backend; o portal nunca recalcula, só formata.
type ProdutoProposta struct {
	Nome          string  `json:"nome"`
	Descricao     string  `json:"descricao"`
	Quantidade    int     `json:"quantidade"`
	ValorUnitario float64 `json:"valorUnitario"`
	ValorTotal    float64 `json:"valorTotal"`
}

// Condicoes comerciais da proposta.
type Condicoes struct {
	FormaPagamento string `json:"formaPagamento"`
	PrazoEntrega   string `json:"prazoEntrega"`
	Garantia       string `json:"garantia"`
	Observacoes    string `json:"observacoes,omitempty"`
}

// PropostaPublica é a visão da proposta exposta no portal do cliente.
// O backend é a fonte autoritativa de valores e status; ValorTotal deve
// bater com a soma dos itens mas isso não é revalidado aqui.
type PropostaPublica struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Numero       string    `gorm:"uniqueIndex;size:64" json:"numero"`
	Titulo       string    `json:"titulo"`
	Status       string    `gorm:"size:32;default:enviada" json:"status"`
	DataEnvio    time.Time `json:"dataEnvio"`
	DataValidade time.Time `json:"dataValidade"`
	ValorTotal   float64   `json:"valorTotal"`

	// Token único de acesso público (credencial opaca do portal)
	Token string `gorm:"index;size:64" json:"token"`

	Empresa  Empresa  `gorm:"type:jsonb;serializer:json" json:"empresa"`
	Cliente  Cliente  `gorm:"type:jsonb;serializer:json" json:"cliente"`
	Vendedor Vendedor `gorm:"type:jsonb;serializer:json" json:"vendedor"`

	Produtos []ProdutoProposta `gorm:"type:jsonb;serializer:json" json:"produtos"`

	Condicoes Condicoes `gorm:"type:jsonb;serializer:json" json:"condicoes"`

	// Preenchidos pelo fluxo do portal
	PrimeiraVisualizacaoEm *time.Time `json:"primeiraVisualizacaoEm,omitempty"`
	DataDecisao            *time.Time `json:"dataDecisao,omitempty"`
	AprovadaViaPortal      bool       `json:"aprovadaViaPortal,omitempty"`
}

// StatusTerminal informa se o status não admite mais transições.
func StatusTerminal(status string) bool {
	switch status {
	case StatusAprovada, StatusRejeitada, StatusExpirada:
		return true
	}
	return false
}

// TransicaoValida verifica se a mudança de status é permitida pelo
// ciclo de vida: enviada → visualizada → aprovada/rejeitada, e qualquer
// estado não terminal → expirada. Estados terminais nunca regridem.
func TransicaoValida(de, para string) bool {
	if de == para {
		return false
	}
	if StatusTerminal(de) {
		return false
	}
	switch para {
	case StatusVisualizada:
		return de == StatusEnviada
	case StatusAprovada, StatusRejeitada:
		return de == StatusVisualizada
	case StatusExpirada:
		return true
	}
	return false
}

// Expirada compara a validade com o relógio informado.
func (p *PropostaPublica) Expirada(agora time.Time) bool {
	return agora.After(p.DataValidade)
}

// StatusEfetivo aplica a expiração por relógio local de forma apenas
// consultiva: só rebaixa "enviada". Status definidos pelo backend
// (visualizada/terminais) não são sobrescritos pelo relógio do cliente.
func (p *PropostaPublica) StatusEfetivo(agora time.Time) string {
	if p.Status == StatusEnviada && p.Expirada(agora) {
		return StatusExpirada
	}
	return p.Status
}

// PodeDecidir informa se aceite/rejeição estão habilitados: exige
// status exatamente "visualizada" e proposta dentro da validade.
func (p *PropostaPublica) PodeDecidir(agora time.Time) bool {
	return p.Status == StatusVisualizada && !p.Expirada(agora)
}

// MotivoBloqueio devolve a mensagem exibida quando a decisão está
// desabilitada. Vazio quando a proposta pode ser decidida.
func (p *PropostaPublica) MotivoBloqueio(agora time.Time) string {
	switch {
	case p.Status == StatusAprovada:
		return "Proposta já foi aprovada"
	case p.Status == StatusRejeitada:
		return "Proposta foi rejeitada"
	case p.Status == StatusExpirada || p.Expirada(agora):
		return "Proposta expirada"
	case p.Status == StatusEnviada:
		return "Proposta ainda não visualizada"
	}
	return ""
}
