package portal

import (
	"time"

	"github.com/ConectCRM/api-portal/internal/models"
)

// TokenLocal é o registro de um token de acesso gerado localmente
// quando o backend não pôde emitir um (somente fora de produção).
type TokenLocal struct {
	Token      string    `json:"token"`
	PropostaID string    `json:"propostaId"`
	CriadoEm   time.Time `json:"criadoEm"`
	ValidoAte  time.Time `json:"validoAte"`
}

// SincronizacaoPendente é o registro de uma atualização de status que
// não alcançou o backend. A fila é só de escrita: nenhum componente a
// drena automaticamente; a reconciliação fica para um processo externo.
type SincronizacaoPendente struct {
	Token     string    `json:"token"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Tipo      string    `json:"type"`
}

// Cache é o repositório local injetado no cliente do portal. Concentra
// todo acesso ao armazenamento local num único ponto, para que ordem e
// atomicidade possam ser testadas sem tocar o armazenamento real.
type Cache interface {
	// ObterProposta devolve (nil, nil) quando o token não está em cache.
	ObterProposta(token string) (*models.PropostaPublica, error)
	SalvarProposta(token string, p *models.PropostaPublica) error
	// AtualizarStatusProposta grava o novo status no espelho local.
	AtualizarStatusProposta(token, status string) error
	SalvarToken(t TokenLocal) error
	AnexarPendencia(p SincronizacaoPendente) error
}
