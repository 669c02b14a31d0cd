package token

import (
	"time"
)

// TokenAcesso é a credencial opaca que autoriza o acesso público a uma
// proposta via portal. A validade é controlada pela data da proposta;
// ValidoAte aqui é um teto adicional para o próprio token.
type TokenAcesso struct {
	Token      string    `gorm:"primaryKey;size:64" json:"token"`
	PropostaID string    `gorm:"index;size:64" json:"propostaId"`
	CriadoEm   time.Time `json:"criadoEm"`
	ValidoAte  time.Time `json:"validoAte"`
	Ativo      bool      `gorm:"default:true" json:"ativo"`
}
