package proposta

import (
	"time"
)

// VisualizacaoProposta é o log de uma abertura da proposta no portal.
type VisualizacaoProposta struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PropostaID    string    `gorm:"index;size:64" json:"propostaId"`
	IP            string    `gorm:"size:64" json:"ip"`
	UserAgent     string    `json:"userAgent"`
	ResolucaoTela string    `gorm:"size:32" json:"resolucaoTela"`
	Referrer      string    `json:"referrer"`
	Timestamp     time.Time `json:"timestamp"`
}

// AcaoProposta é o log de um evento nomeado do cliente no portal
// (aceite iniciado, scroll, saída de página...). Dados é payload livre.
type AcaoProposta struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	PropostaID string         `gorm:"index;size:64" json:"propostaId"`
	Acao       string         `gorm:"size:64" json:"acao"`
	IP         string         `gorm:"size:64" json:"ip"`
	UserAgent  string         `json:"userAgent"`
	Dados      map[string]any `gorm:"type:jsonb;serializer:json" json:"dados,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Estatisticas agrega a telemetria de uma proposta para o CRM interno.
type Estatisticas struct {
	TotalVisualizacoes     int64          `json:"totalVisualizacoes"`
	UltimaVisualizacao     *time.Time     `json:"ultimaVisualizacao,omitempty"`
	DispositivosUtilizados []string       `json:"dispositivosUtilizados"`
	Acoes                  []AcaoProposta `json:"acoes"`
}
