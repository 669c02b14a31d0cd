package cache

import (
	"errors"
	"time"

	"github.com/ConectCRM/api-portal/internal/models"
	"github.com/ConectCRM/api-portal/internal/portal"
	"gorm.io/gorm"
)

// PropostaLocal é o espelho local de uma proposta, indexado pelo token
// de acesso.
type PropostaLocal struct {
	Token        string                 `gorm:"primaryKey;size:64" json:"token"`
	Dados        models.PropostaPublica `gorm:"type:jsonb;serializer:json" json:"dados"`
	Status       string                 `gorm:"size:32" json:"status"`
	AtualizadoEm time.Time              `json:"atualizadoEm"`
}

// TokenPortal guarda tokens gerados localmente.
type TokenPortal struct {
	Token      string    `gorm:"primaryKey;size:64" json:"token"`
	PropostaID string    `gorm:"index;size:64" json:"propostaId"`
	CriadoEm   time.Time `json:"criadoEm"`
	ValidoAte  time.Time `json:"validoAte"`
}

// PendenciaSincronizacao é uma linha da fila de sincronização. Só é
// escrita; nenhum processo deste repositório a lê.
type PendenciaSincronizacao struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"index;size:64" json:"token"`
	Status    string    `gorm:"size:32" json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Tipo      string    `gorm:"size:32" json:"type"`
}

// Repository implementa portal.Cache sobre o banco local.
type Repository struct {
	DB *gorm.DB
}

var _ portal.Cache = (*Repository)(nil)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// Migrate cria as tabelas do cache local.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&PropostaLocal{}, &TokenPortal{}, &PendenciaSincronizacao{})
}

// ObterProposta devolve (nil, nil) quando o token não está em cache.
func (r *Repository) ObterProposta(token string) (*models.PropostaPublica, error) {
	var registro PropostaLocal
	if err := r.DB.First(&registro, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	proposta := registro.Dados
	if registro.Status != "" {
		proposta.Status = registro.Status
	}
	return &proposta, nil
}

func (r *Repository) SalvarProposta(token string, p *models.PropostaPublica) error {
	registro := PropostaLocal{
		Token:        token,
		Dados:        *p,
		Status:       p.Status,
		AtualizadoEm: time.Now(),
	}
	return r.DB.Save(&registro).Error
}

// AtualizarStatusProposta grava o novo status no espelho. Se o token
// ainda não tem registro, cria um esqueleto só com o status, para que o
// fallback de escrita nunca se perca por falta de leitura anterior.
func (r *Repository) AtualizarStatusProposta(token, status string) error {
	var registro PropostaLocal
	err := r.DB.First(&registro, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		registro = PropostaLocal{Token: token}
	} else if err != nil {
		return err
	}
	registro.Status = status
	registro.Dados.Status = status
	registro.AtualizadoEm = time.Now()
	return r.DB.Save(&registro).Error
}

func (r *Repository) SalvarToken(t portal.TokenLocal) error {
	return r.DB.Save(&TokenPortal{
		Token:      t.Token,
		PropostaID: t.PropostaID,
		CriadoEm:   t.CriadoEm,
		ValidoAte:  t.ValidoAte,
	}).Error
}

func (r *Repository) AnexarPendencia(p portal.SincronizacaoPendente) error {
	return r.DB.Create(&PendenciaSincronizacao{
		Token:     p.Token,
		Status:    p.Status,
		Timestamp: p.Timestamp,
		Tipo:      p.Tipo,
	}).Error
}
