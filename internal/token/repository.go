package token

import (
	"errors"
	"strings"
	"time"

	"github.com/ConectCRM/api-portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTokenInvalido = errors.New("token inválido ou expirado")

const validadePadrao = 30 * 24 * time.Hour

type Repository interface {
	GerarParaProposta(db *gorm.DB, propostaID string) (*TokenAcesso, error)
	Validar(db *gorm.DB, valor string) (*TokenAcesso, error)
	DesativarDaProposta(db *gorm.DB, propostaID string) error
}

type repositoryImpl struct{}

func NewRepository() Repository {
	return &repositoryImpl{}
}

// GerarParaProposta emite um novo token derivado de UUID (12 hex) e o
// grava também na própria proposta. Tokens anteriores seguem válidos
// até expirarem ou serem desativados.
func (r *repositoryImpl) GerarParaProposta(db *gorm.DB, propostaID string) (*TokenAcesso, error) {
	agora := time.Now()
	t := &TokenAcesso{
		Token:      strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		PropostaID: propostaID,
		CriadoEm:   agora,
		ValidoAte:  agora.Add(validadePadrao),
		Ativo:      true,
	}
	if err := db.Create(t).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PropostaPublica{}).
		Where("id = ?", propostaID).
		Update("token", t.Token).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// Validar devolve o registro do token quando ele existe, está ativo e
// dentro da validade.
func (r *repositoryImpl) Validar(db *gorm.DB, valor string) (*TokenAcesso, error) {
	var t TokenAcesso
	if err := db.First(&t, "token = ?", valor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalido
		}
		return nil, err
	}
	if !t.Ativo || time.Now().After(t.ValidoAte) {
		return nil, ErrTokenInvalido
	}
	return &t, nil
}

func (r *repositoryImpl) DesativarDaProposta(db *gorm.DB, propostaID string) error {
	return db.Model(&TokenAcesso{}).
		Where("proposta_id = ?", propostaID).
		Update("ativo", false).Error
}
