package proposta

import (
	"errors"
	"regexp"
	"time"

	"github.com/ConectCRM/api-portal/internal/models"
	"github.com/ConectCRM/api-portal/internal/token"
	"gorm.io/gorm"
)

var (
	ErrNaoEncontrada     = errors.New("proposta não encontrada")
	ErrTransicaoInvalida = errors.New("transição de status não permitida")
	ErrPropostaExpirada  = errors.New("proposta expirada")
)

// Identificadores com 7+ dígitos são tratados como número de proposta;
// os demais como token de acesso.
var padraoNumero = regexp.MustCompile(`^\d{7,}$`)

type Repository interface {
	Salvar(db *gorm.DB, p *models.PropostaPublica) error
	BuscarPorID(db *gorm.DB, id string) (*models.PropostaPublica, error)
	BuscarPorIdentificador(db *gorm.DB, identificador string) (*models.PropostaPublica, error)
	MarcarComoVisualizada(db *gorm.DB, id string) (bool, error)
	AtualizarStatus(db *gorm.DB, id, novoStatus, fonte, observacoes string) (*models.PropostaPublica, error)
	RegistrarVisualizacao(db *gorm.DB, v *VisualizacaoProposta) error
	RegistrarAcao(db *gorm.DB, a *AcaoProposta) error
	Estatisticas(db *gorm.DB, propostaID string) (*Estatisticas, error)
	ListarExpiradas(db *gorm.DB, agora time.Time) ([]models.PropostaPublica, error)
	Reativar(db *gorm.DB, id string, novaValidade time.Time) error
	ListarTodas(db *gorm.DB) ([]models.PropostaPublica, error)
}

type repositoryImpl struct {
	tokens token.Repository
}

func NewRepository() Repository {
	return &repositoryImpl{tokens: token.NewRepository()}
}

func (r *repositoryImpl) Salvar(db *gorm.DB, p *models.PropostaPublica) error {
	return db.Create(p).Error
}

func (r *repositoryImpl) BuscarPorID(db *gorm.DB, id string) (*models.PropostaPublica, error) {
	var p models.PropostaPublica
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNaoEncontrada
		}
		return nil, err
	}
	return &p, nil
}

// BuscarPorIdentificador resolve a proposta por token de acesso ou por
// número de exibição. Tokens emitidos têm prioridade; o campo token da
// própria proposta cobre tokens legados.
func (r *repositoryImpl) BuscarPorIdentificador(db *gorm.DB, identificador string) (*models.PropostaPublica, error) {
	if padraoNumero.MatchString(identificador) {
		var p models.PropostaPublica
		err := db.First(&p, "numero = ?", identificador).Error
		if err == nil {
			return &p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if t, err := r.tokens.Validar(db, identificador); err == nil {
		return r.BuscarPorID(db, t.PropostaID)
	} else if !errors.Is(err, token.ErrTokenInvalido) {
		return nil, err
	}

	var p models.PropostaPublica
	if err := db.First(&p, "token = ? OR numero = ?", identificador, identificador).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNaoEncontrada
		}
		return nil, err
	}
	return &p, nil
}

// MarcarComoVisualizada avança enviada → visualizada. Só a primeira
// visualização muda o status; chamadas seguintes devolvem (false, nil).
// O log de visualização é responsabilidade do chamador.
func (r *repositoryImpl) MarcarComoVisualizada(db *gorm.DB, id string) (bool, error) {
	p, err := r.BuscarPorID(db, id)
	if err != nil {
		return false, err
	}
	if p.Status != models.StatusEnviada {
		return false, nil
	}

	updates := map[string]any{
		"status":                   models.StatusVisualizada,
		"primeira_visualizacao_em": time.Now(),
	}
	if err := db.Model(p).Updates(updates).Error; err != nil {
		return false, err
	}
	return true, nil
}

// AtualizarStatus aplica a mudança de status validando o ciclo de vida:
// estados terminais nunca regridem e decisões não são aceitas depois da
// validade.
func (r *repositoryImpl) AtualizarStatus(db *gorm.DB, id, novoStatus, fonte, observacoes string) (*models.PropostaPublica, error) {
	p, err := r.BuscarPorID(db, id)
	if err != nil {
		return nil, err
	}

	if !models.TransicaoValida(p.Status, novoStatus) {
		return nil, ErrTransicaoInvalida
	}

	agora := time.Now()
	updates := map[string]any{"status": novoStatus}

	if novoStatus == models.StatusAprovada || novoStatus == models.StatusRejeitada {
		if p.Expirada(agora) {
			return nil, ErrPropostaExpirada
		}
		updates["data_decisao"] = agora
		if fonte == "portal" || fonte == "portal-cliente" {
			updates["aprovada_via_portal"] = novoStatus == models.StatusAprovada
		}
	}

	if err := db.Model(p).Updates(updates).Error; err != nil {
		return nil, err
	}

	_ = r.RegistrarAcao(db, &AcaoProposta{
		PropostaID: id,
		Acao:       "status_" + novoStatus,
		Dados:      map[string]any{"fonte": fonte, "observacoes": observacoes},
		Timestamp:  agora,
	})

	p.Status = novoStatus
	return p, nil
}

func (r *repositoryImpl) RegistrarVisualizacao(db *gorm.DB, v *VisualizacaoProposta) error {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now()
	}
	return db.Create(v).Error
}

func (r *repositoryImpl) RegistrarAcao(db *gorm.DB, a *AcaoProposta) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return db.Create(a).Error
}

func (r *repositoryImpl) Estatisticas(db *gorm.DB, propostaID string) (*Estatisticas, error) {
	var est Estatisticas

	if err := db.Model(&VisualizacaoProposta{}).
		Where("proposta_id = ?", propostaID).
		Count(&est.TotalVisualizacoes).Error; err != nil {
		return nil, err
	}

	var ultima VisualizacaoProposta
	err := db.Where("proposta_id = ?", propostaID).
		Order("timestamp DESC").
		First(&ultima).Error
	if err == nil {
		est.UltimaVisualizacao = &ultima.Timestamp
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := db.Model(&VisualizacaoProposta{}).
		Where("proposta_id = ?", propostaID).
		Distinct("user_agent").
		Pluck("user_agent", &est.DispositivosUtilizados).Error; err != nil {
		return nil, err
	}

	if err := db.Where("proposta_id = ?", propostaID).
		Order("timestamp ASC").
		Find(&est.Acoes).Error; err != nil {
		return nil, err
	}
	return &est, nil
}

// ListarExpiradas devolve propostas cuja validade já passou e que ainda
// não chegaram a um estado terminal (candidatas a reativação).
func (r *repositoryImpl) ListarExpiradas(db *gorm.DB, agora time.Time) ([]models.PropostaPublica, error) {
	var lista []models.PropostaPublica
	err := db.
		Where("data_validade < ? AND status IN ?", agora,
			[]string{models.StatusEnviada, models.StatusVisualizada, models.StatusExpirada}).
		Find(&lista).Error
	return lista, err
}

// Reativar devolve a proposta ao estado "enviada" com nova validade.
// Os tokens antigos são desativados; um novo deve ser emitido à parte.
func (r *repositoryImpl) Reativar(db *gorm.DB, id string, novaValidade time.Time) error {
	p, err := r.BuscarPorID(db, id)
	if err != nil {
		return err
	}
	if p.Status == models.StatusAprovada || p.Status == models.StatusRejeitada {
		return ErrTransicaoInvalida
	}
	if err := r.tokens.DesativarDaProposta(db, id); err != nil {
		return err
	}
	return db.Model(p).Updates(map[string]any{
		"status":        models.StatusEnviada,
		"data_validade": novaValidade,
		"data_decisao":  nil,
	}).Error
}

func (r *repositoryImpl) ListarTodas(db *gorm.DB) ([]models.PropostaPublica, error) {
	var lista []models.PropostaPublica
	err := db.Order("created_at ASC").Find(&lista).Error
	return lista, err
}
