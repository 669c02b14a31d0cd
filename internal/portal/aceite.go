package portal

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ConectCRM/api-portal/internal/models"
)

// EstadoFluxo é o estado exposto à interface durante o aceite.
type EstadoFluxo string

const (
	EstadoCarregando          EstadoFluxo = "loading"
	EstadoErro                EstadoFluxo = "error"
	EstadoPronto              EstadoFluxo = "ready"
	EstadoProcessandoAceite   EstadoFluxo = "processing-accept"
	EstadoProcessandoRejeicao EstadoFluxo = "processing-reject"
	EstadoAceito              EstadoFluxo = "accepted"
	EstadoRejeitado           EstadoFluxo = "rejected"
)

var (
	ErrDecisaoBloqueada       = errors.New("proposta não pode ser decidida neste estado")
	ErrRejeicaoSemConfirmacao = errors.New("rejeição exige confirmação explícita")
)

// FluxoAceite orquestra o ciclo carregar → visualizar → decidir de uma
// proposta no portal. O estado visível sempre avança na intenção do
// usuário (atualização otimista); a confirmação do servidor fica em um
// campo separado para o trade-off ficar explícito e testável.
//
// O fluxo é de escritor único, como o componente de página que ele
// substitui: não é seguro para uso concorrente.
type FluxoAceite struct {
	cliente       *Client
	identificador string
	token         string

	agora func() time.Time

	estado   EstadoFluxo
	proposta *models.PropostaPublica
	mensagem string

	// StatusServidor: último status confirmado pelo backend (vazio até
	// a primeira confirmação). StatusExibido: o que a interface mostra,
	// sempre preenchido após o carregamento.
	statusServidor string
	statusExibido  string

	inicioVisualizacao  time.Time
	confirmandoRejeicao bool
}

// NovoFluxo cria o fluxo para um identificador de proposta. O token de
// aceite cai para o próprio identificador quando não informado.
func NovoFluxo(cliente *Client, identificador, token string) *FluxoAceite {
	if token == "" {
		token = identificador
	}
	return &FluxoAceite{
		cliente:       cliente,
		identificador: identificador,
		token:         token,
		agora:         time.Now,
		estado:        EstadoCarregando,
	}
}

func (f *FluxoAceite) Estado() EstadoFluxo { return f.estado }

func (f *FluxoAceite) Mensagem() string { return f.mensagem }

func (f *FluxoAceite) Proposta() *models.PropostaPublica { return f.proposta }

func (f *FluxoAceite) StatusExibido() string { return f.statusExibido }

func (f *FluxoAceite) StatusServidor() string { return f.statusServidor }

// TempoVisualizacao é o contador de tempo de tela, usado apenas nos
// payloads de telemetria. Não condiciona nenhuma transição.
func (f *FluxoAceite) TempoVisualizacao() time.Duration {
	if f.inicioVisualizacao.IsZero() {
		return 0
	}
	return f.agora().Sub(f.inicioVisualizacao)
}

// Carregar busca a proposta e aplica as regras de chegada: expiração
// consultiva e, para propostas ainda "enviada", registro de
// visualização com avanço otimista para "visualizada".
func (f *FluxoAceite) Carregar(ctx context.Context) error {
	f.estado = EstadoCarregando
	f.mensagem = ""

	proposta, err := f.cliente.BuscarPropostaPublica(ctx, f.identificador)
	if err != nil {
		f.estado = EstadoErro
		f.mensagem = "Erro ao carregar a proposta. Tente novamente."
		return err
	}
	if proposta == nil {
		f.estado = EstadoErro
		f.mensagem = "Proposta não encontrada ou link inválido."
		return nil
	}

	f.proposta = proposta
	f.statusServidor = proposta.Status
	f.statusExibido = proposta.StatusEfetivo(f.agora())
	f.inicioVisualizacao = f.agora()

	if f.statusExibido == models.StatusEnviada {
		f.cliente.RegistrarVisualizacao(ctx, f.token, MetadadosVisualizacao{})
		// avanço otimista: a primeira visualização conta mesmo que a
		// telemetria não tenha chegado ao backend
		f.statusExibido = models.StatusVisualizada
		f.proposta.Status = models.StatusVisualizada
	}

	f.estado = EstadoPronto
	return nil
}

// PodeDecidir informa se os botões de aceite/rejeição estão habilitados.
func (f *FluxoAceite) PodeDecidir() bool {
	if f.estado != EstadoPronto || f.proposta == nil {
		return false
	}
	visao := *f.proposta
	visao.Status = f.statusExibido
	return visao.PodeDecidir(f.agora())
}

// MotivoBloqueio devolve o texto do aviso quando a decisão está
// desabilitada.
func (f *FluxoAceite) MotivoBloqueio() string {
	if f.proposta == nil {
		return ""
	}
	visao := *f.proposta
	visao.Status = f.statusExibido
	return visao.MotivoBloqueio(f.agora())
}

// Aceitar executa o aceite da proposta. O status exibido sempre avança
// quando a intenção do usuário é registrada, independentemente da
// confirmação do backend; sincronização parcial ou local gera warning.
func (f *FluxoAceite) Aceitar(ctx context.Context) error {
	if !f.PodeDecidir() {
		return ErrDecisaoBloqueada
	}
	f.estado = EstadoProcessandoAceite

	f.cliente.RegistrarAcao(ctx, f.token, "aceite_iniciado", map[string]any{
		"valorProposta":     f.proposta.ValorTotal,
		"tempoVisualizacao": f.TempoVisualizacao().Seconds(),
	})

	if err := f.decidir(ctx, models.StatusAprovada); err != nil {
		return err
	}

	f.estado = EstadoAceito
	f.cliente.RegistrarAcao(ctx, f.token, "aceite_concluido", map[string]any{
		"novoStatus": models.StatusAprovada,
	})
	return nil
}

// Rejeitar inicia a rejeição; a mudança de status só acontece depois de
// ConfirmarRejeicao (espelha o modal de confirmação da interface).
func (f *FluxoAceite) Rejeitar(ctx context.Context) error {
	if !f.PodeDecidir() {
		return ErrDecisaoBloqueada
	}
	f.confirmandoRejeicao = true
	f.cliente.RegistrarAcao(ctx, f.token, "rejeicao_iniciada", map[string]any{
		"valorProposta":     f.proposta.ValorTotal,
		"tempoVisualizacao": f.TempoVisualizacao().Seconds(),
	})
	return nil
}

// CancelarRejeicao fecha a confirmação sem mudar nada.
func (f *FluxoAceite) CancelarRejeicao() { f.confirmandoRejeicao = false }

// AguardandoConfirmacao informa se há uma rejeição pendente de confirmação.
func (f *FluxoAceite) AguardandoConfirmacao() bool { return f.confirmandoRejeicao }

// ConfirmarRejeicao conclui a rejeição iniciada por Rejeitar.
func (f *FluxoAceite) ConfirmarRejeicao(ctx context.Context) error {
	if !f.confirmandoRejeicao {
		return ErrRejeicaoSemConfirmacao
	}
	if !f.PodeDecidir() {
		f.confirmandoRejeicao = false
		return ErrDecisaoBloqueada
	}
	f.estado = EstadoProcessandoRejeicao
	f.confirmandoRejeicao = false

	if err := f.decidir(ctx, models.StatusRejeitada); err != nil {
		return err
	}

	f.estado = EstadoRejeitado
	f.cliente.RegistrarAcao(ctx, f.token, "rejeicao_concluida", map[string]any{
		"novoStatus": models.StatusRejeitada,
	})
	return nil
}

func (f *FluxoAceite) decidir(ctx context.Context, novoStatus string) error {
	resultado, err := f.cliente.AtualizarStatus(ctx, f.token, novoStatus)
	if err != nil {
		// falha total (nem o fallback local funcionou): volta ao estado
		// pronto com o status anterior, o usuário tenta de novo
		f.estado = EstadoPronto
		f.mensagem = "Erro ao atualizar a proposta. Tente novamente."
		return err
	}

	f.statusExibido = novoStatus
	f.proposta.Status = novoStatus
	if resultado.PortalOK {
		f.statusServidor = novoStatus
	}

	switch {
	case resultado.FallbackLocal:
		log.Printf("[portal][fluxo] status %s aplicado apenas localmente; sincronização pendente", novoStatus)
	case !resultado.EspelhoOK:
		log.Printf("[portal][fluxo] status %s sincronizado com o portal, espelho CRM pendente", novoStatus)
	}
	return nil
}
