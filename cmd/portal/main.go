// Cliente de linha de comando do portal: carrega uma proposta pelo
// token e, opcionalmente, registra a decisão do cliente.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ConectCRM/api-portal/internal/cache"
	"github.com/ConectCRM/api-portal/internal/moeda"
	"github.com/ConectCRM/api-portal/internal/portal"
	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	_ = godotenv.Load()

	identificador := flag.String("token", "", "token ou número da proposta")
	acao := flag.String("acao", "", "aceitar | rejeitar (vazio só exibe)")
	baseURL := flag.String("url", envOu("PORTAL_URL", "http://localhost:8080"), "URL base da API do portal")
	ambiente := flag.String("ambiente", envOu("AMBIENTE", portal.AmbienteDesenvolvimento), "producao | desenvolvimento")
	arquivoCache := flag.String("cache", envOu("PORTAL_CACHE", "portal.db"), "arquivo do cache local")
	flag.Parse()

	if *identificador == "" {
		flag.Usage()
		os.Exit(2)
	}

	banco, err := gorm.Open(sqlite.Open(*arquivoCache), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		log.Fatal("Erro ao abrir cache local:", err)
	}
	if err := cache.Migrate(banco); err != nil {
		log.Fatal("Erro ao preparar cache local:", err)
	}

	cliente := portal.NewClient(portal.Config{
		BaseURL:  *baseURL,
		Ambiente: *ambiente,
		Cache:    cache.NewRepository(banco),
	})

	ctx := context.Background()
	fluxo := portal.NovoFluxo(cliente, *identificador, "")
	if err := fluxo.Carregar(ctx); err != nil {
		log.Fatal("Erro ao carregar proposta:", err)
	}
	if fluxo.Estado() == portal.EstadoErro {
		log.Fatal(fluxo.Mensagem())
	}

	p := fluxo.Proposta()
	fmt.Printf("Proposta %s - %s\n", p.Numero, p.Titulo)
	fmt.Printf("Cliente:  %s\n", p.Cliente.Nome)
	fmt.Printf("Valor:    %s\n", moeda.FormatarBRL(p.ValorTotal))
	fmt.Printf("Status:   %s\n", fluxo.StatusExibido())
	fmt.Printf("Validade: %s\n", p.DataValidade.Format("02/01/2006"))

	switch *acao {
	case "":
		if !fluxo.PodeDecidir() {
			fmt.Println(fluxo.MotivoBloqueio())
		}
	case "aceitar":
		if err := fluxo.Aceitar(ctx); err != nil {
			log.Fatal("Erro ao aceitar:", err)
		}
		fmt.Println("Proposta aceita.")
	case "rejeitar":
		if err := fluxo.Rejeitar(ctx); err != nil {
			log.Fatal("Erro ao rejeitar:", err)
		}
		if err := fluxo.ConfirmarRejeicao(ctx); err != nil {
			log.Fatal("Erro ao confirmar rejeição:", err)
		}
		fmt.Println("Proposta rejeitada.")
	default:
		log.Fatalf("Ação desconhecida: %s", *acao)
	}

	if *acao != "" && fluxo.StatusServidor() != fluxo.StatusExibido() {
		fmt.Println("Aviso: decisão registrada localmente, sincronização pendente.")
	}
}

func envOu(chave, padrao string) string {
	if v := os.Getenv(chave); v != "" {
		return v
	}
	return padrao
}
