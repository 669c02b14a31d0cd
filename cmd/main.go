package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/ConectCRM/api-portal/internal/auth"
	"github.com/ConectCRM/api-portal/internal/models"
	"github.com/ConectCRM/api-portal/internal/proposta"
	"github.com/ConectCRM/api-portal/internal/token"
	"github.com/ConectCRM/api-portal/internal/utils"
	"github.com/ConectCRM/api-portal/internal/utils/db"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Arquivo .env não encontrado, usando variáveis do ambiente")
	}

	database, err := db.GetDB()
	if err != nil {
		log.Fatal("Erro ao conectar no banco:", err)
	}

	// AutoMigrate para todos os modelos
	if err := database.AutoMigrate(
		&models.PropostaPublica{},
		&token.TokenAcesso{},
		&proposta.VisualizacaoProposta{},
		&proposta.AcaoProposta{},
		&auth.Vendedor{},
	); err != nil {
		log.Fatal("Erro no AutoMigrate:", err)
	}

	seedAdmin(database)

	// Handlers
	propostaHandler := proposta.NewHandler(database)

	// Router
	r := mux.NewRouter()

	// Rotas públicas do portal do cliente
	r.HandleFunc("/api/portal/ip", propostaHandler.ObterIP).Methods("GET")
	r.HandleFunc("/api/portal/proposta/{identificador}", propostaHandler.ObterPropostaPublica).Methods("GET")
	r.HandleFunc("/api/portal/proposta/{token}/view", propostaHandler.RegistrarView).Methods("PUT")
	r.HandleFunc("/api/portal/proposta/{token}/acao", propostaHandler.RegistrarAcao).Methods("POST")
	r.HandleFunc("/api/portal/proposta/{token}/status", propostaHandler.AtualizarStatusPortal).Methods("PUT")

	// Rota espelho usada pela dupla escrita do cliente
	r.HandleFunc("/propostas/{token}/status", propostaHandler.AtualizarStatusCRM).Methods("PUT")

	// Login do CRM
	r.HandleFunc("/login", auth.LoginHandler(database)).Methods("POST")

	// Rotas internas do CRM (exigem JWT)
	interno := r.PathPrefix("/propostas").Subrouter()
	interno.Use(auth.MiddlewareAutenticacao)
	interno.HandleFunc("", propostaHandler.CriarProposta).Methods("POST")
	interno.HandleFunc("/expiradas", propostaHandler.ListarExpiradas).Methods("GET")
	interno.HandleFunc("/exportar", propostaHandler.ExportarCSV).Methods("GET")
	interno.HandleFunc("/{id}/gerar-token", propostaHandler.GerarToken).Methods("POST")
	interno.HandleFunc("/{id}/estatisticas", propostaHandler.ObterEstatisticas).Methods("GET")
	interno.HandleFunc("/{id}/reativar", propostaHandler.Reativar).Methods("POST")

	// CORS liberado para o frontend do portal
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	porta := os.Getenv("PORT")
	if porta == "" {
		porta = "8080"
	}

	// Inicia servidor
	fmt.Println("Servidor rodando em http://localhost:" + porta)
	log.Fatal(http.ListenAndServe(":"+porta, c.Handler(r)))
}

// seedAdmin cria o vendedor administrador inicial a partir do ambiente,
// quando ainda não existe.
func seedAdmin(database *gorm.DB) {
	email := os.Getenv("ADMIN_EMAIL")
	senha := os.Getenv("ADMIN_SENHA")
	if email == "" || senha == "" {
		return
	}

	var existente auth.Vendedor
	if err := database.Where("email = ?", email).First(&existente).Error; err == nil {
		return
	}

	hash, err := utils.HashSenha(senha)
	if err != nil {
		log.Println("Erro ao gerar hash do admin:", err)
		return
	}
	if err := database.Create(&auth.Vendedor{
		Nome:  "Administrador",
		Email: email,
		Senha: hash,
		Admin: true,
	}).Error; err != nil {
		log.Println("Erro ao criar admin:", err)
	}
}
