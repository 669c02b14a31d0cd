package token

import (
	"errors"
	"testing"
	"time"

	"github.com/ConectCRM/api-portal/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func bancoDeTeste(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("erro ao abrir banco de teste: %v", err)
	}
	if err := db.AutoMigrate(&models.PropostaPublica{}, &TokenAcesso{}); err != nil {
		t.Fatalf("erro no migrate: %v", err)
	}
	if err := db.Create(&models.PropostaPublica{ID: "prop-1", Numero: "2024001"}).Error; err != nil {
		t.Fatalf("erro ao criar proposta: %v", err)
	}
	return db
}

func TestGerarParaProposta(t *testing.T) {
	db := bancoDeTeste(t)
	repo := NewRepository()

	emitido, err := repo.GerarParaProposta(db, "prop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitido.Token) != 12 {
		t.Fatalf("expected 12-char token, got %q", emitido.Token)
	}
	if !emitido.Ativo {
		t.Fatal("expected token ativo")
	}

	// o token também é gravado na proposta
	var p models.PropostaPublica
	if err := db.First(&p, "id = ?", "prop-1").Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Token != emitido.Token {
		t.Fatalf("expected proposta token %q, got %q", emitido.Token, p.Token)
	}
}

func TestValidar(t *testing.T) {
	db := bancoDeTeste(t)
	repo := NewRepository()

	emitido, err := repo.GerarParaProposta(db, "prop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("valido", func(t *testing.T) {
		validado, err := repo.Validar(db, emitido.Token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if validado.PropostaID != "prop-1" {
			t.Fatalf("expected prop-1, got %q", validado.PropostaID)
		}
	})

	t.Run("inexistente", func(t *testing.T) {
		if _, err := repo.Validar(db, "nao-existe"); !errors.Is(err, ErrTokenInvalido) {
			t.Fatalf("expected ErrTokenInvalido, got %v", err)
		}
	})

	t.Run("vencido", func(t *testing.T) {
		db.Model(&TokenAcesso{}).
			Where("token = ?", emitido.Token).
			Update("valido_ate", time.Now().Add(-time.Hour))
		if _, err := repo.Validar(db, emitido.Token); !errors.Is(err, ErrTokenInvalido) {
			t.Fatalf("expected ErrTokenInvalido, got %v", err)
		}
	})
}

func TestDesativarDaProposta(t *testing.T) {
	db := bancoDeTeste(t)
	repo := NewRepository()

	emitido, err := repo.GerarParaProposta(db, "prop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.DesativarDaProposta(db, "prop-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Validar(db, emitido.Token); !errors.Is(err, ErrTokenInvalido) {
		t.Fatalf("expected ErrTokenInvalido, got %v", err)
	}
}
