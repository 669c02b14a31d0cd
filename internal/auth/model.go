package auth

import "time"

// Vendedor é o usuário interno do CRM que acompanha as propostas.
type Vendedor struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Nome     string    `json:"nome"`
	Email    string    `gorm:"uniqueIndex" json:"email"`
	Senha    string    `json:"-"`
	Admin    bool      `gorm:"default:false" json:"admin"`
	CriadoEm time.Time `gorm:"autoCreateTime" json:"criadoEm"`
}
