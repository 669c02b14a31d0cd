package utils

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashSenha gera um hash bcrypt para a senha informada.
func HashSenha(senha string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(senha), bcrypt.DefaultCost)
	return string(hash), err
}

// VerificarSenha compara hash bcrypt com a senha em texto puro.
func VerificarSenha(hash, senha string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(senha))
	return err == nil
}

// GerarTokenNumerico gera um token numérico aleatório de 6 dígitos para
// acesso público a uma proposta. Colisão não é verificada; o uso é
// restrito a ambientes fora de produção.
func GerarTokenNumerico() (string, error) {
	const digitos = "0123456789"
	length := 6
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digitos))))
		if err != nil {
			return "", err
		}
		result[i] = digitos[num.Int64()]
	}
	return string(result), nil
}
