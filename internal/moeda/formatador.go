package moeda

import (
	"math"
	"strconv"
	"strings"
)

// Formatador transforma um fluxo de dígitos de um campo de texto em um
// valor monetário e na string formatada em pt-BR. Toda a aritmética é
// feita em centavos inteiros, então não há ambiguidade de arredondamento.
//
// Entrada vazia vale zero e exibe em branco, nunca é erro. Caracteres
// que não são dígitos são simplesmente descartados.
type Formatador struct {
	centavos int64
	temValor bool

	// PermitirNegativo habilita o sinal "-" no início da entrada.
	// Desligado por padrão.
	PermitirNegativo bool
}

// DefinirDigitos consome o conteúdo bruto do campo: descarta tudo que
// não for dígito e interpreta o restante como centavos.
func (f *Formatador) DefinirDigitos(entrada string) {
	negativo := f.PermitirNegativo && strings.HasPrefix(strings.TrimSpace(entrada), "-")

	var b strings.Builder
	for _, r := range entrada {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digitos := b.String()

	if digitos == "" {
		f.centavos = 0
		f.temValor = false
		return
	}

	v, err := strconv.ParseInt(digitos, 10, 64)
	if err != nil {
		// estouro de int64: mantém o último valor válido
		return
	}
	if negativo {
		v = -v
	}
	f.centavos = v
	f.temValor = true
}

// DefinirValor redefine o buffer a partir de um valor decimal,
// usando round(valor*100) para obter os centavos.
func (f *Formatador) DefinirValor(valor float64) {
	if valor < 0 && !f.PermitirNegativo {
		valor = 0
	}
	f.centavos = int64(math.Round(valor * 100))
	f.temValor = true
}

// Valor devolve o montante decimal corrente.
func (f *Formatador) Valor() float64 {
	return float64(f.centavos) / 100
}

// Exibicao devolve a string formatada ("R$ 12,50") ou vazio quando o
// campo está em branco.
func (f *Formatador) Exibicao() string {
	if !f.temValor {
		return ""
	}
	return FormatarBRL(f.Valor())
}

// FormatarBRL formata um valor em reais com separador de milhar ".",
// decimal "," e duas casas: FormatarBRL(12345.67) == "R$ 12.345,67".
func FormatarBRL(valor float64) string {
	centavos := int64(math.Round(valor * 100))
	negativo := centavos < 0
	if negativo {
		centavos = -centavos
	}

	inteiro := strconv.FormatInt(centavos/100, 10)
	fracao := centavos % 100

	// agrupa os milhares da parte inteira
	var grupos []string
	for len(inteiro) > 3 {
		grupos = append([]string{inteiro[len(inteiro)-3:]}, grupos...)
		inteiro = inteiro[:len(inteiro)-3]
	}
	grupos = append([]string{inteiro}, grupos...)

	s := "R$ " + strings.Join(grupos, ".") + "," + pad2(fracao)
	if negativo {
		s = "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
