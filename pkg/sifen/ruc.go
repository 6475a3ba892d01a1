package sifen

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// baseMax es el peso máximo del algoritmo módulo 11 de la SET; al superarlo
// el multiplicador vuelve a 2.
const baseMax = 11

// CheckDigit calcula el dígito verificador módulo 11 usado tanto para el RUC
// como para el CDC. Los caracteres no numéricos se reemplazan por su código
// ASCII, igual que en el algoritmo publicado por la SET.
func CheckDigit(value string) int {
	var b strings.Builder
	for _, r := range strings.ToUpper(value) {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(strconv.Itoa(int(r)))
	}
	digits := b.String()

	total := 0
	k := 2
	for i := len(digits) - 1; i >= 0; i-- {
		if k > baseMax {
			k = 2
		}
		total += int(digits[i]-'0') * k
		k++
	}
	rest := total % 11
	if rest > 1 {
		return 11 - rest
	}
	return 0
}

// SplitRUC separa "80012345-6" en base y dígito verificador. Si el valor no
// trae guion, el DV se calcula.
func SplitRUC(ruc string) (base, dv string, err error) {
	ruc = strings.TrimSpace(ruc)
	if ruc == "" {
		return "", "", fmt.Errorf("sifen: RUC vacío")
	}
	if i := strings.LastIndex(ruc, "-"); i > 0 {
		base, dv = strings.TrimSpace(ruc[:i]), strings.TrimSpace(ruc[i+1:])
		if base == "" || len(dv) != 1 || !unicode.IsDigit(rune(dv[0])) {
			return "", "", fmt.Errorf("sifen: RUC con formato inválido %q", ruc)
		}
		return base, dv, nil
	}
	return ruc, strconv.Itoa(CheckDigit(ruc)), nil
}

// ValidateRUC comprueba que el DV informado coincida con el calculado.
func ValidateRUC(ruc string) error {
	base, dv, err := SplitRUC(ruc)
	if err != nil {
		return err
	}
	expected := strconv.Itoa(CheckDigit(base))
	if dv != expected {
		return fmt.Errorf("sifen: dígito verificador del RUC inválido: esperado %s, recibido %s", expected, dv)
	}
	return nil
}
