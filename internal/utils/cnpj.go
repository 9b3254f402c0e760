package utils

import "strings"

// DigitsOnly strips every non-digit rune from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidCNPJ checks length and both check digits of a CNPJ.  Punctuation
// is ignored; sequences of one repeated digit are rejected.
func ValidCNPJ(s string) bool {
	d := DigitsOnly(s)
	if len(d) != 14 || strings.Count(d, d[:1]) == 14 {
		return false
	}
	return checkDigit(d[:12], cnpjWeights1) == d[12] && checkDigit(d[:13], cnpjWeights2) == d[13]
}

func checkDigit(d string, weights []int) byte {
	sum := 0
	for i, w := range weights {
		sum += int(d[i]-'0') * w
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}
