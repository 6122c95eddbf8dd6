package service

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseGsp normaliza el valor enmascarado ("1,234,567") a entero. Se
// descarta todo lo que no sea dígito; sin dígitos devuelve nil.
func ParseGsp(masked string) (*int64, error) {
	var b strings.Builder
	for _, r := range masked {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil, nil
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse gsp %q: %w", masked, err)
	}
	return &v, nil
}

// FormatGsp agrupa los miles con comas.
func FormatGsp(v int64) string {
	s := strconv.FormatInt(v, 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}

// FormatGspPtr devuelve "" para nil.
func FormatGspPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return FormatGsp(*v)
}
