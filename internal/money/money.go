// Package money holds the pure monetary arithmetic for the POS core.
// All amounts are int64 centavos — integer math only. The house side of the
// split absorbs the rounding remainder, so comision + casa == total by
// construction and never by a second rounding step.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrMontoInvalido      = errors.New("el monto debe ser mayor a cero")
	ErrPorcentajeInvalido = errors.New("el porcentaje de comisión debe estar entre 0 y 100")
)

// Split divides a sale total between the barber's commission and the house.
// comision = floor(total * pct / 100), casa = total - comision.
func Split(total int64, porcentaje int) (comision, casa int64, err error) {
	if total <= 0 {
		return 0, 0, ErrMontoInvalido
	}
	if porcentaje < 0 || porcentaje > 100 {
		return 0, 0, ErrPorcentajeInvalido
	}
	comision = total * int64(porcentaje) / 100
	casa = total - comision
	return comision, casa, nil
}

// Deviation bands at session close.
// normal: |pct| <= 1, advertencia: <= 5, critico: > 5.
const (
	DesvioNormal      = "normal"
	DesvioAdvertencia = "advertencia"
	DesvioCritico     = "critico"
)

// ClasificarDiferencia buckets a closing difference by its percentage of the
// expected amount. decimal keeps the percentage exact; floats never touch
// money-derived values.
func ClasificarDiferencia(diferencia, esperado int64) string {
	if esperado == 0 {
		if diferencia == 0 {
			return DesvioNormal
		}
		return DesvioCritico
	}
	pct := decimal.NewFromInt(diferencia).
		Div(decimal.NewFromInt(esperado)).
		Mul(decimal.NewFromInt(100)).
		Abs()
	switch {
	case pct.LessThanOrEqual(decimal.NewFromInt(1)):
		return DesvioNormal
	case pct.LessThanOrEqual(decimal.NewFromInt(5)):
		return DesvioAdvertencia
	default:
		return DesvioCritico
	}
}

// Formatear renders centavos as a currency string ("$1234.50") for receipts
// and reports.
func Formatear(centavos int64) string {
	return "$" + decimal.NewFromInt(centavos).Div(decimal.NewFromInt(100)).StringFixed(2)
}
