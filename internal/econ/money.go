package econ

import (
	"errors"
	"fmt"
	"math"
)

// MoneyUtilityForm selects the functional form of u_money(M).
type MoneyUtilityForm uint8

const (
	MoneyLinear MoneyUtilityForm = iota
	MoneyLog
)

// ErrUnknownMoneyForm is returned by MoneyParams.Validate for an
// unrecognized money_utility_form — a ConfigError per the spec's taxonomy.
var ErrUnknownMoneyForm = errors.New("econ: unknown money_utility_form")

// MoneyParams holds the per-agent monetary preference parameters.
type MoneyParams struct {
	Form   MoneyUtilityForm
	Lambda float64 // λ: marginal value of money (linear) or scale (log)
	M0     float64 // M₀ ≥ 0, wealth-effect offset
}

// Validate rejects unknown forms per §4.2; core never falls back silently.
func (p MoneyParams) Validate() error {
	switch p.Form {
	case MoneyLinear, MoneyLog:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMoneyForm, p.Form)
	}
}

// UMoney returns u_money(M).
func (p MoneyParams) UMoney(m uint32, eps float64) float64 {
	switch p.Form {
	case MoneyLog:
		arg := float64(m) + p.M0
		if arg < eps {
			arg = eps
		}
		return p.Lambda * math.Log(arg)
	default: // MoneyLinear
		return p.Lambda * float64(m)
	}
}

// MUMoney returns the marginal utility of money.
func (p MoneyParams) MUMoney(m uint32) float64 {
	switch p.Form {
	case MoneyLog:
		denom := float64(m) + p.M0
		if denom <= 0 {
			denom = 1e-12
		}
		return p.Lambda / denom
	default: // MoneyLinear
		return p.Lambda
	}
}

// UTotal returns u_goods(A,B) + u_money(M) for an agent's full inventory.
func UTotal(u Utility, a, b, m uint32, money MoneyParams, eps float64) float64 {
	return u.UGoods(a, b) + money.UMoney(m, eps)
}
