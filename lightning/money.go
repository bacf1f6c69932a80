package lightning

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/lnwire"
)

// MilliSatoshi is the node's native unit. One satoshi is 1000 millisatoshi.
type MilliSatoshi = lnwire.MilliSatoshi

const (
	CurrencyMsat = "msat"
	CurrencySat  = "sat"
	CurrencyBtc  = "btc"
)

const (
	msatPerSat = 1000
	msatPerBtc = 100_000_000_000
)

// Money is an amount with its currency suffix, e.g. "25000msat" or "120sat".
// Amounts cross the platform boundary in this form.
type Money string

func MsatMoney(amount MilliSatoshi) Money {
	return Money(strconv.FormatUint(uint64(amount), 10) + CurrencyMsat)
}

// MilliSatoshi parses the money string into the node's native unit.
func (m Money) MilliSatoshi() (MilliSatoshi, error) {
	s := strings.ToLower(strings.TrimSpace(string(m)))

	var unit string
	for _, candidate := range []string{CurrencyMsat, CurrencySat, CurrencyBtc} {
		if strings.HasSuffix(s, candidate) {
			unit = candidate
			break
		}
	}
	if unit == "" {
		return 0, fmt.Errorf("money %q has no recognized currency suffix", m)
	}

	value, err := strconv.ParseUint(strings.TrimSpace(strings.TrimSuffix(s, unit)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money %q has an invalid amount: %w", m, err)
	}

	switch unit {
	case CurrencySat:
		value *= msatPerSat
	case CurrencyBtc:
		value *= msatPerBtc
	}

	return MilliSatoshi(value), nil
}

func (m Money) IsZero() bool {
	msat, err := m.MilliSatoshi()
	return err == nil && msat == 0
}

// MoneyService converts amounts between currencies. The platform supplies an
// implementation backed by its conversion service; MsatConverter covers the
// node-native units.
type MoneyService interface {
	Convert(amount Money, currency string) (Money, error)
}

// MsatConverter converts between the bitcoin denominations without consulting
// an external rate source.
type MsatConverter struct{}

func (MsatConverter) Convert(amount Money, currency string) (Money, error) {
	msat, err := amount.MilliSatoshi()
	if err != nil {
		return "", err
	}

	switch strings.ToLower(currency) {
	case CurrencyMsat:
		return MsatMoney(msat), nil
	case CurrencySat:
		if msat%msatPerSat != 0 {
			return "", fmt.Errorf("cannot convert %v to sat without loss", amount)
		}
		return Money(strconv.FormatUint(uint64(msat)/msatPerSat, 10) + CurrencySat), nil
	case CurrencyBtc:
		if msat%msatPerBtc != 0 {
			return "", fmt.Errorf("cannot convert %v to btc without loss", amount)
		}
		return Money(strconv.FormatUint(uint64(msat)/msatPerBtc, 10) + CurrencyBtc), nil
	default:
		return "", fmt.Errorf("unsupported currency %q", currency)
	}
}
