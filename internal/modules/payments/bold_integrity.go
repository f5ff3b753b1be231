package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var (
	amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

	// SupportedCurrencies are the codes the Bold button accepts.
	SupportedCurrencies = []string{"COP", "USD"}
)

type IntegrityRequest struct {
	OrderID  string
	Amount   string
	Currency string
}

type IntegritySignature struct {
	Signature string `json:"signature"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// IntegritySigner issues the integrity hash the Bold button widget sends
// along with a charge: sha256(orderId || amount || currency || secret).
type IntegritySigner struct {
	secret string
}

func NewIntegritySigner(secret string) *IntegritySigner {
	return &IntegritySigner{secret: secret}
}

func (s *IntegritySigner) Configured() bool {
	return s != nil && s.secret != ""
}

func (s *IntegritySigner) Sign(in IntegrityRequest) (IntegritySignature, error) {
	if !s.Configured() {
		return IntegritySignature{}, ErrSecretNotConfigured
	}

	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return IntegritySignature{}, ErrMissingOrderID
	}
	amount, err := NormalizeAmount(in.Amount)
	if err != nil {
		return IntegritySignature{}, err
	}
	currency, err := normalizeCurrency(in.Currency)
	if err != nil {
		return IntegritySignature{}, err
	}

	sum := sha256.Sum256([]byte(orderID + amount + currency + s.secret))
	return IntegritySignature{
		Signature: hex.EncodeToString(sum[:]),
		Amount:    amount,
		Currency:  currency,
	}, nil
}

// NormalizeAmount validates a decimal amount string and drops an all-zero
// fraction, so "10000.00" and "10000" sign identically.
func NormalizeAmount(amount string) (string, error) {
	amount = strings.TrimSpace(amount)
	if !amountPattern.MatchString(amount) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	whole, frac, found := strings.Cut(amount, ".")
	if found && strings.Trim(frac, "0") == "" {
		return whole, nil
	}
	return amount, nil
}

func normalizeCurrency(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	for _, s := range SupportedCurrencies {
		if c == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, c)
}
