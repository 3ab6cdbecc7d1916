package domain

// PaymentMethod is how money changed hands.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentPix        PaymentMethod = "PIX"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentTransfer   PaymentMethod = "TRANSFER"
	PaymentBoleto     PaymentMethod = "BOLETO"
	PaymentCheck      PaymentMethod = "CHECK"
)

var validPaymentMethods = map[PaymentMethod]bool{
	PaymentCash:       true,
	PaymentPix:        true,
	PaymentCreditCard: true,
	PaymentDebitCard:  true,
	PaymentTransfer:   true,
	PaymentBoleto:     true,
	PaymentCheck:      true,
}

// IsValid reports whether m belongs to the accepted set.
func (m PaymentMethod) IsValid() bool {
	return validPaymentMethods[m]
}

// ValidatePaymentMethod returns a validation error for unknown methods.
func ValidatePaymentMethod(m PaymentMethod) error {
	if !m.IsValid() {
		return NewValidationError("invalid payment method %q", m)
	}
	return nil
}
