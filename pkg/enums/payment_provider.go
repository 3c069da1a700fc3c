package enums

import "fmt"

// PaymentProvider identifies the channel a payment actually moved through.
type PaymentProvider string

const (
	PaymentProviderMpesaSTK          PaymentProvider = "mpesa_stk"
	PaymentProviderCashInHand        PaymentProvider = "cash_in_hand"
	PaymentProviderDriverMpesaManual PaymentProvider = "driver_mpesa_manual"
)

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsCashLike reports whether the provider means the driver already holds the
// money physically, so wallet credits would double-pay.
func (p PaymentProvider) IsCashLike() bool {
	return p == PaymentProviderCashInHand || p == PaymentProviderDriverMpesaManual
}

var validPaymentProviders = []PaymentProvider{
	PaymentProviderMpesaSTK,
	PaymentProviderCashInHand,
	PaymentProviderDriverMpesaManual,
}

// IsValid reports whether the value is a known provider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
