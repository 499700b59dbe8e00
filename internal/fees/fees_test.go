package fees

import (
	"errors"
	"testing"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const micros = int64(1_000_000)

func newCalc(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(DefaultConfig())
	require.NoError(t, err)
	return calc
}

func TestBankFeeTiers(t *testing.T) {
	calc := newCalc(t)
	amount := domain.NewMoney(100*micros, "EUR")

	// Eurozone: 1.00 + 0.1%.
	fee, eta, err := calc.BankFee("DE", amount)
	require.NoError(t, err)
	assert.Equal(t, 1*micros+100_000, fee.Amount)
	assert.Equal(t, 1, eta)

	// Non-euro Europe: 2.00 + 0.25%.
	fee, eta, err = calc.BankFee("gb", amount)
	require.NoError(t, err)
	assert.Equal(t, 2*micros+250_000, fee.Amount)
	assert.Equal(t, 2, eta)

	// Rest of world: 5.00 + 1%.
	fee, eta, err = calc.BankFee("NG", amount)
	require.NoError(t, err)
	assert.Equal(t, 5*micros+1_000_000, fee.Amount)
	assert.Equal(t, 5, eta)

	// Unknown countries price at the default tier: 3.00 + 0.5%.
	fee, eta, err = calc.BankFee("ZZ", amount)
	require.NoError(t, err)
	assert.Equal(t, 3*micros+500_000, fee.Amount)
	assert.Equal(t, 3, eta)

	_, _, err = calc.BankFee("DE", domain.NewMoney(0, "EUR"))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestMobileMoneyFee(t *testing.T) {
	calc := newCalc(t)

	// mpesa: 1.5% + 0.10 fixed.
	fee, err := calc.MobileMoneyFee("mpesa", domain.NewMoney(100*micros, "KES"))
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000+100_000), fee.Amount)

	// Provider codes are case-insensitive.
	_, err = calc.MobileMoneyFee("MPESA", domain.NewMoney(100*micros, "KES"))
	assert.NoError(t, err)

	_, err = calc.MobileMoneyFee("mpesa", domain.NewMoney(500_000, "KES"))
	assert.True(t, errors.Is(err, domain.ErrLimitExceeded), "below provider minimum")

	_, err = calc.MobileMoneyFee("mpesa", domain.NewMoney(2000*micros, "KES"))
	assert.True(t, errors.Is(err, domain.ErrLimitExceeded), "above provider maximum")

	_, err = calc.MobileMoneyFee("cowrie-shells", domain.NewMoney(100*micros, "KES"))
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestCryptoNetworkFeeIsFlat(t *testing.T) {
	calc := newCalc(t)

	small, err := calc.CryptoNetworkFee("ethereum", "USDT")
	require.NoError(t, err)
	assert.Equal(t, int64(4_500_000), small.Amount)
	assert.Equal(t, "USDT", small.Currency)

	// The fee does not depend on the amount at all.
	again, err := calc.CryptoNetworkFee("ETHEREUM", "USDT")
	require.NoError(t, err)
	assert.Equal(t, small.Amount, again.Amount)

	_, err = calc.CryptoNetworkFee("dogecoin", "DOGE")
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestExchangeFee(t *testing.T) {
	calc := newCalc(t)
	fee := calc.ExchangeFee(domain.NewMoney(100*micros, "USD"))
	assert.Equal(t, int64(500_000), fee.Amount, "flat 0.5%")
	assert.Equal(t, "USD", fee.Currency)
}

func TestNewCalculatorRejectsBadDecimals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExchangePercent = "half a percent"
	_, err := NewCalculator(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Bank.Tiers[0].Percent = "0.x"
	_, err = NewCalculator(cfg)
	assert.Error(t, err)
}
