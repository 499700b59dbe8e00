// Package fees holds the pure, data-driven fee policy tables. New corridors,
// providers and networks are added through configuration, not code.
package fees

import (
	"fmt"
	"strings"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// BankTier prices payouts to a group of destination countries.
// The fee is minimum + amount x percent; ETA is in business days.
type BankTier struct {
	Name            string   `mapstructure:"name"`
	Countries       []string `mapstructure:"countries"`
	Percent         string   `mapstructure:"percent"` // decimal string, e.g. "0.001" for 0.1%
	MinimumFee      string   `mapstructure:"minimum_fee"`
	ETABusinessDays int      `mapstructure:"eta_business_days"`
}

// Provider describes a mobile-money provider's pricing and limits.
type Provider struct {
	Percent   string `mapstructure:"percent"`
	FixedFee  string `mapstructure:"fixed_fee"`
	MinAmount string `mapstructure:"min_amount"`
	MaxAmount string `mapstructure:"max_amount"`
}

// Config is the raw fee table shape read from YAML.
type Config struct {
	Bank struct {
		Tiers   []BankTier `mapstructure:"tiers"`
		Default BankTier   `mapstructure:"default"`
	} `mapstructure:"bank"`
	MobileMoney     map[string]Provider `mapstructure:"mobile_money"`
	CryptoNetworks  map[string]string   `mapstructure:"crypto_networks"` // network -> flat fee
	ExchangePercent string              `mapstructure:"exchange_percent"`
}

type bankTier struct {
	name    string
	percent decimal.Decimal
	minimum int64
	etaDays int
}

type provider struct {
	percent decimal.Decimal
	fixed   int64
	min     int64
	max     int64
}

// Calculator evaluates the compiled fee tables. All methods are pure.
type Calculator struct {
	bankByCountry map[string]bankTier
	bankDefault   bankTier
	providers     map[string]provider
	networks      map[string]int64
	exchangePct   decimal.Decimal
}

// Load reads fee tables from the given YAML file via viper, falling back to
// the compiled-in defaults when no path is configured or the file is absent.
func Load(path string) (*Calculator, error) {
	cfg := DefaultConfig()
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read fee config %s: %w", path, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, fmt.Errorf("parse fee config %s: %w", path, err)
		}
	}
	return NewCalculator(cfg)
}

// NewCalculator compiles a raw config into a Calculator, validating every
// decimal in the tables up front.
func NewCalculator(cfg Config) (*Calculator, error) {
	c := &Calculator{
		bankByCountry: make(map[string]bankTier),
		providers:     make(map[string]provider),
		networks:      make(map[string]int64),
	}

	compileTier := func(t BankTier) (bankTier, error) {
		pct, err := decimal.NewFromString(t.Percent)
		if err != nil {
			return bankTier{}, fmt.Errorf("bank tier %q percent: %w", t.Name, err)
		}
		min, err := decimal.NewFromString(t.MinimumFee)
		if err != nil {
			return bankTier{}, fmt.Errorf("bank tier %q minimum_fee: %w", t.Name, err)
		}
		return bankTier{name: t.Name, percent: pct, minimum: domain.FromDecimal(min), etaDays: t.ETABusinessDays}, nil
	}

	for _, t := range cfg.Bank.Tiers {
		compiled, err := compileTier(t)
		if err != nil {
			return nil, err
		}
		for _, country := range t.Countries {
			c.bankByCountry[strings.ToUpper(country)] = compiled
		}
	}
	var err error
	c.bankDefault, err = compileTier(cfg.Bank.Default)
	if err != nil {
		return nil, err
	}

	for code, p := range cfg.MobileMoney {
		pct, err := decimal.NewFromString(p.Percent)
		if err != nil {
			return nil, fmt.Errorf("provider %q percent: %w", code, err)
		}
		fixed, err := decimal.NewFromString(p.FixedFee)
		if err != nil {
			return nil, fmt.Errorf("provider %q fixed_fee: %w", code, err)
		}
		min, err := decimal.NewFromString(p.MinAmount)
		if err != nil {
			return nil, fmt.Errorf("provider %q min_amount: %w", code, err)
		}
		max, err := decimal.NewFromString(p.MaxAmount)
		if err != nil {
			return nil, fmt.Errorf("provider %q max_amount: %w", code, err)
		}
		c.providers[strings.ToLower(code)] = provider{
			percent: pct,
			fixed:   domain.FromDecimal(fixed),
			min:     domain.FromDecimal(min),
			max:     domain.FromDecimal(max),
		}
	}

	for network, fee := range cfg.CryptoNetworks {
		f, err := decimal.NewFromString(fee)
		if err != nil {
			return nil, fmt.Errorf("network %q fee: %w", network, err)
		}
		c.networks[strings.ToLower(network)] = domain.FromDecimal(f)
	}

	c.exchangePct, err = decimal.NewFromString(cfg.ExchangePercent)
	if err != nil {
		return nil, fmt.Errorf("exchange_percent: %w", err)
	}
	return c, nil
}

// BankFee returns the payout fee and the estimated arrival in business days
// for the destination country. Unknown countries price at the default tier.
func (c *Calculator) BankFee(country string, amount domain.Money) (domain.Money, int, error) {
	if !amount.IsPositive() {
		return domain.Money{}, 0, domain.E(domain.KindValidation, "amount must be positive")
	}
	tier, ok := c.bankByCountry[strings.ToUpper(country)]
	if !ok {
		tier = c.bankDefault
	}
	fee := tier.minimum + amount.Multiply(tier.percent).Amount
	return domain.NewMoney(fee, amount.Currency), tier.etaDays, nil
}

// MobileMoneyFee validates the provider's limits and returns
// amount x percent + fixed. Out-of-range amounts are rejected before any
// mutation happens upstream.
func (c *Calculator) MobileMoneyFee(providerCode string, amount domain.Money) (domain.Money, error) {
	p, ok := c.providers[strings.ToLower(providerCode)]
	if !ok {
		return domain.Money{}, domain.E(domain.KindProviderUnavailable, "mobile money provider %q not configured", providerCode)
	}
	if amount.Amount < p.min {
		return domain.Money{}, domain.E(domain.KindLimitExceeded, "amount %s below provider minimum", amount)
	}
	if amount.Amount > p.max {
		return domain.Money{}, domain.E(domain.KindLimitExceeded, "amount %s above provider maximum", amount)
	}
	fee := amount.Multiply(p.percent).Amount + p.fixed
	return domain.NewMoney(fee, amount.Currency), nil
}

// CryptoNetworkFee is flat per network, independent of amount.
func (c *Calculator) CryptoNetworkFee(network, currency string) (domain.Money, error) {
	fee, ok := c.networks[strings.ToLower(network)]
	if !ok {
		return domain.Money{}, domain.E(domain.KindProviderUnavailable, "crypto network %q not configured", network)
	}
	return domain.NewMoney(fee, currency), nil
}

// ExchangeFee is a flat percentage of the traded amount.
func (c *Calculator) ExchangeFee(amount domain.Money) domain.Money {
	return amount.Multiply(c.exchangePct)
}

// DefaultConfig mirrors config/fees.yaml and keeps the service runnable
// without any external file.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.Bank.Tiers = []BankTier{
		{
			Name:            "eurozone",
			Countries:       []string{"DE", "FR", "ES", "IT", "NL", "BE", "PT", "IE", "AT", "FI"},
			Percent:         "0.001",
			MinimumFee:      "1.00",
			ETABusinessDays: 1,
		},
		{
			Name:            "europe_non_euro",
			Countries:       []string{"GB", "CH", "NO", "SE", "DK", "PL", "CZ"},
			Percent:         "0.0025",
			MinimumFee:      "2.00",
			ETABusinessDays: 2,
		},
		{
			Name:            "rest_of_world",
			Countries:       []string{"NG", "KE", "GH", "ZA", "IN", "PH", "BR", "MX"},
			Percent:         "0.01",
			MinimumFee:      "5.00",
			ETABusinessDays: 5,
		},
	}
	cfg.Bank.Default = BankTier{
		Name:            "default",
		Percent:         "0.005",
		MinimumFee:      "3.00",
		ETABusinessDays: 3,
	}
	cfg.MobileMoney = map[string]Provider{
		"mpesa":        {Percent: "0.015", FixedFee: "0.10", MinAmount: "1.00", MaxAmount: "1500.00"},
		"mtn_momo":     {Percent: "0.02", FixedFee: "0.20", MinAmount: "1.00", MaxAmount: "1000.00"},
		"orange_money": {Percent: "0.018", FixedFee: "0.15", MinAmount: "2.00", MaxAmount: "2000.00"},
	}
	cfg.CryptoNetworks = map[string]string{
		"bitcoin":  "8.00",
		"ethereum": "4.50",
		"tron":     "1.00",
		"solana":   "0.20",
		"polygon":  "0.05",
	}
	cfg.ExchangePercent = "0.005"
	return cfg
}
