package plans

// Plan is static catalog configuration, it is never persisted.
// A limit of 0 means unlimited.
type Plan struct {
	ID             string                     `yaml:"id" json:"id"`
	Name           string                     `yaml:"name" json:"name"`
	MonthlyPrice   float64                    `yaml:"monthly_price" json:"monthly_price"`
	AnnualPrice    float64                    `yaml:"annual_price" json:"annual_price,omitempty"`
	MaxUsers       int                        `yaml:"max_users" json:"max_users"`
	MaxAssets      int                        `yaml:"max_assets" json:"max_assets"`
	SupportsAnnual bool                       `yaml:"supports_annual" json:"supports_annual"`
	Popular        bool                       `yaml:"popular" json:"popular,omitempty"`
	Features       []string                   `yaml:"features" json:"features"`
	Prices         map[string]PriceReferences `yaml:"prices" json:"-"`
}

// PriceReferences holds the payment-provider price ids of one mode (live|test).
type PriceReferences struct {
	Monthly string `yaml:"monthly"`
	Annual  string `yaml:"annual"`
}
