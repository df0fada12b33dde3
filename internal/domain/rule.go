package domain

// BillingRule is an immutable declarative pricing unit. The policy flags are
// consumed by calling middleware, not by the engine.
type BillingRule struct {
	ID              string            `yaml:"id"`
	When            *BillingCondition `yaml:"when,omitempty"`
	Default         bool              `yaml:"default,omitempty"`
	Strategy        StrategyConfig    `yaml:"strategy"`
	AuthRequired    bool              `yaml:"authRequired,omitempty"`
	AdminOnly       bool              `yaml:"adminOnly,omitempty"`
	PaymentRequired bool              `yaml:"paymentRequired,omitempty"`
}

// BillingCondition is a conjunction of optional predicates. Extra holds any
// additional key/value equality checks against request metadata.
type BillingCondition struct {
	Path      string         `yaml:"path,omitempty"`
	PathRegex string         `yaml:"pathRegex,omitempty"`
	Method    string         `yaml:"method,omitempty"`
	AssetID   string         `yaml:"assetId,omitempty"`
	Model     string         `yaml:"model,omitempty"`
	Extra     map[string]any `yaml:",inline"`
}

// StrategyConfig selects a strategy type and carries its parameters.
type StrategyConfig struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:",inline"`
}

// Param returns a strategy parameter by name.
func (c StrategyConfig) Param(name string) (any, bool) {
	v, ok := c.Params[name]
	return v, ok
}

// BillingConfig is the parsed rule document for one service.
type BillingConfig struct {
	Version   int            `yaml:"version"`
	ServiceID string         `yaml:"serviceId"`
	Rules     []*BillingRule `yaml:"rules"`
}
