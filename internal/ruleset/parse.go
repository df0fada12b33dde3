package ruleset

import (
	"bytes"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/strategy"
)

type document struct {
	Version   *int                  `yaml:"version"`
	ServiceID string                `yaml:"serviceId"`
	Rules     []*domain.BillingRule `yaml:"rules"`
}

// Parse decodes a YAML or JSON rule document. JSON is accepted as YAML.
func Parse(data []byte) (*domain.BillingConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidConfig)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	if doc.Version == nil {
		return nil, fmt.Errorf("%w: version must be an integer", domain.ErrInvalidConfig)
	}

	return &domain.BillingConfig{
		Version:   *doc.Version,
		ServiceID: doc.ServiceID,
		Rules:     doc.Rules,
	}, nil
}

// Validate checks a parsed document for serviceID. When registry is not nil
// every strategy config is built once so unknown types and bad parameters
// fail here rather than on the first request.
func Validate(cfg *domain.BillingConfig, serviceID string, registry *strategy.Registry) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil document", domain.ErrInvalidConfig)
	}

	if cfg.ServiceID != serviceID {
		return fmt.Errorf("%w: document is for %q, expected %q", domain.ErrServiceMismatch, cfg.ServiceID, serviceID)
	}

	if len(cfg.Rules) == 0 {
		return fmt.Errorf("%w: rules must be a non-empty list", domain.ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(cfg.Rules))
	defaults := 0

	for i, rule := range cfg.Rules {
		if rule == nil {
			return fmt.Errorf("%w: rule %d is empty", domain.ErrInvalidConfig, i)
		}
		if rule.ID == "" {
			return fmt.Errorf("%w: rule %d has no id", domain.ErrInvalidConfig, i)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("%w: duplicate rule id %q", domain.ErrInvalidConfig, rule.ID)
		}
		seen[rule.ID] = struct{}{}

		if rule.Strategy.Type == "" {
			return fmt.Errorf("%w: rule %q has no strategy type", domain.ErrInvalidConfig, rule.ID)
		}

		if rule.Default {
			defaults++
		} else if rule.When == nil {
			return fmt.Errorf("%w: rule %q needs a when condition or default: true", domain.ErrInvalidConfig, rule.ID)
		}

		if rule.When != nil && rule.When.PathRegex != "" {
			if _, err := regexp.Compile(rule.When.PathRegex); err != nil {
				return fmt.Errorf("%w: rule %q: %w", domain.ErrInvalidConfig, rule.ID, err)
			}
		}

		if registry != nil {
			if _, err := registry.Build(rule.Strategy); err != nil {
				return fmt.Errorf("%w: rule %q: %w", domain.ErrInvalidConfig, rule.ID, err)
			}
		}
	}

	if defaults > 1 {
		return fmt.Errorf("%w: %d default rules, at most one allowed", domain.ErrInvalidConfig, defaults)
	}

	return nil
}
