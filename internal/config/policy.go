package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/domain/permission"
)

// Policy holds the deployment-tunable domain rules: which identity-provider
// groups map onto the assignable roles, and how long hearing-based access
// lasts. The defaults match the national deployment; a YAML file overrides
// them per environment.
type Policy struct {
	AllowedGroups struct {
		Advocate      []string `yaml:"advocate"`
		DefenceLawyer []string `yaml:"defence_lawyer"`
		ChambersAdmin []string `yaml:"chambers_admin"`
	} `yaml:"allowed_groups"`

	HearingAccess struct {
		// Expiry is a Go duration string, for example "168h" for one week.
		Expiry Duration `yaml:"expiry"`
	} `yaml:"hearing_access"`
}

// Duration wraps time.Duration so YAML values can use Go duration syntax.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() *Policy {
	p := &Policy{}
	p.AllowedGroups.Advocate = []string{"Advocates"}
	p.AllowedGroups.DefenceLawyer = []string{"Defence Lawyers"}
	p.AllowedGroups.ChambersAdmin = []string{"Chambers Admin"}
	p.HearingAccess.Expiry = Duration(28 * 24 * time.Hour)
	return p
}

// LoadPolicy reads the policy file at path, or returns the defaults when
// path is empty.
func LoadPolicy(path string) (*Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return policy, nil
}

// Validate checks the policy for holes that would lock everyone out.
func (p *Policy) Validate() error {
	if len(p.AllowedGroups.Advocate) == 0 {
		return fmt.Errorf("allowed_groups.advocate must not be empty")
	}
	if len(p.AllowedGroups.DefenceLawyer) == 0 {
		return fmt.Errorf("allowed_groups.defence_lawyer must not be empty")
	}
	if p.HearingAccess.Expiry <= 0 {
		return fmt.Errorf("hearing_access.expiry must be positive")
	}
	return nil
}

// Allowlist converts the configured groups into the domain allow-list.
func (p *Policy) Allowlist() (permission.Allowlist, error) {
	return permission.NewAllowlist(
		p.AllowedGroups.Advocate,
		p.AllowedGroups.DefenceLawyer,
		p.AllowedGroups.ChambersAdmin,
	)
}

// HearingExpiryPolicy returns the expiry policy for hearing-based access
// records.
func (p *Policy) HearingExpiryPolicy() access.ExpiryPolicy {
	return access.ExpiresAfter(time.Duration(p.HearingAccess.Expiry))
}
