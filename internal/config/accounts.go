package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Account is one trading account a webhook may address by name
type Account struct {
	Name                string `yaml:"name"`
	Description         string `yaml:"description"`
	Enabled             bool   `yaml:"enabled"`
	AllowOptionsTrading bool   `yaml:"allow_options_trading"`
	MaxPositionSize     int    `yaml:"max_position_size"`
}

// Accounts is the account registry loaded from YAML. It is read-only after load.
type Accounts struct {
	Accounts []Account `yaml:"accounts"`

	byName map[string]Account
}

// LoadAccounts reads and indexes the account file at path
func LoadAccounts(path string) (*Accounts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file %s: %w", path, err)
	}
	return ParseAccounts(data)
}

// ParseAccounts decodes an account registry from YAML
func ParseAccounts(data []byte) (*Accounts, error) {
	var a Accounts
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("invalid accounts YAML: %w", err)
	}

	a.byName = make(map[string]Account, len(a.Accounts))
	for _, acct := range a.Accounts {
		if acct.Name == "" {
			return nil, fmt.Errorf("account with empty name")
		}
		if _, dup := a.byName[acct.Name]; dup {
			return nil, fmt.Errorf("duplicate account %q", acct.Name)
		}
		a.byName[acct.Name] = acct
	}

	if len(a.EnabledNames()) == 0 {
		return nil, fmt.Errorf("no enabled accounts configured")
	}
	return &a, nil
}

// Lookup returns the account called name
func (a *Accounts) Lookup(name string) (Account, bool) {
	acct, ok := a.byName[name]
	return acct, ok
}

// IsEnabled reports whether name is a configured, enabled account
func (a *Accounts) IsEnabled(name string) bool {
	acct, ok := a.byName[name]
	return ok && acct.Enabled
}

// EnabledNames lists enabled accounts in file order
func (a *Accounts) EnabledNames() []string {
	var names []string
	for _, acct := range a.Accounts {
		if acct.Enabled {
			names = append(names, acct.Name)
		}
	}
	return names
}
