// Package config loads database and runtime settings from .env files,
// the optional YAML config file and the process environment.
package config

import (
	"fmt"
	"strings"

	"github.com/Veraticus/financas/internal/common"
)

// Environment selects the schema the ledger reads and writes.
type Environment string

// Known environments.
const (
	Prod Environment = "prod"
	Dev  Environment = "dev"
)

// Schema names backing each environment.
const (
	ProdSchema = "financas_pessoais"
	DevSchema  = "financas_pessoais_dev"
)

// Schema returns the database schema of the environment.
func (e Environment) Schema() string {
	if e == Dev {
		return DevSchema
	}
	return ProdSchema
}

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts "prod"/"dev" and their long forms.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production", "":
		return Prod, nil
	case "dev", "development":
		return Dev, nil
	}
	return "", fmt.Errorf("%w: environment %q (expected prod or dev)", common.ErrInvalidConfig, s)
}

// ParseEnvironments is ParseEnvironment plus "both", which expands to prod
// and dev in that order.
func ParseEnvironments(s string) ([]Environment, error) {
	if strings.EqualFold(strings.TrimSpace(s), "both") {
		return []Environment{Prod, Dev}, nil
	}
	env, err := ParseEnvironment(s)
	if err != nil {
		return nil, err
	}
	return []Environment{env}, nil
}
