package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/sam3lab/internal/envvar"
)

// Environment is the runtime environment the binary runs in.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// FromEnv reads the environment from SAM3LAB_ENV. Anything other than
// "prod"/"production" is treated as development.
func FromEnv() Environment {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envvar.Sam3labEnv))) {
	case "prod", "production":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == Production
}
