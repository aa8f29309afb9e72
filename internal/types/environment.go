package types

import (
	"fmt"
	"strings"
)

// Environment is the deployment target an inventory describes.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Environments lists every known environment.
var Environments = []Environment{Development, Production}

// ParseEnvironment maps a case-insensitive name onto an Environment.
func ParseEnvironment(s string) (Environment, error) {
	name := Environment(strings.ToLower(strings.TrimSpace(s)))
	for _, env := range Environments {
		if env == name {
			return env, nil
		}
	}
	return "", fmt.Errorf("unknown environment %q", s)
}

func (e Environment) String() string {
	return string(e)
}
