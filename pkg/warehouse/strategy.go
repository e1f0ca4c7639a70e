// Package warehouse provides the client for the remote analytics warehouse:
// three-tier authentication strategy resolution, ad-hoc SQL statement
// execution, and short-lived database credential generation.
package warehouse

import (
	"strings"

	"github.com/lakeview-data/marketplace-api/pkg/config"
)

// Strategy is one of the three mutually exclusive authentication strategies
// for the warehouse. Resolution is precedence-ordered: OAuth client
// credentials, then static access token, then CLI profile.
type Strategy interface {
	// Method returns the diagnostic name of the strategy.
	Method() string
}

// OAuthClientCredentials authenticates with an OAuth client-credentials grant.
type OAuthClientCredentials struct {
	ClientID     string
	ClientSecret string
}

func (OAuthClientCredentials) Method() string { return "oauth_client_credentials" }

// AccessToken authenticates with a static personal access token.
type AccessToken struct {
	Token string
}

func (AccessToken) Method() string { return "access_token" }

// CLIProfile authenticates with a locally configured CLI profile.
type CLIProfile struct {
	Name string
}

func (CLIProfile) Method() string { return "cli_profile" }

// ResolveStrategy picks the authentication strategy from configuration.
// It is a pure function of the given config, evaluated at call time.
// The CLI profile tier is always available as the fallback.
func ResolveStrategy(cfg config.WarehouseConfig) Strategy {
	if cfg.HasClientCredentials() {
		return OAuthClientCredentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}
	}
	if cfg.AccessToken != "" {
		return AccessToken{Token: cfg.AccessToken}
	}
	profile := cfg.CLIProfile
	if profile == "" {
		profile = "DEFAULT"
	}
	return CLIProfile{Name: profile}
}

// instanceDomainSuffix is the managed database domain stripped when deriving
// an instance name from a host.
const instanceDomainSuffix = ".database.cloud.databricks.com"

// InstanceNameFromHost derives the stable instance identifier used when
// requesting dynamic database credentials. Hosts outside the managed domain
// pass through unchanged.
func InstanceNameFromHost(host string) string {
	if idx := strings.Index(host, instanceDomainSuffix); idx >= 0 {
		return host[:idx]
	}
	return host
}
