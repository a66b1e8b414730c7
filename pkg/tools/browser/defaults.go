package browser

import (
	"fmt"

	"github.com/entrhq/devbridge/pkg/config"
	"github.com/entrhq/devbridge/pkg/devtools"
)

// DefaultRecordLimit is how many records a query returns when no limit is given.
const DefaultRecordLimit = 100

// endpoint is a resolved connection target.
type endpoint struct {
	Dialect devtools.Dialect
	Host    string
	Port    int
}

// resolveEndpoint fills unset arguments from the devtools config section,
// falling back to the protocol defaults when config is not initialized.
func resolveEndpoint(dialect, host string, port *int) (endpoint, error) {
	ep := endpoint{Dialect: devtools.DialectChrome, Host: devtools.DefaultHost, Port: devtools.DefaultPort}

	if section := config.GetDevTools(); section != nil {
		cfgHost, cfgPort, cfgDialect := section.Endpoint()
		ep.Host, ep.Port = cfgHost, cfgPort
		ep.Dialect = devtools.Dialect(cfgDialect)
	}

	if dialect != "" {
		d, err := devtools.ParseDialect(dialect)
		if err != nil {
			return endpoint{}, err
		}
		ep.Dialect = d
	}
	if host != "" {
		ep.Host = host
	}
	if port != nil {
		if *port < 1 || *port > 65535 {
			return endpoint{}, fmt.Errorf("port must be between 1 and 65535")
		}
		ep.Port = *port
	}
	return ep, nil
}

// resolveLimit applies the default to a limit argument and caps it at the
// capacity of the session's record stores.
func resolveLimit(limit *int, capacity int) (int, error) {
	if limit == nil {
		return DefaultRecordLimit, nil
	}
	if *limit < 1 {
		return 0, fmt.Errorf("limit must be positive")
	}
	if capacity > 0 && *limit > capacity {
		return capacity, nil
	}
	return *limit, nil
}

func launchHeadless() bool {
	if section := config.GetDevTools(); section != nil {
		return section.IsLaunchHeadless()
	}
	return true
}
