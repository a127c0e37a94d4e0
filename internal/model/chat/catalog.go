package chat

import (
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Catalog holds the sentences shown to callers in place of a reply when a backend fails.
type Catalog struct {
	RelayConfigMissing string `yaml:"relay_config_missing"`
	RelayTransport     string `yaml:"relay_transport"`
	RelayPending       string `yaml:"relay_pending"`
	AIConfigMissing    string `yaml:"ai_config_missing"`
	AITransport        string `yaml:"ai_transport"`
}

// DefaultCatalog returns the built-in English sentences.
func DefaultCatalog() Catalog {
	return Catalog{
		RelayConfigMissing: "The Direct Line bot is not configured (missing secret in .env).",
		RelayTransport:     "Something went wrong while connecting to the bot.",
		RelayPending:       "The bot is still processing...",
		AIConfigMissing:    "The AI (Gemini) is not configured (missing key in .env).",
		AITransport:        "Sorry, the AI (Gemini) is having trouble right now. Please try again later.",
	}
}

// LoadCatalog overlays the YAML file at path onto DefaultCatalog.
// Keys missing from the file keep their default sentence. An empty path returns the defaults.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, oops.In("catalog").With("path", path).Wrapf(err, "failed to read reply catalog")
	}

	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, oops.In("catalog").With("path", path).Wrapf(err, "failed to parse reply catalog")
	}

	return catalog, nil
}

// Render picks the sentence for a failure of kind on route.
func (c Catalog) Render(route Route, kind Kind) string {
	if route == RouteRelay {
		switch kind {
		case KindConfigMissing:
			return c.RelayConfigMissing
		case KindUpstreamEmpty:
			return c.RelayPending
		default:
			return c.RelayTransport
		}
	}

	if kind == KindConfigMissing {
		return c.AIConfigMissing
	}
	return c.AITransport
}
