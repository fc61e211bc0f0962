// Package defaults holds the configuration keys of cowstore and their defaults.
package defaults

import (
	"os"

	"github.com/dustin/go-humanize"
	e "github.com/pkg/errors"
	"github.com/sahib/config"
)

// CurrentVersion is the current version of cowstore's config
const CurrentVersion = 0

// Defaults is the default validation for cowstore
var Defaults = DefaultsV0

// OpenDefaults returns a config that only has default values.
func OpenDefaults() (*config.Config, error) {
	return config.Open(nil, Defaults, config.StrictnessPanic)
}

// OpenMigratedConfig takes the config at path and loads it.
// If required, it also migrates the config structure to the newest
// version, so callers can always rely on the latest keys to be present.
func OpenMigratedConfig(path string) (*config.Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, e.Wrap(err, "failed to open config")
	}

	defer fd.Close()

	// Add here any migrations with mgr.Add if needed.
	mgr := config.NewMigrater(CurrentVersion, config.StrictnessPanic)
	mgr.Add(0, nil, DefaultsV0)

	cfg, err := mgr.Migrate(config.NewYamlDecoder(fd))
	if err != nil {
		return nil, e.Wrap(err, "failed to migrate")
	}

	return cfg, nil
}

// Open loads the config at `path`. An empty path means defaults only.
func Open(path string) (*config.Config, error) {
	if path == "" {
		return OpenDefaults()
	}

	return OpenMigratedConfig(path)
}

// PageSize returns overlay.page_size in bytes.
func PageSize(cfg *config.Config) (int64, error) {
	size, err := humanize.ParseBytes(cfg.String("overlay.page_size"))
	if err != nil {
		return 0, e.Wrap(err, "bad overlay.page_size")
	}

	return int64(size), nil
}
