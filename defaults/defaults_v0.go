package defaults

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sahib/config"
)

func sizeValidator(min, max uint64) func(val interface{}) error {
	return func(val interface{}) error {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("size is not a string: %v", val)
		}

		size, err := humanize.ParseBytes(s)
		if err != nil {
			return err
		}

		if size < min || size > max {
			return fmt.Errorf(
				"size %s is not within [%s, %s]",
				s, humanize.IBytes(min), humanize.IBytes(max),
			)
		}

		return nil
	}
}

// DefaultsV0 is the default config validation for cowstore
var DefaultsV0 = config.DefaultMapping{
	"overlay": config.DefaultMapping{
		"page_size": config.DefaultEntry{
			Default:      "1MiB",
			NeedsRestart: true,
			Docs: `Size of a single overlay page, like "4K" or "1MiB".

Every modified page holds this much memory. Smaller pages waste less
memory on sparse writes, bigger pages mean fewer backend reads.
`,
			Validator: sizeValidator(1, 1024*1024*1024),
		},
	},
	"compress": config.DefaultMapping{
		"default_algo": config.DefaultEntry{
			Default:      "snappy",
			NeedsRestart: false,
			Docs:         "What compression algorithm »pack« uses by default.",
			Validator: config.EnumValidator(
				"none", "snappy", "lz4", "zstd",
			),
		},
	},
	"kv": config.DefaultMapping{
		"chunk_size": config.DefaultEntry{
			Default:      64 * 1024,
			NeedsRestart: false,
			Docs:         "Size of the chunks a blob is split into when importing it to a kv store.",
			Validator:    config.IntRangeValidator(512, 64*1024*1024),
		},
	},
	"log": config.DefaultMapping{
		"level": config.DefaultEntry{
			Default:      "warning",
			NeedsRestart: false,
			Docs:         "Only messages with this level or above are printed.",
			Validator: config.EnumValidator(
				"debug", "info", "warning", "error", "fatal",
			),
		},
		"colors": config.DefaultEntry{
			Default:      true,
			NeedsRestart: false,
			Docs:         "Use colors in log output when printing to a terminal.",
		},
	},
}
