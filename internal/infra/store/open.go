package store

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"

	"github.com/osa030/mybeats/internal/infra/config"
)

// SQLiteSettings configures the sqlite backend.
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path" default:"data/mybeats.db" validate:"required"`
	WAL  bool   `yaml:"wal" mapstructure:"wal"`
}

// FileSettings configures the file backend.
type FileSettings struct {
	Dir string `yaml:"dir" mapstructure:"dir" default:"data/store" validate:"required"`
}

// Open creates the backend selected by the configuration and wraps it in a Store.
func Open(cfg config.StorageConfig) (*Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		var settings SQLiteSettings
		if err := decodeSettings(cfg.Settings, &settings); err != nil {
			return nil, err
		}
		backend, err := NewSQLite(settings.Path, settings.WAL)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	case "file":
		var settings FileSettings
		if err := decodeSettings(cfg.Settings, &settings); err != nil {
			return nil, err
		}
		backend, err := NewFile(afero.NewOsFs(), settings.Dir)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	default:
		return nil, errors.Newf("unknown storage driver: %s", cfg.Driver)
	}
}

func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode storage settings")
	}

	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set storage defaults")
	}

	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "storage settings validation failed")
	}
	return nil
}
