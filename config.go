package objectcore

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Config tunes a Context. Every field has a usable zero value except where
// DefaultConfig says otherwise.
type Config struct {
	// EmitLifecycleEvents publishes object created and destroyed events to
	// observers.
	EmitLifecycleEvents bool `yaml:"emitLifecycleEvents" toml:"emit_lifecycle_events" env:"EMIT_LIFECYCLE_EVENTS" default:"false"`

	// NotifyLateMutations publishes an event for every structural change
	// dropped because its type was already closed. The warning is logged
	// either way.
	NotifyLateMutations bool `yaml:"notifyLateMutations" toml:"notify_late_mutations" env:"NOTIFY_LATE_MUTATIONS" default:"true"`

	// EventSource is the CloudEvents source of every published event.
	EventSource string `yaml:"eventSource" toml:"event_source" env:"EVENT_SOURCE" default:"objectcore"`

	// ForwardEvents names object events mirrored to observers after they
	// have been delivered.
	ForwardEvents []string `yaml:"forwardEvents" toml:"forward_events" env:"FORWARD_EVENTS"`

	// Defaults overrides attribute defaults by type name and attribute
	// name. Values are parsed according to the attribute kind when the
	// type is registered.
	Defaults map[string]map[string]string `yaml:"defaults" toml:"defaults"`
}

// DefaultConfig returns the configuration used when none is given: a Config
// with every default tag applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := ProcessConfigDefaults(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// ProcessConfigDefaults sets every zero field of the struct cfg points to
// from its default tag. Slice fields take comma separated values.
func ProcessConfigDefaults(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrConfigNotPointer
	}
	rv = rv.Elem()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		defaultVal, ok := fieldType.Tag.Lookup("default")
		if !ok || !field.CanSet() || !field.IsZero() {
			continue
		}
		if err := setFieldValue(field, defaultVal); err != nil {
			return fmt.Errorf("default for %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) file over
// DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrConfigFormat, path)
	}
	return cfg, nil
}

// ApplyEnv overrides the fields of cfg that carry an env tag from
// environment variables named PREFIX_TAG. Slice fields take comma
// separated values.
func ApplyEnv(cfg any, prefix string) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrConfigNotPointer
	}
	rv = rv.Elem()
	prefix = strings.ToUpper(prefix)
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		envTag, ok := fieldType.Tag.Lookup("env")
		if !ok || !field.CanSet() {
			continue
		}
		envName := strings.ToUpper(envTag)
		if prefix != "" {
			envName = prefix + "_" + envName
		}
		value, ok := os.LookupEnv(envName)
		if !ok || value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("env %s: %w", envName, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, strValue string) error {
	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String {
		parts := strings.Split(strValue, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts).Convert(field.Type()))
		return nil
	}
	converted, err := cast.FromType(strValue, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}
