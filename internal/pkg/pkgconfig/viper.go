package pkgconfig

import (
	"path"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, so CSVMERGER_SERVER_ADDRESS_HTTP
// overrides server.address.http.
const EnvPrefix = "CSVMERGER"

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewViper loads configuration from the given file path and returns a Viper-backed Config.
//
// The config file type is inferred by Viper from the filename extension.
// Environment variables take precedence over the file.
func NewViper(pathFile string) (*Viper, error) {
	v := viper.New()

	filename := path.Base(pathFile)
	filePath := path.Dir(pathFile)

	configName := path.Base(filename[:len(filename)-len(path.Ext(filename))])

	v.AddConfigPath(filePath)
	v.SetConfigName(configName)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.WatchConfig()

	return &Viper{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tz", "UTC")
	v.SetDefault("server.address.http", ":8080")
	v.SetDefault("server.cors.allowed_origins", "*")
	v.SetDefault("goroutine.max", 100)
	v.SetDefault("modules.merger.enabled", true)
	v.SetDefault("modules.merger.max_upload_bytes", 32<<20)
	v.SetDefault("modules.merger.event.workers", 2)
	v.SetDefault("modules.merger.event.max_retries", 3)
	v.SetDefault("modules.merger.event.base_backoff_ms", 200)
	v.SetDefault("modules.merger.event.buffer", 256)
}

// GetInt returns the value for key as int64.
func (vc *Viper) GetInt(key string) int64 {
	return vc.v.GetInt64(key)
}

// GetBool returns the value for key as bool.
func (vc *Viper) GetBool(key string) bool {
	return vc.v.GetBool(key)
}

// GetString returns the value for key as string.
func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

// GetArray returns the comma separated items of key, trimmed, without empty ones.
// YAML lists are accepted too.
func (vc *Viper) GetArray(key string) []string {
	var out []string
	for _, raw := range vc.v.GetStringSlice(key) {
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// Close implements io.Closer for interface compatibility.
func (vc *Viper) Close() error {
	return nil
}
