package pkgconfig

// Config reads typed values by dotted key.
type Config interface {
	GetInt(key string) int64
	GetBool(key string) bool
	GetString(key string) string
	GetArray(key string) []string
	Close() error
}
