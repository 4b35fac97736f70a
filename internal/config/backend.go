package config

// ConfigBackend is the platform store that persists "askbot config set".
// macOS uses the user defaults database, other platforms a YAML file.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
