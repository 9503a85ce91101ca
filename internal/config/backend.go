package config

// ConfigBackend is the persistent store behind `inspectd config set`.
// On macOS it is the com.assure.inspectd defaults domain; elsewhere it is
// a JSON file under $XDG_CONFIG_HOME/inspectd. Booleans and floats are
// stored as strings.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
