package config

type StorageConfig interface {
	GetDurableBackend() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisKeyPrefix() string
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Storage struct {
	DurableBackend string `yaml:"durable_backend"`
	SQLitePath     string `yaml:"sqlite_path"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
}

var _ StorageConfig = Storage{}

func DefaultStorage() Storage {
	return Storage{
		DurableBackend: BackendSQLite,
		SQLitePath:     "./jwt-session.db",
		RedisAddr:      "localhost:6379",
		RedisKeyPrefix: "jwtsession:",
	}
}

// GetDurableBackend selects the store behind the durable ("remember me") tier.
func (s Storage) GetDurableBackend() string {
	return GetEnv("JWT_DURABLE_BACKEND", s.DurableBackend)
}

func (s Storage) GetSQLitePath() string {
	return GetEnv("JWT_SQLITE_PATH", s.SQLitePath)
}

func (s Storage) GetRedisAddr() string {
	return GetEnv("JWT_REDIS_ADDR", s.RedisAddr)
}

func (s Storage) GetRedisKeyPrefix() string {
	return GetEnv("JWT_REDIS_PREFIX", s.RedisKeyPrefix)
}
