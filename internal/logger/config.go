// internal/logger/config.go
package logger

// Config – параметры консольного и файлового вывода
type Config struct {
	LogFile     string
	MaxSize     int // мегабайты
	MaxAge      int // дни
	MaxBackups  int
	Compress    bool
	Development bool
	// Quiet отключает консоль, остается только файл (удобно для JSON-вывода CLI)
	Quiet bool
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "vaultctl.log",
		MaxSize:    50,
		MaxAge:     14,
		MaxBackups: 3,
		Compress:   true,
	}
}
