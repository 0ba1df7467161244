package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Alpaca    AlpacaConfig    `yaml:"alpaca"`
	Storage   StorageConfig   `yaml:"storage"`
	Assistant AssistantConfig `yaml:"assistant"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig controla el loop de reconciliación.
type EngineConfig struct {
	IntervalSeconds     int     `yaml:"interval_seconds"`
	OrderQty            float64 `yaml:"order_qty"`
	EquityBudgetSeconds int     `yaml:"equity_budget_seconds"` // presupuesto de llamadas al broker por equity y tick
}

// AlpacaConfig contiene los endpoints del broker. Las keys vienen SOLO de
// variables de entorno (.env), nunca del YAML.
type AlpacaConfig struct {
	TradeBase string `yaml:"trade_base"`
	DataBase  string `yaml:"data_base"`
	APIKey    string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	RegistryPath string `yaml:"registry_path"` // archivo JSON del registro
	HistoryDSN   string `yaml:"history_dsn"`   // ruta al archivo SQLite, o ":memory:"
}

// AssistantConfig configura el asistente de portfolio.
type AssistantConfig struct {
	Model string `yaml:"model"`
}

// MetricsConfig controla el endpoint /metrics. Vacío = deshabilitado.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Interval devuelve el intervalo de reconciliación como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Engine.IntervalSeconds) * time.Second
}

// EquityBudget devuelve el presupuesto por equity como time.Duration.
func (c *Config) EquityBudget() time.Duration {
	return time.Duration(c.Engine.EquityBudgetSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		cfg.Alpaca.SecretKey = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.TradeBase = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.IntervalSeconds <= 0 {
		cfg.Engine.IntervalSeconds = 5
	}
	if cfg.Engine.OrderQty <= 0 {
		cfg.Engine.OrderQty = 1
	}
	if cfg.Engine.EquityBudgetSeconds <= 0 {
		cfg.Engine.EquityBudgetSeconds = 15
	}
	if cfg.Alpaca.TradeBase == "" {
		cfg.Alpaca.TradeBase = "https://paper-api.alpaca.markets"
	}
	if cfg.Alpaca.DataBase == "" {
		cfg.Alpaca.DataBase = "https://data.alpaca.markets"
	}
	if cfg.Storage.RegistryPath == "" {
		cfg.Storage.RegistryPath = "equities.json"
	}
	if cfg.Storage.HistoryDSN == "" {
		cfg.Storage.HistoryDSN = "dcabot.db"
	}
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "gemini-2.0-flash"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
