package config

import (
	"fmt"
	"math"
	"time"

	"github.com/roadsim/roadsim/internal/database"
	"github.com/roadsim/roadsim/internal/influx"
	"github.com/roadsim/roadsim/internal/simulation"
	"github.com/roadsim/roadsim/internal/world"
	"github.com/roadsim/roadsim/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "roadsim.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	Path         string        `json:"path" mapstructure:"path"`
}

// WebSocketConfig is the live stream endpoint.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures a storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
	Postgres  database.Config `json:"-" mapstructure:"-"`
}

// VehicleConfig is the size and top speed of spawned vehicles.
type VehicleConfig struct {
	Width    float64 `json:"width" mapstructure:"width"`
	Height   float64 `json:"height" mapstructure:"height"`
	MaxSpeed float64 `json:"maxSpeed" mapstructure:"maxSpeed"`
}

// SimulationConfig drives a headless run.
type SimulationConfig struct {
	Ticks     int
	Seed      int64
	WorldFile string
	Spawn     simulation.Config
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./roadsimlogs")

	wc := world.DefaultConfig()
	viper.SetDefault("world.file", "")
	viper.SetDefault("world.roadWidth", wc.RoadWidth)
	viper.SetDefault("world.roadRoundness", wc.RoadRoundness)
	viper.SetDefault("world.buildingWidth", wc.BuildingWidth)
	viper.SetDefault("world.buildingMinLength", wc.BuildingMinLength)
	viper.SetDefault("world.spacing", wc.Spacing)
	viper.SetDefault("world.treeSize", wc.TreeSize)

	viper.SetDefault("car.width", 24)
	viper.SetDefault("car.height", 40)
	viper.SetDefault("car.maxSpeed", 3)

	viper.SetDefault("sensor.rayCount", 5)
	viper.SetDefault("sensor.rayLength", 155)
	viper.SetDefault("sensor.raySpread", math.Pi/4)
	viper.SetDefault("sensor.rayOffset", 0)

	viper.SetDefault("network.hidden", 6)

	viper.SetDefault("sim.ticks", 3600)
	viper.SetDefault("sim.mutation", 0.9)
	viper.SetDefault("sim.seed", 1)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./saves")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.path", "./roadsim.db")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "roadsim")
	viper.SetDefault("db.maxOpenConns", 10)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "roadsim")
	viper.SetDefault("influx.retentionDays", 90)
	viper.SetDefault("influx.batchSize", 2500)
	viper.SetDefault("influx.flushInterval", "1s")

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetWorldConfig returns the world generation parameters.
func GetWorldConfig() world.Config {
	return world.Config{
		RoadWidth:         viper.GetFloat64("world.roadWidth"),
		RoadRoundness:     viper.GetInt("world.roadRoundness"),
		BuildingWidth:     viper.GetFloat64("world.buildingWidth"),
		BuildingMinLength: viper.GetFloat64("world.buildingMinLength"),
		Spacing:           viper.GetFloat64("world.spacing"),
		TreeSize:          viper.GetFloat64("world.treeSize"),
	}
}

func GetVehicleConfig() VehicleConfig {
	return VehicleConfig{
		Width:    viper.GetFloat64("car.width"),
		Height:   viper.GetFloat64("car.height"),
		MaxSpeed: viper.GetFloat64("car.maxSpeed"),
	}
}

func GetSensorConfig() core.SensorData {
	return core.SensorData{
		RayCount:  viper.GetInt("sensor.rayCount"),
		RayLength: viper.GetFloat64("sensor.rayLength"),
		RaySpread: viper.GetFloat64("sensor.raySpread"),
		RayOffset: viper.GetFloat64("sensor.rayOffset"),
	}
}

// GetSimulationConfig combines the car, sensor, network and sim sections.
func GetSimulationConfig() SimulationConfig {
	vc := GetVehicleConfig()
	return SimulationConfig{
		Ticks:     viper.GetInt("sim.ticks"),
		Seed:      viper.GetInt64("sim.seed"),
		WorldFile: viper.GetString("world.file"),
		Spawn: simulation.Config{
			Width:    vc.Width,
			Height:   vc.Height,
			MaxSpeed: vc.MaxSpeed,
			Sensor:   GetSensorConfig(),
			Hidden:   viper.GetInt("network.hidden"),
			Mutation: viper.GetFloat64("sim.mutation"),
		},
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			Path:         viper.GetString("storage.sqlite.path"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
		Postgres: database.Config{
			Host:         viper.GetString("db.host"),
			Port:         viper.GetString("db.port"),
			Username:     viper.GetString("db.username"),
			Password:     viper.GetString("db.password"),
			Database:     viper.GetString("db.database"),
			MaxOpenConns: viper.GetInt("db.maxOpenConns"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB connection settings.
func GetInfluxConfig() influx.Config {
	return influx.Config{
		Enabled:       viper.GetBool("influx.enabled"),
		Protocol:      viper.GetString("influx.protocol"),
		Host:          viper.GetString("influx.host"),
		Port:          viper.GetString("influx.port"),
		Token:         viper.GetString("influx.token"),
		Org:           viper.GetString("influx.org"),
		RetentionDays: viper.GetInt("influx.retentionDays"),
		BatchSize:     viper.GetUint("influx.batchSize"),
		FlushInterval: viper.GetDuration("influx.flushInterval"),
	}
}
