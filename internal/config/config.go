package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server" json:"server"`
	Storage      StorageConfig      `mapstructure:"storage" json:"storage"`
	Reset        ResetConfig        `mapstructure:"reset" json:"reset"`
	Network      NetworkConfig      `mapstructure:"network" json:"network"`
	Outputs      OutputsConfig      `mapstructure:"outputs" json:"outputs"`
	Display      DisplayConfig      `mapstructure:"display" json:"display"`
	Provisioning ProvisioningConfig `mapstructure:"provisioning" json:"provisioning"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port" json:"http_port"`
	TallyPort       int           `mapstructure:"tally_port" json:"tally_port"`
	DNSPort         int           `mapstructure:"dns_port" json:"dns_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

// StorageConfig locates the emulated non-volatile region.
type StorageConfig struct {
	Path       string `mapstructure:"path" json:"path"`
	RegionSize int    `mapstructure:"region_size" json:"region_size"`
}

// ResetConfig describes the factory reset input sampled once at boot.
type ResetConfig struct {
	Driver    string `mapstructure:"driver" json:"driver"` // none, gpio, iio
	Pin       string `mapstructure:"pin" json:"pin"`
	IIOPath   string `mapstructure:"iio_path" json:"iio_path"`
	Threshold int    `mapstructure:"threshold" json:"threshold"`
}

type NetworkConfig struct {
	Driver              string        `mapstructure:"driver" json:"driver"` // static, nmcli
	Interface           string        `mapstructure:"interface" json:"interface"`
	AssociationAttempts int           `mapstructure:"association_attempts" json:"association_attempts"`
	AssociationInterval time.Duration `mapstructure:"association_interval" json:"association_interval"`
	APSSID              string        `mapstructure:"ap_ssid" json:"ap_ssid"`
	APAddress           string        `mapstructure:"ap_address" json:"ap_address"`
	StaticNetworks      []string      `mapstructure:"static_networks" json:"static_networks"`
}

type OutputsConfig struct {
	Discrete DiscreteConfig `mapstructure:"discrete" json:"discrete"`
	Strip    StripConfig    `mapstructure:"strip" json:"strip"`
}

// DiscreteConfig wires the six discrete lines. Preview and Program hold one
// entry per camera: a GPIO name for the gpio driver, a coil address for modbus.
type DiscreteConfig struct {
	Driver  string       `mapstructure:"driver" json:"driver"` // memory, gpio, modbus
	Preview []string     `mapstructure:"preview" json:"preview"`
	Program []string     `mapstructure:"program" json:"program"`
	Modbus  ModbusConfig `mapstructure:"modbus" json:"modbus"`
}

type ModbusConfig struct {
	Address string        `mapstructure:"address" json:"address"`
	UnitID  int           `mapstructure:"unit_id" json:"unit_id"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

type StripConfig struct {
	Driver     string `mapstructure:"driver" json:"driver"` // memory, spi
	SPIPort    string `mapstructure:"spi_port" json:"spi_port"`
	Pixels     int    `mapstructure:"pixels" json:"pixels"`
	Channels   int    `mapstructure:"channels" json:"channels"`
	Brightness int    `mapstructure:"brightness" json:"brightness"`
}

type DisplayConfig struct {
	Driver   string `mapstructure:"driver" json:"driver"` // log, serial
	Port     string `mapstructure:"port" json:"port"`
	BaudRate int    `mapstructure:"baud_rate" json:"baud_rate"`
}

type ProvisioningConfig struct {
	// LegacyDecode restores the fixed substitution table of the first firmware
	// generation, including its misdecoded %30, %31 and %5F.
	LegacyDecode bool `mapstructure:"legacy_decode" json:"legacy_decode"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 80)
	v.SetDefault("server.tally_port", 81)
	v.SetDefault("server.dns_port", 53)
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("storage.path", "/var/lib/tallycore/region.bin")
	v.SetDefault("storage.region_size", 512)

	v.SetDefault("reset.driver", "none")
	v.SetDefault("reset.threshold", 500)

	v.SetDefault("network.driver", "static")
	v.SetDefault("network.interface", "wlan0")
	v.SetDefault("network.association_attempts", 30)
	v.SetDefault("network.association_interval", "500ms")
	v.SetDefault("network.ap_ssid", "TALLY_SETUP")
	v.SetDefault("network.ap_address", "192.168.1.1")

	v.SetDefault("outputs.discrete.driver", "memory")
	v.SetDefault("outputs.discrete.preview", []string{"GPIO2", "GPIO12", "GPIO1"})
	v.SetDefault("outputs.discrete.program", []string{"GPIO0", "GPIO14", "GPIO13"})
	v.SetDefault("outputs.discrete.modbus.unit_id", 1)
	v.SetDefault("outputs.discrete.modbus.timeout", "1s")

	v.SetDefault("outputs.strip.driver", "memory")
	v.SetDefault("outputs.strip.pixels", 8)
	v.SetDefault("outputs.strip.channels", 4)
	v.SetDefault("outputs.strip.brightness", 10)

	v.SetDefault("display.driver", "log")
	v.SetDefault("display.baud_rate", 9600)

	v.SetDefault("provisioning.legacy_decode", false)
}

// Load reads the daemon configuration. An empty path or a missing file
// leaves the defaults in place; TALLY_* environment variables override.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// String renders the configuration for startup logs.
func (c *Config) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}
