package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/amigadave/libportal/logger"
	"github.com/amigadave/libportal/portal"
)

const (
	AppName     = "portal-input-api"
	AppVersion  = "0.1.0"
	serviceType = "_http._tcp"
	domain      = "local."
)

type Config struct {
	Api      *ApiConfig
	Portal   *PortalConfig
	Zeroconf *ZeroConfig
	LogLevel logger.Level
}

type ApiConfig struct {
	Enabled bool
	Bind    string
	Port    int
}

type PortalConfig struct {
	Devices     portal.DeviceType
	Outputs     portal.OutputType
	Multiple    bool
	PersistMode portal.PersistMode
	TokenFile   string
}

type ZeroConfig struct {
	Enabled      bool
	InstanceName string
	ServiceType  string
	Domain       string
	Port         int
	TxtRecords   []string
}

// parseDevices converts a comma-separated device list to a mask.
func parseDevices(raw []string) (portal.DeviceType, error) {
	var mask portal.DeviceType
	for _, name := range raw {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "pointer":
			mask |= portal.DevicePointer
		case "keyboard":
			mask |= portal.DeviceKeyboard
		case "touchscreen":
			mask |= portal.DeviceTouchscreen
		case "":
		default:
			return 0, fmt.Errorf("unknown device type: %s", name)
		}
	}
	return mask, nil
}

// parseOutputs converts a comma-separated output list to a mask.
func parseOutputs(raw []string) (portal.OutputType, error) {
	var mask portal.OutputType
	for _, name := range raw {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "monitor":
			mask |= portal.OutputMonitor
		case "window":
			mask |= portal.OutputWindow
		case "virtual":
			mask |= portal.OutputVirtual
		case "":
		default:
			return 0, fmt.Errorf("unknown output type: %s", name)
		}
	}
	return mask, nil
}

// parsePersistMode converts a persist mode name to its portal value.
func parsePersistMode(raw string) (portal.PersistMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return portal.PersistNone, nil
	case "transient":
		return portal.PersistTransient, nil
	case "permanent":
		return portal.PersistPermanent, nil
	default:
		return 0, fmt.Errorf("unknown persist mode: %s", raw)
	}
}

func defaultTokenFile() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, AppName, "restore-token")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", AppName, "restore-token")
	}
	return filepath.Join(home, ".local", "state", AppName, "restore-token")
}

func New() (*Config, error) {
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.port", 8089)
	viper.SetDefault("bind", "127.0.0.1")

	viper.SetDefault("portal.devices", []string{"pointer", "keyboard"})
	viper.SetDefault("portal.outputs", []string{"monitor"})
	viper.SetDefault("portal.multiple", false)
	viper.SetDefault("portal.persist_mode", "permanent")
	viper.SetDefault("portal.token_file", defaultTokenFile())

	viper.SetDefault("zeroconf.enabled", true)
	viper.SetDefault("LogLevel", "WARN")

	// Load from configuration file when present
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.Join("/etc", AppName))
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", AppName))
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with defaults if not found
		if _, isNotFound := err.(viper.ConfigFileNotFoundError); !isNotFound {
			logger.Warn("failed to read config: %v", err)
		}
	}

	port := viper.GetInt("api.port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", port)
	}

	devices, err := parseDevices(viper.GetStringSlice("portal.devices"))
	if err != nil {
		return nil, err
	}
	outputs, err := parseOutputs(viper.GetStringSlice("portal.outputs"))
	if err != nil {
		return nil, err
	}
	persist, err := parsePersistMode(viper.GetString("portal.persist_mode"))
	if err != nil {
		return nil, err
	}
	if devices == portal.DeviceNone && outputs == portal.OutputNone {
		return nil, fmt.Errorf("nothing to request: no devices and no outputs configured")
	}

	apiCfg := ApiConfig{
		Enabled: viper.GetBool("api.enabled"),
		Bind:    viper.GetString("bind"),
		Port:    port,
	}

	portalCfg := PortalConfig{
		Devices:     devices,
		Outputs:     outputs,
		Multiple:    viper.GetBool("portal.multiple"),
		PersistMode: persist,
		TokenFile:   viper.GetString("portal.token_file"),
	}

	zerocfg := ZeroConfig{
		Enabled:      viper.GetBool("zeroconf.enabled"),
		InstanceName: AppName,
		ServiceType:  serviceType,
		Domain:       domain,
		Port:         port,
		TxtRecords:   []string{"version=" + AppVersion},
	}

	cfg := Config{
		Api:      &apiCfg,
		Portal:   &portalCfg,
		Zeroconf: &zerocfg,
		LogLevel: logger.ParseLevel(viper.GetString("LogLevel")),
	}

	return &cfg, nil
}
