package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"vpn-monitor/internal/command"
	"vpn-monitor/internal/notify"
	"vpn-monitor/internal/probe"
)

// ErrMissingSetting reports a required setting that is not configured.
var ErrMissingSetting = errors.New("required setting missing")

const (
	keyringService = "vpn-monitor"
	keyringUser    = "telegram-bot-token"
)

type Config struct {
	BotToken       string
	ChatID         string
	APIURL         string
	Interval       time.Duration
	AdapterFilter  string
	CLIPath        string
	ProcessName    string
	PingTarget     string
	OutputEncoding string
	LogFile        string
	LogLevel       string
	MetricsAddr    string
}

// fileConfig is the optional YAML file named by VPN_MONITOR_CONFIG. Values
// in it are defaults; the environment overrides them.
type fileConfig struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		APIURL   string `yaml:"api_url"`
	} `yaml:"telegram"`
	CheckInterval  string `yaml:"check_interval"`
	AdapterName    string `yaml:"adapter_name"`
	CLIPath        string `yaml:"cli_path"`
	ProcessName    string `yaml:"process_name"`
	PingTarget     string `yaml:"ping_target"`
	OutputEncoding string `yaml:"output_encoding"`
	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level"`
	MetricsAddr    string `yaml:"metrics_addr"`
}

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return loadConfig(probe.DefaultPlatform(runtime.GOOS))
}

func loadConfig(p probe.Platform) (Config, error) {
	cfg := Config{
		APIURL:        notify.DefaultBaseURL,
		Interval:      30 * time.Second,
		AdapterFilter: p.AdapterFilter,
		ProcessName:   p.ProcessName,
		LogFile:       "vpn_monitor.log",
		LogLevel:      "info",
		MetricsAddr:   ":9090",
	}

	var err error
	if path := os.Getenv("VPN_MONITOR_CONFIG"); path != "" {
		if err = applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	envString("TELEGRAM_BOT_TOKEN", &cfg.BotToken)
	envString("TELEGRAM_CHAT_ID", &cfg.ChatID)
	envString("TELEGRAM_API_URL", &cfg.APIURL)
	envString("VPN_ADAPTER_NAME", &cfg.AdapterFilter)
	envString("VPN_CLI_PATH", &cfg.CLIPath)
	envString("VPN_PROCESS_NAME", &cfg.ProcessName)
	envString("VPN_PING_TARGET", &cfg.PingTarget)
	envString("VPN_OUTPUT_ENCODING", &cfg.OutputEncoding)
	envString("LOG_LEVEL", &cfg.LogLevel)
	// An explicitly empty value disables these two.
	if v, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	if cfg.Interval, err = envInterval("VPN_CHECK_INTERVAL", cfg.Interval); err != nil {
		return cfg, err
	}

	if cfg.BotToken == "" {
		cfg.BotToken = keyringToken()
	}
	if cfg.BotToken == "" {
		return cfg, fmt.Errorf("%w: TELEGRAM_BOT_TOKEN", ErrMissingSetting)
	}
	if cfg.ChatID == "" {
		return cfg, fmt.Errorf("%w: TELEGRAM_CHAT_ID", ErrMissingSetting)
	}

	if strings.TrimSpace(cfg.AdapterFilter) == "" {
		cfg.AdapterFilter = p.AdapterFilter
	}
	if cfg.ProcessName == "" {
		cfg.ProcessName = p.ProcessName
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel != "info" && cfg.LogLevel != "debug" {
		return cfg, fmt.Errorf("invalid LOG_LEVEL %q: want info or debug", cfg.LogLevel)
	}
	if cfg.OutputEncoding != "" {
		if _, err := command.NewDecoder(cfg.OutputEncoding); err != nil {
			return cfg, fmt.Errorf("invalid VPN_OUTPUT_ENCODING: %w", err)
		}
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var fc fileConfig
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setIf(&cfg.BotToken, fc.Telegram.BotToken)
	setIf(&cfg.ChatID, fc.Telegram.ChatID)
	setIf(&cfg.APIURL, fc.Telegram.APIURL)
	setIf(&cfg.AdapterFilter, fc.AdapterName)
	setIf(&cfg.CLIPath, fc.CLIPath)
	setIf(&cfg.ProcessName, fc.ProcessName)
	setIf(&cfg.PingTarget, fc.PingTarget)
	setIf(&cfg.OutputEncoding, fc.OutputEncoding)
	setIf(&cfg.LogFile, fc.LogFile)
	setIf(&cfg.LogLevel, fc.LogLevel)
	setIf(&cfg.MetricsAddr, fc.MetricsAddr)

	if fc.CheckInterval != "" {
		d, err := parseInterval(fc.CheckInterval)
		if err != nil {
			return fmt.Errorf("invalid check_interval in %s: %w", path, err)
		}
		cfg.Interval = d
	}
	return nil
}

func keyringToken() string {
	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		return ""
	}
	return token
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInterval(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := parseInterval(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseInterval accepts whole seconds ("30") or a Go duration ("1m30s").
func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	var d time.Duration
	if n, err := strconv.Atoi(v); err == nil {
		d = time.Duration(n) * time.Second
	} else {
		d, err = time.ParseDuration(v)
		if err != nil {
			return 0, err
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", v)
	}
	return d, nil
}
