package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"prusammu/common/logger"
	"prusammu/common/sys"
	"prusammu/mmu"
	"prusammu/store"
	"prusammu/transport"
	"prusammu/web"
)

// Config is the daemon-level configuration. Plugin settings (timeout,
// filament table, ...) live in the settings store instead, where the UI can
// edit them.
type Config struct {
	Serial struct {
		Device string `toml:"device"`
		Baud   int    `toml:"baud"`
	} `toml:"serial"`
	Web struct {
		Listen string `toml:"listen"`
		APIKey string `toml:"api_key"`
	} `toml:"web"`
	Store struct {
		Path string `toml:"path"`
	} `toml:"store"`
	Log struct {
		File       string `toml:"file"`
		Debug      bool   `toml:"debug"`
		Color      bool   `toml:"color"`
		MaxSize    int    `toml:"max_size"`
		MaxBackups int    `toml:"max_backups"`
		MaxAge     int    `toml:"max_age"`
	} `toml:"log"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Serial.Device = "/dev/ttyACM0"
	cfg.Serial.Baud = 115200
	cfg.Web.Listen = ":5001"
	cfg.Store.Path = "prusammu.json"
	cfg.Log.MaxSize = 10
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAge = 14
	return cfg
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func serve(cfg Config) error {
	level := logger.InfoLevel
	if cfg.Log.Debug {
		level = logger.DebugLevel
	}
	logger.InitLogger(logger.Options{
		Level:        level,
		Filename:     cfg.Log.File,
		SupportColor: cfg.Log.Color,
		MaxSize:      cfg.Log.MaxSize,
		MaxBackups:   cfg.Log.MaxBackups,
		MaxAge:       cfg.Log.MaxAge,
	})
	defer logger.Sync()
	logger.Debugf("main goroutine %d running", sys.GetGID())

	settings, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}

	plugin := mmu.NewPlugin(nil, nil, mmu.PermissionFunc(func() bool { return true }), settings)
	broadcaster := web.NewBroadcaster(plugin.Bridge())
	plugin.SetNotifier(broadcaster)

	link, err := transport.Open(cfg.Serial.Device, cfg.Serial.Baud)
	if err != nil {
		return err
	}
	defer link.Close()

	plugin.SetPrinter(link)
	link.SetQueuingHook(plugin.GcodeQueuing)
	link.SetReceivedHook(plugin.GcodeReceived)
	link.Start()
	plugin.Startup()

	server := web.NewServer(plugin, broadcaster, cfg.Web.APIKey)
	logger.Infof("listening on %s", cfg.Web.Listen)
	return server.Run(cfg.Web.Listen)
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "prusammu",
		Short:         "Filament-change prompt coordinator for a Prusa MMU",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the coordinator daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
