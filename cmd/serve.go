package cmd

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
	"github.com/homedash/homedash/internal/icons"
	"github.com/homedash/homedash/internal/models"
	"github.com/homedash/homedash/internal/server"
	"github.com/homedash/homedash/internal/widgets"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: models.AppIcon + " serve the dashboard",

	Run: func(cmd *cobra.Command, _ []string) {
		// general log settings & style
		var logLevel log.Level

		switch {
		case viper.GetBool("homedash.debug"):
			logLevel = log.DebugLevel

		case viper.GetBool("homedash.verbose"):
			logLevel = log.InfoLevel

		default:
			logLevel = log.WarnLevel
		}

		models.Printer = log.NewWithOptions(os.Stdout, log.Options{
			ReportTimestamp: false,
			TimeFormat:      " " + "15:04:05",
			ReportCaller:    logLevel < log.InfoLevel,
			Level:           logLevel,
		})

		models.AppVersion = Version

		pr := models.Printer.WithPrefix(models.AppName)

		store := dashboard.NewStore(viper.GetString("dashboard.file"))
		cfg := store.Load()

		haURL := viper.GetString("homeassistant.url")
		haToken := viper.GetString("homeassistant.token")

		deps := widgets.Deps{
			Pr:      models.Printer,
			Refresh: time.Duration(cfg.Settings.RefreshSeconds) * time.Second,
		}

		var conn server.Connection

		// without credentials every widget runs on generated demo data
		switch {
		case haURL == "" || haToken == "":
			deps.Demo = true

			pr.Warnf("%s no Home Assistant url/token configured, running in demo mode", icons.Glasses)

		case viper.GetString("homeassistant.mode") == "poll":
			rest, err := homeassistant.NewRESTClient(haURL, haToken)
			cobra.CheckErr(err)

			cache := homeassistant.NewRESTStatesCache(rest, deps.Refresh)
			cache.Start()
			defer cache.Close()

			deps.Source = cache
			deps.REST = rest

		default:
			ha, err := homeassistant.New(haURL, haToken)
			cobra.CheckErr(err)

			rest, err := homeassistant.NewRESTClient(haURL, haToken)
			cobra.CheckErr(err)

			ha.Connect()
			defer ha.Close()

			deps.Source = ha
			deps.Events = ha.Events()
			deps.REST = rest
			conn = ha
		}

		registry := widgets.NewRegistry(deps)
		defer registry.Close()

		srv := server.New(server.Options{
			Addr:      viper.GetString("server.addr"),
			PhotosDir: viper.GetString("server.photosDir"),
			Demo:      deps.Demo,
			Registry:  registry,
			Store:     store,
			Conn:      conn,
		})

		registry.Reload(cfg)

		if err := srv.Run(cmd.Context()); err != nil {
			pr.Fatal(err)
		}
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(serveCmd)

	// logging
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "show more output")
	_ = viper.BindPFlag("homedash.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "show debug output")
	_ = viper.BindPFlag("homedash.debug", rootCmd.PersistentFlags().Lookup("debug"))

	serveCmd.Flags().String("addr", "", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	// defaults
	viper.SetDefault("server.addr", ":8090")
	viper.SetDefault("server.photosDir", "photos")
	viper.SetDefault("dashboard.file", "dashboard.json")
	viper.SetDefault("homeassistant.mode", "websocket")
}
