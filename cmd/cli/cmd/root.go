package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/angelospk/tmdbimporter/internal/constants"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Define configuration keys
const (
	CfgKeyWorkbookPath       = "workbook.path"
	CfgKeyTMDBUsername       = "tmdb.username"
	CfgKeyTMDBPassword       = "tmdb.password"
	CfgKeyTMDBAPIKey         = "tmdb.apikey"
	CfgKeyTMDBLanguage       = "tmdb.language"
	CfgKeyTMDBBaseURL        = "tmdb.baseurl"
	CfgKeyTMDBAPIURL         = "tmdb.apiurl"
	CfgKeyDisneyPlusEmail    = "disneyplus.email"
	CfgKeyDisneyPlusPassword = "disneyplus.password"
	CfgKeyBrowserHeadless    = "browser.headless"
	CfgKeyBrowserTimeout     = "browser.timeout"
	CfgKeyQueueDir           = "queue.dir"
	CfgKeyLogLevel           = "log.level"
	CfgKeyLogFile            = "log.file"
)

const configDirName = ".tmdbimporter"

var (
	// Used for flags.
	cfgFile string

	// RootCmd represents the base command when called without any subcommands
	// Exported for use in tests
	RootCmd = &cobra.Command{
		Use:   "tmdbimporter",
		Short: "Copy localized titles and synopses from streaming sites to TMDB.",
		Long: `tmdbimporter scrapes series and movie metadata from Netflix, Apple TV,
Disney+ and Prime Video into an Excel workbook, reconciles season numbers,
and fills the matching translation forms on themoviedb.org.

The workbook can be reviewed and edited by hand between steps.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tmdbimporter/config.yaml or ./config.yaml)")
	RootCmd.PersistentFlags().StringP("workbook", "w", "", "path of the Excel workbook (default "+constants.DefaultWorkbookName+")")
	cobra.CheckErr(viper.BindPFlag(CfgKeyWorkbookPath, RootCmd.PersistentFlags().Lookup("workbook")))

	viper.SetDefault(CfgKeyWorkbookPath, constants.DefaultWorkbookName)
	viper.SetDefault(CfgKeyTMDBLanguage, constants.DefaultLanguage)
	viper.SetDefault(CfgKeyTMDBBaseURL, constants.DefaultWebURL)
	viper.SetDefault(CfgKeyTMDBAPIURL, constants.DefaultAPIURL)
	viper.SetDefault(CfgKeyBrowserHeadless, true)
	viper.SetDefault(CfgKeyBrowserTimeout, "30s")
	viper.SetDefault(CfgKeyLogLevel, "info")
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if dir, err := configDir(); err == nil {
			viper.AddConfigPath(dir)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("TMDBIMPORTER") // e.g. TMDBIMPORTER_TMDB_USERNAME
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; missing values are prompted for.
		} else if os.IsNotExist(err) {
			// --config points at a file that does not exist yet.
		} else {
			fmt.Fprintf(os.Stderr, "Error reading config file (%s): %v\n", viper.ConfigFileUsed(), err)
		}
	}
}

// configDir is $HOME/.tmdbimporter.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName), nil
}

// queueDir is where the upload queue and history are kept.
func queueDir() (string, error) {
	if dir := viper.GetString(CfgKeyQueueDir); dir != "" {
		return dir, nil
	}
	return configDir()
}

// newLogger builds the command logger from config. Records go to w and, when
// log.file is set, to a rotating file as well. The returned func closes the
// file sink.
func newLogger(w io.Writer) (*log.Logger, func()) {
	logger := log.New()

	level, err := log.ParseLevel(viper.GetString(CfgKeyLogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	formatter := &log.TextFormatter{FullTimestamp: true}
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		formatter.DisableColors = true
	}
	logger.SetFormatter(formatter)

	closeFn := func() {}
	if path := viper.GetString(CfgKeyLogFile); path != "" {
		sink := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
		}
		w = io.MultiWriter(w, sink)
		closeFn = func() { _ = sink.Close() }
	}
	logger.SetOutput(w)

	if err != nil {
		logger.Warnf("Unknown log level %q, using info.", viper.GetString(CfgKeyLogLevel))
	}
	return logger, closeFn
}
