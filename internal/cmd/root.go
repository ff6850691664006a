package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/zeromunge/internal/cmd/config"
	appconfig "github.com/Iron-Ham/zeromunge/internal/config"
)

// DefaultJobFile is read when no job file argument is given.
const DefaultJobFile = "zeromunge.yaml"

var rootCmd = &cobra.Command{
	Use:   "zeromunge",
	Short: "Sequential munge script runner",
	Long: `zeromunge runs a list of munge scripts one after another, streams
their output, and copies each script's build artifacts into a staging
directory before starting the next one.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/zeromunge/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	config.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath("$HOME/.config/zeromunge")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ZEROMUNGE")
	// e.g., ZEROMUNGE_SEQUENCER_CONTINUE_ON_FAILURE for sequencer.continue_on_failure
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
