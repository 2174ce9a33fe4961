package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "daqctl",
	Short: "daqctl is a command line tool for the DAQ control panel",
	Long: `daqctl is the command-line interface for the laboratory DAQ control panel.

The panel keeps a warm cache of every supervisor's status and logs, so the
read commands answer instantly even when a client is offline.

Common workflows:

  List the fleet:
    daqctl clients

  Inspect one client:
    daqctl status daq-01
    daqctl logs daq-01 --follow

  Start and stop runs:
    daqctl run start --client daq-01 --template <id> --param rate=2000
    daqctl run stop <run-id> --abort

  Send a control message:
    daqctl message send --client daq-01 --type pause --payload '{}'

Configuration:
  Set the panel endpoint via flag, environment, or a config file:
    DAQCTL_URL    Panel endpoint (default: http://localhost:8400)
    DAQCTL_USER   User asserted on direct (proxy-less) connections`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".daqctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".daqctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "DAQCTL_VARNAME"
	viper.SetEnvPrefix("DAQCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.daqctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8400", "Panel URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("user", "u", "", "User to assert when bypassing the auth proxy")
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.PersistentFlags().String("groups", "", "Comma-separated groups to assert when bypassing the auth proxy")
	viper.BindPFlag("groups", rootCmd.PersistentFlags().Lookup("groups"))
}
