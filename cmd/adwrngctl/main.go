package main

import (
	"fmt"
	"os"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	apiClient *client.APIClient
)

var rootCmd = &cobra.Command{
	Use:   "adwrngctl",
	Short: "adwrngctl - command line client for the AD WRNG server",
	Long: `adwrngctl talks to a running AD WRNG server. It can trigger warning
registration and sweeps, list alerts and statistics, manage favorite
aerodromes and download alert exports.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.NewAPIClient(viper.GetString("server"), viper.GetDuration("timeout"))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.adwrngctl.yaml)")
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "AD WRNG server URL")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.AddCommand(newRegisterCommand())
	rootCmd.AddCommand(newSweepCommand())
	rootCmd.AddCommand(newAlertsCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newFavoritesCommand())
	rootCmd.AddCommand(newExportCommand())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".adwrngctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ADWRNG")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
