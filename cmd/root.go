package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/svedentsov/chatstream/pkg/config"
	"github.com/svedentsov/chatstream/pkg/headless"
	"github.com/svedentsov/chatstream/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "chatstream",
	Short: "Terminal client for the assistant orchestrator",
	Long: `chatstream talks to an assistant orchestrator over its REST and
streaming API: ask questions, manage sessions and attachments, and follow
generation progress from the terminal.`,
	Run: func(cmd *cobra.Command, args []string) {
		prompt := viper.GetString("prompt")
		if prompt == "" {
			cmd.Help()
			return
		}

		sessionID := viper.GetString("session")
		fileIDs := viper.GetStringSlice("files")
		if err := headless.Run(cmd.Context(), sessionID, prompt, fileIDs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .chatstream/settings.yaml)")

	rootCmd.PersistentFlags().StringP("server", "s", "", "orchestrator base URL")
	viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.Flags().StringP("prompt", "p", "", "execute a prompt directly")
	viper.BindPFlag("prompt", rootCmd.Flags().Lookup("prompt"))

	rootCmd.Flags().String("session", "", "session id to continue (default creates a new session)")
	viper.BindPFlag("session", rootCmd.Flags().Lookup("session"))

	rootCmd.Flags().StringSlice("files", nil, "uploaded file ids to attach to the prompt")
	viper.BindPFlag("files", rootCmd.Flags().Lookup("files"))

	rootCmd.Flags().Bool("show-thinking", true, "show intermediate thinking steps")
	viper.BindPFlag("render.show_thinking", rootCmd.Flags().Lookup("show-thinking"))
}

func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	if path := config.GetConfigFileUsed(); path != "" {
		logger.Debug("Using config file: %s", path)
	}
}
