/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/config"
	"github.com/smartassist/apiserver/internal/observability"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smartassist",
	Short: "SmartAssist backend API server",
	Long: `SmartAssist serves accounts, the FAQ chatbot and resume uploads
for the learning platform.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	return observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.IsProduction())
}
