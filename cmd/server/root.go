package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Mock test admin backend",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(adminCmd)
}
