// Package cmd provides the meshbrokerd command-line interface.
package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "meshbrokerd",
	Short: "Broker for distributed mesh-generation job dispatch",
	Long:  `meshbrokerd mediates between clients submitting meshing jobs and workers that execute them.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
