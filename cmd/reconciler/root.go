package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "reconciler",
	Short:         "Crew shift reconciliation engine and scheduler",
	SilenceUsage:  true,
	SilenceErrors: true,
}
