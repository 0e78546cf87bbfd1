package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gossipmesh/internal/buildinfo"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gossipsim version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(buildinfo.Version)
			return nil
		},
	}
}
