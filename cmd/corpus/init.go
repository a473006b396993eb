package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/config"
	"github.com/corpus-kb/corpus/internal/home"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the corpus home directory",
	Long: `Create the corpus home directory layout and write a default
config file. Existing config files are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if h.ConfigExists() {
			fmt.Printf("config already exists at %s\n", h.ConfigPath())
			return nil
		}
		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}
		fmt.Printf("initialized %s\n", h.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
