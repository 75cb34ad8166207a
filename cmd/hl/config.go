package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chrisling-dev/hyperliquid-cli/internal/paths"
	"github.com/chrisling-dev/hyperliquid-cli/internal/userconfig"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write local user configuration",
	}
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())
	return cmd
}

func openConfigStore() (*userconfig.Store, error) {
	path, err := paths.UserConfig()
	if err != nil {
		return nil, err
	}
	return userconfig.NewStore(path), nil
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set slippage <N>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "slippage" {
				return fmt.Errorf("unknown config key: %s", args[0])
			}
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid slippage value %q: %w", args[1], err)
			}
			store, err := openConfigStore()
			if err != nil {
				return err
			}
			return store.SetSlippage(value)
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get slippage",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "slippage" {
				return fmt.Errorf("unknown config key: %s", args[0])
			}
			store, err := openConfigStore()
			if err != nil {
				return err
			}
			fmt.Println(store.Load().Slippage)
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every configuration value",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openConfigStore()
			if err != nil {
				return err
			}
			cfg := store.Load()
			fmt.Printf("slippage: %v\n", cfg.Slippage)
			return nil
		},
	}
}
