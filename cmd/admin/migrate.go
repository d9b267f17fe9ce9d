package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docforest/internal/repository/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded schema migrations",
	}

	withMigrator := func(fn func(*postgres.Migrator) error) error {
		if err := a.requireDatabase(); err != nil {
			return err
		}
		mg, err := postgres.NewMigrator(a.cfg.DatabaseURL, a.cfg.TablePrefix)
		if err != nil {
			return err
		}
		defer mg.Close()
		return fn(mg)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(mg *postgres.Migrator) error {
				if err := mg.Up(); err != nil {
					return err
				}
				return printVersion(cmd, mg, a)
			})
		},
	}

	down := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			return withMigrator(func(mg *postgres.Migrator) error {
				if err := mg.Steps(-steps); err != nil {
					return err
				}
				return printVersion(cmd, mg, a)
			})
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(mg *postgres.Migrator) error {
				return printVersion(cmd, mg, a)
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(cmd *cobra.Command, mg *postgres.Migrator, a *app) error {
	v, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	a.logger.Info("schema version", "version", v, "dirty", dirty, "table_prefix", a.cfg.TablePrefix)
	fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
	return nil
}
