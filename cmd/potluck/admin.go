package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/potluck/internal/catalog"
	"github.com/dukerupert/potluck/internal/database"
	"github.com/dukerupert/potluck/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				// Open migrates as a side effect.
				db, err := database.Open(a.cfg.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := database.Open(a.cfg.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()
				return database.Status(cmd.Context(), db, cmd.OutOrStdout())
			},
		},
	)
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalog data or the default organizer",
	}

	var scrapedAt string
	catalogCmd := &cobra.Command{
		Use:   "catalog <file>",
		Short: "Import a YAML or JSON product catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now().UTC()
			if scrapedAt != "" {
				t, err := time.Parse(time.RFC3339, scrapedAt)
				if err != nil {
					return fmt.Errorf("parse --scraped-at: %w", err)
				}
				at = t
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer f.Close()
			ingredients, err := catalog.Parse(f, at)
			if err != nil {
				return err
			}

			db, err := database.Open(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			ingredientStore := store.NewIngredientStore(db)
			n, err := ingredientStore.Upsert(cmd.Context(), ingredients)
			if err != nil {
				return err
			}
			total, err := ingredientStore.Count(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("catalog imported", "file", args[0], "products", n, "catalog_size", total)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d products, catalog has %d\n", n, total)
			return nil
		},
	}
	catalogCmd.Flags().StringVar(&scrapedAt, "scraped-at", "", "RFC 3339 time the catalog was scraped (default now)")

	organizerCmd := &cobra.Command{
		Use:   "organizer",
		Short: "Create the configured organizer unless it exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.OrganizerPassword == "" {
				return fmt.Errorf("POTLUCK_ORGANIZER_PASSWORD is not set")
			}
			db, err := database.Open(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			o, created, err := store.NewOrganizerStore(db).Ensure(cmd.Context(), a.cfg.OrganizerUsername, a.cfg.OrganizerPassword)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created organizer %s\n", o.Username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "organizer %s already exists\n", o.Username)
			}
			return nil
		},
	}

	cmd.AddCommand(catalogCmd, organizerCmd)
	return cmd
}

func newOrganizerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organizer",
		Short: "Manage organizer accounts",
	}
	var password string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an organizer account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("--password is required")
			}
			db, err := database.Open(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			o, err := store.NewOrganizerStore(db).Create(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created organizer %s\n", o.Username)
			return nil
		},
	}
	create.Flags().StringVar(&password, "password", "", "organizer password")
	cmd.AddCommand(create)
	return cmd
}
