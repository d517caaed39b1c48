package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"aoi-map/internal/app"
	"aoi-map/internal/logger"
	"aoi-map/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var backendName string

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	logger.Setup()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aoictl",
		Short: "Inspect and edit the persisted areas of interest",
	}
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "storage backend (overrides STORAGE_BACKEND)")

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(addSearchCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	return rootCmd
}

// openApp：打开存储并加载集合；调用方负责 Close，Close 时写出变更
func openApp(ctx context.Context) (*app.App, error) {
	if backendName != "" {
		os.Setenv("STORAGE_BACKEND", backendName)
	}
	backend, err := storage.OpenFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, app.ConfigFromEnv(), backend, nil), nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List areas in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			c := a.Store.Features()
			if len(c) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No areas.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tID\tLABEL\tVISIBLE\tAREA (km²)\tSOURCE")
			for i, f := range c {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%v\t%.3f\t%s\n", i, f.ID, c.Label(i), f.Visible(), f.Area()/1e6, f.Source())
			}
			return tw.Flush()
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search places by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Search.Query(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(res) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results.")
				return nil
			}
			for i, c := range res {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s (%s/%s)\n", i, c.DisplayName, c.Class, c.Type)
			}
			return nil
		},
	}
}

func addSearchCmd() *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "add-search [query]",
		Short: "Search and add one result as an area",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.Search.Query(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			f, err := a.Search.Select(index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s\n", f.ID, f.Name())
			return nil
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "result index to add")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Store.DeleteAoi(args[0]) {
				return fmt.Errorf("no area with id %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the collection as GeoJSON to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.Store.Features().GeoJSON())
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Append areas from a GeoJSON FeatureCollection file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			c, ok := storage.Decode(b)
			if !ok {
				return fmt.Errorf("%s is not a FeatureCollection", args[0])
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			added := 0
			for _, f := range c {
				if _, err := a.Store.AddAoi(f); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s: %v\n", f.ID, err)
					continue
				}
				added++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d areas\n", added, len(c))
			return nil
		},
	}
}

