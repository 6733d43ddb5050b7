package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/daily-motivation/internal/config"
	"github.com/SanjoDeundiak/daily-motivation/internal/quotes"
)

func newQuotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Manage the quote deck",
	}
	cmd.AddCommand(newQuotesListCmd())
	cmd.AddCommand(newQuotesAddCmd())
	cmd.AddCommand(newQuotesRemoveCmd())
	cmd.AddCommand(newQuotesExportCmd())
	return cmd
}

func loadDeck(cmd *cobra.Command) (*config.Config, *quotes.Deck, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	settings, err := quotes.LoadSettings(cfg.Quotes.File)
	if err != nil {
		return nil, nil, err
	}
	return cfg, quotes.FromSettings(settings), nil
}

func newQuotesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, deck, err := loadDeck(cmd)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, deck.Len())
			for i, q := range deck.Quotes() {
				rows = append(rows, []string{strconv.Itoa(i), q.Main, q.Sub})
			}
			printTable(cmd.OutOrStdout(), []string{"#", "QUOTE", "SUB"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "rotating every %ds\n", deck.IntervalSecs())
			return nil
		},
	}
}

func newQuotesAddCmd() *cobra.Command {
	var sub string
	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a quote",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, deck, err := loadDeck(cmd)
			if err != nil {
				return err
			}
			if err := deck.Add(strings.Join(args, " "), sub); err != nil {
				return err
			}
			if err := quotes.SaveSettings(cfg.Quotes.File, deck.Settings()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), deck.Index())
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "secondary line (default \""+quotes.DefaultSubText+"\")")
	return cmd
}

func newQuotesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the quote at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			cfg, deck, err := loadDeck(cmd)
			if err != nil {
				return err
			}
			if err := deck.Delete(index); err != nil {
				return err
			}
			return quotes.SaveSettings(cfg.Quotes.File, deck.Settings())
		},
	}
}

func newQuotesExportCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quotes as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, deck, err := loadDeck(cmd)
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.Quotes.ExportFile
			}
			if err := quotes.Export(path, deck.Quotes()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "output", "o", "", "output file (default quotes.export_file)")
	return cmd
}
