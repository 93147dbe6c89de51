package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var discoverJSON bool

var discoverCmd = &cobra.Command{
	Use:   "discover [query...]",
	Short: "Run a discovery for a free-text lead query",
	Long:  `Interprets a free-text query like "IT-bedrijven in Utrecht", finds matching businesses, and enriches each with contact channels.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		query := strings.Join(args, " ")
		result := env.Pipeline.Run(cmd.Context(), query)

		if discoverJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		cmd.Printf("Query: city=%s industry=%s area=%s\n",
			result.Query.City, result.Query.Industry, result.Query.Area)
		for _, c := range result.Companies {
			cmd.Printf("- %s (%s)", c.Name, c.Address)
			if c.Phone != nil {
				cmd.Printf(" tel:%s", *c.Phone)
			}
			if c.Website != nil {
				cmd.Printf(" %s", *c.Website)
			}
			cmd.Printf(" channels:%d/5\n", c.Known())
		}
		zap.L().Info("discover finished", zap.Int("companies", len(result.Companies)))
		return nil
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "emit the full result as JSON")
	rootCmd.AddCommand(discoverCmd)
}
