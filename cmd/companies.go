package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/contactloop/leadscout/internal/store"
)

var (
	companiesSearch string
	companiesLimit  int
	companiesJSON   bool
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List stored companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		companies, err := env.Store.ListCompanies(cmd.Context(), store.CompanyFilter{
			Search: companiesSearch,
			Limit:  companiesLimit,
		})
		if err != nil {
			return err
		}

		if companiesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(companies)
		}

		for _, c := range companies {
			cmd.Printf("%s  %s  channels:%d/5\n", c.ID, c.Name, c.Known())
		}
		cmd.Printf("%d companies\n", len(companies))
		return nil
	},
}

func init() {
	companiesCmd.Flags().StringVar(&companiesSearch, "search", "", "filter by name substring")
	companiesCmd.Flags().IntVar(&companiesLimit, "limit", 100, "max companies to list")
	companiesCmd.Flags().BoolVar(&companiesJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(companiesCmd)
}
