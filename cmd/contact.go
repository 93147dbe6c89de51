package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/contactloop/leadscout/internal/dispatch"
)

var contactMethod string

var contactCmd = &cobra.Command{
	Use:   "contact <company-name>",
	Short: "Initiate contact with a stored company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		company, err := env.Store.GetCompanyByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if company == nil {
			return eris.Errorf("company not found: %s", args[0])
		}

		outcome, err := env.Dispatcher.Dispatch(cmd.Context(), company, dispatch.Method(contactMethod))
		if err != nil {
			return err
		}

		cmd.Printf("%s via %s: %s\n", outcome.Status, outcome.Method, outcome.Target)
		return nil
	},
}

func init() {
	contactCmd.Flags().StringVar(&contactMethod, "method", "email", "contact method (email, whatsapp, call, sms, linkedin, twitter, telegram, contact_form, live_chat)")
	rootCmd.AddCommand(contactCmd)
}
