package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/contactloop/leadscout/internal/model"
	"github.com/contactloop/leadscout/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored companies to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		companies, err := env.Store.ListCompanies(cmd.Context(), store.CompanyFilter{Limit: 10000})
		if err != nil {
			return err
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Companies")
		if err != nil {
			return eris.Wrap(err, "export: add sheet")
		}

		header := sheet.AddRow()
		for _, col := range []string{
			"Name", "Address", "Rating", "Phone", "Website",
			"Contact form", "LinkedIn", "Twitter", "Telegram", "Live chat",
		} {
			header.AddCell().Value = col
		}

		for _, c := range companies {
			row := sheet.AddRow()
			row.AddCell().Value = c.Name
			row.AddCell().Value = c.Address
			if c.Rating != nil {
				row.AddCell().SetFloat(*c.Rating)
			} else {
				row.AddCell()
			}
			for _, v := range []*string{
				c.Phone, c.Website,
				c.ContactFormURL, c.LinkedInProfile, c.TwitterHandle,
				c.TelegramHandle, c.LiveChatURL,
			} {
				cell := row.AddCell()
				if v != nil {
					cell.Value = *v
				} else {
					cell.Value = model.Unknown
				}
			}
		}

		if err := file.Save(exportOut); err != nil {
			return eris.Wrapf(err, "export: save %s", exportOut)
		}

		zap.L().Info("export complete",
			zap.String("file", exportOut),
			zap.Int("companies", len(companies)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "companies.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
