package cli

import (
	"context"
	"fmt"

	"github.com/platinummonkey/tartalacrm/pkg/seed"
)

func (c *CLI) newPopulateCommand() *Command {
	return &Command{
		Name:        "populate",
		Usage:       "populate",
		Description: "Initialiser la base avec les permissions et les données de démonstration",
		Flags:       c.flagSet("populate"),
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return usagef("Argument inattendu : %s", args[0])
			}
			fixtures, err := seed.DefaultFixtures()
			if err != nil {
				return err
			}
			populator := seed.NewPopulator(seed.Stores{
				Grants:    c.app.Grants,
				Users:     c.app.Users,
				Clients:   c.app.Clients,
				Contracts: c.app.Contracts,
				Events:    c.app.Events,
			}, fixtures, c.logger)

			report, err := populator.Populate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Base de données initialisée.")
			fmt.Fprintf(c.out, "Utilisateurs créés : %d\n", report.Users)
			fmt.Fprintf(c.out, "Permissions réattribuées : %d\n", report.GrantsAssigned)
			fmt.Fprintf(c.out, "Clients créés : %d\n", report.Clients)
			fmt.Fprintf(c.out, "Contrats créés : %d\n", report.Contracts)
			fmt.Fprintf(c.out, "Événements créés : %d\n", report.Events)
			return nil
		},
	}
}
