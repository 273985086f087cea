package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/tartalacrm/pkg/auth"
)

func (c *CLI) newLoginCommand() *Command {
	return &Command{
		Name:        "login",
		Usage:       "login",
		Description: "Se connecter et enregistrer le token de session",
		Flags:       c.flagSet("login"),
		Run:         c.runLogin,
	}
}

func (c *CLI) runLogin(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return usagef("Argument inattendu : %s", args[0])
	}

	var username string
	for username == "" {
		answer, err := c.prompt.Optional("Veuillez renseigner votre nom d'utilisateur (ne peut être vide)", "")
		if err != nil {
			return err
		}
		username = strings.TrimSpace(answer)
	}
	password, err := c.prompt.Password("Veuillez renseigner votre mot de passe")
	if err != nil {
		return err
	}

	token, _, err := c.app.Service.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := c.session.Save(token); err != nil {
		return err
	}
	fmt.Fprintln(c.out, msgLoggedIn)
	return nil
}

func (c *CLI) newLogoutCommand() *Command {
	return &Command{
		Name:        "logout",
		Usage:       "logout",
		Description: "Supprimer le token de session",
		Flags:       c.flagSet("logout"),
		Run: func(ctx context.Context, args []string) error {
			removed, err := c.session.Remove()
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintln(c.out, msgLoggedOut)
			} else {
				fmt.Fprintln(c.out, msgNotLoggedIn)
			}
			return nil
		},
	}
}

func (c *CLI) newWhoamiCommand() *Command {
	return &Command{
		Name:        "whoami",
		Usage:       "whoami",
		Description: "Afficher l'utilisateur connecté et ses permissions",
		Flags:       c.flagSet("whoami"),
		Run: func(ctx context.Context, args []string) error {
			principal, err := c.authenticate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Connecté en tant que %s (%s, %s)\n", principal.Username, principal.Name, principal.Department.Label())
			fmt.Fprintf(c.out, "Permissions : %s\n", strings.Join(principal.Grants.Strings(), ", "))
			return nil
		},
	}
}

// authenticate resolves the stored token to the calling user and greets it
func (c *CLI) authenticate(ctx context.Context) (*auth.User, error) {
	token, err := c.session.Load()
	if err != nil {
		return nil, err
	}
	principal, err := c.app.Service.Principal(ctx, token)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(c.out, msgWelcome)
	return principal, nil
}
