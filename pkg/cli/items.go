package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

var resourceLabels = map[rbac.ResourceType]string{
	rbac.ResourceClient:   "Client",
	rbac.ResourceContract: "Contrat",
	rbac.ResourceEvent:    "Événement",
	rbac.ResourceUser:     "Utilisateur",
}

// parseResource accepts a resource name in the singular or the plural.
func parseResource(arg string) (rbac.ResourceType, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(arg)), "s")
	for _, rt := range rbac.ResourceTypes() {
		if name == string(rt) {
			return rt, nil
		}
	}
	return "", usagef("Type inconnu : %q (client, contract, event ou user)", arg)
}

func parseTarget(args []string) (rbac.ResourceType, int64, error) {
	if len(args) != 2 {
		return "", 0, usagef("Deux arguments attendus : le type et l'identifiant")
	}
	rt, err := parseResource(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, usagef("Identifiant invalide : %q", args[1])
	}
	return rt, id, nil
}

func (c *CLI) newListItemsCommand() *Command {
	fs := c.flagSet("list_items")
	mine := fs.Bool("mine", false, "n'afficher que les fiches dont vous êtes responsable")
	return &Command{
		Name:        "list_items",
		Usage:       "list_items <clients|contracts|events|users> [--mine]",
		Description: "Lister les clients, contrats, événements ou utilisateurs",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usagef("Un argument attendu : le type de fiche")
			}
			rt, err := parseResource(args[0])
			if err != nil {
				return err
			}
			principal, err := c.authenticate(ctx)
			if err != nil {
				return err
			}
			return c.listItems(ctx, principal, rt, *mine)
		},
	}
}

func (c *CLI) listItems(ctx context.Context, principal *auth.User, rt rbac.ResourceType, mine bool) error {
	svc := c.app.Service
	switch rt {
	case rbac.ResourceClient:
		items, err := svc.Clients.List(ctx, principal, mine)
		if err != nil {
			return err
		}
		c.renderClients(items)
	case rbac.ResourceContract:
		items, err := svc.Contracts.List(ctx, principal, mine)
		if err != nil {
			return err
		}
		c.renderContracts(items)
	case rbac.ResourceEvent:
		items, err := svc.Events.List(ctx, principal, mine)
		if err != nil {
			return err
		}
		c.renderEvents(items)
	case rbac.ResourceUser:
		items, err := svc.ListUsers(ctx, principal)
		if err != nil {
			return err
		}
		c.renderUsers(items)
	}
	return nil
}

func (c *CLI) newCreateItemCommand() *Command {
	return &Command{
		Name:        "create_item",
		Usage:       "create_item <client|contract|event|user>",
		Description: "Créer une fiche",
		Flags:       c.flagSet("create_item"),
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usagef("Un argument attendu : le type de fiche")
			}
			rt, err := parseResource(args[0])
			if err != nil {
				return err
			}
			principal, err := c.authenticate(ctx)
			if err != nil {
				return err
			}

			// Denied users are not asked any question.
			gate, err := c.app.Service.GateFor(rt)
			if err != nil {
				return err
			}
			if err := gate.CanCreate(ctx, principal); err != nil {
				return err
			}

			id, err := c.createItem(ctx, principal, rt)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s créé avec succès (identifiant %d).\n", resourceLabels[rt], id)
			return nil
		},
	}
}

func (c *CLI) createItem(ctx context.Context, principal *auth.User, rt rbac.ResourceType) (int64, error) {
	svc := c.app.Service
	switch rt {
	case rbac.ResourceClient:
		in, err := c.promptClient(nil)
		if err != nil {
			return 0, err
		}
		item, err := svc.Clients.Create(ctx, principal, in)
		if err != nil {
			return 0, err
		}
		return item.ID, nil
	case rbac.ResourceContract:
		in, err := c.promptContract(nil)
		if err != nil {
			return 0, err
		}
		item, err := svc.Contracts.Create(ctx, principal, in)
		if err != nil {
			return 0, err
		}
		return item.ID, nil
	case rbac.ResourceEvent:
		in, err := c.promptEvent(nil)
		if err != nil {
			return 0, err
		}
		item, err := svc.Events.Create(ctx, principal, in)
		if err != nil {
			return 0, err
		}
		return item.ID, nil
	default:
		in, err := c.promptNewUser()
		if err != nil {
			return 0, err
		}
		user, err := svc.CreateUser(ctx, principal, in)
		if err != nil {
			return 0, err
		}
		return user.ID, nil
	}
}

func (c *CLI) newUpdateItemCommand() *Command {
	return &Command{
		Name:        "update_item",
		Usage:       "update_item <client|contract|event|user> <id>",
		Description: "Modifier une fiche dont vous êtes responsable",
		Flags:       c.flagSet("update_item"),
		Run: func(ctx context.Context, args []string) error {
			rt, id, err := parseTarget(args)
			if err != nil {
				return err
			}
			principal, err := c.authenticate(ctx)
			if err != nil {
				return err
			}

			gate, err := c.app.Service.GateFor(rt)
			if err != nil {
				return err
			}
			if err := gate.CanModify(ctx, principal, rbac.PermissionUpdate, id); err != nil {
				return err
			}

			if err := c.updateItem(ctx, principal, rt, id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s %d modifié avec succès.\n", resourceLabels[rt], id)
			return nil
		},
	}
}

// updateItem asks every field again, proposing the current values.
func (c *CLI) updateItem(ctx context.Context, principal *auth.User, rt rbac.ResourceType, id int64) error {
	svc := c.app.Service
	switch rt {
	case rbac.ResourceClient:
		current, err := svc.Clients.Get(ctx, principal, id)
		if err != nil {
			return err
		}
		in, err := c.promptClient(current)
		if err != nil {
			return err
		}
		_, err = svc.Clients.Update(ctx, principal, id, clientPatch(in))
		return err
	case rbac.ResourceContract:
		current, err := svc.Contracts.Get(ctx, principal, id)
		if err != nil {
			return err
		}
		in, err := c.promptContract(current)
		if err != nil {
			return err
		}
		_, err = svc.Contracts.Update(ctx, principal, id, contractPatch(in))
		return err
	case rbac.ResourceEvent:
		current, err := svc.Events.Get(ctx, principal, id)
		if err != nil {
			return err
		}
		in, err := c.promptEvent(current)
		if err != nil {
			return err
		}
		_, err = svc.Events.Update(ctx, principal, id, eventPatch(in))
		return err
	default:
		current, err := svc.GetUser(ctx, principal, id)
		if err != nil {
			return err
		}
		patch, err := c.promptUserPatch(current)
		if err != nil {
			return err
		}
		_, err = svc.UpdateUser(ctx, principal, id, patch)
		return err
	}
}

func (c *CLI) newDeleteItemCommand() *Command {
	return &Command{
		Name:        "delete_item",
		Usage:       "delete_item <client|contract|event|user> <id>",
		Description: "Supprimer une fiche dont vous êtes responsable",
		Flags:       c.flagSet("delete_item"),
		Run: func(ctx context.Context, args []string) error {
			rt, id, err := parseTarget(args)
			if err != nil {
				return err
			}
			principal, err := c.authenticate(ctx)
			if err != nil {
				return err
			}

			gate, err := c.app.Service.GateFor(rt)
			if err != nil {
				return err
			}
			if err := gate.CanModify(ctx, principal, rbac.PermissionDelete, id); err != nil {
				return err
			}

			ok, err := c.prompt.Confirm(fmt.Sprintf("Supprimer définitivement %s %d ?", strings.ToLower(resourceLabels[rt]), id))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(c.out, msgCancelled)
				return nil
			}

			svc := c.app.Service
			switch rt {
			case rbac.ResourceClient:
				err = svc.Clients.Delete(ctx, principal, id)
			case rbac.ResourceContract:
				err = svc.Contracts.Delete(ctx, principal, id)
			case rbac.ResourceEvent:
				err = svc.Events.Delete(ctx, principal, id)
			default:
				err = svc.DeleteUser(ctx, principal, id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s %d supprimé.\n", resourceLabels[rt], id)
			return nil
		},
	}
}
