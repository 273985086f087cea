package seed

import (
	"context"
	"fmt"

	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

// Stores holds the stores Populate writes to
type Stores struct {
	Grants    *rbac.Store
	Users     *auth.UserStore
	Clients   *crm.ClientStore
	Contracts *crm.ContractStore
	Events    *crm.EventStore
}

// Report counts what a Populate run created
type Report struct {
	Users          int
	GrantsAssigned int
	Clients        int
	Contracts      int
	Events         int
}

// Populator loads fixtures into the stores. It writes directly and does not
// go through the authorization engine.
type Populator struct {
	stores   Stores
	fixtures *Fixtures
	logger   *observability.Logger
}

// NewPopulator creates a Populator for fixtures. A nil logger discards
// progress messages below warnings.
func NewPopulator(stores Stores, fixtures *Fixtures, logger *observability.Logger) *Populator {
	if logger == nil {
		logger = observability.NewLogger(observability.WarnLevel, nil)
	}
	return &Populator{
		stores:   stores,
		fixtures: fixtures,
		logger:   logger.WithField("component", "seed"),
	}
}

// Populate seeds the permission catalog, creates missing fixture users,
// reassigns every user the grants of its department, then creates missing
// clients, contracts and events. Running it again creates nothing new.
func (p *Populator) Populate(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := p.stores.Grants.SeedCatalog(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed permission catalog: %w", err)
	}

	users, err := p.populateUsers(ctx, report)
	if err != nil {
		return nil, err
	}
	if err := p.reassignGrants(ctx, report); err != nil {
		return nil, err
	}

	clients, err := p.populateClients(ctx, users, report)
	if err != nil {
		return nil, err
	}
	contracts, err := p.populateContracts(ctx, users, clients, report)
	if err != nil {
		return nil, err
	}
	if err := p.populateEvents(ctx, users, clients, contracts, report); err != nil {
		return nil, err
	}

	p.logger.WithFields(map[string]interface{}{
		"users":     report.Users,
		"clients":   report.Clients,
		"contracts": report.Contracts,
		"events":    report.Events,
	}).Info("fixtures populated")
	return report, nil
}

func (p *Populator) populateUsers(ctx context.Context, report *Report) (map[string]*auth.User, error) {
	users := make(map[string]*auth.User, len(p.fixtures.Users))
	for _, f := range p.fixtures.Users {
		user, err := p.stores.Users.GetUserByUsername(ctx, f.Username)
		if err != nil {
			return nil, err
		}
		if user == nil {
			user, err = p.stores.Users.CreateUser(ctx, auth.NewUser{
				Name:       f.Name,
				Email:      f.Email,
				Username:   f.Username,
				Password:   f.Password,
				Department: f.Department,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create user %q: %w", f.Username, err)
			}
			report.Users++
		}
		users[f.Username] = user
	}
	return users, nil
}

func (p *Populator) reassignGrants(ctx context.Context, report *Report) error {
	all, err := p.stores.Users.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, user := range all {
		if err := p.stores.Grants.AssignGrants(ctx, user.ID, user.Department); err != nil {
			return fmt.Errorf("failed to assign grants to %q: %w", user.Username, err)
		}
		report.GrantsAssigned++
	}
	return nil
}

func (p *Populator) populateClients(ctx context.Context, users map[string]*auth.User, report *Report) (map[string]*crm.Client, error) {
	existing, err := p.stores.Clients.List(ctx, crm.Filter{})
	if err != nil {
		return nil, err
	}
	clients := make(map[string]*crm.Client)
	for _, c := range existing {
		clients[c.FullName] = c
	}

	for _, f := range p.fixtures.Clients {
		if _, ok := clients[f.FullName]; ok {
			continue
		}
		owner, err := lookup(users, f.Owner)
		if err != nil {
			return nil, err
		}
		c, err := p.stores.Clients.Create(ctx, crm.ClientInput{
			FullName:    f.FullName,
			Email:       f.Email,
			Phone:       f.Phone,
			CompanyName: f.CompanyName,
		}, owner.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create client %q: %w", f.FullName, err)
		}
		clients[f.FullName] = c
		report.Clients++
	}
	return clients, nil
}

type contractKey struct {
	clientID int64
	amount   int64
}

func (p *Populator) populateContracts(ctx context.Context, users map[string]*auth.User, clients map[string]*crm.Client, report *Report) (map[string]*crm.Contract, error) {
	existing, err := p.stores.Contracts.List(ctx, crm.Filter{})
	if err != nil {
		return nil, err
	}
	byKey := make(map[contractKey]*crm.Contract)
	for _, c := range existing {
		byKey[contractKey{c.ClientID, c.Amount}] = c
	}

	// keyed by the location of the event each contract covers
	contracts := make(map[string]*crm.Contract)
	for _, f := range p.fixtures.Contracts {
		client, ok := clients[f.Client]
		if !ok {
			return nil, fmt.Errorf("contract fixture refers to unknown client %q", f.Client)
		}

		c, ok := byKey[contractKey{client.ID, f.Amount}]
		if !ok {
			owner, err := lookup(users, f.Owner)
			if err != nil {
				return nil, err
			}
			c, err = p.stores.Contracts.Create(ctx, crm.ContractInput{
				Amount:    f.Amount,
				DueAmount: f.DueAmount,
				Status:    f.Status,
				ClientID:  client.ID,
			}, owner.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to create contract for %q: %w", f.Client, err)
			}
			report.Contracts++
		}
		if f.Event != "" {
			contracts[f.Event] = c
		}
	}
	return contracts, nil
}

func (p *Populator) populateEvents(ctx context.Context, users map[string]*auth.User, clients map[string]*crm.Client, contracts map[string]*crm.Contract, report *Report) error {
	existing, err := p.stores.Events.List(ctx, crm.Filter{})
	if err != nil {
		return err
	}
	events := make(map[string]*crm.Event)
	for _, e := range existing {
		events[e.Location] = e
	}

	for _, f := range p.fixtures.Events {
		event, ok := events[f.Location]
		if !ok {
			client, found := clients[f.Client]
			if !found {
				return fmt.Errorf("event fixture refers to unknown client %q", f.Client)
			}
			owner, err := lookup(users, f.Owner)
			if err != nil {
				return err
			}
			event, err = p.stores.Events.Create(ctx, crm.EventInput{
				Start:     f.Start,
				End:       f.End,
				Location:  f.Location,
				Attendees: f.Attendees,
				Notes:     f.Notes,
				ClientID:  client.ID,
			}, owner.ID)
			if err != nil {
				return fmt.Errorf("failed to create event at %q: %w", f.Location, err)
			}
			report.Events++
		}

		contract, ok := contracts[f.Location]
		if !ok || contract.EventID != nil {
			continue
		}
		eventID := event.ID
		if _, err := p.stores.Contracts.Update(ctx, contract.ID, crm.ContractPatch{EventID: &eventID}); err != nil {
			return fmt.Errorf("failed to link contract %d to event %d: %w", contract.ID, event.ID, err)
		}
	}
	return nil
}

func lookup(users map[string]*auth.User, username string) (*auth.User, error) {
	user, ok := users[username]
	if !ok {
		return nil, fmt.Errorf("fixture refers to unknown user %q", username)
	}
	return user, nil
}
