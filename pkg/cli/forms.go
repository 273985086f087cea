package cli

import (
	"strings"

	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

// promptClient asks every client field, proposing the values of def.
func (c *CLI) promptClient(def *crm.Client) (crm.ClientInput, error) {
	if def == nil {
		def = &crm.Client{}
	}
	var in crm.ClientInput
	var err error
	if in.FullName, err = c.prompt.String("Nom complet", def.FullName); err != nil {
		return in, err
	}
	if in.Email, err = c.prompt.Email("Email", def.Email); err != nil {
		return in, err
	}
	if in.Phone, err = c.prompt.String("Téléphone", def.Phone); err != nil {
		return in, err
	}
	if in.CompanyName, err = c.prompt.String("Nom de l'entreprise", def.CompanyName); err != nil {
		return in, err
	}
	return in, nil
}

func clientPatch(in crm.ClientInput) crm.ClientPatch {
	return crm.ClientPatch{
		FullName:    &in.FullName,
		Email:       &in.Email,
		Phone:       &in.Phone,
		CompanyName: &in.CompanyName,
	}
}

// promptContract asks every contract field. An event id of 0 means none.
func (c *CLI) promptContract(def *crm.Contract) (crm.ContractInput, error) {
	var in crm.ContractInput
	var amount, due, clientID, eventID *int64
	status := string(crm.ContractNotSigned)
	if def != nil {
		amount, due, clientID = &def.Amount, &def.DueAmount, &def.ClientID
		status = string(def.Status)
		zero := int64(0)
		eventID = &zero
		if def.EventID != nil {
			eventID = def.EventID
		}
	}

	var err error
	if in.Amount, err = c.prompt.Int("Montant du contrat", amount); err != nil {
		return in, err
	}
	if in.DueAmount, err = c.prompt.Int("Montant restant à payer", due); err != nil {
		return in, err
	}
	statuses := make([]string, 0, 2)
	for _, s := range crm.ContractStatuses() {
		statuses = append(statuses, string(s))
	}
	answer, err := c.prompt.Choice("Statut", statuses, status)
	if err != nil {
		return in, err
	}
	in.Status = crm.ContractStatus(answer)
	if in.ClientID, err = c.prompt.Int("Id du client", clientID); err != nil {
		return in, err
	}
	event, err := c.prompt.Int("Id de l'événement (0 si aucun)", eventID)
	if err != nil {
		return in, err
	}
	in.EventID = &event
	return in, nil
}

func contractPatch(in crm.ContractInput) crm.ContractPatch {
	return crm.ContractPatch{
		Amount:    &in.Amount,
		DueAmount: &in.DueAmount,
		Status:    &in.Status,
		ClientID:  &in.ClientID,
		EventID:   in.EventID,
	}
}

// promptEvent asks every event field, proposing the values of def.
func (c *CLI) promptEvent(def *crm.Event) (crm.EventInput, error) {
	var in crm.EventInput
	var attendees, clientID *int64
	if def == nil {
		def = &crm.Event{}
	} else {
		attendees, clientID = &def.Attendees, &def.ClientID
	}

	var err error
	if in.Start, err = c.prompt.Date("Date de début de l'événement", &def.Start); err != nil {
		return in, err
	}
	if in.End, err = c.prompt.Date("Date de fin de l'événement", &def.End); err != nil {
		return in, err
	}
	if in.Location, err = c.prompt.String("Localisation de l'événement", def.Location); err != nil {
		return in, err
	}
	if in.Attendees, err = c.prompt.Int("Nombre d'invités à l'événement", attendees); err != nil {
		return in, err
	}
	if in.Notes, err = c.prompt.Optional("Notes", def.Notes); err != nil {
		return in, err
	}
	if in.ClientID, err = c.prompt.Int("Id du client", clientID); err != nil {
		return in, err
	}
	return in, nil
}

func eventPatch(in crm.EventInput) crm.EventPatch {
	return crm.EventPatch{
		Start:     &in.Start,
		End:       &in.End,
		Location:  &in.Location,
		Attendees: &in.Attendees,
		Notes:     &in.Notes,
		ClientID:  &in.ClientID,
	}
}

func departmentNames() []string {
	names := make([]string, 0, 3)
	for _, d := range rbac.Departments() {
		names = append(names, string(d))
	}
	return names
}

// promptNewUser asks the fields of a new user and proposes a random password.
func (c *CLI) promptNewUser() (auth.NewUser, error) {
	var in auth.NewUser
	var err error
	if in.Name, err = c.prompt.String("Nom", ""); err != nil {
		return in, err
	}
	if in.Email, err = c.prompt.Email("Email", ""); err != nil {
		return in, err
	}
	if in.Username, err = c.prompt.String("Nom d'utilisateur", ""); err != nil {
		return in, err
	}
	generated, err := randomPassword()
	if err != nil {
		return in, err
	}
	if in.Password, err = c.prompt.String("Mot de passe", generated); err != nil {
		return in, err
	}
	dept, err := c.prompt.Choice("Département", departmentNames(), "")
	if err != nil {
		return in, err
	}
	in.Department = rbac.Department(dept)
	return in, nil
}

// promptUserPatch asks the fields of an existing user. An empty password
// keeps the current one.
func (c *CLI) promptUserPatch(def *auth.User) (auth.UserPatch, error) {
	var patch auth.UserPatch
	name, err := c.prompt.String("Nom", def.Name)
	if err != nil {
		return patch, err
	}
	email, err := c.prompt.Email("Email", def.Email)
	if err != nil {
		return patch, err
	}
	username, err := c.prompt.String("Nom d'utilisateur", def.Username)
	if err != nil {
		return patch, err
	}
	password, err := c.prompt.Optional("Nouveau mot de passe (vide pour conserver l'actuel)", "")
	if err != nil {
		return patch, err
	}
	answer, err := c.prompt.Choice("Département", departmentNames(), string(def.Department))
	if err != nil {
		return patch, err
	}
	dept := rbac.Department(answer)

	patch.Name, patch.Email, patch.Username, patch.Department = &name, &email, &username, &dept
	if password = strings.TrimSpace(password); password != "" {
		patch.Password = &password
	}
	return patch, nil
}
