package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
)

const displayLayout = "2006-01-02 15:04"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	captionStyle = lipgloss.NewStyle().Italic(true)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderTable writes a bordered table with a title above it and the
// generation date below it.
func (c *CLI) renderTable(title string, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintln(c.out, titleStyle.Render(title))
	fmt.Fprintln(c.out, t.String())
	fmt.Fprintln(c.out, captionStyle.Render("Tableau généré le "+c.now().Format("2006-01-02")))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(displayLayout)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return formatID(*id)
}

func (c *CLI) renderClients(items []*crm.Client) {
	rows := make([][]string, 0, len(items))
	for _, cl := range items {
		rows = append(rows, []string{
			formatID(cl.ID),
			cl.FullName,
			cl.Email,
			cl.Phone,
			cl.CompanyName,
			formatTime(cl.CreatedAt),
			formatTime(cl.ModifiedAt),
			formatID(cl.OwnerID),
		})
	}
	c.renderTable("Clients", []string{
		"Identifiant", "Nom complet", "Email", "Téléphone", "Nom de l'entreprise",
		"Date de création", "Dernière mise à jour/contact", "Contact commercial",
	}, rows)
}

func (c *CLI) renderContracts(items []*crm.Contract) {
	rows := make([][]string, 0, len(items))
	for _, ct := range items {
		rows = append(rows, []string{
			formatID(ct.ID),
			formatID(ct.ClientID),
			formatID(ct.OwnerID),
			strconv.FormatInt(ct.Amount, 10),
			strconv.FormatInt(ct.DueAmount, 10),
			formatTime(ct.CreatedAt),
			formatTime(ct.ModifiedAt),
			ct.Status.Label(),
			formatOptionalID(ct.EventID),
		})
	}
	c.renderTable("Contrats", []string{
		"Identifiant", "Identifiant du client", "Contact commercial", "Montant total",
		"Restant à payer", "Date de création", "Dernière mise à jour", "Statut du contrat",
		"Identifiant de l'événement",
	}, rows)
}

func (c *CLI) renderEvents(items []*crm.Event) {
	rows := make([][]string, 0, len(items))
	for _, ev := range items {
		rows = append(rows, []string{
			formatID(ev.ID),
			formatOptionalID(ev.ContractID),
			formatID(ev.ClientID),
			formatTime(ev.Start),
			formatTime(ev.End),
			formatID(ev.OwnerID),
			ev.Location,
			strconv.FormatInt(ev.Attendees, 10),
			ev.Notes,
		})
	}
	c.renderTable("Événements", []string{
		"Identifiant", "Identifiant du contrat", "Identifiant du client", "Date de début",
		"Date de fin", "Contact support", "Localisation", "Participants", "Notes",
	}, rows)
}

func (c *CLI) renderUsers(items []*auth.User) {
	rows := make([][]string, 0, len(items))
	for _, u := range items {
		rows = append(rows, []string{
			formatID(u.ID),
			u.Name,
			u.Email,
			u.Username,
			u.Department.Label(),
		})
	}
	c.renderTable("Utilisateurs", []string{
		"Identifiant", "Nom", "Email", "Nom d'utilisateur", "Département",
	}, rows)
}
