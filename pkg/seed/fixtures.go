package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the demonstration data loaded by Populate. Clients, contracts
// and events refer to users by username and to each other by natural key.
type Fixtures struct {
	Users     []UserFixture     `yaml:"users"`
	Clients   []ClientFixture   `yaml:"clients"`
	Contracts []ContractFixture `yaml:"contracts"`
	Events    []EventFixture    `yaml:"events"`
}

// UserFixture is a staff member, keyed by username
type UserFixture struct {
	Username   string          `yaml:"username"`
	Password   string          `yaml:"password"`
	Name       string          `yaml:"name"`
	Email      string          `yaml:"email"`
	Department rbac.Department `yaml:"department"`
}

// ClientFixture is a client, keyed by full name
type ClientFixture struct {
	FullName    string `yaml:"full_name"`
	Email       string `yaml:"email"`
	Phone       string `yaml:"telephone"`
	CompanyName string `yaml:"company_name"`
	Owner       string `yaml:"owner"`
}

// ContractFixture is a contract, keyed by client and amount. Event names the
// location of the event it covers.
type ContractFixture struct {
	Client    string             `yaml:"client"`
	Amount    int64              `yaml:"amount"`
	DueAmount int64              `yaml:"due_amount"`
	Status    crm.ContractStatus `yaml:"status"`
	Owner     string             `yaml:"owner"`
	Event     string             `yaml:"event"`
}

// EventFixture is an event, keyed by location
type EventFixture struct {
	Client    string    `yaml:"client"`
	Location  string    `yaml:"location"`
	Start     time.Time `yaml:"start"`
	End       time.Time `yaml:"end"`
	Attendees int64     `yaml:"attendees"`
	Notes     string    `yaml:"notes"`
	Owner     string    `yaml:"owner"`
}

// DefaultFixtures returns the built-in demonstration data.
func DefaultFixtures() (*Fixtures, error) {
	return ParseFixtures(defaultFixtures)
}

// ParseFixtures decodes a YAML fixture document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}
