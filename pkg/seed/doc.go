// Package seed loads the demonstration data behind the populate command:
// the permission catalog, one user per department and a few clients,
// contracts and events. The data lives in an embedded YAML document.
//
//	fixtures, _ := seed.DefaultFixtures()
//	report, err := seed.NewPopulator(stores, fixtures, logger).Populate(ctx)
//
// Every record is matched by a natural key (username, client full name,
// contract client and amount, event location) so a second run creates
// nothing. Every run reassigns each user the grants of its department.
package seed
