package feeds

import "fmt"

// ChangeTicket is one approved (or not) change window in the change
// management system.
type ChangeTicket struct {
	ID               string
	ChangeType       string // bgp_policy, roa_change, maintenance, ...
	Description      string
	Requester        string
	Start            float64 // virtual time window start
	End              float64 // virtual time window end
	AffectedPrefixes []string
	Status           string // approved, pending, rejected
	Risk             string
}

// CMDB is a deterministic stand-in for a change management database
// (ServiceNow, Jira). Generators query it to decide whether an observed
// change correlates with an approved ticket.
type CMDB struct {
	tickets []ChangeTicket
	counter int
}

// NewCMDB creates an empty change database. Ticket IDs start at CHG-1000 to
// look like a system that existed before the simulation started.
func NewCMDB() *CMDB {
	return &CMDB{counter: 1000}
}

// CreateTicket records a change ticket and returns its assigned ID.
func (c *CMDB) CreateTicket(t ChangeTicket) string {
	t.ID = fmt.Sprintf("CHG-%d", c.counter)
	c.counter++
	c.tickets = append(c.tickets, t)
	return t.ID
}

// ChangesForPrefix returns tickets whose window covers the given virtual time
// and whose affected prefixes include prefix.
func (c *CMDB) ChangesForPrefix(prefix string, at float64) []ChangeTicket {
	var out []ChangeTicket
	for _, t := range c.tickets {
		if at < t.Start || at > t.End {
			continue
		}
		for _, p := range t.AffectedPrefixes {
			if p == prefix {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// HasApprovedChange reports whether an approved ticket covers prefix at the
// given virtual time.
func (c *CMDB) HasApprovedChange(prefix string, at float64) bool {
	for _, t := range c.ChangesForPrefix(prefix, at) {
		if t.Status == "approved" {
			return true
		}
	}
	return false
}

// Tickets returns all tickets in creation order.
func (c *CMDB) Tickets() []ChangeTicket {
	return c.tickets
}
