// Package sla computes request due dates and flags requests that miss them.
package sla

import (
	"time"

	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
)

// Policy reads the duration table on every call so a reloaded sla.yml
// applies to the next request created.
type Policy struct {
	holder *config.SLAConfigHolder
}

func NewPolicy(holder *config.SLAConfigHolder) *Policy {
	return &Policy{holder: holder}
}

func (p *Policy) DueDate(createdAt time.Time, warranty domain.WarrantyStatus, method domain.ExecutionMethod) time.Time {
	table := p.holder.Get()

	hours := table.OutOfWarrantyHours
	if warranty == domain.WarrantyUnder {
		hours = table.UnderWarrantyHours
	}
	if method == domain.ExecutionOnSite {
		hours += table.OnSiteBufferHours
	}
	return createdAt.Add(time.Duration(hours) * time.Hour)
}

// Due reports whether req should be flagged at now.
func Due(req domain.Request, now time.Time) bool {
	if req.IsOverdue || req.SLADueDate == nil || req.Status.Finished() {
		return false
	}
	return req.SLADueDate.Before(now)
}
