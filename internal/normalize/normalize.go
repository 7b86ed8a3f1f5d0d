package normalize

import (
	"strings"
	"unicode"

	"basegraph.app/intake/internal/model"
)

// TicketMinter hands out ticket identifiers.
type TicketMinter interface {
	Next() string
}

// Normalizer is a pure transformation: it performs no I/O and never fails.
type Normalizer struct {
	tickets TicketMinter
}

func New(tickets TicketMinter) *Normalizer {
	return &Normalizer{tickets: tickets}
}

func (n *Normalizer) Normalize(rec *model.SubmissionRecord) {
	rec.Name = strings.TrimSpace(rec.Name)
	rec.Company = strings.TrimSpace(rec.Company)
	rec.Email = strings.ToLower(strings.TrimSpace(rec.Email))
	rec.Phone = stripSpace(rec.Phone)

	rec.Title = strings.TrimSpace(rec.Title)
	rec.Description = strings.TrimSpace(rec.Description)
	rec.StepsToReproduce = strings.TrimSpace(rec.StepsToReproduce)
	rec.Environment = strings.TrimSpace(rec.Environment)
	rec.ErrorMessage = strings.TrimSpace(rec.ErrorMessage)
	rec.Notes = strings.TrimSpace(rec.Notes)
	rec.VideoURL = strings.TrimSpace(rec.VideoURL)
	rec.DocumentURL = strings.TrimSpace(rec.DocumentURL)

	rec.ContactMethod.Label = strings.TrimSpace(rec.ContactMethod.Label)
	rec.ReportType.Label = strings.TrimSpace(rec.ReportType.Label)
	rec.Priority.Label = strings.TrimSpace(rec.Priority.Label)
	rec.ImpactScope.Label = strings.TrimSpace(rec.ImpactScope.Label)

	rec.ContactMethod.Code = MapContactMethod(rec.ContactMethod.Label)
	rec.ReportType.Code = MapReportType(rec.ReportType.Label)
	rec.Priority.Code = MapPriority(rec.Priority.Label)
	rec.ImpactScope.Code = MapImpactScope(rec.ImpactScope.Label)

	if rec.TicketID == "" {
		rec.TicketID = n.tickets.Next()
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
