package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"basegraph.app/intake/internal/model"
)

// Alert is the operator notification for a submission that could not be delivered.
type Alert struct {
	Recipient string
	Subject   string
	Body      string
}

type Sender interface {
	Send(ctx context.Context, a Alert) error
}

// kinded errors name their failure class in the alert.
type kinded interface {
	Kind() string
}

// Build renders the alert. rec may be nil when the failure happened before mapping.
func Build(recipient string, rec *model.SubmissionRecord, err error) Alert {
	kind := "unexpected"
	var k kinded
	if errors.As(err, &k) {
		kind = k.Kind()
	}

	if rec == nil {
		rec = &model.SubmissionRecord{}
	}

	subject := fmt.Sprintf("[Intake] %s failure", kind)
	if rec.TicketID != "" {
		subject += " for " + rec.TicketID
	}
	if rec.Title != "" {
		subject += ": " + rec.Title
	}

	var b strings.Builder
	b.WriteString("A customer report could not be delivered to the support channel.\n\n")
	fmt.Fprintf(&b, "Error kind: %s\n", kind)
	fmt.Fprintf(&b, "Error: %v\n\n", err)

	b.WriteString("Submission\n")
	row(&b, "Ticket", rec.TicketID)
	if rec.SubmissionID != 0 {
		row(&b, "Submission ID", fmt.Sprint(rec.SubmissionID))
	}
	row(&b, "Source", rec.Source)
	row(&b, "Title", rec.Title)

	b.WriteString("\nSubmitter\n")
	row(&b, "Name", rec.Name)
	row(&b, "Email", rec.Email)
	row(&b, "Phone", rec.Phone)
	row(&b, "Company", rec.Company)
	row(&b, "Preferred contact", rec.ContactMethod.Label)

	b.WriteString("\nPlease follow up with the submitter manually.\n")

	return Alert{Recipient: recipient, Subject: subject, Body: b.String()}
}

func row(b *strings.Builder, label, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(b, "  %s: %s\n", label, value)
}
