package notify

import (
	"fmt"
	"strings"
	"time"

	"basegraph.app/intake/internal/attachment"
	"basegraph.app/intake/internal/model"
)

// Discord execute-webhook limits.
const (
	maxTitle       = 256
	maxDescription = 4096
	maxFieldValue  = 1024
	maxContent     = 2000
	maxEmbedTotal  = 6000 // title, description, field names and values, footer across all embeds

	// minShrunkValue is as far as the total-size pass cuts any one text.
	minShrunkValue = 64
)

const (
	notesTitle = "📝 Additional notes"

	fieldKeyPoints      = "📌 Key points"
	fieldReporter       = "👤 Reporter"
	fieldClassification = "🏷️ Classification"
	fieldActions        = "✅ Suggested actions"
	fieldDescription    = "📄 Description"
	fieldSteps          = "🔁 Steps to reproduce"
	fieldEnvironment    = "💻 Environment"
	fieldErrorMessage   = "❌ Error message"
	fieldAINotes        = "🤖 AI notes"
	fieldFiles          = "Files"
	fieldLinks          = "Links"
	fieldErrors         = "⚠️ Processing errors"
)

const (
	componentActionRow = 1
	componentButton    = 2

	buttonPrimary = 1
	buttonLink    = 5
)

var severityColors = map[model.Severity]int{
	model.SeverityCritical: 0xFF0000,
	model.SeverityHigh:     0xFF8C00,
	model.SeverityMedium:   0xFFD700,
	model.SeverityLow:      0x32CD32,
}

var severityIcons = map[model.Severity]string{
	model.SeverityCritical: "🔴",
	model.SeverityHigh:     "🟠",
	model.SeverityMedium:   "🟡",
	model.SeverityLow:      "🟢",
}

type WebhookPayload struct {
	Content         string           `json:"content,omitempty"`
	Username        string           `json:"username,omitempty"`
	AvatarURL       string           `json:"avatar_url,omitempty"`
	Embeds          []Embed          `json:"embeds"`
	Components      []Component      `json:"components,omitempty"`
	AllowedMentions *AllowedMentions `json:"allowed_mentions,omitempty"`
}

type Embed struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	Color       int        `json:"color,omitempty"`
	Fields      []Field    `json:"fields,omitempty"`
	Thumbnail   *Image     `json:"thumbnail,omitempty"`
	Footer      *Footer    `json:"footer,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Image struct {
	URL string `json:"url"`
}

type Footer struct {
	Text string `json:"text"`
}

type Component struct {
	Type       int         `json:"type"`
	Style      int         `json:"style,omitempty"`
	Label      string      `json:"label,omitempty"`
	CustomID   string      `json:"custom_id,omitempty"`
	URL        string      `json:"url,omitempty"`
	Disabled   bool        `json:"disabled,omitempty"`
	Components []Component `json:"components,omitempty"`
}

type AllowedMentions struct {
	Parse []string `json:"parse"`
}

// PayloadInput is everything one notification is rendered from.
type PayloadInput struct {
	Record           *model.SubmissionRecord
	Summary          model.Summary
	AttachmentErrors []string
	IssueURL         string

	Username   string
	AvatarURL  string
	Components bool
}

// IsUrgent reports whether the notification carries the broadcast marker.
func IsUrgent(s model.Summary) bool {
	return s.Severity == model.SeverityCritical && s.RequiresImmediateAttention
}

// BuildPayload renders the webhook message. It does no I/O.
func BuildPayload(in PayloadInput) WebhookPayload {
	rec := in.Record

	payload := WebhookPayload{
		Username:  in.Username,
		AvatarURL: in.AvatarURL,
		Embeds:    []Embed{primaryEmbed(in)},
	}

	if IsUrgent(in.Summary) {
		payload.Content = truncate(fmt.Sprintf("@everyone 🚨 Urgent report %s: %s", rec.TicketID, rec.Title), maxContent)
		payload.AllowedMentions = &AllowedMentions{Parse: []string{"everyone"}}
	}

	if embed, ok := attachmentEmbed(rec, in.AttachmentErrors); ok {
		payload.Embeds = append(payload.Embeds, embed)
	}
	if rec.Notes != "" {
		payload.Embeds = append(payload.Embeds, Embed{
			Title:       notesTitle,
			Description: truncate(rec.Notes, maxDescription),
			Color:       colorFor(in.Summary.Severity),
		})
	}

	fitTotal(payload.Embeds)

	if in.Components {
		payload.Components = components(rec.TicketID, in.IssueURL)
	}

	return payload
}

func primaryEmbed(in PayloadInput) Embed {
	rec, summary := in.Record, in.Summary

	embed := Embed{
		Title:       truncate(fmt.Sprintf("%s %s", severityIcons[summary.Severity], rec.Title), maxTitle),
		Description: truncate(summary.Summary, maxDescription),
		URL:         in.IssueURL,
		Color:       colorFor(summary.Severity),
		Footer:      &Footer{Text: "Ticket " + rec.TicketID},
	}
	if !rec.SubmittedAt.IsZero() {
		ts := rec.SubmittedAt.UTC()
		embed.Timestamp = &ts
	}

	if summary.Fallback {
		embed.Fields = append(embed.Fields, Field{
			Name:  "⚠️ AI analysis unavailable",
			Value: "This summary was derived from the form fields because the AI service returned no usable result.",
		})
	}

	if len(summary.KeyPoints) > 0 {
		embed.Fields = append(embed.Fields, field(fieldKeyPoints, bullets(summary.KeyPoints), false))
	}

	embed.Fields = append(embed.Fields,
		field(fieldReporter, identity(rec), true),
		field(fieldClassification, classification(rec, summary), true),
	)

	if len(summary.SuggestedActions) > 0 {
		embed.Fields = append(embed.Fields, field(fieldActions, numbered(summary.SuggestedActions), false))
	}

	embed.Fields = append(embed.Fields, technicalDetails(rec)...)

	if summary.Notes != "" && !summary.Fallback {
		embed.Fields = append(embed.Fields, field(fieldAINotes, summary.Notes, false))
	}

	if in.IssueURL != "" {
		embed.Fields = append(embed.Fields, field("📋 Issue", in.IssueURL, false))
	}

	return embed
}

func identity(rec *model.SubmissionRecord) string {
	lines := []string{"**Name:** " + rec.Name, "**Email:** " + rec.Email}
	if rec.Phone != "" {
		lines = append(lines, "**Phone:** "+rec.Phone)
	}
	if rec.Company != "" {
		lines = append(lines, "**Company:** "+rec.Company)
	}
	if rec.ContactMethod.Label != "" {
		lines = append(lines, "**Contact via:** "+rec.ContactMethod.Label)
	}
	return strings.Join(lines, "\n")
}

func classification(rec *model.SubmissionRecord, summary model.Summary) string {
	lines := []string{
		"**Type:** " + rec.ReportType.Label,
		"**Priority:** " + rec.Priority.Label,
		"**Impact:** " + rec.ImpactScope.Label,
		fmt.Sprintf("**Severity:** %s %s", severityIcons[summary.Severity], summary.Severity),
	}
	if summary.Category != "" {
		lines = append(lines, "**Category:** "+summary.Category)
	}
	if summary.Complexity != "" {
		lines = append(lines, "**Complexity:** "+string(summary.Complexity))
	}
	return strings.Join(lines, "\n")
}

// technicalDetails renders only the narrative fields that were filled in.
func technicalDetails(rec *model.SubmissionRecord) []Field {
	var fields []Field
	if rec.Description != "" {
		fields = append(fields, field(fieldDescription, rec.Description, false))
	}
	if rec.StepsToReproduce != "" {
		fields = append(fields, field(fieldSteps, rec.StepsToReproduce, false))
	}
	if rec.Environment != "" {
		fields = append(fields, field(fieldEnvironment, rec.Environment, false))
	}
	if rec.ErrorMessage != "" {
		fields = append(fields, field(fieldErrorMessage, codeBlock(rec.ErrorMessage), false))
	}
	return fields
}

func attachmentEmbed(rec *model.SubmissionRecord, errs []string) (Embed, bool) {
	if len(rec.Attachments) == 0 && !rec.HasLinks() && len(errs) == 0 {
		return Embed{}, false
	}

	embed := Embed{Color: 0x5865F2}
	if len(rec.Attachments) > 0 {
		embed.Title = fmt.Sprintf("📎 Attachments (%d)", len(rec.Attachments))

		lines := make([]string, 0, len(rec.Attachments))
		for _, a := range rec.Attachments {
			lines = append(lines, fmt.Sprintf("• [%s](%s) (%s) · [download](%s)",
				a.Name, a.ViewURL, attachment.FormatSize(a.Size), a.DownloadURL))
			if embed.Thumbnail == nil && a.ThumbnailURL != "" {
				embed.Thumbnail = &Image{URL: a.ThumbnailURL}
			}
		}
		embed.Fields = append(embed.Fields, field(fieldFiles, strings.Join(lines, "\n"), false))
	} else if rec.HasLinks() {
		embed.Title = "🔗 Reference links"
	} else {
		embed.Title = "📎 Attachments"
	}

	if rec.HasLinks() {
		var links []string
		if rec.VideoURL != "" {
			links = append(links, "🎬 Video: "+rec.VideoURL)
		}
		if rec.DocumentURL != "" {
			links = append(links, "📄 Document: "+rec.DocumentURL)
		}
		embed.Fields = append(embed.Fields, field(fieldLinks, strings.Join(links, "\n"), false))
	}

	if len(errs) > 0 {
		embed.Fields = append(embed.Fields, field(fieldErrors, bullets(errs), false))
	}

	return embed, true
}

// fitTotal shrinks the least important texts until the embeds fit the
// combined webhook limit. Submitter notes go first, then narrative fields
// from the bottom up, then attachment details, then the AI's own lists.
// The title, synopsis and footer are never cut.
func fitTotal(embeds []Embed) {
	excess := embedChars(embeds) - maxEmbedTotal
	if excess <= 0 {
		return
	}

	var targets []*string
	codeTargets := map[*string]bool{}
	for i := range embeds {
		if i > 0 && embeds[i].Title == notesTitle {
			targets = append(targets, &embeds[i].Description)
		}
	}
	order := [][]string{
		{fieldErrorMessage, fieldEnvironment, fieldSteps, fieldDescription},
		{fieldErrors, fieldLinks, fieldFiles},
		{fieldAINotes, fieldActions, fieldKeyPoints, fieldClassification, fieldReporter},
	}
	for _, names := range order {
		for _, name := range names {
			for i := range embeds {
				for j := range embeds[i].Fields {
					f := &embeds[i].Fields[j]
					if f.Name != name {
						continue
					}
					targets = append(targets, &f.Value)
					if name == fieldErrorMessage {
						codeTargets[&f.Value] = true
					}
				}
			}
		}
	}

	for _, t := range targets {
		if excess <= 0 {
			return
		}
		excess -= shrink(t, excess, codeTargets[t])
	}
}

// shrink cuts up to excess characters from *s, never below minShrunkValue,
// and returns how many it removed. Code blocks stay fenced.
func shrink(s *string, excess int, code bool) int {
	before := runeLen(*s)
	if before <= minShrunkValue {
		return 0
	}
	limit := max(minShrunkValue, before-excess)
	if code {
		inner := strings.TrimSuffix(strings.TrimPrefix(*s, "```\n"), "\n```")
		*s = "```\n" + truncate(inner, limit-8) + "\n```"
	} else {
		*s = truncate(*s, limit)
	}
	return before - runeLen(*s)
}

func embedChars(embeds []Embed) int {
	n := 0
	for _, e := range embeds {
		n += runeLen(e.Title) + runeLen(e.Description)
		if e.Footer != nil {
			n += runeLen(e.Footer.Text)
		}
		for _, f := range e.Fields {
			n += runeLen(f.Name) + runeLen(f.Value)
		}
	}
	return n
}

func runeLen(s string) int {
	return len([]rune(s))
}

func components(ticketID, issueURL string) []Component {
	buttons := []Component{{
		Type:     componentButton,
		Style:    buttonPrimary,
		Label:    "Ticket " + ticketID,
		CustomID: "ticket:" + ticketID,
	}}
	if issueURL != "" {
		buttons = append(buttons, Component{
			Type:  componentButton,
			Style: buttonLink,
			Label: "Open issue",
			URL:   issueURL,
		})
	}
	return []Component{{Type: componentActionRow, Components: buttons}}
}

func colorFor(s model.Severity) int {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return severityColors[model.SeverityMedium]
}

// field never emits an empty value, which the webhook rejects.
func field(name, value string, inline bool) Field {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	return Field{Name: name, Value: truncate(value, maxFieldValue), Inline: inline}
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "• " + item
	}
	return strings.Join(lines, "\n")
}

func numbered(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}

func codeBlock(s string) string {
	// Room for the fences so truncation keeps the block closed.
	return "```\n" + truncate(s, maxFieldValue-8) + "\n```"
}

// truncate clips s to limit characters including the ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
