package mapper

import (
	"cmp"
	"slices"
	"sort"
	"strings"

	"basegraph.app/intake/internal/model"
)

// Field identifies a SubmissionRecord field a form question can feed.
type Field string

const (
	FieldName          Field = "name"
	FieldEmail         Field = "email"
	FieldPhone         Field = "phone"
	FieldCompany       Field = "company"
	FieldContactMethod Field = "contact_method"
	FieldReportType    Field = "report_type"
	FieldPriority      Field = "priority"
	FieldImpactScope   Field = "impact_scope"
	FieldTitle         Field = "title"
	FieldDescription   Field = "description"
	FieldSteps         Field = "steps_to_reproduce"
	FieldEnvironment   Field = "environment"
	FieldErrorMessage  Field = "error_message"
	FieldVideoURL      Field = "video_url"
	FieldDocumentURL   Field = "document_url"
	FieldAttachments   Field = "attachments"
	FieldNotes         Field = "notes"
)

// FieldLabels maps question labels as they appear on the form to record fields.
// The original form is in Traditional Chinese; English labels are accepted for
// the translated copy of the form.
var FieldLabels = map[string]Field{
	"姓名":     FieldName,
	"聯絡人姓名":  FieldName,
	"電子郵件":   FieldEmail,
	"Email":  FieldEmail,
	"聯絡電話":   FieldPhone,
	"公司名稱":   FieldCompany,
	"偏好聯絡方式": FieldContactMethod,
	"問題類型":   FieldReportType,
	"回報類型":   FieldReportType,
	"優先程度":   FieldPriority,
	"緊急程度":   FieldPriority,
	"影響範圍":   FieldImpactScope,
	"問題標題":   FieldTitle,
	"問題描述":   FieldDescription,
	"重現步驟":   FieldSteps,
	"使用環境":   FieldEnvironment,
	"錯誤訊息":   FieldErrorMessage,
	"影片連結":   FieldVideoURL,
	"文件連結":   FieldDocumentURL,
	"上傳截圖":   FieldAttachments,
	"附件":     FieldAttachments,
	"其他補充":   FieldNotes,

	"Name":                     FieldName,
	"Email Address":            FieldEmail,
	"Phone":                    FieldPhone,
	"Company":                  FieldCompany,
	"Preferred Contact Method": FieldContactMethod,
	"Report Type":              FieldReportType,
	"Priority":                 FieldPriority,
	"Impact Scope":             FieldImpactScope,
	"Title":                    FieldTitle,
	"Description":              FieldDescription,
	"Steps to Reproduce":       FieldSteps,
	"Environment":              FieldEnvironment,
	"Error Message":            FieldErrorMessage,
	"Video Link":               FieldVideoURL,
	"Document Link":            FieldDocumentURL,
	"Screenshots":              FieldAttachments,
	"Additional Notes":         FieldNotes,
}

// LabelPrecedence orders the labels of FieldLabels. When several labels feed
// one field, the first answered label in this order fills a text field, and
// upload answers are concatenated in this order.
var LabelPrecedence = []string{
	"姓名", "聯絡人姓名", "Name",
	"電子郵件", "Email", "Email Address",
	"聯絡電話", "Phone",
	"公司名稱", "Company",
	"偏好聯絡方式", "Preferred Contact Method",
	"問題類型", "回報類型", "Report Type",
	"優先程度", "緊急程度", "Priority",
	"影響範圍", "Impact Scope",
	"問題標題", "Title",
	"問題描述", "Description",
	"重現步驟", "Steps to Reproduce",
	"使用環境", "Environment",
	"錯誤訊息", "Error Message",
	"影片連結", "Video Link",
	"文件連結", "Document Link",
	"上傳截圖", "附件", "Screenshots",
	"其他補充", "Additional Notes",
}

// FormMapper turns labeled answers into a raw SubmissionRecord.
// Values are copied as-is; trimming and code mapping belong to the normalizer.
type FormMapper struct {
	labels map[string]Field
	rank   map[string]int
}

func NewFormMapper() *FormMapper {
	return newFormMapper(FieldLabels, LabelPrecedence)
}

// NewFormMapperWithLabels builds a mapper over a custom label table. Aliases
// of one field take precedence in lexical label order.
func NewFormMapperWithLabels(labels map[string]Field) *FormMapper {
	order := make([]string, 0, len(labels))
	for label := range labels {
		order = append(order, label)
	}
	sort.Strings(order)
	return newFormMapper(labels, order)
}

func newFormMapper(labels map[string]Field, order []string) *FormMapper {
	rank := make(map[string]int, len(order))
	for i, label := range order {
		rank[label] = i
	}
	return &FormMapper{labels: labels, rank: rank}
}

// Map never fails: unknown labels are skipped and missing labels leave the field empty.
func (m *FormMapper) Map(event model.FormEvent) *model.SubmissionRecord {
	rec := &model.SubmissionRecord{
		SubmissionID: event.SubmissionID,
		SubmittedAt:  event.SubmittedAt,
		Source:       event.Source,
		RowIndex:     event.RowIndex,
	}

	filled := make(map[Field]bool)
	for _, label := range m.answeredLabels(event) {
		field, _ := m.lookup(label)
		answer := event.Answers[label]
		if field != FieldAttachments {
			if filled[field] {
				continue
			}
			filled[field] = strings.TrimSpace(strings.Join(answer, "")) != ""
		}
		m.assign(rec, field, answer)
	}

	return rec
}

// answeredLabels returns the known labels of event in precedence order.
// Labels missing from the precedence list sort last, lexically.
func (m *FormMapper) answeredLabels(event model.FormEvent) []string {
	labels := make([]string, 0, len(event.Answers))
	for label := range event.Answers {
		if _, ok := m.lookup(label); ok {
			labels = append(labels, label)
		}
	}
	slices.SortFunc(labels, func(a, b string) int {
		if c := cmp.Compare(m.rankOf(a), m.rankOf(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return labels
}

func (m *FormMapper) rankOf(label string) int {
	if r, ok := m.rank[strings.TrimSpace(label)]; ok {
		return r
	}
	return len(m.rank)
}

// UnknownLabels lists the answer labels the mapper will ignore, sorted.
func (m *FormMapper) UnknownLabels(event model.FormEvent) []string {
	var unknown []string
	for label := range event.Answers {
		if _, ok := m.lookup(label); !ok {
			unknown = append(unknown, label)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func (m *FormMapper) lookup(label string) (Field, bool) {
	field, ok := m.labels[strings.TrimSpace(label)]
	return field, ok
}

func (m *FormMapper) assign(rec *model.SubmissionRecord, field Field, answer model.AnswerValue) {
	value := strings.Join(answer, ", ")

	switch field {
	case FieldName:
		rec.Name = value
	case FieldEmail:
		rec.Email = value
	case FieldPhone:
		rec.Phone = value
	case FieldCompany:
		rec.Company = value
	case FieldContactMethod:
		rec.ContactMethod.Label = value
	case FieldReportType:
		rec.ReportType.Label = value
	case FieldPriority:
		rec.Priority.Label = value
	case FieldImpactScope:
		rec.ImpactScope.Label = value
	case FieldTitle:
		rec.Title = value
	case FieldDescription:
		rec.Description = value
	case FieldSteps:
		rec.StepsToReproduce = value
	case FieldEnvironment:
		rec.Environment = value
	case FieldErrorMessage:
		rec.ErrorMessage = value
	case FieldVideoURL:
		rec.VideoURL = value
	case FieldDocumentURL:
		rec.DocumentURL = value
	case FieldNotes:
		rec.Notes = value
	case FieldAttachments:
		for _, ref := range answer {
			if ref = strings.TrimSpace(ref); ref != "" {
				rec.FileRefs = append(rec.FileRefs, ref)
			}
		}
	}
}
