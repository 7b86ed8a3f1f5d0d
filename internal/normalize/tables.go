package normalize

import "basegraph.app/intake/internal/model"

// Label tables are exact-string lookups against the options offered on the
// form. Anything not listed falls back to the Default* value.

const (
	DefaultPriority      = model.PriorityMedium
	DefaultReportType    = model.ReportTypeBug
	DefaultImpactScope   = model.ImpactScopeIndividual
	DefaultContactMethod = model.ContactMethodEmail
)

var PriorityLabels = map[string]model.Priority{
	"🔥 緊急 (影響營運)": model.PriorityCritical,
	"⚠️ 高 (影響工作)": model.PriorityHigh,
	"📋 中 (一般問題)":  model.PriorityMedium,
	"💡 低 (建議改善)":  model.PriorityLow,
	"🔥 Critical":  model.PriorityCritical,
	"⚠️ High":     model.PriorityHigh,
	"📋 Medium":    model.PriorityMedium,
	"💡 Low":       model.PriorityLow,
}

var ReportTypeLabels = map[string]model.ReportType{
	"🐛 Bug 回報":            model.ReportTypeBug,
	"✨ 功能建議":              model.ReportTypeFeatureRequest,
	"❓ 使用問題":              model.ReportTypeUsageQuestion,
	"🔧 技術支援":              model.ReportTypeTechnicalSupport,
	"🐛 Bug Report":        model.ReportTypeBug,
	"✨ Feature Request":   model.ReportTypeFeatureRequest,
	"❓ Usage Question":    model.ReportTypeUsageQuestion,
	"🔧 Technical Support": model.ReportTypeTechnicalSupport,
}

var ImpactScopeLabels = map[string]model.ImpactScope{
	"👤 僅影響我個人":           model.ImpactScopeIndividual,
	"👥 影響部分同事":           model.ImpactScopeTeam,
	"🏢 影響整個部門":           model.ImpactScopeDepartment,
	"🌐 影響全公司":            model.ImpactScopeCompany,
	"👤 Only me":          model.ImpactScopeIndividual,
	"👥 Some colleagues":  model.ImpactScopeTeam,
	"🏢 Whole department": model.ImpactScopeDepartment,
	"🌐 Whole company":    model.ImpactScopeCompany,
}

var ContactMethodLabels = map[string]model.ContactMethod{
	"📧 Email": model.ContactMethodEmail,
	"📞 電話":    model.ContactMethodPhone,
	"💬 即時通訊":  model.ContactMethodChat,
	"📞 Phone": model.ContactMethodPhone,
	"💬 Chat":  model.ContactMethodChat,
}

func lookup[T ~string](table map[string]T, label string, fallback T) T {
	if code, ok := table[label]; ok {
		return code
	}
	return fallback
}

func MapPriority(label string) model.Priority {
	return lookup(PriorityLabels, label, DefaultPriority)
}

func MapReportType(label string) model.ReportType {
	return lookup(ReportTypeLabels, label, DefaultReportType)
}

func MapImpactScope(label string) model.ImpactScope {
	return lookup(ImpactScopeLabels, label, DefaultImpactScope)
}

func MapContactMethod(label string) model.ContactMethod {
	return lookup(ContactMethodLabels, label, DefaultContactMethod)
}
