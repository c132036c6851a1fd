package constants

import (
	"strings"
)

// Field identifies one extractable company attribute.
type Field string

const (
	CompanyName   Field = "company_name"
	Description   Field = "company_description"
	BusinessModel Field = "company_business_model"
	Industry      Field = "company_industry"
	Management    Field = "management_team"
	Revenue       Field = "revenue"
	RevenueGrowth Field = "revenue_growth"
	GrossProfit   Field = "gross_profit"
	EBITDA        Field = "ebitda"
	Capex         Field = "capex"
)

// allFields is the display order. Keep stable: the table, the export sheet,
// and the LLM column list all follow it.
var allFields = []Field{
	CompanyName,
	Description,
	BusinessModel,
	Industry,
	Management,
	Revenue,
	RevenueGrowth,
	GrossProfit,
	EBITDA,
	Capex,
}

var labels = map[Field]string{
	CompanyName:   "Company Name",
	Description:   "Description",
	BusinessModel: "Business Model",
	Industry:      "Industry",
	Management:    "Management Team",
	Revenue:       "Revenue",
	RevenueGrowth: "Revenue Growth",
	GrossProfit:   "Gross Profit",
	EBITDA:        "EBITDA",
	Capex:         "CAPEX",
}

// Fields returns the ordered field set.
func Fields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// AsStringSlice returns the ordered field keys, e.g. for the LLM column list.
func AsStringSlice() []string {
	result := make([]string, len(allFields))
	for i, f := range allFields {
		result[i] = string(f)
	}
	return result
}

// Label returns the human-readable column header for a field.
func (f Field) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Canonicalize maps a loosely spelled field key from an LLM payload onto the
// schema. It tolerates spacing, casing and a few common synonyms.
func Canonicalize(input string) (Field, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	synonyms := map[string]Field{
		"name":                 CompanyName,
		"company":              CompanyName,
		"companyname":          CompanyName,
		"description":          Description,
		"business_model":       BusinessModel,
		"businessmodel":        BusinessModel,
		"industry":             Industry,
		"sector":               Industry,
		"management":           Management,
		"team":                 Management,
		"sales":                Revenue,
		"growth":               RevenueGrowth,
		"yoy_growth":           RevenueGrowth,
		"capex":                Capex,
		"capital_expenditure":  Capex,
		"capital_expenditures": Capex,
	}

	if f, ok := synonyms[normalized]; ok {
		return f, true
	}

	for _, f := range allFields {
		if normalized == string(f) {
			return f, true
		}
	}

	// strip a leading company_ prefix the model sometimes drops or adds
	for _, f := range allFields {
		if "company_"+normalized == string(f) || normalized == "company_"+string(f) {
			return f, true
		}
	}

	return "", false
}
