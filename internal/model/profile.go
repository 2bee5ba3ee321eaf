package model

import (
	"fmt"
	"strconv"
)

// ClientExample is one named client reference on a prospect profile.
type ClientExample struct {
	Name    string `json:"name"`
	Website string `json:"website"`
}

// Profile is the canonical enrichment output for one company. Every field
// is always present: strings default to "" and lists to empty slices, so
// downstream consumers never need nil checks.
type Profile struct {
	ContactName       string          `json:"contact_name"`
	ContactEmail      string          `json:"contact_email"`
	Revenue           string          `json:"revenue"`
	EmployeeCount     string          `json:"employee_count"`
	FoundingYear      string          `json:"founding_year"`
	TargetIndustries  []string        `json:"target_industries"`
	TargetCompanySize []string        `json:"target_company_size"`
	TargetGeography   []string        `json:"target_geography"`
	ClientExamples    []ClientExample `json:"client_examples"`
	ServiceFocus      []string        `json:"service_focus"`
	Ranking           string          `json:"ranking"`
	Reasoning         string          `json:"reasoning"`
}

// DefaultProfile returns a profile with every canonical field present
// and empty. Used when enrichment exhausts its retries.
func DefaultProfile() Profile {
	return Profile{
		TargetIndustries:  []string{},
		TargetCompanySize: []string{},
		TargetGeography:   []string{},
		ClientExamples:    []ClientExample{},
		ServiceFocus:      []string{},
	}
}

// ProfileFromMap builds a Profile from an aggregated flat context map,
// coercing loosely-typed model output into canonical shapes. Missing or
// malformed fields fall back to their defaults.
func ProfileFromMap(m map[string]any) Profile {
	p := DefaultProfile()
	if m == nil {
		return p
	}

	p.ContactName = stringify(m["contact_name"])
	p.ContactEmail = stringify(m["contact_email"])
	p.Revenue = stringify(m["revenue"])
	p.EmployeeCount = stringify(m["employee_count"])
	p.FoundingYear = stringify(m["founding_year"])
	p.TargetIndustries = stringList(m["target_industries"])
	p.TargetCompanySize = stringList(m["target_company_size"])
	p.TargetGeography = stringList(m["target_geography"])
	p.ClientExamples = clientExamples(m["client_examples"])
	p.ServiceFocus = stringList(m["service_focus"])
	p.Ranking = stringify(m["ranking"])
	p.Reasoning = stringify(m["reasoning"])

	return p
}

// Empty reports whether the profile carries no enriched data at all.
func (p Profile) Empty() bool {
	return p.ContactName == "" && p.ContactEmail == "" && p.Revenue == "" &&
		p.EmployeeCount == "" && p.FoundingYear == "" &&
		len(p.TargetIndustries) == 0 && len(p.TargetCompanySize) == 0 &&
		len(p.TargetGeography) == 0 && len(p.ClientExamples) == 0 &&
		len(p.ServiceFocus) == 0 && p.Ranking == "" && p.Reasoning == ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; render integers without a decimal.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := stringify(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clientExamples(v any) []ClientExample {
	items, ok := v.([]any)
	if !ok {
		return []ClientExample{}
	}
	out := make([]ClientExample, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case map[string]any:
			ce := ClientExample{
				Name:    stringify(t["name"]),
				Website: stringify(t["website"]),
			}
			if ce.Name != "" || ce.Website != "" {
				out = append(out, ce)
			}
		case string:
			if t != "" {
				out = append(out, ClientExample{Name: t})
			}
		}
	}
	return out
}
