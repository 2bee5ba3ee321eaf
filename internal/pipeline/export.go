package pipeline

import (
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

const listSeparator = "; "

// profileRecord is the flat CSV shape of one enriched row. List fields
// are joined with "; " and client examples rendered as "name (website)".
type profileRecord struct {
	CompanyName       string `csv:"Company Name"`
	Website           string `csv:"Website"`
	ContactName       string `csv:"contact_name"`
	ContactEmail      string `csv:"contact_email"`
	Revenue           string `csv:"revenue"`
	EmployeeCount     string `csv:"employee_count"`
	FoundingYear      string `csv:"founding_year"`
	TargetIndustries  string `csv:"target_industries"`
	TargetCompanySize string `csv:"target_company_size"`
	TargetGeography   string `csv:"target_geography"`
	ClientExamples    string `csv:"client_examples"`
	ServiceFocus      string `csv:"service_focus"`
	Ranking           string `csv:"ranking"`
	Reasoning         string `csv:"reasoning"`
}

// ExportEnrichedCSV writes enriched rows to a canonical profile CSV.
func ExportEnrichedCSV(rows []EnrichedRow, path string) error {
	records := make([]profileRecord, len(rows))
	for i, row := range rows {
		records[i] = toProfileRecord(row)
	}

	data, err := csvutil.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "export: marshal profiles")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write profiles csv")
	}
	return nil
}

// ImportEnrichedCSV reads a canonical profile CSV back into enriched
// rows, for feeding the outreach scheduler.
func ImportEnrichedCSV(path string) ([]EnrichedRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: read profiles csv")
	}

	var records []profileRecord
	if err := csvutil.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "export: unmarshal profiles")
	}

	rows := make([]EnrichedRow, len(records))
	for i, rec := range records {
		rows[i] = fromProfileRecord(rec)
	}
	return rows, nil
}

// ExportLedgerCSV writes the outreach ledger to a CSV file.
func ExportLedgerCSV(rows []model.LedgerRow, path string) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "export: marshal ledger")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write ledger csv")
	}
	return nil
}

func toProfileRecord(row EnrichedRow) profileRecord {
	p := row.Profile
	return profileRecord{
		CompanyName:       row.Company.Name,
		Website:           row.Company.URL,
		ContactName:       p.ContactName,
		ContactEmail:      p.ContactEmail,
		Revenue:           p.Revenue,
		EmployeeCount:     p.EmployeeCount,
		FoundingYear:      p.FoundingYear,
		TargetIndustries:  strings.Join(p.TargetIndustries, listSeparator),
		TargetCompanySize: strings.Join(p.TargetCompanySize, listSeparator),
		TargetGeography:   strings.Join(p.TargetGeography, listSeparator),
		ClientExamples:    joinClientExamples(p.ClientExamples),
		ServiceFocus:      strings.Join(p.ServiceFocus, listSeparator),
		Ranking:           p.Ranking,
		Reasoning:         p.Reasoning,
	}
}

func fromProfileRecord(rec profileRecord) EnrichedRow {
	p := model.DefaultProfile()
	p.ContactName = rec.ContactName
	p.ContactEmail = rec.ContactEmail
	p.Revenue = rec.Revenue
	p.EmployeeCount = rec.EmployeeCount
	p.FoundingYear = rec.FoundingYear
	p.TargetIndustries = splitList(rec.TargetIndustries)
	p.TargetCompanySize = splitList(rec.TargetCompanySize)
	p.TargetGeography = splitList(rec.TargetGeography)
	p.ClientExamples = splitClientExamples(rec.ClientExamples)
	p.ServiceFocus = splitList(rec.ServiceFocus)
	p.Ranking = rec.Ranking
	p.Reasoning = rec.Reasoning

	return EnrichedRow{
		Company: model.Company{Name: rec.CompanyName, URL: rec.Website},
		Profile: p,
	}
}

func joinClientExamples(examples []model.ClientExample) string {
	parts := make([]string, 0, len(examples))
	for _, ce := range examples {
		if ce.Website != "" {
			parts = append(parts, ce.Name+" ("+ce.Website+")")
		} else {
			parts = append(parts, ce.Name)
		}
	}
	return strings.Join(parts, listSeparator)
}

func splitClientExamples(s string) []model.ClientExample {
	out := []model.ClientExample{}
	for _, part := range splitList(s) {
		ce := model.ClientExample{Name: part}
		if open := strings.LastIndex(part, " ("); open >= 0 && strings.HasSuffix(part, ")") {
			ce.Name = part[:open]
			ce.Website = part[open+2 : len(part)-1]
		}
		out = append(out, ce)
	}
	return out
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
