package pipeline

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	headerCompanyName = "company name"
	headerWebsite     = "website"
)

// ParseCompanies reads the input file (CSV or XLSX) into company rows.
// A missing "Company Name" or "Website" column is a fatal input error
// reported once, before any row is processed.
func ParseCompanies(path string) ([]model.Company, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return parseXLSX(path)
	default:
		return parseCSV(path)
	}
}

func parseCSV(path string) ([]model.Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "input: open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "input: read csv header")
	}
	nameIdx, urlIdx, err := headerIndexes(header)
	if err != nil {
		return nil, err
	}

	var companies []model.Company
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "input: read csv row")
		}
		if c, ok := companyFromRow(record, nameIdx, urlIdx); ok {
			companies = append(companies, c)
		}
	}
	return companies, nil
}

func parseXLSX(path string) ([]model.Company, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "input: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("input: xlsx has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("input: xlsx sheet is empty")
	}

	header := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		header[i] = cell.String()
	}
	nameIdx, urlIdx, err := headerIndexes(header)
	if err != nil {
		return nil, err
	}

	var companies []model.Company
	for _, row := range sheet.Rows[1:] {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		if c, ok := companyFromRow(cells, nameIdx, urlIdx); ok {
			companies = append(companies, c)
		}
	}
	return companies, nil
}

// headerIndexes locates the required columns, case-insensitively.
func headerIndexes(header []string) (nameIdx, urlIdx int, err error) {
	nameIdx, urlIdx = -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case headerCompanyName:
			nameIdx = i
		case headerWebsite:
			urlIdx = i
		}
	}
	if nameIdx < 0 || urlIdx < 0 {
		return 0, 0, eris.Errorf(`input: required columns "Company Name" and "Website" not found in header %v`, header)
	}
	return nameIdx, urlIdx, nil
}

func companyFromRow(record []string, nameIdx, urlIdx int) (model.Company, bool) {
	var name, url string
	if nameIdx < len(record) {
		name = strings.TrimSpace(record[nameIdx])
	}
	if urlIdx < len(record) {
		url = strings.TrimSpace(record[urlIdx])
	}
	if name == "" && url == "" {
		return model.Company{}, false
	}
	return model.Company{Name: name, URL: normalizeURL(url)}, true
}

// normalizeURL prepends https:// when the cell has no scheme.
func normalizeURL(url string) string {
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://" + url
}
