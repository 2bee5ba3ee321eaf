package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseCompaniesCSV(t *testing.T) {
	path := writeTempCSV(t, "Company Name,Website\nAcme Corp,acme.example.com\nBeta LLC,https://beta.example.com\n")

	companies, err := ParseCompanies(path)
	require.NoError(t, err)
	require.Len(t, companies, 2)

	assert.Equal(t, model.Company{Name: "Acme Corp", URL: "https://acme.example.com"}, companies[0])
	assert.Equal(t, model.Company{Name: "Beta LLC", URL: "https://beta.example.com"}, companies[1])
}

func TestParseCompaniesHeaderCaseInsensitive(t *testing.T) {
	path := writeTempCSV(t, "Notes,COMPANY NAME,website\nx,Acme,acme.com\n")

	companies, err := ParseCompanies(path)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Acme", companies[0].Name)
}

func TestParseCompaniesMissingColumns(t *testing.T) {
	path := writeTempCSV(t, "Name,URL\nAcme,acme.com\n")

	_, err := ParseCompanies(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required columns")
}

func TestParseCompaniesSkipsBlankRows(t *testing.T) {
	path := writeTempCSV(t, "Company Name,Website\nAcme,acme.com\n,\n ,\nBeta,beta.com\n")

	companies, err := ParseCompanies(path)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "Acme", companies[0].Name)
	assert.Equal(t, "Beta", companies[1].Name)
}

func TestParseCompaniesRaggedRows(t *testing.T) {
	// Rows shorter than the header keep whatever cells they have.
	path := writeTempCSV(t, "Company Name,Website\nAcme\n")

	companies, err := ParseCompanies(path)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Acme", companies[0].Name)
	assert.Equal(t, "", companies[0].URL)
}

func TestParseCompaniesMissingFile(t *testing.T) {
	_, err := ParseCompanies(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"acme.com", "https://acme.com"},
		{"http://acme.com", "http://acme.com"},
		{"https://acme.com", "https://acme.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeURL(tt.in))
	}
}
