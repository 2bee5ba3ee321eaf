package pipeline

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/pkg/notion"
)

// ExportNotion pushes enriched rows into a Notion lead database, one
// page per company. A single page failure is logged and skipped.
func ExportNotion(ctx context.Context, client notion.Client, dbID string, rows []EnrichedRow) error {
	if dbID == "" {
		return eris.New("notion: lead database ID not configured")
	}

	var failed int
	for _, row := range rows {
		req := leadPageRequest(dbID, row)
		if _, err := client.CreatePage(ctx, req); err != nil {
			failed++
			zap.L().Error("notion export failed for company",
				zap.String("company", row.Company.Name),
				zap.Error(err),
			)
			continue
		}
	}

	zap.L().Info("notion export complete",
		zap.Int("total", len(rows)),
		zap.Int("failed", failed),
	)
	if failed == len(rows) && len(rows) > 0 {
		return eris.New("notion: every page creation failed")
	}
	return nil
}

func leadPageRequest(dbID string, row EnrichedRow) *notionapi.PageCreateRequest {
	p := row.Profile
	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Title: richText(row.Company.Name),
			},
			"Website": notionapi.URLProperty{
				URL: row.Company.URL,
			},
			"Contact": notionapi.RichTextProperty{
				RichText: richText(p.ContactName),
			},
			"Email": notionapi.EmailProperty{
				Email: p.ContactEmail,
			},
			"Revenue": notionapi.RichTextProperty{
				RichText: richText(p.Revenue),
			},
			"Employees": notionapi.RichTextProperty{
				RichText: richText(p.EmployeeCount),
			},
			"Industries": notionapi.RichTextProperty{
				RichText: richText(strings.Join(p.TargetIndustries, ", ")),
			},
			"Ranking": notionapi.RichTextProperty{
				RichText: richText(p.Ranking),
			},
		},
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}
}
