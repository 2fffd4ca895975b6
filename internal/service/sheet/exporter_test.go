package sheet_test

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"renamedesk/internal/service/sheet"
)

func TestApplyMatchesByFullPathThenOriginalName(t *testing.T) {
	t.Parallel()

	reader := buildWorkbook(t, testHeader, [][]interface{}{
		testRow("a.png", "Brand_C_C_A_F_V_D", "/r/a.png"),
		testRow("b.png", "Brand_C_C_A_F_V_D", "/r/b.png"),
		testRow("c.png", "Brand_C_C_A_F_V_D", ""),
	})

	table, err := sheet.Load(reader, "log.xlsx")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	pending := map[string]string{
		"/r/a.png": "Acme_C_C_A_F_V_D",
		"c.png":    "Beta_C_C_A_F_V_D", // FullPath 为空，按 OriginalName 匹配
	}

	updated := table.Apply(pending)
	if updated != 2 {
		t.Fatalf("updated=%d, want 2", updated)
	}

	rows := table.Rows()
	if rows[0].ProposedNewName != "Acme_C_C_A_F_V_D" {
		t.Fatalf("row a not updated: %q", rows[0].ProposedNewName)
	}
	if rows[1].ProposedNewName != "Brand_C_C_A_F_V_D" {
		t.Fatalf("row b should be untouched: %q", rows[1].ProposedNewName)
	}
	if rows[2].ProposedNewName != "Beta_C_C_A_F_V_D" {
		t.Fatalf("row c not updated by original name: %q", rows[2].ProposedNewName)
	}
}

func TestExportRoundTrip(t *testing.T) {
	t.Parallel()

	reader := buildWorkbook(t, testHeader, [][]interface{}{
		testRow("a.png", "Brand_Campaign_Channel_Asset_Format_Version_Date", "/r/a.png"),
	})

	table, err := sheet.Load(reader, "log.xlsx")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	table.Apply(map[string]string{"/r/a.png": "Acme_Campaign_Channel_Asset_Format_Version_Date"})

	outPath := filepath.Join(t.TempDir(), sheet.DefaultExportName)
	if err := table.Export(outPath); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Sheet1", "C2")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if got != "Acme_Campaign_Channel_Asset_Format_Version_Date" {
		t.Fatalf("exported proposed name=%q", got)
	}

	header, err := f.GetCellValue("Sheet1", "C1")
	if err != nil {
		t.Fatalf("GetCellValue header failed: %v", err)
	}
	if header != "Proposed New Name" {
		t.Fatalf("header C1=%q", header)
	}
}
