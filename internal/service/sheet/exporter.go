package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"renamedesk/internal/model"
)

// DefaultExportName 落盘导出文件的固定文件名
const DefaultExportName = "Updated_Clients_Rename_Log.xlsx"

// Apply 将待定变更写入内存表
// 匹配优先 FullPath，未命中时退回 OriginalName；返回实际更新的行数
func (t *Table) Apply(pending map[string]string) int {
	updated := 0
	for key, newName := range pending {
		matched := false
		for _, row := range t.rows {
			if row.FullPath == key {
				row.ProposedNewName = newName
				matched = true
				updated++
			}
		}
		if matched {
			continue
		}
		for _, row := range t.rows {
			if row.OriginalName == key {
				row.ProposedNewName = newName
				updated++
			}
		}
	}
	return updated
}

// Export 将内存表写出为新的 xlsx 文件
// 表头保持必需列的固定顺序
func (t *Table) Export(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"

	for i, h := range model.RequiredColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	// 设置表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	f.SetRowStyle(sheetName, 1, 1, headerStyle)

	for i, r := range t.rows {
		row := i + 2
		values := []interface{}{
			r.Type,
			r.OriginalName,
			r.ProposedNewName,
			r.FullPath,
			r.CreatedDate,
			r.Timestamp,
			r.Action,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save excel: %w", err)
	}
	return nil
}
