package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"renamedesk/internal/model"
)

// Table 行式内存表
// 从上传的 xlsx 解析得到，列校验通过后才可使用
type Table struct {
	fileID   string
	fileName string
	header   []string
	colIndex map[string]int
	rows     []*model.Row
}

// Load 从 reader 加载 xlsx 并校验必需列
// 取第一个工作表，首行为表头
func Load(reader io.Reader, fileName string) (*Table, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty sheet")
	}

	// 构建列名到索引的映射
	header := rows[0]
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}

	// 校验必需列，缺失即中止（操作者需修正上传文件）
	var missing []string
	for _, col := range model.RequiredColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	t := &Table{
		fileID:   uuid.New().String(),
		fileName: fileName,
		header:   header,
		colIndex: colIndex,
		rows:     make([]*model.Row, 0, len(rows)-1),
	}

	for i, raw := range rows[1:] {
		t.rows = append(t.rows, &model.Row{
			Type:            t.cell(raw, model.ColType),
			OriginalName:    t.cell(raw, model.ColOriginalName),
			ProposedNewName: t.cell(raw, model.ColProposedNewName),
			FullPath:        t.cell(raw, model.ColFullPath),
			CreatedDate:     t.cell(raw, model.ColCreatedDate),
			Timestamp:       t.cell(raw, model.ColTimestamp),
			Action:          t.cell(raw, model.ColAction),
			SheetRow:        i + 2,
		})
	}

	return t, nil
}

func (t *Table) cell(raw []string, col string) string {
	idx, ok := t.colIndex[col]
	if !ok || idx >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[idx])
}

// FileID 获取表格实例ID
func (t *Table) FileID() string {
	return t.fileID
}

// FileName 获取上传时的文件名
func (t *Table) FileName() string {
	return t.fileName
}

// Rows 获取全部行
func (t *Table) Rows() []*model.Row {
	return t.rows
}

// Len 行数
func (t *Table) Len() int {
	return len(t.rows)
}

// Flagged 计算被标记行子集（顺序与源表一致）
// 提议名按下划线拆分后，任一片段命中占位符即被标记
func (t *Table) Flagged() []*model.Row {
	var flagged []*model.Row
	for _, row := range t.rows {
		if IsFlagged(row.ProposedNewName) {
			flagged = append(flagged, row)
		}
	}
	return flagged
}

// IsFlagged 判断提议名是否仍含未填写的占位符片段
func IsFlagged(proposedName string) bool {
	for _, part := range strings.Split(proposedName, "_") {
		if model.IsPlaceholder(part) {
			return true
		}
	}
	return false
}
