package model

// 必需列名（与上传表格表头一致）
const (
	ColType            = "Type"
	ColOriginalName    = "Original Name"
	ColProposedNewName = "Proposed New Name"
	ColFullPath        = "Full Path"
	ColCreatedDate     = "Created Date"
	ColTimestamp       = "Timestamp"
	ColAction          = "Action"
)

// RequiredColumns 上传表格必须包含的列（顺序即导出顺序）
var RequiredColumns = []string{
	ColType,
	ColOriginalName,
	ColProposedNewName,
	ColFullPath,
	ColCreatedDate,
	ColTimestamp,
	ColAction,
}

// Row 表格中的一条改名记录
// 除 ProposedNewName（仅在落盘时被待定变更覆盖）外均视为只读
type Row struct {
	Type            string `json:"type"`
	OriginalName    string `json:"originalName"`
	ProposedNewName string `json:"proposedNewName"`
	FullPath        string `json:"fullPath"`
	CreatedDate     string `json:"createdDate"`
	Timestamp       string `json:"timestamp"`
	Action          string `json:"action"`

	// SheetRow 在源表格中的行号（从 2 开始，1 为表头）
	SheetRow int `json:"sheetRow"`
}

// Key 行身份键：优先 FullPath，为空时退回 OriginalName
func (r *Row) Key() string {
	if r.FullPath != "" {
		return r.FullPath
	}
	return r.OriginalName
}
