package model

// ResolutionStatus 远端文件解析结果状态
type ResolutionStatus string

const (
	// ResolutionFound 已定位并下载到本地暂存
	ResolutionFound ResolutionStatus = "found"
	// ResolutionNotFound 各级查找与兜底搜索均未命中
	ResolutionNotFound ResolutionStatus = "not_found"
	// ResolutionFailed 远端调用出错（对操作者同样呈现为未找到）
	ResolutionFailed ResolutionStatus = "failed"
)

// ResolutionVia 命中方式
type ResolutionVia string

const (
	ViaPath         ResolutionVia = "path"          // 按路径逐级下钻命中
	ViaGlobalSearch ResolutionVia = "global"        // 全库按派生文件名搜索命中
	ViaOriginalName ResolutionVia = "original_name" // 全库按原始文件名搜索命中
)

// Resolution 一行记录的远端文件解析结果
// 正负结果都会按会话生命周期缓存，解析器对同一行至多执行一次
type Resolution struct {
	Status   ResolutionStatus `json:"status"`
	Via      ResolutionVia    `json:"via,omitempty"`
	FileID   string           `json:"fileId,omitempty"`
	Name     string           `json:"name,omitempty"`
	MimeType string           `json:"mimeType,omitempty"`
	ViewLink string           `json:"viewLink,omitempty"`

	// LocalPath 下载到本地暂存目录的路径，会话期间不清理
	LocalPath string `json:"localPath,omitempty"`
}

// Found 是否为正结果
func (r *Resolution) Found() bool {
	return r != nil && r.Status == ResolutionFound
}
