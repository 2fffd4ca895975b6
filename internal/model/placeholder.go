package model

import "strings"

// PlaceholderFields 候选名的 7 个字段占位符（顺序固定，即拼接顺序）
var PlaceholderFields = []string{
	"Brand", "Campaign", "Channel", "Asset", "Format", "Version", "Date",
}

// FieldCount 候选名固定字段数
const FieldCount = 7

// IsPlaceholder 判断一个片段是否命中任意占位符（不区分大小写）
func IsPlaceholder(segment string) bool {
	for _, ph := range PlaceholderFields {
		if strings.EqualFold(strings.TrimSpace(segment), ph) {
			return true
		}
	}
	return false
}

// FieldState 单个字段的编辑状态
// 片段与自身占位符同名（不区分大小写）时才可编辑，其余视为已填写
type FieldState struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Editable bool   `json:"editable"`
}

// SplitName 按下划线拆分候选名并补齐到 7 段
func SplitName(name string) []string {
	parts := strings.Split(name, "_")
	for len(parts) < FieldCount {
		parts = append(parts, "")
	}
	return parts
}

// FieldStates 计算候选名 7 个字段的编辑状态
func FieldStates(name string) []FieldState {
	parts := SplitName(name)
	states := make([]FieldState, 0, FieldCount)
	for i, field := range PlaceholderFields {
		states = append(states, FieldState{
			Name:     field,
			Value:    parts[i],
			Editable: strings.EqualFold(strings.TrimSpace(parts[i]), field),
		})
	}
	return states
}

// ComposeName 以提交值覆盖可编辑字段后拼接候选名
// 不可编辑位置忽略提交值，保持原片段
func ComposeName(current string, edits []string) string {
	states := FieldStates(current)
	parts := make([]string, 0, FieldCount)
	for i, st := range states {
		if st.Editable && i < len(edits) {
			parts = append(parts, edits[i])
		} else {
			parts = append(parts, st.Value)
		}
	}
	return strings.Join(parts, "_")
}
