package drive

import (
	"context"
	"strings"
	"sync"
	"time"

	"renamedesk/internal/model"
)

// Resolver 远端路径解析器
// 从固定基础层级逐级下钻到行内路径，配合两级兜底搜索定位目标文件
// 文件夹查询按 (name, parent) 带 TTL 缓存，正负结果都缓存
type Resolver struct {
	lookup      Lookup
	baseFolders []string
	cacheTTL    time.Duration

	mu          sync.Mutex
	folderCache map[string]folderEntry
}

type folderEntry struct {
	id        string
	failed    bool
	expiresAt time.Time
}

// NewResolver 创建解析器
func NewResolver(lookup Lookup, baseFolders []string, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		lookup:      lookup,
		baseFolders: baseFolders,
		cacheTTL:    cacheTTL,
		folderCache: make(map[string]folderEntry),
	}
}

// Resolve 解析一行记录对应的远端文件
// 从不向调用方返回错误：远端调用失败降级为 failed 状态的负结果
func (r *Resolver) Resolve(ctx context.Context, row *model.Row) *model.Resolution {
	anyFailed := false

	// 规范化路径并剥离已含的基础层级前缀（不区分大小写的连续匹配）
	segments := splitPath(row.FullPath)
	segments = stripBasePrefix(segments, r.baseFolders)

	// 逐级下钻基础层级；某级在父级下未命中时退回不限定父级的查找
	parentID := ""
	for _, seg := range r.baseFolders {
		found, failed := r.findFolderCached(ctx, seg, parentID)
		if failed {
			anyFailed = true
		}
		if found == "" {
			found, failed = r.findFolderCached(ctx, seg, "")
			if failed {
				anyFailed = true
			}
		}
		parentID = found
		if parentID == "" {
			break
		}
	}

	if parentID == "" && len(r.baseFolders) > 0 {
		id, failed := r.findFolderCached(ctx, r.baseFolders[0], "")
		if failed {
			anyFailed = true
		}
		parentID = id
	}

	// 继续下钻行内剩余路径段（最后一段为文件名）
	// 某段未命中时停在最后一个成功的父级
	if parentID != "" {
		for _, seg := range allButLast(segments) {
			folderID, failed := r.findFolderCached(ctx, seg, parentID)
			if failed {
				anyFailed = true
			}
			if folderID == "" {
				break
			}
			parentID = folderID
		}
	}

	filenameGuess := row.OriginalName
	if len(segments) > 0 {
		filenameGuess = segments[len(segments)-1]
	}

	// 定位目标文件：先在已解析父级内找，再做两级全库兜底
	var meta *FileMeta
	via := model.ViaPath
	downloadHint := filenameGuess

	if parentID != "" {
		m, err := r.lookup.FindFile(ctx, filenameGuess, parentID)
		if err != nil {
			anyFailed = true
		}
		meta = m
	}

	if meta == nil {
		m, err := r.lookup.SearchFile(ctx, filenameGuess)
		if err != nil {
			anyFailed = true
		}
		if m != nil {
			meta = m
			via = model.ViaGlobalSearch
		}
	}

	if meta == nil {
		m, err := r.lookup.SearchFile(ctx, row.OriginalName)
		if err != nil {
			anyFailed = true
		}
		if m != nil {
			meta = m
			via = model.ViaOriginalName
			downloadHint = row.OriginalName
		}
	}

	if meta == nil {
		status := model.ResolutionNotFound
		if anyFailed {
			status = model.ResolutionFailed
		}
		return &model.Resolution{Status: status}
	}

	localPath, fullMeta, err := r.lookup.Download(ctx, meta.ID, downloadHint)
	if err != nil {
		return &model.Resolution{
			Status: model.ResolutionFailed,
			Via:    via,
			FileID: meta.ID,
			Name:   meta.Name,
		}
	}

	return &model.Resolution{
		Status:    model.ResolutionFound,
		Via:       via,
		FileID:    meta.ID,
		Name:      fullMeta.Name,
		MimeType:  fullMeta.MimeType,
		ViewLink:  fullMeta.ViewLink,
		LocalPath: localPath,
	}
}

// findFolderCached 带缓存的文件夹查找
// 返回 (folderID, 本次或缓存时是否为调用失败)；未命中时 folderID 为空
func (r *Resolver) findFolderCached(ctx context.Context, name, parentID string) (string, bool) {
	key := name + "\x00" + parentID
	now := time.Now()

	r.mu.Lock()
	r.purgeExpiredLocked(now)
	if e, ok := r.folderCache[key]; ok {
		r.mu.Unlock()
		return e.id, e.failed
	}
	r.mu.Unlock()

	id, err := r.lookup.FindFolder(ctx, name, parentID)
	entry := folderEntry{
		id:        id,
		failed:    err != nil,
		expiresAt: now.Add(r.cacheTTL),
	}

	r.mu.Lock()
	r.folderCache[key] = entry
	r.mu.Unlock()

	return entry.id, entry.failed
}

func (r *Resolver) purgeExpiredLocked(now time.Time) {
	for k, v := range r.folderCache {
		if now.After(v.expiresAt) {
			delete(r.folderCache, k)
		}
	}
}

// splitPath 规范化路径为有序段：反斜杠统一为斜杠，去掉空段
func splitPath(raw string) []string {
	normalized := strings.ReplaceAll(raw, "\\", "/")
	var segments []string
	for _, seg := range strings.Split(strings.Trim(normalized, "/"), "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// stripBasePrefix 若路径中已含基础层级（连续、不区分大小写），截掉该前缀
func stripBasePrefix(segments, base []string) []string {
	if len(base) == 0 || len(segments) < len(base) {
		return segments
	}
	for i := 0; i+len(base) <= len(segments); i++ {
		match := true
		for j := range base {
			if !strings.EqualFold(segments[i+j], base[j]) {
				match = false
				break
			}
		}
		if match {
			return segments[i+len(base):]
		}
	}
	return segments
}

func allButLast(segments []string) []string {
	if len(segments) == 0 {
		return nil
	}
	return segments[:len(segments)-1]
}
