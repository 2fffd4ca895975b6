package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// FileMeta 远端文件元信息
type FileMeta struct {
	ID       string
	Name     string
	MimeType string
	ViewLink string
}

// Lookup 远端文件库只读查询接口
// Resolver 只依赖该接口，便于测试时替换
type Lookup interface {
	// FindFolder 按名称查文件夹，parentID 为空表示不限定父级；未命中返回空ID
	FindFolder(ctx context.Context, name, parentID string) (string, error)
	// FindFile 在指定文件夹内按名称查文件；未命中返回 nil
	FindFile(ctx context.Context, name, parentID string) (*FileMeta, error)
	// SearchFile 全库按名称查文件；未命中返回 nil
	SearchFile(ctx context.Context, name string) (*FileMeta, error)
	// Download 下载文件到本地暂存目录，返回本地路径与完整元信息
	Download(ctx context.Context, fileID, nameHint string) (string, *FileMeta, error)
}

// Client Google Drive 客户端（服务账号，只读）
type Client struct {
	svc        *driveapi.Service
	scratchDir string
}

// NewClient 用服务账号凭证创建 Drive 客户端
func NewClient(ctx context.Context, credentialsFile, scratchDir string) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, driveapi.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account credentials: %w", err)
	}

	svc, err := driveapi.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to build drive service: %w", err)
	}

	return &Client{svc: svc, scratchDir: scratchDir}, nil
}

// escapeQuery 转义查询串中的单引号
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

// FindFolder 按名称查文件夹
func (c *Client) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	qParts := []string{
		fmt.Sprintf("name = '%s'", escapeQuery(name)),
		fmt.Sprintf("mimeType = '%s'", folderMimeType),
		"trashed = false",
	}
	if parentID != "" {
		qParts = append(qParts, fmt.Sprintf("'%s' in parents", parentID))
	}

	resp, err := c.svc.Files.List().
		Q(strings.Join(qParts, " and ")).
		Fields("files(id, name)").
		PageSize(5).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("folder lookup %q failed: %w", name, err)
	}
	if len(resp.Files) == 0 {
		return "", nil
	}
	return resp.Files[0].Id, nil
}

// FindFile 在指定文件夹内按名称查文件
func (c *Client) FindFile(ctx context.Context, name, parentID string) (*FileMeta, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), parentID)

	resp, err := c.svc.Files.List().
		Q(q).
		Fields("files(id, name, mimeType, webViewLink)").
		PageSize(10).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("file lookup %q failed: %w", name, err)
	}
	if len(resp.Files) == 0 {
		return nil, nil
	}
	return fromAPIFile(resp.Files[0]), nil
}

// SearchFile 全库按名称查文件（不限定父级）
func (c *Client) SearchFile(ctx context.Context, name string) (*FileMeta, error) {
	q := fmt.Sprintf("name = '%s' and trashed = false", escapeQuery(name))

	resp, err := c.svc.Files.List().
		Q(q).
		Fields("files(id, name, mimeType, webViewLink)").
		PageSize(5).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("global search %q failed: %w", name, err)
	}
	if len(resp.Files) == 0 {
		return nil, nil
	}
	return fromAPIFile(resp.Files[0]), nil
}

// Download 下载文件内容到暂存目录
// 暂存文件沿用远端文件名的扩展名，便于按类型预览
func (c *Client) Download(ctx context.Context, fileID, nameHint string) (string, *FileMeta, error) {
	apiMeta, err := c.svc.Files.Get(fileID).
		Fields("mimeType, name, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", nil, fmt.Errorf("metadata fetch failed: %w", err)
	}

	meta := &FileMeta{
		ID:       fileID,
		Name:     apiMeta.Name,
		MimeType: apiMeta.MimeType,
		ViewLink: apiMeta.WebViewLink,
	}

	name := apiMeta.Name
	if name == "" {
		name = nameHint
	}
	suffix := filepath.Ext(name)

	tmp, err := os.CreateTemp(c.scratchDir, "preview-*"+suffix)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer tmp.Close()

	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("content download failed: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to write scratch file: %w", err)
	}

	return tmp.Name(), meta, nil
}

func fromAPIFile(f *driveapi.File) *FileMeta {
	return &FileMeta{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		ViewLink: f.WebViewLink,
	}
}
