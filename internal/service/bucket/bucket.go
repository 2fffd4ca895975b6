package bucket

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	storage "github.com/supabase-community/storage-go"
)

// xlsx 导出文件的固定内容类型
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Publisher 对象存储桶发布器（Supabase Storage）
// 覆盖语义：先删除同名对象（失败忽略，对象可能不存在），再上传
type Publisher struct {
	client *storage.Client
	bucket string
}

// NewPublisher 创建发布器
// url 为 storage API 地址（{project_url}/storage/v1），key 为 service role key
func NewPublisher(url, key, bucket string) (*Publisher, error) {
	if url == "" || key == "" {
		return nil, errors.New("bucket url and key are required")
	}
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	return &Publisher{
		client: storage.NewClient(url, key, nil),
		bucket: bucket,
	}, nil
}

// Publish 将本地文件上传到存储桶，覆盖同名对象
func (p *Publisher) Publish(filePath string) error {
	fileName := filepath.Base(filePath)

	// 先尝试删除旧对象；对象不存在属正常情况
	if _, err := p.client.RemoveFile(p.bucket, []string{fileName}); err != nil {
		log.Printf("remove existing object %s: %v", fileName, err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	contentType := xlsxContentType
	upsert := true
	_, err = p.client.UploadFile(p.bucket, fileName, f, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload to bucket failed: %w", err)
	}
	return nil
}
