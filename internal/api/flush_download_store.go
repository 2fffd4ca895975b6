package api

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

type flushDownload struct {
	filePath  string
	expiresAt time.Time
}

// flushDownloadStore 落盘导出文件的下载令牌表
type flushDownloadStore struct {
	mu    sync.Mutex
	items map[string]flushDownload
}

func newFlushDownloadStore() *flushDownloadStore {
	return &flushDownloadStore{
		items: make(map[string]flushDownload),
	}
}

func (s *flushDownloadStore) put(filePath string, ttl time.Duration) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	token = newRandomToken(24)
	s.items[token] = flushDownload{
		filePath:  filePath,
		expiresAt: time.Now().Add(ttl),
	}
	return token
}

func (s *flushDownloadStore) get(token string) (flushDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	v, ok := s.items[token]
	if !ok {
		return flushDownload{}, false
	}
	if time.Now().After(v.expiresAt) {
		delete(s.items, token)
		return flushDownload{}, false
	}
	return v, true
}

func (s *flushDownloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
