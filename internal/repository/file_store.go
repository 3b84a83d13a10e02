package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "academic-period/backend/pkg/errors"
)

// ── 文件存储公共错误 ──

var (
	ErrNotFound       = errors.New("记录不存在")
	ErrInvalidClassID = errors.New("班级ID非法")
)

const (
	stateFileName    = "state.json"
	snapshotFileName = "snapshot.json"
	metadataFileName = "metadata.json"
)

// fileStore 本地文件读写基础设施
// 写入采用 临时文件 + rename，保证读者不会看到半截文件
type fileStore struct {
	root  string
	locks sync.Map // path -> *sync.Mutex
}

func newFileStore(root string) *fileStore {
	return &fileStore{root: root}
}

// lock 获取路径级互斥锁
func (s *fileStore) lock(path string) func() {
	v, _ := s.locks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// periodDir 返回 <root>/<classID>/<key>
func (s *fileStore) periodDir(classID, key string) (string, error) {
	if err := validateClassID(classID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, classID, key), nil
}

func validateClassID(classID string) error {
	if classID == "" || classID == "." || classID == ".." ||
		strings.ContainsAny(classID, `/\`) || strings.Contains(classID, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidClassID, classID)
	}
	return nil
}

// readJSON 读取并解析 JSON 文件
// 文件不存在返回 ErrNotFound；内容无法解析返回 ErrStorageCorrupted
func (s *fileStore) readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("读取文件 %s 失败: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", pkgerrors.ErrStorageCorrupted, path, err)
	}
	return nil
}

// writeJSON 原子写入 JSON 文件
func (s *fileStore) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化失败: %w", err)
	}
	return s.writeBytes(path, data)
}

func (s *fileStore) writeBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // rename 成功后为 no-op

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("刷盘失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("替换文件 %s 失败: %w", path, err)
	}
	return nil
}
