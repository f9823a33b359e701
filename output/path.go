// Package output 负责 Mask 的落盘: 不冲突的路径分配、批量写出与叠加图
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxSuffix 后缀搜索上限, 超过后返回 ErrPathExhausted
const MaxSuffix = 10000

// ErrPathExhausted 所有候选后缀都已被占用
var ErrPathExhausted = errors.New("没有可用的输出文件名")

// UniquePath 返回当前不存在的路径
//
// 优先返回 path 本身, 否则依次尝试 name_1.ext, name_2.ext ...
// 检查与写入之间不加锁, 并发写入者仍可能冲突
func UniquePath(path string) (string, error) {
	free, err := notExist(path)
	if err != nil {
		return "", err
	}
	if free {
		return path, nil
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i <= MaxSuffix; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		free, err := notExist(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPathExhausted, path)
}

func notExist(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	return false, fmt.Errorf("检查路径失败: %w", err)
}
