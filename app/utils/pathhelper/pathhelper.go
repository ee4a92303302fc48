package pathhelper

import (
	"path/filepath"
	"regexp"
	"strings"
)

// 文件名中不允许出现的字符：\/:*?"<>|
var disallowedPattern = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFileName 替换文件名中的非法字符
func SanitizeFileName(name string) string {
	return disallowedPattern.ReplaceAllLiteralString(strings.TrimSpace(name), "$")
}

// MatchesExt 检查文件扩展名是否在列表中，列表项可以不带 . 前缀
func MatchesExt(filePath string, exts []string) bool {
	if len(exts) == 0 {
		// 空规则，允许所有文件
		return true
	}

	fileExt := strings.ToLower(filepath.Ext(filePath))
	for _, rule := range exts {
		rule = strings.ToLower(strings.TrimSpace(rule))
		if rule != "" && !strings.HasPrefix(rule, ".") {
			rule = "." + rule
		}
		if rule == fileExt {
			return true
		}
	}
	return false
}
