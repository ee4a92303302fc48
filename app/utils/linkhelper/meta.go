package linkhelper

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

// FileMeta 从链接中可直接获得的文件信息
type FileMeta struct {
	Name string
	Ext  string
	Size int64 // -1 表示未知
}

// ParseEd2k 解析 ed2k://|file|<文件名>|<字节数>|<hash>|/
func ParseEd2k(link string) (FileMeta, error) {
	parts := strings.Split(link, "|")
	if len(parts) < 4 || parts[1] != "file" {
		return FileMeta{}, fmt.Errorf("无效的 ed2k 链接: %s", link)
	}
	size, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return FileMeta{}, fmt.Errorf("ed2k 文件大小无效: %w", err)
	}
	return FileMeta{Name: parts[2], Ext: strings.ToLower(path.Ext(parts[2])), Size: size}, nil
}

// ParseMagnet 解析磁力链接的显示名称与 xl 长度
func ParseMagnet(link string) (FileMeta, error) {
	m, err := metainfo.ParseMagnetUri(link)
	if err != nil {
		return FileMeta{}, fmt.Errorf("无效的磁力链接: %w", err)
	}
	meta := FileMeta{Name: m.DisplayName, Size: -1}
	if meta.Name != "" {
		meta.Ext = strings.ToLower(path.Ext(meta.Name))
	}
	if xl := m.Params.Get("xl"); xl != "" {
		if size, err := strconv.ParseInt(xl, 10, 64); err == nil {
			meta.Size = size
		}
	}
	return meta, nil
}

// BaseName 返回 URL 路径中的文件名与扩展名（不含查询参数）
func BaseName(link string) FileMeta {
	_, p := SplitHead(link)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	name := path.Base(p)
	if name == "/" || name == "." {
		name = ""
	}
	return FileMeta{Name: name, Ext: strings.ToLower(path.Ext(name)), Size: -1}
}

// SplitHead 把链接拆成 scheme://host 与其后的路径部分
func SplitHead(link string) (head, rest string) {
	i := strings.Index(link, "://")
	if i < 0 {
		return "", link
	}
	j := strings.IndexByte(link[i+3:], '/')
	if j < 0 {
		return link, ""
	}
	return link[:i+3+j], link[i+3+j:]
}

// IsJunk 判断链接是否来自垃圾站点
func IsJunk(link string, junkSites []string) bool {
	for _, site := range junkSites {
		if site != "" && strings.Contains(link, site) {
			return true
		}
	}
	return false
}
