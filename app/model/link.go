package model

// Protocol 链接传输类型
type Protocol string

const (
	ProtocolHTTP    Protocol = "http"
	ProtocolFTP     Protocol = "ftp"
	ProtocolEd2k    Protocol = "ed2k"
	ProtocolMagnet  Protocol = "magnet"
	ProtocolTorrent Protocol = "torrent"
	ProtocolPan     Protocol = "pan"
	ProtocolUnknown Protocol = "unknown"
)

// Title 返回协议的中文名称
func (p Protocol) Title() string {
	switch p {
	case ProtocolHTTP:
		return "HTTP/HTTPS"
	case ProtocolFTP:
		return "FTP"
	case ProtocolEd2k:
		return "ed2k"
	case ProtocolMagnet:
		return "磁力链接"
	case ProtocolTorrent:
		return "种子"
	case ProtocolPan:
		return "网盘"
	default:
		return "未知"
	}
}

// RawCandidate 收集器发现的原始链接
type RawCandidate struct {
	URL    string `json:"url"`
	Remark string `json:"remark,omitempty"`
}

// ClassifiedLink 解码并分类后的链接
type ClassifiedLink struct {
	Protocol Protocol `json:"protocol"`
	URL      string   `json:"url"` // 解码后的地址
	Raw      string   `json:"raw"` // 原始地址
}

// PathShape 模板分组键，同组成员路径长度一致
type PathShape struct {
	Head   string // scheme://host
	Length int
}
