package linkhelper

import (
	"bytes"
	"encoding/base64"
	"net/url"
	"strings"
	"unicode/utf8"

	"film-resolver/app/model"

	"golang.org/x/text/encoding/simplifiedchinese"
)

const thunderPrefix = "thunder://"

// DefaultPanHosts 默认识别为网盘的主机
var DefaultPanHosts = []string{"pan.baidu.com"}

// Classifier 链接分类器
type Classifier struct {
	PanHosts []string
}

// Classify 使用默认网盘主机列表分类
func Classify(raw string) model.ClassifiedLink {
	return Classifier{PanHosts: DefaultPanHosts}.Classify(raw)
}

// Classify 解码并判断链接的传输类型。
//
// 迅雷链接先做 base64 解码（UTF-8 失败时按 GBK 解码）并去掉 AA/ZZ 包裹；
// 解码失败时返回 unknown 并保留原始字符串，不会报错。
func (c Classifier) Classify(raw string) model.ClassifiedLink {
	link := model.ClassifiedLink{Protocol: model.ProtocolUnknown, URL: raw, Raw: raw}

	u := strings.TrimSpace(raw)
	if hasPrefixFold(u, thunderPrefix) {
		decoded, ok := decodeThunder(u[len(thunderPrefix):])
		if !ok {
			return link
		}
		u = decoded
	}

	u = strings.TrimRight(u, "/")
	if unescaped, err := url.PathUnescape(u); err == nil {
		u = unescaped
	}
	link.URL = u

	for _, host := range c.PanHosts {
		if host != "" && strings.Contains(u, host) {
			link.Protocol = model.ProtocolPan
			return link
		}
	}
	if strings.HasSuffix(strings.ToLower(u), ".torrent") {
		link.Protocol = model.ProtocolTorrent
		return link
	}
	for _, p := range []model.Protocol{model.ProtocolFTP, model.ProtocolHTTP, model.ProtocolEd2k, model.ProtocolMagnet} {
		if hasPrefixFold(u, string(p)) {
			link.Protocol = p
			return link
		}
	}
	return link
}

// decodeThunder 解码迅雷链接的 base64 负载
func decodeThunder(payload string) (string, bool) {
	payload = strings.TrimRight(strings.TrimSpace(payload), "/")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// 部分站点省略了填充
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", false
		}
	}

	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		// GBK 解码器把非法字节替换为 U+FFFD 而不是报错
		gbk, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(gbk, utf8.RuneError) {
			return "", false
		}
		text = string(gbk)
	}

	text = strings.TrimPrefix(text, "AA")
	text = strings.TrimSuffix(text, "ZZ")
	return text, true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
