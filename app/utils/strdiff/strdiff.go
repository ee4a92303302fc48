// Package strdiff 把一组等长字符串拆分为交替出现的公共段与差异段。
package strdiff

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput 输入不满足比较前提：少于两个字符串、存在空串或长度不一致
var ErrInvalidInput = errors.New("strdiff: 无效输入")

// Result 比较结果。
//
// 对第 i 个字符串依次拼接 Commons[0], Variables[i][0], Commons[1], Variables[i][1], ... 可还原原串，
// 并且恒有 len(Variables[i]) == len(Commons)-1。
type Result struct {
	Commons   []string
	Variables [][]string
}

// Diff 对等长字符串做单遍扫描，逐位比较是否与第一个字符串一致。
//
// 例如 ["abc02lkj", "abd04kjj"] 得到公共段 ["ab", "0", "j"]，
// 差异段 [["c", "2lk"], ["d", "4kj"]]。
func Diff(strs []string) (Result, error) {
	if len(strs) < 2 {
		return Result{}, fmt.Errorf("%w: 至少需要两个字符串，实际 %d 个", ErrInvalidInput, len(strs))
	}
	first := strs[0]
	for i, s := range strs {
		if s == "" {
			return Result{}, fmt.Errorf("%w: 第 %d 个字符串为空", ErrInvalidInput, i)
		}
		if len(s) != len(first) {
			return Result{}, fmt.Errorf("%w: 第 %d 个字符串长度 %d 与 %d 不一致", ErrInvalidInput, i, len(s), len(first))
		}
	}

	res := Result{
		Commons:   []string{""},
		Variables: make([][]string, len(strs)),
	}
	common := true

	for pos := 0; pos < len(first); pos++ {
		if agreeAt(strs, pos) {
			if !common {
				res.Commons = append(res.Commons, "")
				common = true
			}
			res.Commons[len(res.Commons)-1] += first[pos : pos+1]
			continue
		}
		if common {
			for j := range res.Variables {
				res.Variables[j] = append(res.Variables[j], "")
			}
			common = false
		}
		for j, s := range strs {
			last := len(res.Variables[j]) - 1
			res.Variables[j][last] += s[pos : pos+1]
		}
	}
	// 以差异段结尾时补一个空公共段，保持段数关系
	if !common {
		res.Commons = append(res.Commons, "")
	}
	for j := range res.Variables {
		if res.Variables[j] == nil {
			res.Variables[j] = []string{}
		}
	}
	return res, nil
}

func agreeAt(strs []string, pos int) bool {
	c := strs[0][pos]
	for _, s := range strs[1:] {
		if s[pos] != c {
			return false
		}
	}
	return true
}

// Join 还原第 i 个字符串
func (r Result) Join(i int) string {
	var b strings.Builder
	for k, c := range r.Commons {
		b.WriteString(c)
		if k < len(r.Variables[i]) {
			b.WriteString(r.Variables[i][k])
		}
	}
	return b.String()
}

// Fields 差异段数量
func (r Result) Fields() int {
	return len(r.Commons) - 1
}
