// Package thread は、スレッド内のレスを保持し、引用による参照グラフと
// ギャラリーの索引を管理します。
package thread

import (
	"regexp"
	"strconv"
	"strings"

	"GoImageBoardClient/internal/model"
)

var (
	// <a> の開始タグ。属性は空白で区切られた任意の形式を許容する
	anchorOpenPattern = regexp.MustCompile(`(?i)<a(?:\s[^>]*)?>`)
	anchorClose       = "</a>"
)

// CollectReferences は、HTML の本文から ">>123" 形式の引用リンクを集め、
// 重複を除いて昇順に返します。閉じタグのないリンクや数字以外を含むリンクは読み飛ばします。
func CollectReferences(comment string) []model.PostNumber {
	opens := anchorOpenPattern.FindAllStringIndex(comment, -1)
	if len(opens) == 0 {
		return nil
	}
	seen := make(map[model.PostNumber]struct{})
	var refs []model.PostNumber
	for i, open := range opens {
		end := len(comment)
		if i+1 < len(opens) {
			end = opens[i+1][0]
		}
		inner := comment[open[1]:end]
		closeIndex := indexFold(inner, anchorClose)
		if closeIndex < 0 {
			continue
		}
		n, ok := parseQuote(inner[:closeIndex])
		if !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		refs = append(refs, n)
	}
	model.SortPostNumbers(refs)
	return refs
}

func parseQuote(text string) (model.PostNumber, bool) {
	switch {
	case strings.HasPrefix(text, ">>"):
		text = text[len(">>"):]
	case strings.HasPrefix(text, "&gt;&gt;"):
		text = text[len("&gt;&gt;"):]
	default:
		return model.PostNumber{}, false
	}
	if text == "" {
		return model.PostNumber{}, false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return model.PostNumber{}, false
		}
	}
	major, err := strconv.ParseUint(text, 10, 32)
	if err != nil || major == 0 {
		return model.PostNumber{}, false
	}
	return model.NewPostNumber(uint32(major)), true
}

// indexFold は大文字小文字を区別せずに substr の位置を返します。substr は ASCII 前提です。
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}
