// Package markup は、レス本文の HTML をプレーンテキストに変換します。
package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Stripper は goquery を使ってマークアップを取り除きます。
type Stripper struct{}

// StripMarkup は、<br> を改行に置き換えたうえでテキストだけを取り出します。
// 文字参照は展開され、各行の前後の空白は取り除かれます。
// 解析できない場合は raw をそのまま返します。
func (Stripper) StripMarkup(raw string) string {
	if raw == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Find("body").Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
