// Package similarity は、本文の単語構成(シグネチャ)を求め、
// 2つの本文が同じ投稿とみなせるほど似ているかを判定します。
package similarity

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold は Jaccard 係数の既定のしきい値です。
const DefaultThreshold = 0.5

// Signature は、単語ごとの出現回数です。空のテキストでは空になります。
type Signature map[string]int

// Words は単語の総数(重複を含む)を返します。
func (s Signature) Words() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Equal は、s と o が同じ単語を同じ回数だけ含むかを返します。
func (s Signature) Equal(o Signature) bool {
	if len(s) != len(o) {
		return false
	}
	for w, c := range s {
		if o[w] != c {
			return false
		}
	}
	return true
}

// Key は、単語構成が等しいシグネチャ同士で一致する文字列を返します。
func (s Signature) Key() string {
	words := make([]string, 0, len(s))
	for w := range s {
		words = append(words, w)
	}
	sort.Strings(words)
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(w)
		sb.WriteByte(0)
		sb.WriteString(strconv.Itoa(s[w]))
		sb.WriteByte(0)
	}
	return sb.String()
}

// Engine は、シグネチャの計算と類似判定を行います。
type Engine interface {
	WordSignature(text string) Signature
	AreSimilar(a, b Signature) bool
}

// Jaccard は、単語集合の Jaccard 係数がしきい値以上のときに類似と判定する Engine です。
type Jaccard struct {
	Threshold float64
}

// NewJaccard は threshold を使う Jaccard を返します。0 以下の場合は DefaultThreshold を使います。
func NewJaccard(threshold float64) *Jaccard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Jaccard{Threshold: threshold}
}

// WordSignature は、NFKC 正規化と大文字小文字の畳み込みを行ったうえで単語に分割します。
// 漢字・ひらがな・カタカナは1文字を1単語として扱います。
func (j *Jaccard) WordSignature(text string) Signature {
	text = cases.Fold().String(norm.NFKC.String(text))
	sig := make(Signature)
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			sig[word.String()]++
			word.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana):
			flush()
			sig[string(r)]++
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	if len(sig) == 0 {
		return nil
	}
	return sig
}

// AreSimilar は、両方が空の場合も類似とみなします。
func (j *Jaccard) AreSimilar(a, b Signature) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	threshold := j.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return float64(intersection)/float64(union) >= threshold
}
