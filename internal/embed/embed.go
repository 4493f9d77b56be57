// Package embed は、本文中の動画・音声サイトへのリンクを埋め込み添付ファイルとして認識します。
package embed

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"GoImageBoardClient/internal/attachment"
	"GoImageBoardClient/internal/model"
)

// 埋め込み可能なサイトの種類
const (
	YouTube    = "youtube"
	SoundCloud = "soundcloud"
	Vimeo      = "vimeo"
)

var (
	urlRegexp   = regexp.MustCompile(`^https?:\/\/[-a-zA-Z0-9@:%_\+\.~#\?&\/=]+$`)
	youTubeID   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	tokenBreaks = func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '<', '>', '"', '\'':
			return true
		}
		return false
	}
)

// Matcher は1つのサイトに対応する attachment.EmbedMatcher です。
// patterns に捕獲グループがある場合は最初のグループを、ない場合は URL 全体をコードとします。
type Matcher struct {
	name     string
	content  model.ContentType
	patterns []*regexp.Regexp
	resolve  func(code string) model.Embedded
}

// NewYouTube は YouTube の動画リンクを認識する Matcher を返します。
func NewYouTube() *Matcher {
	return &Matcher{
		name:    YouTube,
		content: model.ContentTypeVideo,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`https?:\/\/(?:[^\.]+\.)?youtube\.com\/watch\/?\?(?:.+&)?v=([^&#]+)`),
			regexp.MustCompile(`https?:\/\/(?:[^\.]+\.)?(?:youtu\.be|youtube\.com\/embed)\/([a-zA-Z0-9_-]+)`),
		},
		resolve: func(code string) model.Embedded {
			return model.Embedded{
				FileURI:      "https://www.youtube.com/watch?v=" + code,
				ThumbnailURI: "https://img.youtube.com/vi/" + code + "/0.jpg",
				ForcedName:   "youtube_" + code,
			}
		},
	}
}

// NewSoundCloud は SoundCloud のリンクを認識する Matcher を返します。
func NewSoundCloud() *Matcher {
	return &Matcher{
		name:     SoundCloud,
		content:  model.ContentTypeAudio,
		patterns: []*regexp.Regexp{regexp.MustCompile(`https?:\/\/soundcloud\.com\/.+`)},
		resolve: func(code string) model.Embedded {
			name := code
			if u, err := url.Parse(code); err == nil {
				name = strings.ReplaceAll(strings.Trim(u.Path, "/"), "/", "_")
			}
			return model.Embedded{FileURI: code, ForcedName: "soundcloud_" + name}
		},
	}
}

// NewVimeo は Vimeo の動画リンクを認識する Matcher を返します。
func NewVimeo() *Matcher {
	return &Matcher{
		name:     Vimeo,
		content:  model.ContentTypeVideo,
		patterns: []*regexp.Regexp{regexp.MustCompile(`https?:\/\/(?:www\.)?vimeo\.com\/(\d+)`)},
		resolve: func(code string) model.Embedded {
			return model.Embedded{FileURI: "https://vimeo.com/" + code, ForcedName: "vimeo_" + code}
		},
	}
}

// Name はサイトの種類を返します。
func (m *Matcher) Name() string { return m.name }

// FindEmbedCodes は本文中の URL を出現順に調べ、重複を除いたコードを返します。
func (m *Matcher) FindEmbedCodes(_ attachment.Locator, comment string) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, bit := range strings.FieldsFunc(comment, tokenBreaks) {
		bit = html.UnescapeString(bit)
		if !urlRegexp.MatchString(bit) {
			continue
		}
		code, ok := m.match(bit)
		if !ok {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

func (m *Matcher) match(s string) (string, bool) {
	for _, p := range m.patterns {
		sub := p.FindStringSubmatch(s)
		if sub == nil {
			continue
		}
		if len(sub) > 1 {
			return sub[1], true
		}
		return sub[0], true
	}
	return "", false
}

// ResolveEmbed は code を埋め込み添付ファイルに変換します。
func (m *Matcher) ResolveEmbed(_ attachment.Locator, code string) (model.Embedded, error) {
	if code == "" || (m.name == YouTube && !youTubeID.MatchString(code)) {
		return model.Embedded{}, fmt.Errorf("埋め込みコードが不正です (site=%s, code=%s)", m.name, code)
	}
	e := m.resolve(code)
	e.EmbeddedType = m.name
	e.ContentType = m.content
	return model.NewEmbedded(e)
}

// ByNames は names に対応する Matcher を、names の順序で返します。
// 空の場合は全ての Matcher を返します。
func ByNames(names []string) ([]attachment.EmbedMatcher, error) {
	if len(names) == 0 {
		names = []string{YouTube, SoundCloud, Vimeo}
	}
	matchers := make([]attachment.EmbedMatcher, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(name) {
		case YouTube:
			matchers = append(matchers, NewYouTube())
		case SoundCloud:
			matchers = append(matchers, NewSoundCloud())
		case Vimeo:
			matchers = append(matchers, NewVimeo())
		default:
			return nil, fmt.Errorf("サポートされていない埋め込みサイトです: %s", name)
		}
	}
	return matchers, nil
}
