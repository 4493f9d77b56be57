package adapter

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"GoImageBoardClient/internal/attachment"
	"GoImageBoardClient/internal/config"
	"GoImageBoardClient/internal/model"
	"GoImageBoardClient/internal/network"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-playground/log"
)

var (
	// ふたばちゃんねるの正規メディアファイル名を検出 (13桁以上の数字 + 任意の 's' + 拡張子)
	futabaMediaPattern = regexp.MustCompile(`(\d{13,})(s?)\.(jpg|jpeg|png|webp|gif|webm|mp4|mp3|wav)$`)
	// 日付の書式: 24/01/01(月)09:00:00
	futabaDatePattern   = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{2})\([^)]*\)(\d{2}):(\d{2}):(\d{2})`)
	futabaNumberPattern = regexp.MustCompile(`No\.(\d+)`)
	futabaIDPattern     = regexp.MustCompile(`(?:ID|IP):(\S+)`)
	futabaSizePattern   = regexp.MustCompile(`-\((\d+) ?B\)`)

	jst = time.FixedZone("JST", 9*60*60)
)

// FutabaAdapter は、ふたば☆ちゃんねる固有の解析ロジックを実装します。
type FutabaAdapter struct{}

// NewFutabaAdapter は、FutabaAdapterの新しいインスタンスを返します。
func NewFutabaAdapter() SiteAdapter {
	return &FutabaAdapter{}
}

// Prepare は、ふたばちゃんねる用の準備として 'cxyl' Cookie を設定します。
func (a *FutabaAdapter) Prepare(client *network.Client, board config.Board) error {
	settings := board.FutabaCatalogSettings
	if settings == nil {
		log.Debugf("[%s] futaba_catalog_settings が設定されていないため、デフォルト値(9x100x20)を使用します", board.BoardName)
		settings = &config.FutabaCatalogSettings{}
	}

	cols := settings.Cols
	if cols <= 0 {
		cols = 9
	}
	rows := settings.Rows
	if rows <= 0 {
		rows = 100
	}
	titleLength := settings.TitleLength
	if titleLength <= 0 {
		titleLength = 20
	}

	cookie := &http.Cookie{
		Name:  "cxyl",
		Value: fmt.Sprintf("%dx%dx%dx0x0", cols, rows, titleLength),
		Path:  "/",
	}
	return client.SetCookie(board.BoardURL, cookie)
}

// BuildThreadURL は、ふたばのスレッドURL (res/<番号>.htm) を構築します。
func (a *FutabaAdapter) BuildThreadURL(boardURL, thread string) (string, error) {
	number, err := model.ParseThreadNumber(thread)
	if err != nil {
		return "", err
	}
	return joinBoardPath(boardURL, "res", number+".htm")
}

// Locator は板のURLを基準とする Locator を返します。
func (a *FutabaAdapter) Locator(boardURL string) (attachment.Locator, error) {
	return NewBoardLocator(boardURL)
}

// ParseThread は、スレッドHTMLを解析して Post のスライスを返します。
// 親レスは div.thre の直下、返信は td.rtd の中にあります。
func (a *FutabaAdapter) ParseThread(body []byte, threadURL string) ([]model.Post, error) {
	decoded, err := decodeShiftJIS(body)
	if err != nil {
		return nil, err
	}
	doc, err := NewDocumentFromBytes(decoded)
	if err != nil {
		return nil, fmt.Errorf("スレッドHTMLの解析に失敗しました (url=%s): %w", threadURL, err)
	}
	base, err := url.Parse(threadURL)
	if err != nil {
		return nil, fmt.Errorf("スレッドURLの解析に失敗しました: %w", err)
	}

	thre := doc.Find("div.thre").First()
	if thre.Length() == 0 {
		return nil, fmt.Errorf("スレッド本体が見つかりません (url=%s)", threadURL)
	}

	var posts []model.Post
	op, ok := a.parsePost(thre, true, base)
	if !ok {
		return nil, fmt.Errorf("親レスの解析に失敗しました (url=%s)", threadURL)
	}
	posts = append(posts, op)

	thre.Find("table").Each(func(_ int, table *goquery.Selection) {
		cell := table.Find("td.rtd").First()
		if cell.Length() == 0 {
			return
		}
		p, ok := a.parsePost(cell, false, base)
		if !ok {
			log.Debugf("レスの解析をスキップしました (url=%s)", threadURL)
			return
		}
		if table.HasClass("deleted") {
			p = model.NewBuilder(p).Build(true)
		}
		posts = append(posts, p)
	})
	return posts, nil
}

// parsePost は、scope 内の1つのレスを解析します。親レスの場合は返信テーブルを除外します。
func (a *FutabaAdapter) parsePost(scope *goquery.Selection, original bool, base *url.URL) (model.Post, bool) {
	find := func(selector string) *goquery.Selection {
		if original {
			return scope.ChildrenFiltered(selector)
		}
		return scope.Find(selector)
	}

	number, ok := a.parseNumber(find(".cno").First().Text())
	if !ok {
		if data, exists := scope.Attr("data-res"); exists {
			number, ok = model.TryParsePostNumber(data)
		}
	}
	if !ok {
		return model.Post{}, false
	}

	b := &model.Builder{
		Number:  number,
		Subject: strings.TrimSpace(find(".csb").First().Text()),
		Name:    strings.TrimSpace(find(".cnm").First().Text()),
	}
	if html, err := find("blockquote").First().Html(); err == nil {
		b.Comment = strings.TrimSpace(html)
	}

	dateText := find(".cnw").First().Text()
	b.Timestamp = parseFutabaDate(dateText)
	if m := futabaIDPattern.FindStringSubmatch(dateText); m != nil {
		b.Identifier = m[1]
	}
	if href, exists := find(".cnw, .cnm").Find("a[href^='mailto:']").First().Attr("href"); exists {
		b.Email = strings.TrimPrefix(href, "mailto:")
		b.SetSage(strings.Contains(strings.ToLower(b.Email), "sage"))
	}
	b.SetOriginalPoster(original)

	if file, ok := a.parseFile(find, scope.Text(), base); ok {
		b.Attachments = append(b.Attachments, file)
	}
	return b.Build(false), true
}

func (a *FutabaAdapter) parseNumber(text string) (model.PostNumber, bool) {
	m := futabaNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return model.PostNumber{}, false
	}
	return model.TryParsePostNumber(m[1])
}

func (a *FutabaAdapter) parseFile(find func(string) *goquery.Selection, text string, base *url.URL) (model.File, bool) {
	var file model.File
	find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if !futabaMediaPattern.MatchString(path.Base(href)) {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		file.FileURI = base.ResolveReference(ref).String()
		file.OriginalName = path.Base(ref.Path)
		if src, exists := link.Find("img").Attr("src"); exists {
			if thumb, err := url.Parse(src); err == nil {
				file.ThumbnailURI = base.ResolveReference(thumb).String()
			}
		}
		return file.ThumbnailURI == ""
	})
	if file.FileURI == "" {
		return model.File{}, false
	}
	if m := futabaSizePattern.FindStringSubmatch(text); m != nil {
		file.Size, _ = strconv.ParseInt(m[1], 10, 64)
	}
	f, err := model.NewFile(file)
	return f, err == nil
}

// parseFutabaDate は日付をミリ秒単位の UNIX 時刻に変換します。解析できない場合は 0 です。
func parseFutabaDate(text string) int64 {
	m := futabaDatePattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n := make([]int, 6)
	for i := range n {
		n[i], _ = strconv.Atoi(m[i+1])
	}
	t := time.Date(2000+n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, jst)
	return t.UnixMilli()
}
