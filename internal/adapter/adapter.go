// Package adapter は、サイト固有の処理を抽象化するインターフェースと、
// その具体的な実装を提供します。これにより、様々な掲示板に
// プラグイン形式で対応できます。
package adapter

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"GoImageBoardClient/internal/attachment"
	"GoImageBoardClient/internal/config"
	"GoImageBoardClient/internal/model"
	"GoImageBoardClient/internal/network"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// SiteAdapter は、サイト固有の処理を抽象化するインターフェースです。
type SiteAdapter interface {
	// Prepare は、HTTPリクエストの前にサイト固有の準備（Cookie設定など）を行います。
	Prepare(client *network.Client, board config.Board) error
	// BuildThreadURL は、板のURLとスレッド番号からスレッドの取得先URLを構築します。
	BuildThreadURL(boardURL, thread string) (string, error)
	// ParseThread は、取得したスレッドをレス番号順の Post に変換します。
	ParseThread(body []byte, threadURL string) ([]model.Post, error)
	// Locator は、板の添付ファイルURIを解決する Locator を返します。
	Locator(boardURL string) (attachment.Locator, error)
}

// NewDocumentFromBytes は、[]byteからgoquery.Documentを生成するヘルパー関数です。
func NewDocumentFromBytes(htmlBody []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
}

var metaCharsetPattern = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([\w-]+)`)

// decodeHTML は、meta タグで宣言された文字コードから UTF-8 に変換します。
// 宣言がない場合は fallback を使います。
func decodeHTML(b []byte, fallback encoding.Encoding) ([]byte, error) {
	head := b
	if len(head) > 2048 {
		head = head[:2048]
	}
	enc := fallback
	if m := metaCharsetPattern.FindSubmatch(head); m != nil {
		if found, err := htmlindex.Get(string(m[1])); err == nil {
			enc = found
		}
	}
	if enc == nil || enc == encoding.Nop {
		return b, nil
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return b, nil
	}
	reader := transform.NewReader(bytes.NewReader(b), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("文字コード変換に失敗しました: %w", err)
	}
	return decoded, nil
}

// decodeShiftJIS は Shift_JIS を既定とする decodeHTML です。
func decodeShiftJIS(b []byte) ([]byte, error) {
	return decodeHTML(b, japanese.ShiftJIS)
}

// BoardLocator は、板のURLを基準に添付ファイルのURIを解決する attachment.Locator です。
type BoardLocator struct {
	base *url.URL
}

// NewBoardLocator は boardURL を基準とする BoardLocator を返します。
func NewBoardLocator(boardURL string) (*BoardLocator, error) {
	u, err := url.Parse(boardURL)
	if err != nil {
		return nil, fmt.Errorf("板URLの解析に失敗しました (url=%s): %w", boardURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("板URLは絶対URLである必要があります (url=%s)", boardURL)
	}
	return &BoardLocator{base: u}, nil
}

// FixRelativeFileURI は、相対URIを板のURLを基準に絶対URIへ変換します。
func (l *BoardLocator) FixRelativeFileURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return l.base.ResolveReference(u).String()
}

// Convert は、板と同じホストへの http のURIを板のスキームに揃えます。
func (l *BoardLocator) Convert(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host != l.base.Host || u.Scheme == l.base.Scheme {
		return uri
	}
	u.Scheme = l.base.Scheme
	return u.String()
}

// CreateAttachmentFileName は、forcedName があればそれを、なければURIのパス末尾を
// ファイル名として使える形に整えて返します。
func (l *BoardLocator) CreateAttachmentFileName(uri, forcedName string) string {
	if forcedName != "" {
		return SanitizeFilename(forcedName)
	}
	return SanitizeFilename(attachment.FileNameFromURI(uri))
}

// SanitizeFilename は、ファイル名に使えない文字を全角文字に置き換えます。
func SanitizeFilename(name string) string {
	r := strings.NewReplacer(
		"/", "／",
		"\\", "＼",
		":", "：",
		"*", "＊",
		"?", "？",
		"\"", "”",
		"<", "＜",
		">", "＞",
		"|", "｜",
	)
	return r.Replace(name)
}

// joinBoardPath は、boardURL の末尾に elem を連結したURLを返します。
func joinBoardPath(boardURL string, elem ...string) (string, error) {
	u, err := url.Parse(boardURL)
	if err != nil {
		return "", fmt.Errorf("ベースURLの解析に失敗しました: %w", err)
	}
	return u.JoinPath(elem...).String(), nil
}
