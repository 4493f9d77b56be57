// Package attachment は、レスの添付ファイルと本文中の埋め込みリンクを
// 表示用の項目(Item)へ分類します。
package attachment

import (
	"encoding/hex"
	"net/url"
	"path"
	"strings"

	"GoImageBoardClient/internal/model"

	"github.com/zeebo/blake3"
)

// Type は、項目をどのビューアで扱うかを表します。
type Type int

const (
	TypeImage Type = iota
	TypeVideo
	TypeAudio
	TypeFile
)

func (t Type) String() string {
	switch t {
	case TypeImage:
		return "IMAGE"
	case TypeVideo:
		return "VIDEO"
	case TypeAudio:
		return "AUDIO"
	default:
		return "FILE"
	}
}

// GeneralType は、項目の出どころ(アップロード/埋め込み/本文中のリンク)を表します。
type GeneralType int

const (
	GeneralTypeFile GeneralType = iota
	GeneralTypeEmbedded
	GeneralTypeLink
)

func (g GeneralType) String() string {
	switch g {
	case GeneralTypeEmbedded:
		return "EMBEDDED"
	case GeneralTypeLink:
		return "LINK"
	default:
		return "FILE"
	}
}

// Locator は、板ごとの URI の正規化とファイル名の決定を行います。
type Locator interface {
	CreateAttachmentFileName(uri, forcedName string) string
	Convert(uri string) string
	FixRelativeFileURI(uri string) string
}

// EmbedMatcher は、本文から埋め込みコードを見つけ、埋め込み添付ファイルに変換します。
type EmbedMatcher interface {
	FindEmbedCodes(loc Locator, comment string) []string
	ResolveEmbed(loc Locator, code string) (model.Embedded, error)
}

// ThumbnailKeyResolver は、サムネイルURIに対応するキャッシュキーを引きます。
// キャッシュされていない場合は false を返します。
type ThumbnailKeyResolver interface {
	CachedKeyFor(uri string) (string, bool)
}

// PlainLocator は URI をそのまま扱う Locator です。
type PlainLocator struct{}

// CreateAttachmentFileName は、forcedName があればそれを、なければ URI のパス末尾を返します。
func (PlainLocator) CreateAttachmentFileName(uri, forcedName string) string {
	if forcedName != "" {
		return forcedName
	}
	return FileNameFromURI(uri)
}

func (PlainLocator) Convert(uri string) string            { return uri }
func (PlainLocator) FixRelativeFileURI(uri string) string { return uri }

// FileNameFromURI は、URI のパス部分の末尾要素を返します。
func FileNameFromURI(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// DigestKey は、uri から決まるサムネイルのキャッシュキーを返します。
// 共有状態を持たないため、どの goroutine からでも呼び出せます。
func DigestKey(uri string) string {
	sum := blake3.Sum256([]byte(uri))
	return hex.EncodeToString(sum[:])
}

var (
	imageExtensions = map[string]bool{
		"jpg": true, "png": true, "gif": true, "webp": true, "bmp": true,
		"avif": true, "heic": true, "heif": true, "jxl": true,
	}
	videoExtensions = map[string]bool{
		"webm": true, "mp4": true, "m4v": true, "mov": true, "mkv": true,
		"avi": true, "3gp": true, "ogv": true,
	}
	audioExtensions = map[string]bool{
		"mp3": true, "ogg": true, "oga": true, "opus": true, "flac": true,
		"wav": true, "m4a": true, "aac": true,
	}
	extensionAliases = map[string]string{
		"jpeg": "jpg",
		"jpe":  "jpg",
		"jfif": "jpg",
	}
)

// NormalizeExtension は、ファイル名から小文字に正規化した拡張子を取り出します。
func NormalizeExtension(fileName string) string {
	i := strings.LastIndexByte(fileName, '.')
	if i < 0 || i == len(fileName)-1 {
		return ""
	}
	ext := strings.ToLower(fileName[i+1:])
	if alias, ok := extensionAliases[ext]; ok {
		return alias
	}
	return ext
}

// TypeForExtension は拡張子を Type に対応付けます。
func TypeForExtension(ext string) Type {
	switch {
	case imageExtensions[ext]:
		return TypeImage
	case videoExtensions[ext]:
		return TypeVideo
	case audioExtensions[ext]:
		return TypeAudio
	default:
		return TypeFile
	}
}
