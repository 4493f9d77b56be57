package model

// Attachment は、レスに付随する添付ファイルまたは埋め込みメディアです。
// 実装は File と Embedded のみで、型スイッチで分岐します。
type Attachment interface {
	isAttachment()
}

// ContentType は埋め込みメディアの種類です。ゼロ値は「不明」を表します。
type ContentType int

const (
	ContentTypeUnknown ContentType = iota
	ContentTypeAudio
	ContentTypeVideo
)

// String はシリアライズ形式で使われる名前を返します。
func (c ContentType) String() string {
	switch c {
	case ContentTypeAudio:
		return "AUDIO"
	case ContentTypeVideo:
		return "VIDEO"
	default:
		return ""
	}
}

// ParseContentType は "AUDIO" / "VIDEO" を解析します。未知の値は ContentTypeUnknown になります。
func ParseContentType(s string) ContentType {
	switch s {
	case "AUDIO":
		return ContentTypeAudio
	case "VIDEO":
		return ContentTypeVideo
	default:
		return ContentTypeUnknown
	}
}

// File は、掲示板に直接アップロードされたファイルです。
type File struct {
	FileURI      string
	ThumbnailURI string
	OriginalName string
	Size         int64
	Width        int
	Height       int
	Spoiler      bool
}

func (File) isAttachment() {}

// NewFile は、少なくとも一方の URI を持つ File を返します。
func NewFile(f File) (File, error) {
	if f.FileURI == "" && f.ThumbnailURI == "" {
		return File{}, &ValidationError{Field: "file", Input: f.OriginalName, Reason: "fileUri と thumbnailUri の両方が空です"}
	}
	return f, nil
}

// TryNewFile は NewFile のエラーを返さない版です。
func TryNewFile(f File) (File, bool) {
	v, err := NewFile(f)
	return v, err == nil
}

// Embedded は、外部サービス上のメディアへの参照です。
type Embedded struct {
	FileURI      string
	ThumbnailURI string
	EmbeddedType string
	ContentType  ContentType
	CanDownload  bool
	ForcedName   string
}

func (Embedded) isAttachment() {}

// NewEmbedded は、fileUri・embeddedType・contentType が揃っている Embedded を返します。
func NewEmbedded(e Embedded) (Embedded, error) {
	switch {
	case e.FileURI == "":
		return Embedded{}, &ValidationError{Field: "embedded", Input: e.EmbeddedType, Reason: "fileUri がありません"}
	case e.EmbeddedType == "":
		return Embedded{}, &ValidationError{Field: "embedded", Input: e.FileURI, Reason: "embeddedType がありません"}
	case e.ContentType == ContentTypeUnknown:
		return Embedded{}, &ValidationError{Field: "embedded", Input: e.FileURI, Reason: "contentType がありません"}
	}
	return e, nil
}

// TryNewEmbedded は NewEmbedded のエラーを返さない版です。
func TryNewEmbedded(e Embedded) (Embedded, bool) {
	v, err := NewEmbedded(e)
	return v, err == nil
}

// Icon は、国旗や板固有アイコンなどレスに表示される小さな画像です。
type Icon struct {
	URI   string
	Title string
}
