package model

import (
	"fmt"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// 添付ファイルの type キーの値
const (
	attachmentTypeFile     = "file"
	attachmentTypeEmbedded = "embedded"
)

// MarshalPost は、p をローカル保存用の JSON 形式に変換します。
// 番号と削除フラグは保存側のキーで管理されるため含まれません。
func MarshalPost(p Post) ([]byte, error) {
	data, err := easyjson.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("レスのシリアライズに失敗しました (number=%s): %w", p.number, err)
	}
	return data, nil
}

// UnmarshalPost は MarshalPost の出力から Post を復元します。
// 未知のキーは読み飛ばされ、必須フィールドが欠けた添付ファイルはその1件だけ破棄されます。
func UnmarshalPost(number PostNumber, deleted bool, data []byte) (Post, error) {
	var b Builder
	if err := easyjson.Unmarshal(data, &b); err != nil {
		return Post{}, fmt.Errorf("レスのデシリアライズに失敗しました (number=%s): %w", number, err)
	}
	b.Number = number
	return b.Build(deleted), nil
}

// MarshalEasyJSON は、値が既定値でないフィールドだけを書き出します。
func (p Post) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"flags":`)
	w.Uint32(uint32(p.flags))
	w.RawString(`,"timestamp":`)
	w.Int64(p.timestamp)
	writeOptionalString(w, "subject", p.subject)
	writeOptionalString(w, "comment", p.comment)
	writeOptionalString(w, "commentMarkup", p.commentMarkup)
	writeOptionalString(w, "name", p.name)
	writeOptionalString(w, "identifier", p.identifier)
	writeOptionalString(w, "tripcode", p.tripcode)
	writeOptionalString(w, "capcode", p.capcode)
	writeOptionalString(w, "email", p.email)
	if len(p.attachments) > 0 {
		w.RawString(`,"attachments":[`)
		for i, a := range p.attachments {
			if i > 0 {
				w.RawByte(',')
			}
			writeAttachment(w, a)
		}
		w.RawByte(']')
	}
	if len(p.icons) > 0 {
		w.RawString(`,"icons":[`)
		for i, icon := range p.icons {
			if i > 0 {
				w.RawByte(',')
			}
			w.RawByte('{')
			first := true
			if icon.URI != "" {
				w.RawString(`"uri":`)
				w.String(icon.URI)
				first = false
			}
			if icon.Title != "" {
				if !first {
					w.RawByte(',')
				}
				w.RawString(`"title":`)
				w.String(icon.Title)
			}
			w.RawByte('}')
		}
		w.RawByte(']')
	}
	w.RawByte('}')
}

func writeOptionalString(w *jwriter.Writer, key, value string) {
	if value == "" {
		return
	}
	w.RawString(`,"` + key + `":`)
	w.String(value)
}

func writeAttachment(w *jwriter.Writer, a Attachment) {
	switch a := a.(type) {
	case File:
		w.RawString(`{"type":"` + attachmentTypeFile + `"`)
		writeOptionalString(w, "fileUri", a.FileURI)
		writeOptionalString(w, "thumbnailUri", a.ThumbnailURI)
		writeOptionalString(w, "originalName", a.OriginalName)
		if a.Size != 0 {
			w.RawString(`,"size":`)
			w.Int64(a.Size)
		}
		if a.Width != 0 {
			w.RawString(`,"width":`)
			w.Int(a.Width)
		}
		if a.Height != 0 {
			w.RawString(`,"height":`)
			w.Int(a.Height)
		}
		if a.Spoiler {
			w.RawString(`,"spoiler":true`)
		}
		w.RawByte('}')
	case Embedded:
		w.RawString(`{"type":"` + attachmentTypeEmbedded + `"`)
		writeOptionalString(w, "fileUri", a.FileURI)
		writeOptionalString(w, "thumbnailUri", a.ThumbnailURI)
		writeOptionalString(w, "embeddedType", a.EmbeddedType)
		writeOptionalString(w, "contentType", a.ContentType.String())
		if a.CanDownload {
			w.RawString(`,"canDownload":true`)
		}
		writeOptionalString(w, "forcedName", a.ForcedName)
		w.RawByte('}')
	}
}

// UnmarshalEasyJSON は、保存形式の JSON オブジェクトを Builder に読み込みます。
func (b *Builder) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "flags":
			b.Flags = Flags(in.Uint32())
		case "timestamp":
			b.Timestamp = in.Int64()
		case "subject":
			b.Subject = in.String()
		case "comment":
			b.Comment = in.String()
		case "commentMarkup":
			b.CommentMarkup = in.String()
		case "name":
			b.Name = in.String()
		case "identifier":
			b.Identifier = in.String()
		case "tripcode":
			b.Tripcode = in.String()
		case "capcode":
			b.Capcode = in.String()
		case "email":
			b.Email = in.String()
		case "attachments":
			b.Attachments = readAttachments(in)
		case "icons":
			b.Icons = readIcons(in)
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

// rawAttachment は、検証前の添付ファイルのフィールドを保持します。
type rawAttachment struct {
	kind         string
	fileURI      string
	thumbnailURI string
	originalName string
	size         int64
	width        int
	height       int
	spoiler      bool
	embeddedType string
	contentType  ContentType
	canDownload  bool
	forcedName   string
}

func (r rawAttachment) build() (Attachment, bool) {
	switch r.kind {
	case attachmentTypeFile:
		f, ok := TryNewFile(File{
			FileURI:      r.fileURI,
			ThumbnailURI: r.thumbnailURI,
			OriginalName: r.originalName,
			Size:         r.size,
			Width:        r.width,
			Height:       r.height,
			Spoiler:      r.spoiler,
		})
		return f, ok
	case attachmentTypeEmbedded:
		e, ok := TryNewEmbedded(Embedded{
			FileURI:      r.fileURI,
			ThumbnailURI: r.thumbnailURI,
			EmbeddedType: r.embeddedType,
			ContentType:  r.contentType,
			CanDownload:  r.canDownload,
			ForcedName:   r.forcedName,
		})
		return e, ok
	default:
		return nil, false
	}
}

func readAttachments(in *jlexer.Lexer) []Attachment {
	var attachments []Attachment
	in.Delim('[')
	for !in.IsDelim(']') {
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		raw := readRawAttachment(in)
		if a, ok := raw.build(); ok {
			attachments = append(attachments, a)
		}
		in.WantComma()
	}
	in.Delim(']')
	return attachments
}

func readRawAttachment(in *jlexer.Lexer) rawAttachment {
	var r rawAttachment
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "type":
			r.kind = in.String()
		case "fileUri":
			r.fileURI = in.String()
		case "thumbnailUri":
			r.thumbnailURI = in.String()
		case "originalName":
			r.originalName = in.String()
		case "size":
			r.size = in.Int64()
		case "width":
			r.width = in.Int()
		case "height":
			r.height = in.Int()
		case "spoiler":
			r.spoiler = in.Bool()
		case "embeddedType":
			r.embeddedType = in.String()
		case "contentType":
			r.contentType = ParseContentType(in.String())
		case "canDownload":
			r.canDownload = in.Bool()
		case "forcedName":
			r.forcedName = in.String()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	return r
}

func readIcons(in *jlexer.Lexer) []Icon {
	var icons []Icon
	in.Delim('[')
	for !in.IsDelim(']') {
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		var icon Icon
		in.Delim('{')
		for !in.IsDelim('}') {
			key := in.UnsafeFieldName(false)
			in.WantColon()
			if in.IsNull() {
				in.Skip()
				in.WantComma()
				continue
			}
			switch key {
			case "uri":
				icon.URI = in.String()
			case "title":
				icon.Title = in.String()
			default:
				in.SkipRecursive()
			}
			in.WantComma()
		}
		in.Delim('}')
		icons = append(icons, icon)
		in.WantComma()
	}
	in.Delim(']')
	return icons
}
