package parser

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const maxPartDepth = 8

type headerGetter interface {
	Get(key string) string
}

// bodies holds the first HTML and first plain-text part of a message.
type bodies struct {
	html string
	text string
}

func readBodies(msg *mail.Message) (bodies, error) {
	var b bodies
	if err := readPart(msg.Header, msg.Body, &b, 0); err != nil {
		return b, err
	}
	return b, nil
}

func readPart(h headerGetter, r io.Reader, b *bodies, depth int) error {
	if depth > maxPartDepth {
		return fmt.Errorf("mime nesting deeper than %d", maxPartDepth)
	}
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mediaType, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("multipart message without boundary")
		}
		mr := multipart.NewReader(r, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read mime part: %w", err)
			}
			err = readPart(part.Header, part, b, depth+1)
			_ = part.Close()
			if err != nil {
				return err
			}
		}
	}

	if mediaType != "text/html" && mediaType != "text/plain" {
		return nil
	}
	if (mediaType == "text/html" && b.html != "") || (mediaType == "text/plain" && b.text != "") {
		return nil
	}
	raw, err := io.ReadAll(decodeTransfer(h.Get("Content-Transfer-Encoding"), r))
	if err != nil {
		return fmt.Errorf("decode %s part: %w", mediaType, err)
	}
	text := toUTF8(raw, params["charset"])
	if mediaType == "text/html" {
		b.html = text
	} else {
		b.text = text
	}
	return nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// singleByteCharset maps a declared charset to its decoder. UTF-8 and
// unknown charsets return nil.
func singleByteCharset(charset string) *charmap.Charmap {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "iso-8859-1", "iso8859-1", "latin1":
		return charmap.ISO8859_1
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	default:
		return nil
	}
}

// toUTF8 decodes single-byte charsets through their code page. Anything
// else is coerced to valid UTF-8.
func toUTF8(raw []byte, charset string) string {
	if cm := singleByteCharset(charset); cm != nil {
		if out, err := cm.NewDecoder().Bytes(raw); err == nil {
			return string(out)
		}
	}
	return strings.ToValidUTF8(string(raw), "\uFFFD")
}

var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		cm := singleByteCharset(charset)
		if cm == nil {
			return nil, fmt.Errorf("unhandled charset %q", charset)
		}
		return cm.NewDecoder().Reader(input), nil
	},
}

func decodeHeader(v string) string {
	if out, err := wordDecoder.DecodeHeader(v); err == nil {
		return out
	}
	return v
}
