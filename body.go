package fetchttp

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

type bodySource int

const (
	sourceEmpty bodySource = iota
	sourceText
	sourceBytes
	sourceJSON
)

const (
	contentTypeText = "text/plain;charset=UTF-8"
	contentTypeJSON = "application/json"
)

// ReadableStream holds a request or response body. Its content can be read
// exactly once: after the first consuming call, successful or not, every
// further consuming call returns ErrBodyUsed.
type ReadableStream struct {
	source bodySource
	text   string
	data   []byte
	value  any
	used   bool
}

func EmptyStream() *ReadableStream {
	return &ReadableStream{source: sourceEmpty}
}

func TextStream(s string) *ReadableStream {
	return &ReadableStream{source: sourceText, text: s}
}

// BytesStream copies b so later writes by the caller do not leak in.
func BytesStream(b []byte) *ReadableStream {
	return &ReadableStream{source: sourceBytes, data: bytes.Clone(b)}
}

// JSONStream holds v as structured data. Serialization happens when the
// body is read or sent, so a value json cannot encode surfaces as a
// TypeError at that point.
func JSONStream(v any) *ReadableStream {
	return &ReadableStream{source: sourceJSON, value: v}
}

// Used reports whether a consuming operation has run.
func (s *ReadableStream) Used() bool {
	return s.used
}

// Locked is always false; streams are never handed out to readers.
func (s *ReadableStream) Locked() bool {
	return false
}

// Text decodes the body as UTF-8.
func (s *ReadableStream) Text() (string, error) {
	if err := s.consume(); err != nil {
		return "", err
	}
	switch s.source {
	case sourceText:
		return s.text, nil
	case sourceBytes:
		if !utf8.Valid(s.data) {
			return "", typeError("body is not valid UTF-8")
		}
		return string(s.data), nil
	case sourceJSON:
		b, err := encodeJSON(s.value)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", nil
	}
}

// ArrayBuffer returns the raw body bytes.
func (s *ReadableStream) ArrayBuffer() ([]byte, error) {
	if err := s.consume(); err != nil {
		return nil, err
	}
	return s.bytes()
}

func (s *ReadableStream) Blob() ([]byte, error) {
	return s.ArrayBuffer()
}

// FormData returns the body text; no form parsing is performed.
func (s *ReadableStream) FormData() (string, error) {
	return s.Text()
}

// JSON decodes the body into v like json.Unmarshal.
func (s *ReadableStream) JSON(v any) error {
	if err := s.consume(); err != nil {
		return err
	}
	var raw []byte
	switch s.source {
	case sourceEmpty:
		return typeError("unexpected end of JSON input")
	case sourceText:
		raw = []byte(s.text)
	case sourceBytes:
		raw = s.data
	case sourceJSON:
		b, err := encodeJSON(s.value)
		if err != nil {
			return err
		}
		raw = b
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return typeErrorWrap(err, "decode json body")
	}
	return nil
}

func (s *ReadableStream) consume() error {
	if s.used {
		return ErrBodyUsed
	}
	s.used = true
	return nil
}

// bytes renders the body without marking it used.
func (s *ReadableStream) bytes() ([]byte, error) {
	switch s.source {
	case sourceText:
		return []byte(s.text), nil
	case sourceBytes:
		return bytes.Clone(s.data), nil
	case sourceJSON:
		return encodeJSON(s.value)
	default:
		return []byte{}, nil
	}
}

func (s *ReadableStream) contentType() string {
	switch s.source {
	case sourceText:
		return contentTypeText
	case sourceJSON:
		return contentTypeJSON
	default:
		return ""
	}
}

// clone copies the stream. A JSON value is encoded so the copy shares no
// maps or slices with the original.
func (s *ReadableStream) clone() (*ReadableStream, error) {
	c := *s
	c.data = bytes.Clone(s.data)
	if s.source == sourceJSON {
		b, err := encodeJSON(s.value)
		if err != nil {
			return nil, err
		}
		c.value = json.RawMessage(b)
	}
	return &c, nil
}

func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, typeErrorWrap(err, "encode json body")
	}
	return b, nil
}

// DecodeJSON reads a JSON body from any Request, Response or ReadableStream.
func DecodeJSON[T any](body interface{ JSON(any) error }) (T, error) {
	var out T
	err := body.JSON(&out)
	return out, err
}
