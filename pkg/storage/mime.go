package storage

import (
	"bufio"
	"bytes"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// MIME type constants.
const (
	MIMEOctetStream    = "application/octet-stream"
	mimeDetectionBytes = 512 // http.DetectContentType reads at most 512 bytes
)

// genericTypes are sniffing results too vague to beat a known file extension.
var genericTypes = map[string]struct{}{
	MIMEOctetStream:              {},
	"text/plain; charset=utf-8":  {},
	"text/plain; charset=utf-16": {},
	"text/xml; charset=utf-8":    {},
	"application/x-gzip":         {},
	"application/zip":            {}, // docx, xlsx and odt all sniff as zip
}

// extensionTypes covers extensions that mime.TypeByExtension misses on
// minimal systems without /etc/mime.types.
var extensionTypes = map[string]string{
	".csv":     "text/csv",
	".doc":     "application/msword",
	".docx":    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".geojson": "application/geo+json",
	".gz":      "application/gzip",
	".json":    "application/json",
	".pdf":     "application/pdf",
	".txt":     "text/plain",
	".xls":     "application/vnd.ms-excel",
	".xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xml":     "application/xml",
	".zip":     "application/zip",
}

// detectContentType sniffs the first bytes of body without consuming them
// and returns the MIME type with a reader that still yields the full stream.
// A seekable body is rewound and returned as is, so drivers can still stream
// it with a known length. Magic bytes win over the extension unless the
// sniffed type is generic.
func detectContentType(name string, body io.Reader) (string, io.Reader) {
	if rs, ok := body.(io.ReadSeeker); ok {
		if start, err := rs.Seek(0, io.SeekCurrent); err == nil {
			head := make([]byte, mimeDetectionBytes)
			n, _ := io.ReadFull(rs, head)
			head = head[:n]

			ct := pickContentType(name, head)
			if _, err := rs.Seek(start, io.SeekStart); err != nil {
				return ct, io.MultiReader(bytes.NewReader(head), rs)
			}
			return ct, rs
		}
	}

	br := bufio.NewReaderSize(body, mimeDetectionBytes)
	head, _ := br.Peek(mimeDetectionBytes)
	return pickContentType(name, head), br
}

func pickContentType(name string, head []byte) string {
	sniffed := MIMEOctetStream
	if len(head) > 0 {
		sniffed = http.DetectContentType(head)
	}

	if _, generic := genericTypes[sniffed]; generic {
		if byExt := typeByExtension(name); byExt != "" {
			return byExt
		}
	}
	return sniffed
}

// typeByExtension maps a filename extension to a MIME type, "" if unknown.
func typeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}
