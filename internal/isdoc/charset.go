package isdoc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}

	xmlEncodingRe = regexp.MustCompile(`(?i)<\?xml[^>]*encoding=["']([^"']+)["']`)
)

// newUTF8Reader detects the encoding of an ISDOC document and returns a
// reader that decodes the content to UTF-8.
//
// Detection order:
//  1. Check for BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. Honor the XML declaration's encoding attribute
//  3. Validate if the content is valid UTF-8 and return as-is
//  4. Heuristic detection via chardet
//  5. Fallback to Windows-1250 (the usual legacy encoding for Czech exports)
func newUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	buf, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek: %w", err)
	}

	if bytes.HasPrefix(buf, bomUTF8) {
		_, _ = br.Discard(len(bomUTF8))
		return br, nil
	}

	if bytes.HasPrefix(buf, bomUTF16LE) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, decoder), nil
	}

	if bytes.HasPrefix(buf, bomUTF16BE) {
		decoder := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, decoder), nil
	}

	// The XML declaration names the encoding authoritatively when present.
	if m := xmlEncodingRe.FindSubmatch(buf); m != nil {
		switch strings.ToLower(string(m[1])) {
		case "utf-8", "us-ascii":
			return br, nil
		case "windows-1250", "cp1250":
			return transform.NewReader(br, charmap.Windows1250.NewDecoder()), nil
		case "iso-8859-2", "latin2":
			return transform.NewReader(br, charmap.ISO8859_2.NewDecoder()), nil
		case "windows-1252", "iso-8859-1":
			return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
		}
	}

	if utf8.Valid(buf) {
		return br, nil
	}

	detector := chardet.NewTextDetector()

	result, detectErr := detector.DetectBest(buf)
	if detectErr == nil {
		switch result.Charset {
		case "UTF-8":
			return br, nil
		case "windows-1250":
			return transform.NewReader(br, charmap.Windows1250.NewDecoder()), nil
		case "ISO-8859-2":
			return transform.NewReader(br, charmap.ISO8859_2.NewDecoder()), nil
		case "ISO-8859-1", "windows-1252":
			return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
		}
	}

	return transform.NewReader(br, charmap.Windows1250.NewDecoder()), nil
}
