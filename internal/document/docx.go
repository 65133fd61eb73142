package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const docxBodyPart = "word/document.xml"

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// ErrMissingBody is returned for zip archives without a word-processing body part
var ErrMissingBody = errors.New("document body part not found")

// DOCXDecoder extracts paragraph text from an Office Open XML document
type DOCXDecoder struct {
	maxBytes int64
}

// NewDOCXDecoder limits the uncompressed body part to maxBytes (0 means 32 MiB)
func NewDOCXDecoder(maxBytes int64) *DOCXDecoder {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &DOCXDecoder{maxBytes: maxBytes}
}

// Decode returns the document text with paragraphs separated by blank lines
func (d *DOCXDecoder) Decode(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a valid docx archive: %w", err)
	}

	var body *zip.File
	for _, f := range archive.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", ErrMissingBody
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	text, err := d.walk(io.LimitReader(rc, d.maxBytes))
	if err != nil {
		return "", fmt.Errorf("malformed %s: %w", docxBodyPart, err)
	}

	return text, nil
}

func (d *DOCXDecoder) walk(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		sb     strings.Builder
		inText bool
		inTabs bool // tab stop definitions, not content
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tabs":
				inTabs = true
			case "tab":
				if !inTabs {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "tabs":
				inTabs = false
			case "p":
				sb.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	text := excessBlankLines.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(text), nil
}
