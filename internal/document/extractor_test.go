package document

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

const sampleResume = "Jane Doe, Senior Backend Engineer with eight years building distributed systems in Go."

func TestDOCXDecoder_ParagraphsTabsAndBreaks(t *testing.T) {
	data := buildDOCX(t,
		run("Jane")+run(" Doe"),
		`<w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>`+run("Skills")+`<w:r><w:tab/></w:r>`+run("Go"),
		run("line one")+`<w:r><w:br/></w:r>`+run("line two"),
		"",
		"",
		run("Last"),
	)

	text, err := NewDOCXDecoder(0).Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n\nSkills\tGo\n\nline one\nline two\n\nLast", text)
}

func TestDOCXDecoder_Malformed(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		_, err := NewDOCXDecoder(0).Decode([]byte("plain text, definitely not a zip archive"))
		assert.Error(t, err)
	})

	t.Run("zip without body", func(t *testing.T) {
		data := buildZip(t, map[string]string{"[Content_Types].xml": "<Types/>"})
		_, err := NewDOCXDecoder(0).Decode(data)
		assert.ErrorIs(t, err, ErrMissingBody)
	})

	t.Run("broken xml", func(t *testing.T) {
		data := buildZip(t, map[string]string{
			"[Content_Types].xml": "<Types/>",
			"word/document.xml":   "<w:document><w:body><w:p>",
		})
		_, err := NewDOCXDecoder(0).Decode(data)
		assert.Error(t, err)
	})

	t.Run("body over the size limit", func(t *testing.T) {
		data := buildDOCX(t, run(strings.Repeat("x", 4096)))
		_, err := NewDOCXDecoder(512).Decode(data)
		assert.Error(t, err)
	})
}

func TestRegistry_Resolve(t *testing.T) {
	docx := buildDOCX(t, run(sampleResume))
	r := DefaultRegistry(0)

	tests := []struct {
		name     string
		mimeType string
		fileName string
		data     []byte
		wantOK   bool
	}{
		{"declared type", MimeDOCX, "", nil, true},
		{"declared type with params", strings.ToUpper(MimeDOCX) + "; charset=binary", "", nil, true},
		{"suffix", "application/octet-stream", "Resume.DOCX", nil, true},
		{"sniffed", "", "upload.bin", docx, true},
		{"unsupported", "application/pdf", "resume.pdf", []byte("%PDF-1.7 not a docx"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, dec, ok := r.Resolve(tt.mimeType, tt.fileName, tt.data)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, MimeDOCX, ct)
				assert.NotNil(t, dec)
			}
		})
	}
}

func TestRegistry_CustomDecoder(t *testing.T) {
	r := NewRegistry()
	r.Register("text/plain", DecoderFunc(func(data []byte) (string, error) {
		return string(data), nil
	}), ".txt")

	ct, dec, ok := r.Resolve("", "notes.txt", nil)
	require.True(t, ok)
	assert.Equal(t, "text/plain", ct)

	out, err := dec.Decode([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func newTestExtractor() *Extractor {
	cfg := config.Default()
	return NewExtractor(cfg)
}

func encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestExtractor_ValidDocument(t *testing.T) {
	data := buildDOCX(t, run(sampleResume), run("Skills: Go, Kubernetes, PostgreSQL"))

	out, err := newTestExtractor().Extract(context.Background(), models.ExtractionRequest{
		FileData: encode(data),
		FileName: "resume.docx",
		MimeType: MimeDOCX,
	})

	require.NoError(t, err)
	assert.Equal(t, sampleResume+"\n\nSkills: Go, Kubernetes, PostgreSQL", out.Text)
}

func TestExtractor_SniffsWithoutHints(t *testing.T) {
	data := buildDOCX(t, run(sampleResume))

	out, err := newTestExtractor().Extract(context.Background(), models.ExtractionRequest{FileData: encode(data)})
	require.NoError(t, err)
	assert.Equal(t, sampleResume, out.Text)
}

func TestExtractor_Failures(t *testing.T) {
	tests := []struct {
		name     string
		req      models.ExtractionRequest
		wantKind utils.ErrorKind
		wantCode int
	}{
		{
			name:     "missing file data",
			req:      models.ExtractionRequest{FileName: "resume.docx"},
			wantKind: utils.KindClientInput,
			wantCode: 400,
		},
		{
			name:     "invalid base64",
			req:      models.ExtractionRequest{FileData: "***"},
			wantKind: utils.KindClientInput,
			wantCode: 400,
		},
		{
			name:     "unsupported format",
			req:      models.ExtractionRequest{FileData: encode([]byte("%PDF-1.7")), FileName: "resume.pdf", MimeType: "application/pdf"},
			wantKind: utils.KindExtraction,
			wantCode: 500,
		},
		{
			name:     "decoder failure",
			req:      models.ExtractionRequest{FileData: encode([]byte("not a zip")), MimeType: MimeDOCX},
			wantKind: utils.KindExtraction,
			wantCode: 500,
		},
		{
			name:     "near-empty document",
			req:      models.ExtractionRequest{FileData: encode(buildDOCX(t, run("Jane"))), MimeType: MimeDOCX},
			wantKind: utils.KindQualityThreshold,
			wantCode: 500,
		},
		{
			name:     "empty document",
			req:      models.ExtractionRequest{FileData: encode(buildDOCX(t)), FileName: "blank.docx"},
			wantKind: utils.KindQualityThreshold,
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newTestExtractor().Extract(context.Background(), tt.req)

			assert.Nil(t, out)
			var ce *utils.CustomError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.wantKind, ce.Kind)
			assert.Equal(t, tt.wantCode, ce.Code)
		})
	}
}

func TestExtractor_UnsupportedFormatNamesSupportedTypes(t *testing.T) {
	_, err := newTestExtractor().Extract(context.Background(), models.ExtractionRequest{
		FileData: encode([]byte("%PDF-1.7")),
		FileName: "resume.pdf",
		MimeType: "application/pdf",
	})

	var ce *utils.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Detail, "unsupported document format")
	assert.Contains(t, ce.Detail, MimeDOCX)
	assert.Equal(t, []string{MimeDOCX}, newTestExtractor().SupportedTypes())
}

func TestExtractor_ThresholdCountsRunesAfterTrim(t *testing.T) {
	e := NewExtractorWithRegistry(DefaultRegistry(0), 5)

	// five multi-byte runes padded with whitespace
	data := buildDOCX(t, run("   ")+run("ééééé")+run("   "))
	out, err := e.Extract(context.Background(), models.ExtractionRequest{FileData: encode(data), MimeType: MimeDOCX})
	require.NoError(t, err)
	assert.Equal(t, "ééééé", out.Text)

	data = buildDOCX(t, run("éééé"))
	_, err = e.Extract(context.Background(), models.ExtractionRequest{FileData: encode(data), MimeType: MimeDOCX})
	assert.Equal(t, utils.KindQualityThreshold, utils.AsCustomError(err).Kind)
}
