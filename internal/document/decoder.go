package document

import (
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// MimeDOCX is the content type of Office Open XML word-processing documents
const MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Decoder turns a document buffer into raw text, failing on malformed structure
type Decoder interface {
	Decode(data []byte) (string, error)
}

// DecoderFunc adapts a function to the Decoder interface
type DecoderFunc func(data []byte) (string, error)

// Decode calls f(data)
func (f DecoderFunc) Decode(data []byte) (string, error) {
	return f(data)
}

// Registry maps content types and file suffixes to decoders
type Registry struct {
	byType   map[string]Decoder
	bySuffix map[string]string
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byType:   make(map[string]Decoder),
		bySuffix: make(map[string]string),
	}
}

// DefaultRegistry returns a registry with every supported format registered
func DefaultRegistry(maxBytes int64) *Registry {
	r := NewRegistry()
	r.Register(MimeDOCX, NewDOCXDecoder(maxBytes), ".docx")
	return r
}

// Register adds a decoder for contentType and the given file suffixes
func (r *Registry) Register(contentType string, decoder Decoder, suffixes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contentType = normalizeType(contentType)
	r.byType[contentType] = decoder
	for _, suffix := range suffixes {
		r.bySuffix[strings.ToLower(suffix)] = contentType
	}
}

// Resolve picks a decoder from the declared type, then the file suffix, then the bytes themselves.
// It returns the content type it settled on.
func (r *Registry) Resolve(declaredType, fileName string, data []byte) (string, Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ct := normalizeType(declaredType); ct != "" {
		if dec, ok := r.byType[ct]; ok {
			return ct, dec, true
		}
	}

	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" {
		if ct, ok := r.bySuffix[ext]; ok {
			return ct, r.byType[ct], true
		}
	}

	if len(data) > 0 {
		for m := mimetype.Detect(data); m != nil; m = m.Parent() {
			ct := normalizeType(m.String())
			if dec, ok := r.byType[ct]; ok {
				return ct, dec, true
			}
		}
	}

	return "", nil, false
}

// Types lists registered content types in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for ct := range r.byType {
		types = append(types, ct)
	}
	sort.Strings(types)
	return types
}

// normalizeType lower-cases a media type and strips its parameters
func normalizeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
