// Package chunker provides a recursive text splitter.
//
// Text is split on the coarsest separator that occurs (paragraphs, then lines,
// then sentence ends, then words, then raw characters) until every piece fits
// the chunk size. Pieces are then merged greedily into chunks, each starting
// with up to Overlap bytes of the previous chunk's tail.
package chunker

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// DefaultChunkSize is the default maximum chunk length in bytes.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping bytes.
const DefaultChunkOverlap = 200

// chunkIDSpace namespaces deterministic chunk IDs.
var chunkIDSpace = uuid.MustParse("6f1c9f5e-2b8e-4d3a-9a51-3c0f6d2e7b14")

// separatorLevels are tried in order; each level may hold several separators.
var separatorLevels = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" "},
}

// Verify interface compliance.
var _ driven.TextSplitter = (*Splitter)(nil)

// Splitter splits text into overlapping chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a new splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// FromSettings builds a splitter from chunking settings, ignoring unset values.
func FromSettings(cfg domain.ChunkingSettings) *Splitter {
	return New(WithChunkSize(cfg.ChunkSize), WithOverlap(cfg.Overlap))
}

// ChunkID returns the deterministic ID of the chunk at position in a document.
// Re-ingesting a document therefore overwrites rather than duplicates vectors.
func ChunkID(documentID string, position int) string {
	return uuid.NewSHA1(chunkIDSpace, []byte(documentID+":"+strconv.Itoa(position))).String()
}

// piece is a contiguous slice of the source text.
type piece struct {
	text  string
	start int
}

// Split returns ordered chunks of text. Empty or whitespace-only chunks are dropped.
func (s *Splitter) Split(documentID, text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.split(text, 0, separatorLevels)
	return s.merge(documentID, text, pieces)
}

// split breaks text into pieces no longer than chunkSize.
// Pieces are contiguous: concatenated in order they reproduce text.
func (s *Splitter) split(text string, start int, levels [][]string) []piece {
	if len(text) <= s.chunkSize {
		return []piece{{text: text, start: start}}
	}

	for i, level := range levels {
		parts := cut(text, level)
		if len(parts) < 2 {
			continue
		}

		out := make([]piece, 0, len(parts))
		offset := start
		for _, part := range parts {
			if len(part) <= s.chunkSize {
				out = append(out, piece{text: part, start: offset})
			} else {
				out = append(out, s.split(part, offset, levels[i+1:])...)
			}
			offset += len(part)
		}
		return out
	}

	return splitRunes(text, start, s.chunkSize)
}

// cut splits text after every occurrence of any separator, keeping the
// separator on the preceding part.
func cut(text string, seps []string) []string {
	var parts []string
	last := 0
	for i := 0; i < len(text); {
		matched := 0
		for _, sep := range seps {
			if strings.HasPrefix(text[i:], sep) {
				matched = len(sep)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		i += matched
		parts = append(parts, text[last:i])
		last = i
	}
	if last < len(text) {
		parts = append(parts, text[last:])
	}
	return parts
}

// splitRunes cuts text into pieces of at most size bytes on rune boundaries.
func splitRunes(text string, start, size int) []piece {
	var out []piece
	begin := 0
	for i := 0; i < len(text); {
		_, w := utf8.DecodeRuneInString(text[i:])
		if i+w-begin > size && i > begin {
			out = append(out, piece{text: text[begin:i], start: start + begin})
			begin = i
		}
		i += w
	}
	if begin < len(text) {
		out = append(out, piece{text: text[begin:], start: start + begin})
	}
	return out
}

// merge packs pieces into chunks of at most chunkSize bytes.
func (s *Splitter) merge(documentID, text string, pieces []piece) []domain.Chunk {
	var (
		chunks  []domain.Chunk
		window  []piece
		total   int
		lastEnd = -1
	)

	emit := func() {
		if len(window) == 0 {
			return
		}
		first := window[0].start
		end := window[len(window)-1].start + len(window[len(window)-1].text)
		if end <= lastEnd {
			// Window is entirely overlap of the previous chunk.
			return
		}
		raw := text[first:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return
		}
		lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		position := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(documentID, position),
			DocumentID: documentID,
			Text:       trimmed,
			Position:   position,
			Start:      first + lead,
			Metadata:   make(map[string]any),
		})
		lastEnd = end
	}

	for _, p := range pieces {
		if total+len(p.text) > s.chunkSize && total > 0 {
			emit()
			for total > 0 && (total > s.overlap || total+len(p.text) > s.chunkSize) {
				total -= len(window[0].text)
				window = window[1:]
			}
		}
		window = append(window, p)
		total += len(p.text)
	}
	emit()

	return chunks
}
