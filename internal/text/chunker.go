package text

import (
	"strings"

	"github.com/google/uuid"
)

// Chunk is a bounded contiguous slice of a document's text, carrying the
// metadata the vector store persists alongside it. Chunks are immutable
// once created; re-ingesting a document mints fresh ids.
type Chunk struct {
	ID         string
	Text       string
	Source     string
	PageNumber int
	Index      int
	Total      int
}

// Page is one unit of a paginated document source. Number is 1-based;
// non-paged sources use page 0.
type Page struct {
	Text   string
	Number int
}

// Split cuts cleaned text into overlapping chunks of at most maxSize
// characters. Windows slide forward by maxSize-overlap characters; before
// a window is emitted, if it ends strictly inside the text the cut is
// pulled back to the last paragraph break (newline) or sentence break
// (". ") found past the midpoint of the window, paragraph break winning
// when both qualify. Requires 0 <= overlap < maxSize.
func Split(text, source string, page, maxSize, overlap int) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if len(text) <= maxSize {
		return []Chunk{{
			ID:         uuid.NewString(),
			Text:       text,
			Source:     source,
			PageNumber: page,
			Total:      1,
		}}
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end >= len(text) {
			// The window reaches the end of the text; emit it whole. Only a
			// cut that would land strictly inside the text gets smoothed.
			end = len(text)
		} else {
			window := text[start:end]
			if cut := seekBoundary(window, maxSize); cut > 0 {
				end = start + cut
			}
		}

		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, Chunk{
				ID:         uuid.NewString(),
				Text:       piece,
				Source:     source,
				PageNumber: page,
				Index:      len(chunks),
			})
		}

		if end == len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			// Boundary smoothing shortened the window past the overlap;
			// give up the overlap for this step so the slide always advances.
			next = end
		}
		start = next
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// seekBoundary returns the offset just past the best breakpoint in the
// window, or 0 when no breakpoint qualifies and the window is hard-cut.
// A breakpoint only qualifies past the 50% mark of the window so short
// sentences near the start never shrink chunks to fragments.
func seekBoundary(window string, maxSize int) int {
	half := maxSize / 2
	if para := strings.LastIndex(window, "\n"); para > half {
		return para + 1
	}
	if sent := strings.LastIndex(window, ". "); sent > half {
		return sent + 2
	}
	return 0
}

// SplitPages cleans and chunks each page of a document, renumbering
// Index and Total across the whole document so sequence order is global.
func SplitPages(pages []Page, source string, maxSize, overlap int) []Chunk {
	var all []Chunk
	for _, p := range pages {
		cleaned := Clean(p.Text)
		if cleaned == "" {
			continue
		}
		all = append(all, Split(cleaned, source, p.Number, maxSize, overlap)...)
	}
	for i := range all {
		all[i].Index = i
		all[i].Total = len(all)
	}
	return all
}
