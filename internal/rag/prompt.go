package rag

import (
	"fmt"
	"strings"

	"ragchat/backend/internal/vectorstore"
)

// FormatContext renders matches (already sorted by descending score) as
// labeled blocks. Only the first maxChunks matches are rendered so the
// prompt stays bounded; callers still return the full match list as
// citation metadata.
func FormatContext(matches []vectorstore.Match, maxChunks int) string {
	if maxChunks > len(matches) {
		maxChunks = len(matches)
	}

	var sb strings.Builder
	for i := 0; i < maxChunks; i++ {
		m := matches[i]
		fmt.Fprintf(&sb, "\n\nCONTEXT CHUNK %d [Source: %s, Page: %d]:\n%s",
			i+1, m.Source, m.PageNumber, m.Text)
	}
	return sb.String()
}

// BuildPrompt instructs the model to answer from the supplied context
// only, to admit insufficient information rather than fabricate, and to
// cite source and page.
func BuildPrompt(query string, matches []vectorstore.Match, maxChunks int) string {
	context := FormatContext(matches, maxChunks)

	return fmt.Sprintf(`You are an AI assistant that answers questions based on the provided context.

CONTEXT:
%s

USER QUERY: %s

Answer the query based only on the provided context. If the context doesn't contain relevant information to answer the query, state that you don't have enough information to provide a complete answer. Do not make up information.
Cite the sources (document name and page number) when providing information from the context.

ANSWER:`, context, query)
}
