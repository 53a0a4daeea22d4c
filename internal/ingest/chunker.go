// Package ingest turns documents into text chunks and upserts them into the
// vector index.
package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the chunk size budget in characters
const DefaultMaxChars = 500

// paragraphSplit separates paragraphs (blank lines) and sentences (". ")
var paragraphSplit = regexp.MustCompile(`\n{2,}|\.\s`)

// Chunker packs paragraphs into chunks of at most MaxChars characters. The
// buffer carries over between Add calls so a chunk can span pages. A single
// paragraph longer than the budget becomes its own oversized chunk.
type Chunker struct {
	maxChars int
	buffer   strings.Builder
	length   int
}

// NewChunker creates a chunker; maxChars <= 0 uses DefaultMaxChars
func NewChunker(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Chunker{maxChars: maxChars}
}

// Add consumes one page of text and returns the chunks it completed
func (c *Chunker) Add(text string) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for _, para := range paragraphSplit.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		n := utf8.RuneCountInString(para)
		if c.length+n <= c.maxChars {
			c.buffer.WriteString(para)
			c.buffer.WriteString(" ")
			c.length += n + 1
			continue
		}
		if chunk := c.take(); chunk != "" {
			chunks = append(chunks, chunk)
		}
		c.buffer.WriteString(para)
		c.buffer.WriteString(" ")
		c.length = n + 1
	}
	return chunks
}

// Flush returns the buffered remainder, or "" when nothing is buffered
func (c *Chunker) Flush() string {
	return c.take()
}

func (c *Chunker) take() string {
	chunk := strings.TrimSpace(c.buffer.String())
	c.buffer.Reset()
	c.length = 0
	return chunk
}

// ChunkPages chunks a whole document
func ChunkPages(pages []string, maxChars int) []string {
	c := NewChunker(maxChars)
	var chunks []string
	for _, page := range pages {
		chunks = append(chunks, c.Add(page)...)
	}
	if last := c.Flush(); last != "" {
		chunks = append(chunks, last)
	}
	return chunks
}
