package memory

import "github.com/Kartavya-AI/ai-bot/pkg/interfaces"

// FormatEntries keeps id, memory, categories and created_at of each entry.
// Missing categories become an empty list so they encode as [] not null.
func FormatEntries(entries []interfaces.MemoryEntry) []interfaces.MemoryEntry {
	out := make([]interfaces.MemoryEntry, 0, len(entries))
	for _, e := range entries {
		cats := e.Categories
		if cats == nil {
			cats = []string{}
		}
		out = append(out, interfaces.MemoryEntry{
			ID:         e.ID,
			Memory:     e.Memory,
			Categories: cats,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
