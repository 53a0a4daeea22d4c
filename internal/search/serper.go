// Package search implements web search through the Serper.dev API.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/transport"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

const serperSearchPath = "/search"

// SerperClient runs Google searches through Serper.dev. Responses are cached
// per (query, num) for the configured TTL.
type SerperClient struct {
	client     *transport.Client
	cache      *cache.Cache
	numResults int
	country    string
	locale     string
	logger     zerolog.Logger
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
}

type serperResponse struct {
	AnswerBox *struct {
		Title   string `json:"title"`
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
	KnowledgeGraph *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"knowledgeGraph"`
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
		Date     string `json:"date"`
	} `json:"organic"`
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"relatedSearches"`
}

// NewSerperClient creates a Serper client on the shared transport
func NewSerperClient(cfg config.SearchConfig, tcfg config.TransportConfig, observer transport.Observer, logger zerolog.Logger) (*SerperClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("SERPER_API_KEY is not set")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://google.serper.dev"
	}

	opts := transport.OptionsFromConfig("serper", baseURL, tcfg)
	opts.Headers = map[string]string{"X-API-KEY": cfg.APIKey}
	opts.Observer = observer

	numResults := cfg.NumResults
	if numResults <= 0 {
		numResults = 10
	}

	var c *cache.Cache
	if cfg.CacheTTL > 0 {
		c = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	return &SerperClient{
		client:     transport.NewClient(opts, logger),
		cache:      c,
		numResults: numResults,
		country:    cfg.Country,
		locale:     cfg.Locale,
		logger:     logger.With().Str("search", "serper").Logger(),
	}, nil
}

// Search runs query and returns up to num organic results; num <= 0 uses the
// configured default
func (s *SerperClient) Search(ctx context.Context, query string, num int) (*interfaces.WebSearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if num <= 0 {
		num = s.numResults
	}

	key := fmt.Sprintf("%d:%s", num, query)
	if s.cache != nil {
		if hit, ok := s.cache.Get(key); ok {
			s.logger.Debug().Str("query", query).Msg("search cache hit")
			return hit.(*interfaces.WebSearchResponse), nil
		}
	}

	req := serperRequest{Q: query, Num: num, GL: s.country, HL: s.locale}
	var resp serperResponse
	start := time.Now()
	if err := s.client.PostJSON(ctx, serperSearchPath, req, &resp); err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	out := toWebSearchResponse(query, &resp, num)
	s.logger.Debug().
		Str("query", query).
		Int("results", len(out.Results)).
		Dur("duration", time.Since(start)).
		Msg("web search")

	if s.cache != nil {
		s.cache.SetDefault(key, out)
	}
	return out, nil
}

func toWebSearchResponse(query string, resp *serperResponse, num int) *interfaces.WebSearchResponse {
	out := &interfaces.WebSearchResponse{
		Query:   query,
		Results: make([]interfaces.WebResult, 0, len(resp.Organic)),
	}

	if ab := resp.AnswerBox; ab != nil {
		switch {
		case ab.Answer != "":
			out.Answer = ab.Answer
		case ab.Snippet != "":
			out.Answer = ab.Snippet
		default:
			out.Answer = ab.Title
		}
	}
	if kg := resp.KnowledgeGraph; kg != nil {
		switch {
		case kg.Title != "" && kg.Description != "":
			out.KnowledgeGraph = kg.Title + ": " + kg.Description
		case kg.Title != "":
			out.KnowledgeGraph = kg.Title
		default:
			out.KnowledgeGraph = kg.Description
		}
	}

	for i, r := range resp.Organic {
		if len(out.Results) >= num {
			break
		}
		pos := r.Position
		if pos == 0 {
			pos = i + 1
		}
		out.Results = append(out.Results, interfaces.WebResult{
			Title:    r.Title,
			Link:     r.Link,
			Snippet:  r.Snippet,
			Position: pos,
			Date:     r.Date,
		})
	}

	for _, rs := range resp.RelatedSearches {
		if rs.Query != "" {
			out.Related = append(out.Related, rs.Query)
		}
	}
	return out
}
