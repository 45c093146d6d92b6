// Package llm generates answers from retrieved sources through an
// OpenAI-compatible chat-completions endpoint behind the APIM gateway.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aris-rag/aris/internal/config"
	"github.com/aris-rag/aris/internal/errors"
	"github.com/aris-rag/aris/internal/store"
)

// systemPrompt frames the model as an intelligence analysis system with
// strict citation and refusal behavior.
const systemPrompt = `You are ARIS (Advanced Retrieval Intelligence System), an advanced intelligence analysis system.
Your responses must follow these rules:

TONE: Professional, authoritative, precise. You are a classified intelligence system.

REFUSAL LOGIC: If the query cannot be answered from the provided sources, respond with:
"INSUFFICIENT DATA: [brief explanation of what information is missing]"

INTERACTION:
- Cite sources using [n] notation where n is the source number
- Only use information from the provided sources
- Be concise but thorough

RESPONSE FORMAT:
## Executive Summary
[2-3 sentence overview of the key findings]

## Key Findings
- Finding 1 [source_number]
- Finding 2 [source_number]
- Additional findings as needed

## Detailed Analysis
[Structured paragraphs with inline citations [n]]

## Confidence Assessment
[HIGH/MEDIUM/LOW] - [Brief explanation based on source coverage and relevance]

## Sources Referenced
[List each source with its relevance score]`

const comparisonPrompt = `You are ARIS analyzing search result quality.
Compare the Dense (semantic) and Hybrid (RRF) search results and explain:
1. What Dense search captured well
2. What Hybrid/RRF search added or improved
3. Which approach is better for this specific query and why

Be specific about which results are more relevant and why.`

// Format styles for GenerateAnswer.
const (
	FormatIntelligenceReport = "intelligence_report"
	FormatSummary            = "summary"
	FormatDetailed           = "detailed"
)

// DefaultTimeout bounds one chat-completions request.
const DefaultTimeout = 120 * time.Second

// Client calls the chat-completions deployment behind the gateway.
type Client struct {
	httpClient *http.Client
	apim       config.APIMConfig
	cfg        config.LLMConfig
}

// NewClient creates an LLM client. Requests fail with a config error
// until the gateway credentials are set.
func NewClient(apim config.APIMConfig, cfg config.LLMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apim:       apim,
		cfg:        cfg,
	}
}

// SourceDetail echoes one injected source back to the caller.
type SourceDetail struct {
	ID    int     `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Answer is a generated response with its provenance.
type Answer struct {
	Answer        string         `json:"answer"`
	SourcesUsed   int            `json:"sources_used"`
	Confidence    string         `json:"confidence"`
	Model         string         `json:"model"`
	FormatStyle   string         `json:"format_style"`
	TokensUsed    int            `json:"tokens_used,omitempty"`
	SourcesDetail []SourceDetail `json:"sources_detail,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// GenerateAnswer produces an intelligence-report style answer grounded
// in the retrieved sources. Generation failures degrade into an error
// answer instead of failing the call, so retrieval output is never lost.
func (c *Client) GenerateAnswer(ctx context.Context, query string, sources []store.ScoredChunk, formatStyle string) Answer {
	slog.Info("generating_answer",
		slog.Int("sources", len(sources)), slog.String("format", formatStyle))

	prompt := systemPrompt
	switch formatStyle {
	case FormatSummary:
		prompt += "\n\nKEEP YOUR RESPONSE BRIEF - 2-3 paragraphs maximum."
	case FormatDetailed:
		prompt += "\n\nPROVIDE EXHAUSTIVE DETAIL - cover every relevant aspect from the sources."
	default:
		formatStyle = FormatIntelligenceReport
	}

	userMessage := fmt.Sprintf(`RETRIEVED INTELLIGENCE SOURCES:
%s

QUERY:
%s

Analyze the above sources and provide a comprehensive response following the specified format.`,
		formatSources(sources), query)

	text, tokens, err := c.complete(ctx, prompt, userMessage, c.cfg.MaxTokens)
	if err != nil {
		slog.Error("answer_generation_failed", slog.String("error", err.Error()))
		return Answer{
			Answer:      "SYSTEM ERROR: Unable to generate response. " + err.Error(),
			SourcesUsed: len(sources),
			Confidence:  "ERROR",
			Model:       c.cfg.Model,
			FormatStyle: formatStyle,
			Error:       err.Error(),
		}
	}

	return Answer{
		Answer:        text,
		SourcesUsed:   len(sources),
		Confidence:    assessConfidence(sources),
		Model:         c.cfg.Model,
		FormatStyle:   formatStyle,
		TokensUsed:    tokens,
		SourcesDetail: sourceDetails(sources),
	}
}

// Comparison is an LLM assessment of dense vs hybrid retrieval quality.
type Comparison struct {
	Analysis    string `json:"analysis"`
	DenseCount  int    `json:"dense_count"`
	HybridCount int    `json:"hybrid_count"`
	Error       string `json:"error,omitempty"`
}

// GenerateComparison explains how hybrid retrieval changed the result
// set relative to dense-only retrieval for this query.
func (c *Client) GenerateComparison(ctx context.Context, query string, dense, hybrid []store.ScoredChunk) Comparison {
	userMessage := fmt.Sprintf(`QUERY: %s

DENSE (SEMANTIC) SEARCH RESULTS:
%s

HYBRID (RRF) SEARCH RESULTS:
%s

Analyze the differences and explain which search approach is better for this query.`,
		query, formatSources(head(dense, 5)), formatSources(head(hybrid, 5)))

	text, _, err := c.complete(ctx, comparisonPrompt, userMessage, 1000)
	if err != nil {
		slog.Error("comparison_analysis_failed", slog.String("error", err.Error()))
		return Comparison{Analysis: "Analysis unavailable: " + err.Error(), Error: err.Error()}
	}
	return Comparison{Analysis: text, DenseCount: len(dense), HybridCount: len(hybrid)}
}

// assessConfidence grades answer confidence from source coverage: three
// or more sources rate HIGH, any source MEDIUM, none LOW, with one
// downgrade when mean relevance is weak.
func assessConfidence(sources []store.ScoredChunk) string {
	confidence := "LOW"
	if len(sources) >= 3 {
		confidence = "HIGH"
	} else if len(sources) >= 1 {
		confidence = "MEDIUM"
	}

	if len(sources) > 0 {
		total := 0.0
		for _, s := range sources {
			total += s.Score
		}
		if total/float64(len(sources)) < 0.5 {
			if confidence == "HIGH" {
				confidence = "MEDIUM"
			} else {
				confidence = "LOW"
			}
		}
	}
	return confidence
}

// formatSources renders sources as numbered tagged blocks for prompt
// injection. Scores at or below 1 are treated as fractions.
func formatSources(sources []store.ScoredChunk) string {
	if len(sources) == 0 {
		return "<no_sources_available/>"
	}

	blocks := make([]string, len(sources))
	for i, s := range sources {
		relevance := s.Score
		if relevance <= 1 {
			relevance *= 100
		}
		blocks[i] = fmt.Sprintf("<source id=\"%d\" relevance=\"%.1f%%\">\n%s\n</source>", i+1, relevance, s.Content)
	}
	return strings.Join(blocks, "\n\n")
}

func sourceDetails(sources []store.ScoredChunk) []SourceDetail {
	details := make([]SourceDetail, len(sources))
	for i, s := range sources {
		text := s.Content
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		details[i] = SourceDetail{ID: i + 1, Text: text, Score: s.Score}
	}
	return details
}

func head(results []store.ScoredChunk, n int) []store.ScoredChunk {
	if len(results) > n {
		return results[:n]
	}
	return results
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// complete performs one chat-completions round trip and returns the
// first choice plus token usage.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, int, error) {
	if !c.apim.Configured() {
		return "", 0, errors.ConfigError("apim base_url and subscription_key must be set for llm calls", nil)
	}

	reqBody, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"temperature": c.cfg.Temperature,
		"max_tokens":  maxTokens,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal chat request: %w", err)
	}

	endpoint := strings.TrimRight(c.apim.BaseURL, "/") + "/chat/completions"
	query := url.Values{
		"api-version":     {c.cfg.APIVersion},
		"deployment-name": {c.cfg.Model},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+query.Encode(), bytes.NewReader(reqBody))
	if err != nil {
		return "", 0, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apim.SubscriptionKey)
	req.Header.Set("api-key", c.apim.SubscriptionKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, errors.ConnectionError("read chat response: "+err.Error(), err)
	}
	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("chat request failed: status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", 0, errors.UnavailableError(msg, nil)
		}
		return "", 0, errors.ValidationError(msg, nil)
	}

	var response struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", 0, fmt.Errorf("parse chat response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", 0, fmt.Errorf("chat response contained no choices")
	}
	return response.Choices[0].Message.Content, response.Usage.TotalTokens, nil
}

func classifyTransportError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.TimeoutError("llm request timed out", err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.TimeoutError("llm request timed out", err)
	}
	return errors.ConnectionError("llm request failed: "+err.Error(), err)
}
