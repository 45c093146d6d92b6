// Package data holds the preloaded demonstration datasets, including
// the similarity-vs-relevance trap corpus.
package data

import (
	"sort"
	"strings"
)

// Dataset is one preloaded document.
type Dataset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Text        string `json:"-"`
}

// TrapChunk is one entry of the trap corpus with its classification.
type TrapChunk struct {
	Content     string `json:"content"`
	IsTrap      bool   `json:"is_trap"`
	Explanation string `json:"explanation"`
}

// Trap is the similarity-vs-relevance demonstration corpus: half the
// chunks score high on embedding similarity to the canonical query
// without containing useful information.
type Trap struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Query       string      `json:"query"`
	Chunks      []TrapChunk `json:"chunks"`
}

var preloaded = map[string]Dataset{
	"rag_intro": {
		Name:        "RAG Overview",
		Description: "Comprehensive introduction to Retrieval-Augmented Generation",
		Text: `Retrieval-Augmented Generation (RAG) combines retrieval systems with generative language models.
You first index documents into a vector store. At query time, you retrieve the most relevant chunks
and pass them as context to the LLM. This reduces hallucination and keeps answers grounded in your data.

Chunking strategies matter: too small chunks lose context, too large add noise. Common strategies include
fixed-size character splitting, recursive character splitting on separators, and semantic chunking.
Recursive character splitting is often the best default choice, as it respects document structure.

Embeddings turn text into dense vectors. Popular embedding models include OpenAI's text-embedding-3,
Cohere's embed-v3, and open-source models like NVIDIA's nv-embed-v1. Each model has different dimensions:
1536 for OpenAI, 1024 for Cohere, and 4096 for NVIDIA. Higher dimensions can capture more nuance but
require more storage and computation.

Similarity search finds the nearest vectors by cosine similarity, dot product, or Euclidean distance.
Cosine similarity is most common as it normalizes for vector magnitude. The choice of metric affects results.

Hybrid search combines dense (semantic) and sparse (keyword, e.g. BM25) retrieval. BM25 uses term frequency
and inverse document frequency to rank documents. Dense search captures semantic meaning but can miss exact
keyword matches. Combining both with Reciprocal Rank Fusion (RRF) gives the best of both worlds.

RRF formula: score = sum(1 / (k + rank)) where k is typically 60. This gives higher weight to top-ranked
results from either search method.`,
	},
	"api_security": {
		Name:        "API Security Best Practices",
		Description: "Comprehensive guide to securing REST APIs",
		Text: `To secure an API, use HTTPS everywhere and validate all inputs. Never trust user input - sanitize and validate
everything. Implement strong authentication using OAuth2, API keys, or JWT tokens. Use refresh tokens with
short expiration times (15 minutes for access tokens, days for refresh tokens).

Authorization is equally important. Implement Role-Based Access Control (RBAC) or Attribute-Based Access
Control (ABAC). Apply the principle of least privilege - give users only the permissions they need.

Rate limiting and throttling prevent abuse and DDoS attacks. Implement per-user and per-IP rate limits.
Use exponential backoff for retries. Consider using a WAF (Web Application Firewall) for additional protection.

Store secrets in a vault like HashiCorp Vault or AWS Secrets Manager, never in code or environment variables
that might be exposed. Rotate secrets regularly. Use encryption at rest and in transit.

Log and monitor access for anomalies. Implement audit trails for sensitive operations. Use SIEM systems
for real-time threat detection. Set up alerts for unusual patterns like repeated failed authentication attempts.

API versioning helps maintain backward compatibility. Use semantic versioning and deprecation policies.
Document your API thoroughly with OpenAPI/Swagger specifications.

For GraphQL APIs, implement query depth limiting and complexity analysis to prevent resource exhaustion attacks.
Disable introspection in production.`,
	},
	"chunking_strategies": {
		Name:        "Chunking Strategies Deep Dive",
		Description: "Detailed explanation of different chunking approaches",
		Text: `Chunking is the process of splitting documents into smaller pieces for indexing and retrieval.
The right chunking strategy can significantly impact RAG quality.

Fixed-size character chunking splits text at fixed intervals (e.g., every 500 characters).
It's simple but often breaks mid-sentence or mid-paragraph, losing context. Best avoided for most use cases.

Recursive character chunking splits on separators in order of priority: paragraphs, sentences,
commas, and spaces. This preserves natural text boundaries while maintaining consistent chunk sizes.
It's the most commonly recommended strategy and works well for most documents.

Semantic chunking uses embeddings to identify topic boundaries. It creates chunks based on semantic
similarity rather than character count. This produces more coherent chunks but requires more computation.
Good for documents with varied topics or complex structure.

Document structure-aware chunking respects markdown headers, HTML tags, or code blocks. It keeps
related content together and is essential for technical documentation or code files.

Overlap is crucial - chunks should overlap by 10-20% to ensure context isn't lost at boundaries.
A chunk size of 500-1000 characters with 100-200 character overlap works well for most use cases.

Consider your retrieval use case: Q&A benefits from smaller chunks (300-500 chars), while summarization
needs larger chunks (1000-2000 chars) for broader context.`,
	},
	"embedding_models": {
		Name:        "Understanding Embedding Models",
		Description: "Guide to different embedding models and their characteristics",
		Text: `Embedding models convert text into dense numerical vectors that capture semantic meaning.
Different models have different strengths, dimensions, and performance characteristics.

OpenAI's text-embedding-3 family (small: 1536d, large: 3072d) offers excellent quality and is widely used.
The large model captures more nuance but is slower and more expensive. Both support dimensionality reduction.

Cohere's embed-v3 (1024d) is optimized for search and retrieval tasks. It supports multiple languages
and has specialized modes for different use cases (search_document, search_query, classification, clustering).
Available via AWS Bedrock for enterprise deployments.

NVIDIA's nv-embed-v1 (4096d) is an open-source model with very high dimensionality. It excels at
capturing fine-grained semantic distinctions but requires more storage and computation.
Available via NVIDIA's NIM API for free usage.

When choosing an embedding model, consider:
1. Dimension size - higher dimensions capture more information but cost more to store and search
2. Language support - some models work better with specific languages
3. Task optimization - models may be trained for search, clustering, or classification
4. Latency requirements - larger models are slower
5. Cost - API pricing varies significantly

Always embed your query with the same model used to embed documents. Mixing models produces incompatible
vectors and poor search results.

For production, consider fine-tuning embeddings on your domain data for better performance.`,
	},
	"vector_databases": {
		Name:        "Vector Database Overview",
		Description: "Understanding vector databases for RAG applications",
		Text: `Vector databases are specialized systems for storing and searching high-dimensional vectors.
They're essential for RAG applications that need to find semantically similar content quickly.

Qdrant is a high-performance vector database written in Rust. It supports filtering, payload storage,
and multiple distance metrics (cosine, dot product, Euclidean). Qdrant Cloud offers managed hosting.

Pinecone is a fully managed vector database with excellent scaling and low latency. It supports
metadata filtering and namespaces for multi-tenant applications. Good for production deployments.

Weaviate is an open-source vector database with built-in ML modules. It supports hybrid search
combining vector and keyword search. Good for complex queries and data relationships.

Milvus is designed for massive scale with support for billions of vectors. It offers multiple
index types (IVF, HNSW, ANNOY) and supports GPU acceleration. Best for large-scale deployments.

ChromaDB is lightweight and developer-friendly. Great for prototyping and small projects.
Supports local and server modes with simple Python/JavaScript APIs.

When choosing a vector database, consider:
1. Scale - how many vectors do you need to store?
2. Latency requirements - milliseconds matter for real-time applications
3. Filtering needs - can you filter on metadata alongside vector search?
4. Deployment model - managed vs self-hosted
5. Cost - pricing models vary significantly`,
	},
	"hybrid_search_details": {
		Name:        "Hybrid Search and RRF Explained",
		Description: "Deep dive into hybrid search and Reciprocal Rank Fusion",
		Text: `Hybrid search combines multiple retrieval methods to improve search quality.
The most common combination is dense (semantic) search with sparse (keyword) search.

Dense search uses embedding vectors to find semantically similar content. It understands meaning
and context - "automobile" matches "car" even without exact word overlap. However, it can miss
exact keyword matches that users expect.

Sparse search uses term frequency methods like BM25 (Best Match 25). It excels at exact keyword
matching and handles rare terms well. BM25 considers term frequency, inverse document frequency,
and document length normalization. It's fast and interpretable but misses semantic relationships.

Reciprocal Rank Fusion (RRF) combines results from multiple retrieval methods. The formula is:
RRF_score = sum(1 / (k + rank)) where k is typically 60.

Why k=60? This constant dampens the impact of rank differences. With k=60:
- Rank 1: score = 1/61 = 0.0164
- Rank 2: score = 1/62 = 0.0161
- Rank 10: score = 1/70 = 0.0143

Results appearing in both dense and sparse top-k get their scores summed, boosting their final rank.
This naturally promotes results that satisfy both semantic and keyword criteria.

Example: If a document ranks #1 in dense search and #3 in sparse search:
RRF_score = 1/61 + 1/63 = 0.0164 + 0.0159 = 0.0323

A document ranking #2 in only dense search: RRF_score = 1/62 = 0.0161

The document appearing in both lists ranks higher despite not being #1 in either.

Hybrid search is particularly valuable when:
1. Users mix conceptual queries with specific terms
2. Your corpus contains technical jargon or acronyms
3. You need high recall without sacrificing precision`,
	},
}

var trap = Trap{
	Name:        "Similarity vs Relevance (Trap)",
	Description: "Chunks designed to demonstrate the gap between similarity and relevance",
	Query:       "How to secure an API",
	Chunks: []TrapChunk{
		{
			Content:     "A secure API is hard to build, unlike an insecure API which is easy. Many developers forget to secure their API.",
			IsTrap:      true,
			Explanation: "High similarity to 'secure API' but no actionable advice",
		},
		{
			Content:     "This document mentions the word API and secure many times. API security is important. Secure your API with care.",
			IsTrap:      true,
			Explanation: "Keyword-stuffed but content-free",
		},
		{
			Content:     "The API was secure from external threats. The secure API connection ensured data safety.",
			IsTrap:      true,
			Explanation: "Uses target words in different context",
		},
		{
			Content:     "To secure an API, implement HTTPS, input validation, OAuth2 authentication, rate limiting, and proper secret management.",
			IsTrap:      false,
			Explanation: "Actually relevant - provides concrete steps",
		},
		{
			Content:     "Best practices for API security include authentication, authorization, encryption in transit, audit logging, and regular security testing.",
			IsTrap:      false,
			Explanation: "Actually relevant - comprehensive security advice",
		},
		{
			Content:     "Building secure APIs requires understanding common vulnerabilities like injection attacks, broken authentication, and sensitive data exposure.",
			IsTrap:      false,
			Explanation: "Actually relevant - discusses real security concerns",
		},
	},
}

// Datasets returns the preloaded datasets keyed by id.
func Datasets() map[string]Dataset {
	return preloaded
}

// DatasetText returns the text of a preloaded dataset, or "" for an
// unknown id.
func DatasetText(id string) string {
	return preloaded[id].Text
}

// TrapDataset returns the trap corpus metadata.
func TrapDataset() Trap {
	return trap
}

// TrapText returns the trap corpus as one document: three paragraph
// lines of traps, then three of genuinely relevant content.
func TrapText() string {
	lines := make([]string, 0, len(trap.Chunks)+1)
	for i, c := range trap.Chunks {
		if i == 3 {
			lines = append(lines, "")
		}
		lines = append(lines, c.Content)
	}
	return strings.Join(lines, "\n")
}

// CombinedText joins every preloaded dataset and the trap corpus into
// one document for full-corpus indexing. Order is deterministic.
func CombinedText() string {
	ids := make([]string, 0, len(preloaded))
	for id := range preloaded {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	texts := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		texts = append(texts, preloaded[id].Text)
	}
	texts = append(texts, TrapText())
	return strings.Join(texts, "\n\n---\n\n")
}
