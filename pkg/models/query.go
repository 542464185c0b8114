package models

// QueryRequest is a question about one stock symbol.
type QueryRequest struct {
	Question    string `json:"question"`
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name,omitempty"`
}

// SentimentLabel is the coarse sentiment classification of an answer.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
)

// Sentiment pairs a label with a confidence-like score in [0,1].
type Sentiment struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"`
}

// NeutralSentiment is the sentiment attached to every degraded result.
func NeutralSentiment() Sentiment {
	return Sentiment{Label: SentimentNeutral, Score: 0.5}
}

// QueryResult is the answer to one question, produced either by the
// answer-synthesis engine or by one of the degraded paths.
type QueryResult struct {
	Answer      string         `json:"answer"`
	Sentiment   Sentiment      `json:"sentiment"`
	Confidence  float64        `json:"confidence"`
	Sources     []string       `json:"sources"`
	Metrics     map[string]any `json:"metrics"`
	ContextUsed int            `json:"context_used"`
	Error       string         `json:"error,omitempty"`
}

// SourceStatus records the outcome of one provider call. Exactly one of
// Count or Error is set.
type SourceStatus struct {
	Count *int   `json:"count,omitempty"`
	Error string `json:"error,omitempty"`
}

// StatusCount returns a success status carrying a document count.
func StatusCount(n int) SourceStatus {
	return SourceStatus{Count: &n}
}

// StatusError returns a failure status carrying the error message.
func StatusError(err error) SourceStatus {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return SourceStatus{Error: msg}
}

// OK reports whether the provider call succeeded.
func (s SourceStatus) OK() bool { return s.Count != nil }

// Response is the envelope returned for a validated query.
type Response struct {
	QueryResult
	Symbol         string                  `json:"symbol"`
	CompanyName    string                  `json:"company_name"`
	DataSources    map[string]SourceStatus `json:"data_sources"`
	TotalDocuments int                     `json:"total_documents"`
	Timestamp      string                  `json:"timestamp"`
}

// Health component states.
const (
	ComponentOK    = "ok"
	ComponentError = "error"
)

// Health report states.
const (
	HealthHealthy = "healthy"
	HealthError   = "error"
)

// HealthReport describes the static availability of the service's collaborators.
type HealthReport struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  string            `json:"timestamp"`
}
