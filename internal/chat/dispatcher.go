package chat

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

// Tool identifies which backend produced a reply.
type Tool string

const (
	ToolProducts   Tool = "products"
	ToolCalculator Tool = "calculator"
	ToolOutlets    Tool = "outlets"
	ToolChat       Tool = "chat"
)

// Reply is the outcome of one dispatched exchange.
type Reply struct {
	Text         string `json:"response"`
	Tool         Tool   `json:"tool"`
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
}

// UsageSink records which tool served each exchange.
type UsageSink interface {
	Record(tool string)
}

// Dispatcher routes each utterance to one tool, renders the reply and
// appends the exchange to the session.
type Dispatcher struct {
	sessions    *Store
	outlets     *text2sql.Service
	products    *retrieval.Index
	calculator  Calculator
	classifier  *intentClassifier
	responder   *Responder
	usage       UsageSink
	logger      *observability.Logger
	defaultTopK int
}

// NewDispatcher wires the tools behind the chat surface. usage may be nil.
func NewDispatcher(sessions *Store, outlets *text2sql.Service, products *retrieval.Index, usage UsageSink, defaultTopK int, logger *observability.Logger) *Dispatcher {
	if defaultTopK < 1 {
		defaultTopK = 3
	}
	return &Dispatcher{
		sessions:    sessions,
		outlets:     outlets,
		products:    products,
		classifier:  newIntentClassifier(),
		responder:   NewResponder(),
		usage:       usage,
		logger:      logger,
		defaultTopK: defaultTopK,
	}
}

// Sessions exposes the backing session store.
func (d *Dispatcher) Sessions() *Store {
	return d.sessions
}

// Dispatch routes one utterance and returns the reply. Tool failures degrade
// to an apologetic reply rather than an error so the conversation always
// gets an answer.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID, message string) Reply {
	start := time.Now()
	sessionID = d.sessions.GetOrCreate(sessionID)

	tool, expr := d.classifier.classify(message)

	var text string
	switch tool {
	case ToolProducts:
		results := d.products.Search(message, d.defaultTopK)
		text = d.responder.ProductReply(results)
	case ToolCalculator:
		text = d.calculator.Run(expr)
	case ToolOutlets:
		result, err := d.outlets.Query(ctx, message)
		if err != nil {
			d.logger.Error().Err(err).Str("session_id", sessionID).Msg("Outlet query failed")
			text = "I encountered an error while searching for outlets. Please try again."
		} else {
			text = d.responder.OutletReply(result)
		}
	default:
		history, _ := d.sessions.History(sessionID)
		text = d.responder.ChatReply(message, history)
	}

	count := d.sessions.Append(sessionID, message, text)
	if d.usage != nil {
		d.usage.Record(string(tool))
	}

	d.logger.Info().
		Str("session_id", sessionID).
		Str("tool", string(tool)).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("Dispatched chat message")

	return Reply{Text: text, Tool: tool, SessionID: sessionID, MessageCount: count}
}

// intentClassifier decides which tool should answer an utterance. Checks run
// in priority order; product terms win over arithmetic so a price question
// that happens to contain digits still reaches the catalog.
type intentClassifier struct {
	productPatterns []string
	outletPatterns  []string
}

func newIntentClassifier() *intentClassifier {
	return &intentClassifier{
		productPatterns: []string{
			"product",
			"tumbler",
			"bottle",
			"cup",
			"mug",
			"drinkware",
			"buy",
			"purchase",
			"price",
			"available",
			"stock",
		},
		outletPatterns: []string{
			"outlet",
			"store",
			"location",
			"branch",
			"opening hours",
			"operating hours",
			"open",
			"drive-thru",
			"drive thru",
			"drive-through",
			"wifi",
			"kuala lumpur",
			"petaling jaya",
			"subang jaya",
			"shah alam",
			"putrajaya",
			"cyberjaya",
			"george town",
			"penang",
			"johor bahru",
			"selangor",
		},
	}
}

// classify returns the tool for a message. For the calculator it also
// returns the extracted expression.
func (c *intentClassifier) classify(message string) (Tool, string) {
	lower := strings.ToLower(message)

	for _, kw := range c.productPatterns {
		if strings.Contains(lower, kw) {
			return ToolProducts, ""
		}
	}

	if expr := extractExpression(message); expr != "" {
		return ToolCalculator, expr
	}

	for _, kw := range c.outletPatterns {
		if strings.Contains(lower, kw) {
			return ToolOutlets, ""
		}
	}

	return ToolChat, ""
}

var (
	mathCandidate = regexp.MustCompile(`[\d\s+\-*/().]+`)
	hasDigit      = regexp.MustCompile(`\d`)
	hasOperator   = regexp.MustCompile(`[+\-*/]`)
)

// extractExpression pulls the longest calculable substring out of free text,
// with spaces stripped so "what is 5 + 3" yields "5+3". Candidates need at
// least one digit and one operator; an empty return means no expression.
func extractExpression(message string) string {
	longest := ""
	for _, candidate := range mathCandidate.FindAllString(message, -1) {
		cleaned := strings.TrimSpace(candidate)
		if !hasDigit.MatchString(cleaned) || !hasOperator.MatchString(cleaned) {
			continue
		}
		if len(cleaned) > len(longest) {
			longest = cleaned
		}
	}
	return strings.ReplaceAll(longest, " ", "")
}
