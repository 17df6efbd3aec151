package chat

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

// Listing limits keep chat replies readable.
const (
	maxOutletRows     = 10
	maxHoursRows      = 3
	maxReplyColors    = 3
	descriptionCutoff = 100
)

var nameIntroPattern = regexp.MustCompile(`(?i)(?:my name is|i'?m|i am)\s+(\w+)`)

// Responder renders tool output as conversational text. The free-form chat
// fallback runs without a language model, so it answers from a fixed
// repertoire plus whatever names it can recall from session history.
type Responder struct {
	defaultReplies []string
	next           atomic.Uint64
}

// NewResponder creates a responder with the stock reply rotation.
func NewResponder() *Responder {
	return &Responder{
		defaultReplies: []string{
			"Hello! I'm a helpful AI assistant for ZUS Coffee. How can I help you today?",
			"I'd be happy to help you with that!",
			"That's a great question. Let me assist you with information about ZUS Coffee.",
			"I can help you find ZUS Coffee outlets, learn about our products, or answer any questions you have.",
		},
	}
}

// ProductReply renders retrieval results as a numbered product listing.
func (r *Responder) ProductReply(results []retrieval.Result) string {
	if len(results) == 0 {
		return "I couldn't find any products matching your query. We have tumblers, bottles, mugs, and other drinkware available."
	}

	parts := []string{fmt.Sprintf("I found %d products that match your query:\n", len(results))}
	for i, res := range results {
		p := res.Product
		parts = append(parts,
			fmt.Sprintf("\n%d. **%s**", i+1, p.Name),
			fmt.Sprintf("   - Price: RM %.2f", p.PriceMYR),
			fmt.Sprintf("   - Capacity: %dml", p.CapacityML),
			fmt.Sprintf("   - Material: %s", p.Material),
		)

		if len(p.Colors) > 0 {
			colors := p.Colors
			if len(colors) > maxReplyColors {
				colors = colors[:maxReplyColors]
			}
			parts = append(parts, "   - Colors: "+strings.Join(colors, ", "))
		}

		if p.Description != "" {
			desc := p.Description
			if len(desc) > descriptionCutoff {
				desc = desc[:descriptionCutoff] + "..."
			}
			parts = append(parts, "   - Description: "+desc)
		}

		if !p.InStock {
			parts = append(parts, "   - **Currently out of stock**")
		}
	}

	return strings.Join(parts, "\n")
}

// OutletReply renders an outlet query outcome, including the apologies for
// unknown locations and empty results.
func (r *Responder) OutletReply(result *text2sql.QueryResult) string {
	t := result.Translation

	if !t.Valid {
		location := t.Location
		if location == "" {
			location = "that location"
		}
		return fmt.Sprintf("I couldn't find '%s' in our database. Please try cities like Kuala Lumpur, Petaling Jaya, Selangor, or Putrajaya.", location)
	}

	if t.QueryType == text2sql.QueryTypeCount {
		return fmt.Sprintf("There are **%d outlets** in %s.", result.Count, t.Location)
	}

	if len(result.Outlets) == 0 {
		return noOutletsReply(t)
	}

	if t.QueryType == text2sql.QueryTypeOperatingHours {
		return operatingHoursReply(result.Outlets)
	}

	return outletListReply(result.Outlets, t.Location)
}

// ChatReply is the no-tool fallback: greetings, name recall and a rotating
// set of stock answers.
func (r *Responder) ChatReply(message string, history []Message) string {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "what") && strings.Contains(lower, "name") {
		if m := nameIntroPattern.FindStringSubmatch(historyText(history)); m != nil {
			return fmt.Sprintf("Your name is %s! I remember you mentioned that.", capitalize(m[1]))
		}
		return "I don't recall you mentioning your name. What is it?"
	}

	if m := nameIntroPattern.FindStringSubmatch(message); m != nil {
		return fmt.Sprintf("Hello %s! Nice to meet you. I'll remember your name. How can I help you today?", capitalize(m[1]))
	}

	for _, greeting := range []string{"hello", "hi", "hey"} {
		if strings.Contains(lower, greeting) {
			return "Hello! I'm a helpful AI assistant for ZUS Coffee. How can I help you today?"
		}
	}

	n := r.next.Add(1) - 1
	return r.defaultReplies[n%uint64(len(r.defaultReplies))]
}

func noOutletsReply(t text2sql.Translation) string {
	switch t.QueryType {
	case text2sql.QueryTypeLocation:
		location := t.Location
		if location == "" {
			location = "that location"
		}
		return fmt.Sprintf("I couldn't find any outlets in %s. Try searching in Kuala Lumpur, Petaling Jaya, or Selangor.", location)
	case text2sql.QueryTypeDriveThru, text2sql.QueryTypeLocationDriveThru:
		return "I couldn't find any outlets with drive-through service."
	case text2sql.QueryTypeWifi, text2sql.QueryTypeLocationWifi:
		return "I couldn't find any outlets with WiFi."
	case text2sql.QueryTypeOperatingHours:
		outlet := t.OutletName
		if outlet == "" {
			outlet = "that outlet"
		}
		return fmt.Sprintf("I couldn't find operating hours for '%s'. Try using the full outlet name or address.", outlet)
	default:
		return "I couldn't find any outlets matching your query."
	}
}

func operatingHoursReply(outlets []storage.Outlet) string {
	parts := []string{"Here are the operating hours:\n"}
	for i, o := range outlets {
		if i >= maxHoursRows {
			break
		}
		parts = append(parts,
			fmt.Sprintf("\n**%s** (%s)", o.Name, o.City),
			"Hours: "+stringOrEmpty(o.OperatingHours),
		)
	}
	return strings.Join(parts, "\n")
}

func outletListReply(outlets []storage.Outlet, location string) string {
	locationInfo := ""
	if location != "" {
		locationInfo = " in " + location
	}

	plural := "s"
	if len(outlets) == 1 {
		plural = ""
	}
	parts := []string{fmt.Sprintf("I found **%d outlet%s**%s:\n", len(outlets), plural, locationInfo)}

	for i, o := range outlets {
		if i >= maxOutletRows {
			break
		}

		parts = append(parts,
			fmt.Sprintf("\n%d. **%s**", i+1, o.Name),
			fmt.Sprintf("   Address: %s, %s", o.Address, o.City),
		)

		if phone := stringOrEmpty(o.Phone); phone != "" {
			parts = append(parts, "   Phone: "+phone)
		}
		if hours := stringOrEmpty(o.OperatingHours); hours != "" {
			parts = append(parts, "   Hours: "+hours)
		}

		var features []string
		if o.HasDriveThru {
			features = append(features, "Drive-Through")
		}
		if o.HasWifi {
			features = append(features, "WiFi")
		}
		if len(features) > 0 {
			parts = append(parts, "   Features: "+strings.Join(features, ", "))
		}
	}

	if len(outlets) > maxOutletRows {
		parts = append(parts, fmt.Sprintf("\n... and %d more outlets.", len(outlets)-maxOutletRows))
	}

	return strings.Join(parts, "\n")
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
