// Package notify renders accepted postings and delivers them to Slack.
package notify

import (
	"context"
	"strconv"
	"strings"

	"github.com/ppiankov/roomwatch/internal/model"
)

// Sender delivers a message to a channel. Delivery is best effort.
type Sender interface {
	Send(ctx context.Context, channel, text string) error
}

// Format renders p as "<area> | <price> | <transit km> | <title> | <<url>>".
// Every field is always present; unknown values render as empty strings.
func Format(p model.EnrichedPosting) string {
	price := ""
	if p.HasPrice() {
		price = oneLine(p.Price)
		if price == "" {
			price = "$" + strconv.FormatFloat(p.PriceValue, 'f', -1, 64)
		}
	}

	distance := ""
	if p.HasTransitDistance() {
		distance = strconv.FormatFloat(p.TransitDistance, 'f', 2, 64)
	}

	return strings.Join([]string{
		oneLine(p.Area),
		price,
		distance,
		oneLine(p.Title),
		"<" + oneLine(p.URL) + ">",
	}, " | ")
}

// oneLine collapses whitespace and replaces the field separator so the
// message always splits into five fields
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "|", "/")
	return strings.Join(strings.Fields(s), " ")
}
