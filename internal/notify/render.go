package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/OpenDataAtlas/ODA-Backend/internal/catalog"
)

// category is one fixed section of the rendered message. Order of the
// categories slice is the order sections appear in: approved sources, then
// completed requests, then ready-to-start requests.
type category struct {
	entityType    catalog.EntityType
	eventType     EventType
	singularTitle string
	pluralTitle   string
	singularIntro string
	pluralIntro   string
	path          string
}

var categories = []category{
	{
		entityType:    catalog.EntityDataSource,
		eventType:     EventApproved,
		singularTitle: "New Data Source",
		pluralTitle:   "New Data Sources",
		singularIntro: "The following data source was approved:",
		pluralIntro:   "The following data sources were approved:",
		path:          "data-sources",
	},
	{
		entityType:    catalog.EntityDataRequest,
		eventType:     EventComplete,
		singularTitle: "Completed Data Request",
		pluralTitle:   "Completed Data Requests",
		singularIntro: "The following data request was completed:",
		pluralIntro:   "The following data requests were completed:",
		path:          "data-requests",
	},
	{
		entityType:    catalog.EntityDataRequest,
		eventType:     EventReadyToStart,
		singularTitle: "Data Request Ready to Start",
		pluralTitle:   "Data Requests Ready to Start",
		singularIntro: "The following data request was marked ready to start:",
		pluralIntro:   "The following data requests were marked ready to start:",
		path:          "data-requests",
	},
}

// Renderer turns an EventBatch into parallel HTML and plain-text bodies.
// Pure: both outputs derive from the batch and the base URL alone.
type Renderer struct {
	BaseURL string
}

// Render partitions the batch into the fixed categories, drops empty ones,
// and emits singular/plural-correct sections in both formats.
func (r Renderer) Render(batch *EventBatch) (htmlBody, textBody string, err error) {
	if batch == nil || len(batch.Events) == 0 {
		return "", "", ErrEmptyBatch
	}

	base := strings.TrimRight(r.BaseURL, "/")

	var hb, tb strings.Builder
	hb.WriteString("<html>\n<body>\n")
	tb.WriteString("You have new notifications from locations you follow.\n")

	for _, cat := range categories {
		var events []EventInfo
		for _, e := range batch.Events {
			if e.EntityType == cat.entityType && e.EventType == cat.eventType {
				events = append(events, e)
			}
		}
		if len(events) == 0 {
			continue
		}

		title, intro := cat.singularTitle, cat.singularIntro
		if len(events) > 1 {
			title, intro = cat.pluralTitle, cat.pluralIntro
		}

		hb.WriteString("<h2>" + html.EscapeString(title) + "</h2>\n")
		hb.WriteString("<p>" + html.EscapeString(intro) + "</p>\n<ul>\n")

		tb.WriteString("\n" + title + "\n\n")
		tb.WriteString(intro + "\n")

		for _, e := range events {
			link := fmt.Sprintf("%s/%s/%s", base, cat.path, e.EntityID)
			hb.WriteString(fmt.Sprintf("<li><a href=%q>%s</a></li>\n",
				link, html.EscapeString(e.EntityName)))
			tb.WriteString(fmt.Sprintf("- %s: %s\n", e.EntityName, link))
		}
		hb.WriteString("</ul>\n")
	}

	hb.WriteString("</body>\n</html>\n")
	return hb.String(), tb.String(), nil
}
