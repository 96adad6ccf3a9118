package dashboard

import (
	"net/url"

	"github.com/maxviazov/care-events-dashboard/internal/model"
)

// Paths the rendered screen points at.
const (
	DashboardPath = "/dashboard"
	DetailPath    = "/detail"
	StreamPath    = DashboardPath + "/stream"
)

// NoDataText marks an empty listing.
const NoDataText = "No Data"

// Columns are the table headers, in display order.
var Columns = []string{"Caregiver Recipient", "Visit ID", "Event Type", "Time"}

// Row is one rendered event. Key is the event id.
type Row struct {
	Key             string `json:"key"`
	CareRecipientID string `json:"care_recipient_id"`
	VisitID         string `json:"visit_id"`
	EventType       string `json:"event_type"`
	Timestamp       string `json:"timestamp"`
	DetailLink      string `json:"detail_link"`
}

// View is everything the dashboard template needs.
type View struct {
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle"`
	FilterAction string   `json:"filter_action"`
	Page         string   `json:"page"`
	Limit        string   `json:"limit"`
	Loading      bool     `json:"loading"`
	Message      string   `json:"message,omitempty"`
	Columns      []string `json:"columns,omitempty"`
	Rows         []Row    `json:"rows,omitempty"`
	Empty        bool     `json:"empty"`
	NoData       string   `json:"no_data,omitempty"`
	Revision     uint64   `json:"revision"`
	// Total counts every stored event, not just the rows of this page.
	Total int `json:"total"`
	// StreamURL is the server-sent events feed of this same window; the loader follows it
	// until the fetch settles.
	StreamURL string `json:"stream_url"`
}

func streamURL(q model.PaginationQuery) string {
	return StreamPath + "?" + url.Values{FieldPage: {q.Page}, FieldLimit: {q.Limit}}.Encode()
}

// BuildView renders a state into a view. While loading only the loader is shown and the
// table is left out entirely, even though the previous list is still held. Otherwise the table
// has one row per event in received order, or just the header plus the "No Data" marker.
func BuildView(st State) View {
	v := View{
		Title:        "Dashboard",
		Subtitle:     "All your records in one place",
		FilterAction: DashboardPath,
		Page:         st.Query.Page,
		Limit:        st.Query.Limit,
		Loading:      st.Load.Loading,
		Message:      st.Load.Message,
		Revision:     st.Revision,
		StreamURL:    streamURL(st.Query),
	}
	if v.Loading {
		return v
	}

	v.Columns = Columns
	v.Total = st.Total
	if len(st.Events) == 0 {
		v.Empty = true
		v.NoData = NoDataText
		return v
	}
	v.Rows = make([]Row, 0, len(st.Events))
	for _, e := range st.Events {
		v.Rows = append(v.Rows, Row{
			Key:             e.Payload.ID,
			CareRecipientID: e.Payload.CareRecipientID,
			VisitID:         e.Payload.VisitID,
			EventType:       e.Payload.EventType,
			Timestamp:       e.Payload.Timestamp,
			DetailLink:      DetailLink(e.Payload),
		})
	}
	return v
}

// Collect is a convenience for the common case: the current state of s as a view.
func Collect(s *Screen) View {
	return BuildView(s.State())
}
