package domain

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventListParams_FromQuery(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var p EventListParams
		require.NoError(t, p.FromQuery(url.Values{}))
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, 50, p.Limit)
		assert.Equal(t, 0, p.Offset)
	})

	t.Run("filters", func(t *testing.T) {
		q := url.Values{}
		q.Set("page", "3")
		q.Set("limit", "20")
		q.Set("eventType", "opened")
		q.Set("recipientEmail", "bob")
		q.Set("startDate", "2026-08-01")
		q.Set("endDate", "2026-08-20T12:00:00Z")

		var p EventListParams
		require.NoError(t, p.FromQuery(q))
		assert.Equal(t, 40, p.Offset)
		assert.Equal(t, "opened", p.EventType)
		require.NotNil(t, p.StartDate)
		require.NotNil(t, p.EndDate)
	})

	t.Run("limit over 100 rejected", func(t *testing.T) {
		q := url.Values{}
		q.Set("limit", "101")
		var p EventListParams
		assert.Error(t, p.FromQuery(q))
	})

	t.Run("unknown eventType rejected", func(t *testing.T) {
		q := url.Values{}
		q.Set("eventType", "sparkled")
		var p EventListParams
		assert.Error(t, p.FromQuery(q))
	})

	t.Run("inverted date range rejected", func(t *testing.T) {
		q := url.Values{}
		q.Set("startDate", "2026-08-20")
		q.Set("endDate", "2026-08-01")
		var p EventListParams
		assert.Error(t, p.FromQuery(q))
	})
}

func TestIngestEventRequest_Validate(t *testing.T) {
	req := &IngestEventRequest{
		EventType:      EventBounced,
		RecipientEmail: "  C@X.com ",
	}
	require.NoError(t, req.Validate())
	assert.Equal(t, "c@x.com", req.RecipientEmail)

	t.Run("unknown type", func(t *testing.T) {
		r := &IngestEventRequest{EventType: "nope", RecipientEmail: "c@x.com"}
		assert.Error(t, r.Validate())
	})

	t.Run("missing recipient", func(t *testing.T) {
		r := &IngestEventRequest{EventType: EventBounced}
		assert.Error(t, r.Validate())
	})
}
