package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	shared "github.com/pulseboard/server/pkg"
	"github.com/pulseboard/server/pkg/insights"
	"github.com/pulseboard/server/pkg/metrics"
	"github.com/pulseboard/server/pkg/types"
)

// Client wraps a Firestore client with typed collection accessors.
type Client struct {
	fs *firestore.Client
}

func NewClient(ctx context.Context, projectID string) (*Client, error) {
	fs, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Client{fs: fs}, nil
}

func NewClientFromFirestore(fs *firestore.Client) *Client {
	return &Client{fs: fs}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// Users holds one document per user, keyed by the auth UID.
func (c *Client) Users() *Collection[types.UserRecord] {
	return &Collection[types.UserRecord]{
		Ref:           c.fs.Collection(shared.CollectionUsers),
		ToFirestore:   userToFirestore,
		FromFirestore: userFromFirestore,
	}
}

// DailyMetrics holds one document per day under the owning user, keyed
// by the YYYY-MM-DD date so re-fetches land on the same document.
func (c *Client) DailyMetrics(userID string) *Collection[metrics.DailyMetricRecord] {
	return &Collection[metrics.DailyMetricRecord]{
		Ref:           c.fs.Collection(shared.CollectionUsers).Doc(userID).Collection(shared.CollectionDailyMetrics),
		ToFirestore:   dailyMetricsToFirestore,
		FromFirestore: dailyMetricsFromFirestore,
	}
}

// Insights holds generated insight documents keyed by date and input
// hash, so a changed day's data produces a new document.
func (c *Client) Insights(userID string) *Collection[insights.Record] {
	return &Collection[insights.Record]{
		Ref:           c.fs.Collection(shared.CollectionUsers).Doc(userID).Collection(shared.CollectionInsights),
		ToFirestore:   insightToFirestore,
		FromFirestore: insightFromFirestore,
	}
}

// InsightDocID builds the document ID for an insight record.
func InsightDocID(date, inputHash string) string {
	return fmt.Sprintf("%s_%s", date, inputHash)
}
