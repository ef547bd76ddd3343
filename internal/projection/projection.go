package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marriage-compliance/internal/common/logger"
	compliancesweep "marriage-compliance/internal/jobs/compliance-sweep"
)

// Indexer is the slice of the Elasticsearch client the projection needs.
// *database.ElasticsearchClient satisfies it.
type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, body []byte) error
}

// Document is the read-side view of a submission the dashboard queries. One
// document per submission, keyed by submission id, overwritten every sweep.
type Document struct {
	SubmissionID string  `json:"submissionId"`
	CoupleID     string  `json:"coupleId"`
	DocumentType string  `json:"documentType"`
	Status       string  `json:"status"`
	DeadlineDate   *string `json:"deadlineDate,omitempty"`
	DaysLeft       int     `json:"daysLeft"`
	Severity       string  `json:"severity,omitempty"`
	Expired        bool    `json:"expired"`
	DeliveryFailed bool    `json:"deliveryFailed"`
	ManualReview   bool    `json:"manualReview"`
	UpdatedAt      string  `json:"updatedAt"`
}

// Projection feeds sweep results into the dashboard index. It is strictly
// best-effort; the sweep's own state never depends on it.
type Projection struct {
	es     Indexer
	index  string
	logger logger.Logger
	now    func() time.Time
}

func New(es Indexer, index string, log logger.Logger) *Projection {
	return &Projection{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "projection"}),
		now:    time.Now,
	}
}

// IndexSweepResults writes one document per evaluated submission. Individual
// failures are logged and counted; the returned error summarizes them.
func (p *Projection) IndexSweepResults(ctx context.Context, results []compliancesweep.Result) error {
	failed := 0
	for i := range results {
		doc := p.toDocument(&results[i])
		body, err := json.Marshal(doc)
		if err != nil {
			failed++
			continue
		}
		if err := p.es.IndexDocument(ctx, p.index, doc.SubmissionID, body); err != nil {
			failed++
			p.logger.WithError(err).Warn("document index failed", map[string]interface{}{
				"submissionId": doc.SubmissionID,
			})
		}
	}

	if failed > 0 {
		return fmt.Errorf("indexed %d of %d documents", len(results)-failed, len(results))
	}
	return nil
}

func (p *Projection) toDocument(result *compliancesweep.Result) Document {
	sub := result.Submission
	doc := Document{
		SubmissionID: sub.ID,
		CoupleID:     sub.CoupleID,
		DocumentType: sub.DocumentType,
		Status:       string(sub.Status),
		DaysLeft:     result.DaysLeft,
		Severity:     string(result.Severity),
		Expired:      result.Expired,
		UpdatedAt:    p.now().UTC().Format(time.RFC3339),
	}
	if sub.DeadlineDate != nil {
		d := sub.DeadlineDate.Format("2006-01-02")
		doc.DeadlineDate = &d
	}
	if result.Alert != nil {
		doc.DeliveryFailed = result.Alert.DeliveryFailed
		doc.ManualReview = result.Alert.ManualReview
	}
	return doc
}
