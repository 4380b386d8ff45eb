package models

import "time"

// Batch is the set of verified transactions handed to the clearing network
// in one submission.
type Batch struct {
	ID           string         `json:"id"`
	Transactions []*Transaction `json:"transactions"`
	PreparedAt   time.Time      `json:"preparedAt"`
	ManifestKey  string         `json:"manifestKey,omitempty"`
	SubmittedAt  *time.Time     `json:"submittedAt,omitempty"`
}

// IDs lists the transaction ids in batch order.
func (b *Batch) IDs() []string {
	ids := make([]string, 0, len(b.Transactions))
	for _, t := range b.Transactions {
		ids = append(ids, t.ID)
	}
	return ids
}
