package engine

import "github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"

// SplitBatches partitions recipients into ordered batches of at most
// batchSize, preserving input order. A batchSize of zero or less yields a
// single batch holding everything. The function is pure, so planning
// (progress totals) and execution see identical batches.
func SplitBatches(recipients []*models.CampaignRecipient, batchSize int) [][]*models.CampaignRecipient {
	if len(recipients) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(recipients)
	}

	batches := make([][]*models.CampaignRecipient, 0, (len(recipients)+batchSize-1)/batchSize)
	for start := 0; start < len(recipients); start += batchSize {
		end := start + batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		batches = append(batches, recipients[start:end])
	}
	return batches
}

// TotalBatchesFor returns ceil(total/batchSize) with the same batchSize
// fallback as SplitBatches.
func TotalBatchesFor(total, batchSize int) int {
	if total <= 0 {
		return 0
	}
	if batchSize <= 0 {
		return 1
	}
	return (total + batchSize - 1) / batchSize
}
