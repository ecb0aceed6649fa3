package domain

// DefaultExpiringSoonDays is the look-ahead window of the status sweep.
const DefaultExpiringSoonDays = 90

// SweepWindow is the day range a sweep compares expiry dates against.
// Both bounds are inclusive for EXPIRING_SOON.
type SweepWindow struct {
	Today   Date
	Horizon Date
}

func NewSweepWindow(today Date, days int) SweepWindow {
	if days < 0 {
		days = 0
	}
	return SweepWindow{Today: today, Horizon: today.AddDays(days)}
}

// StatusForExpiry buckets an expiry date relative to the window:
// EXPIRED before today, EXPIRING_SOON up to and including the horizon, CURRENT after it.
func (w SweepWindow) StatusForExpiry(expiry Date) DocumentStatus {
	switch {
	case expiry.Before(w.Today.Time):
		return StatusExpired
	case !expiry.After(w.Horizon.Time):
		return StatusExpiringSoon
	default:
		return StatusCurrent
	}
}

// SweepStatus is the status a sweep assigns to a document, and false when the
// sweep leaves it alone (still PROCESSING, or no expiry date).
func (w SweepWindow) SweepStatus(doc Document) (DocumentStatus, bool) {
	if doc.Status == StatusProcessing || doc.Metadata.ExpiryDate == nil {
		return "", false
	}
	return w.StatusForExpiry(*doc.Metadata.ExpiryDate), true
}

type StatusChange struct {
	DocumentID   string         `json:"documentId"`
	OwnerID      string         `json:"ownerId"`
	OriginalName string         `json:"originalName"`
	ExpiryDate   Date           `json:"expiryDate"`
	Status       DocumentStatus `json:"status"`
}

// SweepResult lists the rows each rule moved, in rule order.
type SweepResult struct {
	Expired      []StatusChange `json:"expired"`
	ExpiringSoon []StatusChange `json:"expiringSoon"`
	Current      []StatusChange `json:"current"`
}

func (r SweepResult) Total() int {
	return len(r.Expired) + len(r.ExpiringSoon) + len(r.Current)
}
