package types

import "time"

// SavedPOI is a user-history entry for a saved point of interest.
type SavedPOI struct {
	ID        string     `json:"id"`
	PointID   string     `json:"pointID"`
	Status    bool       `json:"status"`
	CreatedDT *time.Time `json:"createdDT,omitempty"`
	City      string     `json:"city"`
}

// SavePOIRequest saves a backend point for the authenticated user.
type SavePOIRequest struct {
	PointID string `json:"point_id"`
	City    string `json:"city"`
}
