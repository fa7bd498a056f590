package events

import "time"

var CatalogChangedTopic = "CatalogChangedEvent"

// CatalogChanged is published when resources or their statuses were modified outside the request path.
type CatalogChanged struct {
	Reason              string
	ClosedResources     int64
	ExpiredApplications int64
	At                  time.Time
}
