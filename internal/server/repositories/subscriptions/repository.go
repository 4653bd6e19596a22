// Package subscriptions reads the channel subscription graph used by
// channel profiles.
package subscriptions

import "context"

// Stats is the subscription summary of one channel as seen by a viewer.
type Stats struct {
	Subscribers  int64
	SubscribedTo int64
	IsSubscribed bool
}

type Repository interface {
	// Stats counts the subscribers of channelID, the channels channelID
	// subscribes to and whether viewerID is one of its subscribers. An
	// empty viewerID is never subscribed.
	Stats(ctx context.Context, channelID, viewerID string) (*Stats, error)
}
