// Package relay connects a tick source to the durable counter and the
// delivery client.
//
// Every tick is persisted before it is queued, so a tick the relay failed
// to persist is never sent. Queued events are flushed on start, at most
// once per MinSendInterval while running, and once more on shutdown.
// Events whose notifications were not delivered go back to the front of
// the queue and ride along with the next flush.
package relay
