package chat

import "fmt"

// Redis key pattern helpers
//
// Key pattern: natter:{workspace}:{entity}[:{id}]
// Channel pattern: natter:{workspace}:{direction}_events

// UsersKey returns the hash mapping user IDs to display names.
// Pattern: natter:{workspace}:users
func UsersKey(workspace string) string {
	return fmt.Sprintf("natter:%s:users", workspace)
}

// UsernamesKey returns the hash mapping display names back to user IDs.
// Pattern: natter:{workspace}:usernames
func UsernamesKey(workspace string) string {
	return fmt.Sprintf("natter:%s:usernames", workspace)
}

// ChannelKey returns the Redis key for a channel hash.
// Pattern: natter:{workspace}:channel:{channel_id}
func ChannelKey(workspace, channelID string) string {
	return fmt.Sprintf("natter:%s:channel:%s", workspace, channelID)
}

// InboundEventsChannel returns the Pub/Sub channel carrying events from the chat backend.
// Pattern: natter:{workspace}:inbound_events
func InboundEventsChannel(workspace string) string {
	return fmt.Sprintf("natter:%s:inbound_events", workspace)
}

// OutboundEventsChannel returns the Pub/Sub channel carrying frames to the chat backend.
// Pattern: natter:{workspace}:outbound_events
func OutboundEventsChannel(workspace string) string {
	return fmt.Sprintf("natter:%s:outbound_events", workspace)
}
