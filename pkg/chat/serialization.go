package chat

import (
	"encoding/json"
	"fmt"
)

// Channels are stored as Redis hashes; the member list is JSON-encoded into one field.

// ChannelToHash converts a Channel to Redis hash format.
func ChannelToHash(c *Channel) (map[string]interface{}, error) {
	members := c.Members
	if members == nil {
		members = []string{}
	}
	membersJSON, err := json.Marshal(members)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal members: %w", err)
	}

	return map[string]interface{}{
		"id":      c.ID,
		"name":    c.Name,
		"topic":   c.Topic,
		"members": string(membersJSON),
	}, nil
}

// HashToChannel converts a Redis hash back to a Channel.
func HashToChannel(hash map[string]string) (*Channel, error) {
	var members []string
	if membersJSON := hash["members"]; membersJSON != "" {
		if err := json.Unmarshal([]byte(membersJSON), &members); err != nil {
			return nil, fmt.Errorf("failed to unmarshal members: %w", err)
		}
	}
	if members == nil {
		members = []string{}
	}

	return &Channel{
		ID:      hash["id"],
		Name:    hash["name"],
		Topic:   hash["topic"],
		Members: members,
	}, nil
}
