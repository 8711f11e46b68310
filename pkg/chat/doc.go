// Package chat provides the event and frame types exchanged with a chat backend and a
// Redis-backed transport that carries them.
//
// # Overview
//
// Inbound chat events (messages typed by users) are published as JSON on a Pub/Sub
// channel. The bot reads them in batches, decides which plugin handlers should run and
// answers with outbound frames (messages, typing indicators, reactions, pings) that are
// published on a second channel for the chat gateway to deliver.
//
// # Multi-Workspace Support
//
// All Redis keys and Pub/Sub channels are namespaced by workspace name so that several
// bots can share a single Redis server without seeing each other's traffic.
//
// # Usage Example
//
//	opts, _ := redis.ParseURL("redis://localhost:6379")
//	client, err := chat.NewClient(opts, "default", chat.Identity{ID: "U0BOT", Name: "natter"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	events, _ := client.ReadEvents(ctx)
//	for _, ev := range events {
//		client.SendMessage(ctx, ev.Channel, "pong")
//	}
//
// # Redis Schema
//
// Users (id -> name):          natter:{workspace}:users
// Usernames (name -> id):      natter:{workspace}:usernames
// Channels:                    natter:{workspace}:channel:{channel_id}
//
// Inbound events:              natter:{workspace}:inbound_events
// Outbound frames:             natter:{workspace}:outbound_events
package chat
