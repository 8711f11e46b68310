package plugins

import (
	"fmt"

	"github.com/dyluth/natter/internal/dispatch"
	"github.com/dyluth/natter/pkg/chat"
)

// Ping answers "ping" with "pong".
type Ping struct{}

func (Ping) Name() string { return "ping" }

func (Ping) Register(r *dispatch.Registry) error {
	return r.Register(dispatch.RespondTo, `^ping$`, dispatch.IgnoreCase,
		func(msg *dispatch.Message, _ []string) error {
			return msg.Reply("pong")
		},
		dispatch.WithName("ping"),
		dispatch.WithDescription("Checks that I am alive"))
}

// Help lists the commands the bot responds to.
type Help struct{}

func (Help) Name() string { return "help" }

func (Help) Register(r *dispatch.Registry) error {
	return r.Register(dispatch.RespondTo, `^help$`, dispatch.IgnoreCase,
		func(msg *dispatch.Message, _ []string) error {
			return msg.Reply("You can ask me one of the following questions:\n\n" + msg.HelpText())
		},
		dispatch.WithName("help"),
		dispatch.WithDescription("Lists what I can do"))
}

// Greetings says hello back, both when addressed and when overheard.
type Greetings struct{}

func (Greetings) Name() string { return "greetings" }

func (Greetings) Register(r *dispatch.Registry) error {
	hello := func(msg *dispatch.Message, _ []string) error {
		id, err := msg.UserID()
		if err != nil {
			return err
		}
		return msg.Reply(fmt.Sprintf("hello <@%s>!", id))
	}
	if err := r.Register(dispatch.RespondTo, `hello$`, dispatch.IgnoreCase, hello,
		dispatch.WithName("hello"),
		dispatch.WithDescription("Greets you")); err != nil {
		return err
	}

	if err := r.Register(dispatch.ListenTo, `hello$`, 0,
		func(msg *dispatch.Message, _ []string) error {
			return msg.Send("hello channel!")
		},
		dispatch.WithName("hello_channel")); err != nil {
		return err
	}

	return r.Register(dispatch.ListenTo, `hey!`, 0,
		func(msg *dispatch.Message, _ []string) error {
			return msg.React("eggplant")
		},
		dispatch.WithName("hey"))
}

// Echo repeats whatever follows "echo".
type Echo struct{}

func (Echo) Name() string { return "echo" }

func (Echo) Register(r *dispatch.Registry) error {
	return r.Register(dispatch.RespondTo, `^echo (.*)$`, dispatch.DotAll,
		func(msg *dispatch.Message, args []string) error {
			if err := msg.SendTyping(); err != nil {
				return err
			}
			return msg.Reply(args[0])
		},
		dispatch.WithName("echo"),
		dispatch.WithDescription("Repeats the text after it"))
}

// Attachment demonstrates a rich reply over the API route.
type Attachment struct{}

func (Attachment) Name() string { return "attachment" }

func (Attachment) Register(r *dispatch.Registry) error {
	return r.Register(dispatch.RespondTo, `^attachment$`, dispatch.IgnoreCase,
		func(msg *dispatch.Message, _ []string) error {
			attachment := chat.Attachment{
				Fallback: "natter attachment",
				Color:    "#59afe1",
				Title:    "natter",
				Text:     "This reply was sent over the API route with an attachment.",
			}
			if ch, err := msg.Channel(); err == nil && ch.Name != "" {
				attachment.Pretext = "#" + ch.Name
			}
			return msg.ReplyWebAPI("here you go", []chat.Attachment{attachment})
		},
		dispatch.WithName("attachment"),
		dispatch.WithDescription("Replies with a rich attachment"))
}
