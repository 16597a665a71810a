package discord

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/mojistream/internal/discord"
)

type Client struct {
	session *discordgo.Session
	token   string
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token: token,
	}
}

// Connect opens the gateway. The mirror only posts messages, so no
// privileged intents are requested.
func (c *Client) Connect(ctx context.Context) error {
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds)

	opened := make(chan error, 1)
	go func() { opened <- s.Open() }()
	select {
	case err := <-opened:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		_ = s.Close()
		return fmt.Errorf("discord connect: %w", ctx.Err())
	}
	c.session = s
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not initialized")
	}
	_, err := c.session.ChannelMessageSend(channelID, content)
	return err
}

func (c *Client) SendChannelMessageWithFile(msg discordpkg.FileMessage) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not initialized")
	}
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: msg.Content,
		Files: []*discordgo.File{
			{Name: msg.Filename, ContentType: "text/plain", Reader: bytes.NewReader(msg.FileBody)},
		},
	})
	return err
}

// ChannelName resolves a channel name from the state cache, then REST,
// and falls back to the id.
func (c *Client) ChannelName(channelID string) string {
	channel := c.resolveChannel(channelID)
	if channel == nil {
		slog.Warn("discord channel name could not be resolved; using channel id fallback", "channel_id", channelID)
		return channelID
	}
	return channel.Name
}

func (c *Client) resolveChannel(channelID string) *discordgo.Channel {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		channel, err := c.session.State.Channel(channelID)
		if err == nil && channel != nil && channel.Name != "" {
			return channel
		}
	}
	channel, err := c.session.Channel(channelID)
	if err != nil || channel == nil {
		return nil
	}
	if channel.Name == "" {
		return nil
	}
	return channel
}
