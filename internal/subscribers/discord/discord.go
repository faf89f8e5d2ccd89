// Package discord alerts a sales channel when a negotiation needs a human
// or when a deal closes.
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"haggle.local/haggle-gateway/internal/events"
)

// Sender abstracts the discordgo session so tests can capture messages.
type Sender interface {
	SendMessage(channelID string, content string) error
}

type Subscriber struct {
	sender    Sender
	channelID string
}

func New(sender Sender, channelID string) *Subscriber {
	return &Subscriber{sender: sender, channelID: strings.TrimSpace(channelID)}
}

// NewFromToken builds a subscriber backed by a real discordgo session.
func NewFromToken(token string, channelID string) (*Subscriber, error) {
	sender, err := newSessionSender(token)
	if err != nil {
		return nil, err
	}
	return New(sender, channelID), nil
}

func (s *Subscriber) Name() string {
	return "discord"
}

func (s *Subscriber) Handle(_ context.Context, event events.Envelope) error {
	content, err := formatAlert(event)
	if err != nil {
		return err
	}
	if content == "" {
		return nil
	}
	return s.sender.SendMessage(s.channelID, content)
}

// formatAlert renders only the event types a sales channel cares about;
// everything else is skipped silently.
func formatAlert(event events.Envelope) (string, error) {
	switch event.Type {
	case events.TypeHandoffRequested:
		var payload events.HandoffRequestedPayload
		if err := event.DecodePayload(&payload); err != nil {
			return "", fmt.Errorf("decode handoff payload: %w", err)
		}
		msg := fmt.Sprintf("Negotiation %s (product %d) needs a human after %d low offers", event.SessionID, event.ProductID, payload.Strikes)
		if payload.LastOffer != nil {
			msg += fmt.Sprintf(", last offer %.2f", *payload.LastOffer)
		}
		return msg, nil
	case events.TypeDealAccepted:
		var payload events.DealAcceptedPayload
		if err := event.DecodePayload(&payload); err != nil {
			return "", fmt.Errorf("decode accepted payload: %w", err)
		}
		return fmt.Sprintf("Deal closed on %s (product %d) at %.2f after %d rounds", event.SessionID, event.ProductID, payload.FinalPrice, event.Round), nil
	default:
		return "", nil
	}
}

type sessionSender struct {
	session *discordgo.Session
}

func newSessionSender(token string) (*sessionSender, error) {
	session, err := discordgo.New(normalizeBotToken(token))
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &sessionSender{session: session}, nil
}

func (s *sessionSender) SendMessage(channelID string, content string) error {
	channelID = strings.TrimSpace(channelID)
	content = strings.TrimSpace(content)
	if channelID == "" {
		return fmt.Errorf("channel id is required")
	}
	if content == "" {
		return nil
	}
	_, err := s.session.ChannelMessageSend(channelID, content)
	return err
}

func normalizeBotToken(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(strings.ToLower(token), "bot ") {
		return token
	}
	return "Bot " + token
}
