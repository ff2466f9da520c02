package notify

import (
	"fmt"
	"log"

	"radargo/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParticipantGetter resolves a participant ID to its record, needed to find
// the linked Telegram chat.
type ParticipantGetter interface {
	GetParticipant(id string) (*models.Participant, error)
}

// TelegramNotifier pushes "Match found" alerts to participants who linked a
// Telegram chat ID. Participants without one are silently skipped.
type TelegramNotifier struct {
	BotAPI  *tgbotapi.BotAPI
	Storage ParticipantGetter
}

func NewTelegramNotifier(token string, storage ParticipantGetter) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{BotAPI: bot, Storage: storage}, nil
}

func (n *TelegramNotifier) MatchFound(participantID, sessionID string) {
	p, err := n.Storage.GetParticipant(participantID)
	if err != nil || p == nil || p.TelegramChatID == nil {
		return
	}

	text := fmt.Sprintf("Match found! Your space is ready: /spaces/session/%s", sessionID)
	msg := tgbotapi.NewMessage(*p.TelegramChatID, text)
	if _, err := n.BotAPI.Send(msg); err != nil {
		// Best effort only; the match already stands.
		log.Printf("telegram notify for %s failed: %v", participantID, err)
	}
}
