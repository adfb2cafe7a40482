package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramService sends operator alerts to the admin Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     telegramAPIBase,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// WithAPIBase points the service at a different Bot API host.
func (s *TelegramService) WithAPIBase(base string) *TelegramService {
	s.apiBase = strings.TrimRight(base, "/")
	return s
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Debug().Msg("telegram: bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Msg("telegram: failed to send message")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("telegram: unexpected status")
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Debug().Msg("telegram: admin chat id not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// AlertRewardFailure tells operators that an order needs a reconciliation run.
func (s *TelegramService) AlertRewardFailure(orderID uint, orderNumber string, cause error) error {
	message := fmt.Sprintf(`<b>⚠️ LOYALTY REWARD FAILED</b>
<b>Order:</b> %s (#%d)
<b>Error:</b> %s
━━━━━━━━━━━━━━━━━━
<i>Run loyalty reconciliation once the cause is fixed.</i>`,
		orderNumber,
		orderID,
		escapeHTML(cause.Error()),
	)
	return s.SendToAdmin(strings.TrimSpace(message))
}

// NotifyReconciliation sends the outcome of a reconciliation run.
func (s *TelegramService) NotifyReconciliation(summary ReconciliationSummary) error {
	message := fmt.Sprintf(`<b>🔁 LOYALTY RECONCILIATION</b>
<b>Signup bonuses:</b> %d
<b>Orders rewarded:</b> %d
<b>Orders skipped:</b> %d
<b>Orders failed:</b> %d
<b>XP issued:</b> %d
<b>Tokens issued:</b> %d`,
		summary.UsersFixed,
		summary.OrdersProcessed,
		summary.OrdersSkipped,
		summary.OrdersFailed,
		summary.XPIssued,
		summary.TokensIssued,
	)
	return s.SendToAdmin(strings.TrimSpace(message))
}

func escapeHTML(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
