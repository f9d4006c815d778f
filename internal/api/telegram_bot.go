// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/abelzeko/awlr-monitor/internal/monitoring"
	"github.com/abelzeko/awlr-monitor/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "Available commands:\n" +
	"/start - Start the bot\n" +
	"/level - Show the latest reading\n" +
	"/history - Show the recent readings\n" +
	"/thresholds - Show the alert thresholds\n" +
	"/setthresholds [warning] [danger] [max] - Replace the thresholds\n" +
	"/edit - Start editing the thresholds\n" +
	"/set [field] [value] - Type a value while editing\n" +
	"/up [field], /down [field] - Step a value by 0.1 while editing\n" +
	"/apply, /cancel - Finish editing\n" +
	"/stations - Show the monitoring stations\n" +
	"/summary [YYYY-MM-DD] - Hourly summary of a day\n" +
	"/subscribe, /unsubscribe - Status change alerts\n" +
	"/help - Show this help message"

// Sender delivers messages to Telegram
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	sender  Sender
	useCase *usecases.MonitoringUseCase

	mu          sync.Mutex
	subscribers map[int64]struct{}
	editors     map[int64]*monitoring.ThresholdEditor

	alerts chan string
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.MonitoringUseCase) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}

	t := newTelegramBot(bot, useCase)
	t.bot = bot
	return t, nil
}

func newTelegramBot(sender Sender, useCase *usecases.MonitoringUseCase) *TelegramBot {
	return &TelegramBot{
		sender:      sender,
		useCase:     useCase,
		subscribers: make(map[int64]struct{}),
		editors:     make(map[int64]*monitoring.ThresholdEditor),
		alerts:      make(chan string, 16),
	}
}

// Start begins listening for and handling Telegram messages until ctx is done
func (t *TelegramBot) Start(ctx context.Context) {
	log.Printf("Authorized on Telegram account %s", t.bot.Self.UserName)

	stop := t.useCase.SubscribeStatusChanges(t.queueAlert)
	defer stop()
	go t.deliverAlerts(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	log.Println("Bot is now listening for messages...")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			log.Println("Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}

			log.Printf("Received message from %s (ID: %d): %s",
				userName(update.Message),
				update.Message.Chat.ID,
				update.Message.Text)

			t.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage processes a Telegram message
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID, "")

	if message.IsCommand() {
		msg.Text = t.handleCommand(message)
	} else {
		msg.Text = t.handleNonCommand(ctx, message)
	}

	log.Printf("Sending response to user %s", userName(message))
	if _, err := t.sender.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(message *tgbotapi.Message) string {
	chatID := message.Chat.ID
	args := strings.Fields(message.CommandArguments())
	log.Printf("Handling /%s command with args %v for user %s", message.Command(), args, userName(message))

	switch message.Command() {
	case "start":
		return "Welcome to the AWLR monitor! Use /level to see the latest water level or /help for more information."

	case "help":
		return helpText

	case "level":
		return usecases.FormatReading(t.useCase.Snapshot().Current())

	case "history":
		return usecases.FormatHistory(t.useCase.Snapshot().Readings)

	case "thresholds":
		return usecases.FormatThresholds(t.useCase.Thresholds())

	case "setthresholds":
		return t.handleSetThresholds(args)

	case "edit":
		return t.handleEdit(chatID)

	case "set", "up", "down":
		return t.handleEditField(chatID, message.Command(), args)

	case "apply":
		return t.handleApply(chatID)

	case "cancel":
		if editor := t.editor(chatID); editor != nil {
			editor.Cancel()
			t.dropEditor(chatID)
		}
		return "Editing cancelled, thresholds unchanged."

	case "stations":
		stations, err := t.useCase.GetStations("")
		if err != nil {
			log.Printf("Error fetching stations: %v", err)
			return "Error fetching stations. Please try again later."
		}
		return usecases.FormatStations(stations)

	case "summary":
		return t.handleSummary(args)

	case "subscribe":
		t.mu.Lock()
		t.subscribers[chatID] = struct{}{}
		t.mu.Unlock()
		return "You will be notified when the water level status changes."

	case "unsubscribe":
		t.mu.Lock()
		delete(t.subscribers, chatID)
		t.mu.Unlock()
		return "Status change alerts are off."

	default:
		log.Printf("Received unknown command /%s from user %s", message.Command(), userName(message))
		return "Unknown command. Use /help to see available commands."
	}
}

// handleSetThresholds replaces all three thresholds at once
func (t *TelegramBot) handleSetThresholds(args []string) string {
	if len(args) != 3 {
		return "Please specify three values. Example: /setthresholds 1.5 2.5 4.0"
	}

	editor := monitoring.NewThresholdEditor(t.useCase)
	editor.Open()
	for i, field := range []monitoring.ThresholdField{monitoring.FieldWarning, monitoring.FieldDanger, monitoring.FieldMax} {
		if _, err := editor.EditField(field, args[i]); err != nil {
			return fmt.Sprintf("Could not set %s: %v", field, err)
		}
	}

	if err := editor.Apply(); err != nil {
		return rejectionText(err)
	}
	return "Thresholds updated:\n" + usecases.FormatThresholds(t.useCase.Thresholds())
}

func (t *TelegramBot) handleEdit(chatID int64) string {
	editor := monitoring.NewThresholdEditor(t.useCase)
	pending := editor.Open()

	t.mu.Lock()
	t.editors[chatID] = editor
	t.mu.Unlock()

	return "Editing thresholds:\n" + usecases.FormatThresholds(pending) +
		"\n\nUse /set, /up or /down with warning, danger or max, then /apply or /cancel."
}

func (t *TelegramBot) handleEditField(chatID int64, command string, args []string) string {
	editor := t.editor(chatID)
	if editor == nil {
		return "Use /edit to start editing the thresholds."
	}
	if len(args) == 0 {
		return fmt.Sprintf("Please specify a field. Example: /%s warning", command)
	}

	field, err := monitoring.ParseThresholdField(args[0])
	if err != nil {
		return "Unknown field. Use warning, danger or max."
	}

	switch command {
	case "up":
		_, err = editor.Increment(field)
	case "down":
		_, err = editor.Decrement(field)
	default:
		if len(args) < 2 {
			return fmt.Sprintf("Please specify a value. Example: /set %s 1.8", field)
		}
		_, err = editor.EditField(field, args[1])
	}
	if err != nil {
		return fmt.Sprintf("Could not change %s: %v", field, err)
	}

	text := "Pending thresholds:\n" + usecases.FormatThresholds(editor.Pending())
	if verr := editor.Validate(); verr != nil {
		text += "\n\n⚠️ " + rejectionText(verr)
	}
	return text
}

func (t *TelegramBot) handleApply(chatID int64) string {
	editor := t.editor(chatID)
	if editor == nil {
		return "Use /edit to start editing the thresholds."
	}
	if err := editor.Apply(); err != nil {
		return rejectionText(err)
	}
	t.dropEditor(chatID)
	return "Thresholds updated:\n" + usecases.FormatThresholds(t.useCase.Thresholds())
}

func (t *TelegramBot) handleSummary(args []string) string {
	var value string
	if len(args) > 0 {
		value = args[0]
	}
	day, err := usecases.ParseDay(value)
	if err != nil {
		return fmt.Sprintf("%v. Example: /summary 2026-03-01", err)
	}

	summaries, err := t.useCase.HourlySummary(day)
	if err != nil {
		log.Printf("Error building summary: %v", err)
		return "Error reading the archive. Please try again later."
	}
	return usecases.FormatSummary(day, summaries)
}

// handleNonCommand processes regular messages
func (t *TelegramBot) handleNonCommand(ctx context.Context, message *tgbotapi.Message) string {
	log.Printf("Received non-command message from user %s: %s", userName(message), message.Text)

	reply, err := t.useCase.HandleNaturalLanguageQuery(ctx, message.Text)
	if err != nil {
		log.Printf("Error handling query: %v", err)
		return "I don't understand. Use /help to see available commands."
	}
	return reply
}

func (t *TelegramBot) editor(chatID int64) *monitoring.ThresholdEditor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.editors[chatID]
}

func (t *TelegramBot) dropEditor(chatID int64) {
	t.mu.Lock()
	delete(t.editors, chatID)
	t.mu.Unlock()
}

// queueAlert runs on the monitor tick and must not block it
func (t *TelegramBot) queueAlert(previous, current entities.Reading) {
	text := fmt.Sprintf("⚠️ Status changed from %s to %s\n\n%s",
		previous.Status, current.Status, usecases.FormatReading(current))
	select {
	case t.alerts <- text:
	default:
		log.Printf("Warning: alert queue full, dropping alert for reading %d", current.ID)
	}
}

func (t *TelegramBot) deliverAlerts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-t.alerts:
			t.broadcast(text)
		}
	}
}

// broadcast sends text to every subscribed chat
func (t *TelegramBot) broadcast(text string) {
	t.mu.Lock()
	chats := make([]int64, 0, len(t.subscribers))
	for id := range t.subscribers {
		chats = append(chats, id)
	}
	t.mu.Unlock()

	for _, id := range chats {
		if _, err := t.sender.Send(tgbotapi.NewMessage(id, text)); err != nil {
			log.Printf("Error sending alert to chat %d: %v", id, err)
		}
	}
}

func rejectionText(err error) string {
	if errors.Is(err, entities.ErrInvalidThresholds) {
		return fmt.Sprintf("Thresholds rejected: %v", err)
	}
	return fmt.Sprintf("Could not update thresholds: %v", err)
}

func userName(message *tgbotapi.Message) string {
	if message.From == nil {
		return "unknown"
	}
	return message.From.UserName
}
