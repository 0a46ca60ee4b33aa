package telegram

import "gopkg.in/telebot.v3"

// Client defines the outbound side of the chat platform the app layer needs.
// This keeps the services independent of how the bot connection is managed.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) (*telebot.Message, error)
}

// Callback uniques shared between the prompt markup built by the app layer
// and the handlers registered by the transport.
const (
	UniqueCanAttend    = "att_yes"
	UniqueCannotAttend = "att_no"
	UniquePickTime     = "att_pick"
	UniquePickerMode   = "att_mode"
	UniqueConfirm      = "att_ok"
)

// Picker modes carried in UniquePickTime / UniquePickerMode payloads.
const (
	PickStart = "s"
	PickEnd   = "e"
)
