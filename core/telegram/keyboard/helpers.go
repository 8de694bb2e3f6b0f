// Package keyboard builds telebot reply markup from plain labels and payloads.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is an inline button; Data comes back verbatim as the callback data.
type InlineBtn struct {
	Text string
	Data string
}

// RemoveKeyboard hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons lays labels out as a resized reply keyboard, one slice per row.
// Empty rows are skipped.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	for _, labels := range rows {
		if len(labels) == 0 {
			continue
		}
		row := make([]tele.ReplyButton, len(labels))
		for i, label := range labels {
			row[i] = tele.ReplyButton{Text: label}
		}
		markup.ReplyKeyboard = append(markup.ReplyKeyboard, row)
	}
	return markup
}

// InlineButtonsRows lays buttons out as an inline keyboard, one slice per row.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, btns := range rows {
		if len(btns) == 0 {
			continue
		}
		row := make([]tele.InlineButton, len(btns))
		for i, b := range btns {
			row[i] = tele.InlineButton{Text: b.Text, Data: b.Data}
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, row)
	}
	return markup
}
