package router

import "github.com/m3rciful/cupbot/core/telegram/ui"

// FallbackOptions derives the text and callback fallbacks from one provider.
func FallbackOptions(fb ui.FallbackProvider) (TextOptions, CallbackOptions) {
	if fb == nil {
		return TextOptions{}, CallbackOptions{}
	}
	return TextOptions{
			UnknownText:     fb.UnknownText(),
			UnknownDocument: fb.UnknownDocument(),
		}, CallbackOptions{
			NotFound: fb.UnknownCallback(),
		}
}
