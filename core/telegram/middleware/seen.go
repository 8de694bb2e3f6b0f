package middleware

import tele "gopkg.in/telebot.v4"

// SeenMiddleware reports the sender of every update before it is handled.
// It feeds the handle directory that identity lookups fall back to.
func SeenMiddleware(remember func(userID int64, username string)) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if remember == nil {
			return next
		}
		return func(c tele.Context) error {
			if u := c.Sender(); u != nil && !u.IsBot {
				remember(u.ID, u.Username)
			}
			return next(c)
		}
	}
}
