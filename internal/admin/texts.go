package admin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/cupbot/core/telegram/format"
	"github.com/m3rciful/cupbot/internal/flow"
	"github.com/m3rciful/cupbot/internal/models"
)

const (
	textAccessDenied   = "⛔ У вас нет доступа к админ-панели."
	textStale          = "Кнопка устарела, открываю меню."
	textTeamNotFound   = "Команда не найдена."
	textAdminNotFound  = "Администратор не найден."
	textEmptyList      = "В этом списке команд нет."
	textTryAgain       = "⚠️ Что-то пошло не так. Попробуйте ещё раз."
	textApproved       = "✅ Команда одобрена!"
	textRejected       = "❌ Команда отклонена!"
	textCommentSaved   = "💬 Комментарий сохранён."
	textAskAdminID     = "👤 Введите Telegram ID нового администратора:"
	textInvalidID      = "❌ Некорректный ID. Введите числовой Telegram ID."
	textUnknownUser    = "❌ Пользователь с ID %d ещё не взаимодействовал с ботом. Попросите его написать боту /start и повторите."
	textAlreadyAdmin   = "⚠️ Пользователь с ID %d уже является администратором."
	textAdminAdded     = "✅ Администратор с ID %d успешно добавлен."
	textAdminRemoved   = "Администратор удалён."
	textCannotRemove   = "Нельзя удалить себя или последнего администратора."
	textEmptyComment   = "Комментарий не может быть пустым. Введите текст комментария:"
	textLongComment    = "Комментарий не может быть длиннее %d символов. Сократите текст и отправьте снова:"
	listLimit          = 50
	detailPlayerPrefix = "• "
)

var statusTitles = map[models.Status]string{
	models.StatusPending:  "🔄 Ожидают проверки",
	models.StatusApproved: "✅ Одобрено",
	models.StatusRejected: "❌ Отклонено",
}

func panelButton() flow.Button {
	return flow.Button{Text: "« В админ-панель", Data: Action{Kind: KindPanel}.Payload()}
}

func panelKeyboard() *flow.Keyboard {
	return flow.InlineKeyboard(
		flow.Row(flow.Button{Text: "📋 Список команд", Data: Action{Kind: KindTeamsMenu}.Payload()}),
		flow.Row(flow.Button{Text: "➕ Добавить админа", Data: Action{Kind: KindAddAdmin}.Payload()}),
		flow.Row(flow.Button{Text: "👮 Администраторы", Data: Action{Kind: KindAdmins}.Payload()}),
		flow.Row(flow.Button{Text: "📊 Статистика", Data: Action{Kind: KindStats}.Payload()}),
	)
}

func backToPanelKeyboard() *flow.Keyboard {
	return flow.InlineKeyboard(flow.Row(panelButton()))
}

func panelText() string {
	return "🔐 Админ-панель\n\nВыберите действие:"
}

func teamsMenu(counts map[models.Status]int) (string, *flow.Keyboard) {
	var rows [][]flow.Button
	for _, st := range models.Statuses {
		rows = append(rows, flow.Row(flow.Button{
			Text: fmt.Sprintf("%s (%d)", statusTitles[st], counts[st]),
			Data: Action{Kind: KindTeamList, Status: st}.Payload(),
		}))
	}
	rows = append(rows, flow.Row(panelButton()))
	return "📋 Команды по статусам:", flow.InlineKeyboard(rows...)
}

func teamList(st models.Status, teams []models.Team) (string, *flow.Keyboard) {
	text := fmt.Sprintf("%s: %d", statusTitles[st], len(teams))
	if len(teams) > listLimit {
		text += fmt.Sprintf("\nПоказаны последние %d.", listLimit)
		teams = teams[:listLimit]
	}
	rows := make([][]flow.Button, 0, len(teams)+1)
	for _, t := range teams {
		rows = append(rows, flow.Row(flow.Button{
			Text: fmt.Sprintf("%s (%d)", t.Name, len(t.Players)),
			Data: Action{Kind: KindViewTeam, Status: st, TeamID: t.ID}.Payload(),
		}))
	}
	rows = append(rows, flow.Row(flow.Button{Text: "« Назад", Data: Action{Kind: KindTeamsMenu}.Payload()}))
	return text, flow.InlineKeyboard(rows...)
}

func teamDetail(t *models.Team, origin models.Status, loc *time.Location) (string, *flow.Keyboard) {
	var b strings.Builder
	fmt.Fprintf(&b, "🎮 Команда: %s\n", format.Bold(t.Name))
	fmt.Fprintf(&b, "📅 Дата регистрации: %s\n", format.Date(t.RegisteredAt, loc))
	fmt.Fprintf(&b, "📱 Контакт капитана: %s\n", format.EscapeHTML(t.CaptainContact))
	fmt.Fprintf(&b, "📊 Статус: %s\n", statusTitles[t.Status])
	fmt.Fprintf(&b, "💭 Комментарий: %s\n\n", format.EscapeHTML(format.DerefString(t.AdminComment, "Нет")))
	b.WriteString("👥 Игроки:\n")
	for _, p := range t.Players {
		line := format.EscapeHTML(p.Nickname)
		if h := format.Handle(p.Handle); h != "" {
			line += " – " + h
		}
		if p.Identity != nil {
			line += " " + format.Code(strconv.FormatInt(*p.Identity, 10))
		}
		if p.IsCaptain {
			line += " (Капитан)"
		}
		b.WriteString(detailPlayerPrefix + line + "\n")
	}

	kb := flow.InlineKeyboard(
		flow.Row(
			flow.Button{Text: "✅ Одобрить", Data: Action{Kind: KindApprove, Status: origin, TeamID: t.ID}.Payload()},
			flow.Button{Text: "❌ Отклонить", Data: Action{Kind: KindReject, Status: origin, TeamID: t.ID}.Payload()},
		),
		flow.Row(flow.Button{Text: "💬 Комментарий", Data: Action{Kind: KindComment, Status: origin, TeamID: t.ID}.Payload()}),
		flow.Row(flow.Button{Text: "« К списку", Data: Action{Kind: KindTeamList, Status: origin}.Payload()}),
	)
	return strings.TrimRight(b.String(), "\n"), kb
}

func commentPrompt(t *models.Team, origin models.Status) (string, *flow.Keyboard) {
	text := fmt.Sprintf("Введите комментарий для команды %s:", format.Bold(t.Name))
	kb := flow.InlineKeyboard(flow.Row(flow.Button{
		Text: "Отмена",
		Data: Action{Kind: KindCancelComment, Status: origin, TeamID: t.ID}.Payload(),
	}))
	return text, kb
}

func addAdminPrompt() (string, *flow.Keyboard) {
	return textAskAdminID, flow.InlineKeyboard(flow.Row(flow.Button{Text: "Отмена", Data: Action{Kind: KindPanel}.Payload()}))
}

func adminList(admins []models.Admin, self int64, loc *time.Location) (string, *flow.Keyboard) {
	var b strings.Builder
	fmt.Fprintf(&b, "👮 Администраторы (%d):\n", len(admins))
	var rows [][]flow.Button
	for _, a := range admins {
		name := strconv.FormatInt(a.Identity, 10)
		if a.Handle != nil && *a.Handle != "" {
			name += " " + format.Handle(*a.Handle)
		}
		fmt.Fprintf(&b, "• %s, с %s\n", name, format.Date(a.AddedAt, loc))
		if a.Identity != self && len(admins) > 1 {
			rows = append(rows, flow.Row(flow.Button{
				Text: "🗑 Удалить " + strconv.FormatInt(a.Identity, 10),
				Data: Action{Kind: KindRemoveAdmin, Identity: a.Identity}.Payload(),
			}))
		}
	}
	rows = append(rows, flow.Row(panelButton()))
	return strings.TrimRight(b.String(), "\n"), flow.InlineKeyboard(rows...)
}

func statsText(s models.Stats, loc *time.Location) string {
	recent := "Нет данных"
	if len(s.LastRegistrations) > 0 {
		lines := make([]string, len(s.LastRegistrations))
		for i, r := range s.LastRegistrations {
			lines[i] = fmt.Sprintf("• %s (%s)", format.EscapeHTML(r.Name), format.Date(r.RegisteredAt, loc))
		}
		recent = strings.Join(lines, "\n")
	}
	return "📊 Подробная статистика регистраций:\n\n" +
		"👥 Команды:\n" +
		fmt.Sprintf("  • 🔄 Ожидают проверки: %d\n", s.CountsByStatus[models.StatusPending]) +
		fmt.Sprintf("  • ✅ Одобрено: %d\n", s.CountsByStatus[models.StatusApproved]) +
		fmt.Sprintf("  • ❌ Отклонено: %d\n", s.CountsByStatus[models.StatusRejected]) +
		fmt.Sprintf("  • 📝 Всего команд: %d\n\n", s.TotalTeams) +
		"🎮 Игроки:\n" +
		fmt.Sprintf("  • 👤 Всего игроков: %d\n", s.TotalPlayers) +
		fmt.Sprintf("  • 📊 Среднее кол-во в команде: %.1f\n", s.AvgPlayersPerTeam) +
		fmt.Sprintf("  • 🔄 В ожидающих командах: %d\n", s.PlayersByStatus[models.StatusPending]) +
		fmt.Sprintf("  • ✅ В одобренных командах: %d\n", s.PlayersByStatus[models.StatusApproved]) +
		fmt.Sprintf("  • ❌ В отклоненных командах: %d\n\n", s.PlayersByStatus[models.StatusRejected]) +
		"🆕 Последние регистрации:\n" + recent + "\n\n" +
		fmt.Sprintf("👮 Администраторов в системе: %d", s.AdminCount)
}
