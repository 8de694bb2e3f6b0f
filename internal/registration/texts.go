package registration

import (
	"fmt"
	"strings"

	"github.com/m3rciful/cupbot/core/telegram/format"
	"github.com/m3rciful/cupbot/internal/flow"
	"github.com/m3rciful/cupbot/internal/models"
	"github.com/m3rciful/cupbot/internal/verify"
)

// Reply keyboard labels. Incoming text is matched against them verbatim.
const (
	LabelRegister          = "Регистрация"
	LabelInfo              = "Информация о турнире"
	LabelStatus            = "Проверить статус регистрации"
	LabelFAQ               = "FAQ"
	LabelCheckSubscription = "Проверить подписку"
	LabelBack              = "Назад"
	LabelContinue          = "Продолжить"
)

const captainMark = " (Капитан)"

var statusNames = map[models.Status]string{
	models.StatusPending:  "Ожидает подтверждения",
	models.StatusApproved: "Одобрено",
	models.StatusRejected: "Отклонено",
}

// StatusName returns the user-facing name of a team status.
func StatusName(st models.Status) string {
	if n, ok := statusNames[st]; ok {
		return n
	}
	return "Неизвестно"
}

func mainKeyboard() *flow.Keyboard {
	return flow.ReplyKeyboard(LabelRegister, LabelInfo, LabelStatus, LabelFAQ)
}

func subscriptionKeyboard() *flow.Keyboard {
	return flow.ReplyKeyboard(LabelCheckSubscription, LabelBack)
}

func backKeyboard() *flow.Keyboard {
	return flow.ReplyKeyboard(LabelBack)
}

func ackKeyboard() *flow.Keyboard {
	return flow.ReplyKeyboard(LabelContinue, LabelBack)
}

type texts struct {
	tournament string
	channel    string
	channelURL string
	info       string
	faq        string
}

func (t texts) welcome() string {
	name := format.EscapeHTML(t.tournament)
	return "🏆 Добро пожаловать в бота регистрации на турнир\n\n" +
		"<b>" + name + "</b>\n\n" +
		"📝 Что я умею:\n" +
		"• Регистрация команды на турнир\n" +
		"• Просмотр информации о турнире\n" +
		"• Проверка статуса регистрации\n" +
		"• Ответы на часто задаваемые вопросы\n\n" +
		"🎮 Для начала регистрации нажмите кнопку \"" + LabelRegister + "\" ниже.\n\n" +
		"Важно: убедитесь, что у вас готовы название команды, список игроков " +
		"с их Telegram-юзернеймами и контакты капитана.\n\n" +
		"Удачи в турнире! 🎯"
}

func (t texts) menu() string {
	return "Вы вернулись в главное меню. Выберите нужное действие:"
}

func (t texts) cancelled() string {
	return "Действие отменено. Вы вернулись в главное меню."
}

func (t texts) subscriptionRequired() string {
	link := format.EscapeHTML(t.channel)
	if t.channelURL != "" {
		link = fmt.Sprintf(`<a href="%s">%s</a>`, format.EscapeHTML(t.channelURL), format.EscapeHTML(t.channel))
	}
	return fmt.Sprintf("📢 Для участия в %s необходимо быть подписанным на наш канал!\n\n"+
		"🔗 Подпишись на %s, затем нажми \"%s\".\n\n"+
		"🛑 Если ты уже подписан, просто нажми \"%s\".",
		format.EscapeHTML(t.tournament), link, LabelCheckSubscription, LabelCheckSubscription)
}

func (t texts) notSubscribed() string {
	return fmt.Sprintf("❌ Вы не подписаны на канал. Пожалуйста, подпишитесь на %s и попробуйте снова.",
		format.EscapeHTML(t.channel))
}

func (t texts) subscriptionCheckFailed() string {
	return "❌ Не удалось проверить подписку. Убедитесь, что вы подписались на канал, " +
		"и нажмите \"" + LabelCheckSubscription + "\" ещё раз. Если проблема сохраняется, попробуйте позже."
}

func (t texts) askTeamName() string {
	return "🎮 Введи название твоей команды.\n\n✍🏼 Напиши название в ответном сообщении."
}

func (t texts) nameTooLong() string {
	return fmt.Sprintf("⚠️ Слишком длинно: не больше %d символов. Попробуйте ещё раз.", models.MaxNameLength)
}

func (t texts) teamNameTaken() string {
	return "⚠️ Команда с таким названием уже зарегистрирована. Пожалуйста, выберите другое название."
}

func (t texts) askCaptainNickname() string {
	return "Теперь введи свой игровой никнейм (ты будешь капитаном команды):\n\n" +
		"✍🏼 Напиши никнейм в ответном сообщении."
}

func (t texts) askRoster() string {
	return fmt.Sprintf("Теперь укажи состав команды (минимум %d игрока, не включая капитана):\n\n"+
		"⚠️ Формат:\n📌 Игровой никнейм – @TelegramUsername\n\n"+
		"👀 Пример:\n\nPlayerOne – @playerone\nPlayerTwo – @playertwo\nPlayerThree – @playerthree\n"+
		"ReservePlayer – @reserveplayer\n\n📩 Отправь список в ответном сообщении.", MinEntries)
}

func (t texts) rosterTooShort(found int) string {
	return fmt.Sprintf("⚠️ Необходимо указать минимум %d игрока (не включая капитана), распознано: %d. "+
		"Проверьте формат и отправьте список снова.", MinEntries, found)
}

func (t texts) rosterTooLong(found int) string {
	return fmt.Sprintf("⚠️ В команде может быть не больше %d игроков (не включая капитана), распознано: %d. "+
		"Сократите список и отправьте его снова.", MaxEntries, found)
}

func (t texts) rosterLongNicknames(nicks []string) string {
	return fmt.Sprintf("⚠️ Никнейм не может быть длиннее %d символов: %s. Исправьте список и отправьте его снова.",
		models.MaxNameLength, format.EscapeHTML(strings.Join(nicks, ", ")))
}

func (t texts) rosterDuplicates(rerr *models.RosterError) string {
	var b strings.Builder
	b.WriteString("⚠️ Обнаружены дубликаты:\n")
	if len(rerr.DuplicateNicknames) > 0 {
		b.WriteString("Повторяющиеся никнеймы: " + format.EscapeHTML(strings.Join(rerr.DuplicateNicknames, ", ")) + "\n")
	}
	if len(rerr.DuplicateHandles) > 0 {
		b.WriteString("Повторяющиеся юзернеймы: " + format.EscapeHTML(strings.Join(rerr.DuplicateHandles, ", ")) + "\n")
	}
	b.WriteString("Пожалуйста, исправьте список игроков и отправьте его снова.")
	return b.String()
}

func (t texts) checking() string {
	return "⏳ Проверяем подписку игроков на канал. Это может занять некоторое время..."
}

// summary lists every roster entry in input order with its verification outcome.
func (t texts) summary(results []verify.Result) string {
	var b strings.Builder
	all := true
	for _, r := range results {
		if r.Outcome != verify.OutcomeSubscribed {
			all = false
			break
		}
	}
	if all {
		fmt.Fprintf(&b, "✅ Все игроки из списка подписаны на канал %s!\n\n", format.EscapeHTML(t.channel))
	} else {
		fmt.Fprintf(&b, "⚠️ Не все игроки подписаны на канал %s или их подписку не удалось проверить:\n\n", format.EscapeHTML(t.channel))
	}
	for _, r := range results {
		icon, note := "✅", ""
		switch r.Outcome {
		case verify.OutcomeNotSubscribed:
			icon, note = "❌", " (не подписан)"
		case verify.OutcomeUnresolved:
			icon, note = "❔", " (проверьте правильность юзернейма)"
		case verify.OutcomeFailed:
			icon, note = "❔", " (не удалось проверить)"
		}
		fmt.Fprintf(&b, "%s %s%s\n", icon, playerLine(r.Player), note)
	}
	if !all {
		b.WriteString("\nПроверка носит рекомендательный характер: можно продолжить регистрацию, " +
			"но убедитесь, что все игроки подписаны на канал.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (t texts) ackUseButtons() string {
	return "Неизвестный ввод. Пожалуйста, используйте кнопки."
}

func (t texts) resendRoster() string {
	return "Пожалуйста, отправьте список игроков заново.\n\n" + t.askRoster()
}

func (t texts) askContact() string {
	return "📞 Теперь укажи контакты капитана команды.\n\n" +
		"💬 Напиши в ответном сообщении Telegram или Discord капитана.\n\n" +
		"👀 Пример:\n📌 Telegram: @CaptainUsername\nили\n📌 Discord: Captain#1234"
}

func (t texts) contactTooLong() string {
	return fmt.Sprintf("⚠️ Контакт не может быть длиннее %d символов. Укажите Telegram или Discord капитана.", models.MaxContactLength)
}

func (t texts) saveFailed() string {
	return "❌ Произошла ошибка при сохранении регистрации. Пожалуйста, начните регистрацию заново позже."
}

func (t texts) nameTakenOnSave() string {
	return "⚠️ Пока вы заполняли заявку, команда с таким названием уже была зарегистрирована. " +
		"Начните регистрацию заново и выберите другое название."
}

func (t texts) tryAgain() string {
	return "⚠️ Что-то пошло не так. Попробуйте ещё раз."
}

func (t texts) confirmation(d flow.Draft, contact string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Поздравляем! Ваша команда успешно зарегистрирована на %s!\n\n", format.EscapeHTML(t.tournament))
	b.WriteString("📋 Информация о регистрации:\n")
	fmt.Fprintf(&b, "🎮 Название команды: %s\n\n", format.Bold(d.TeamName))
	b.WriteString("👥 Состав команды:\n")
	for _, p := range d.Players {
		fmt.Fprintf(&b, "  - 🎮 %s\n", playerLine(p))
	}
	fmt.Fprintf(&b, "\n👨‍✈️ Контакты капитана: %s\n\n", format.EscapeHTML(contact))
	b.WriteString("📢 Вскоре мы свяжемся с капитаном для подтверждения участия.\n\n🔥 Удачи в турнире! 🎮🏆")
	return b.String()
}

func (t texts) infoText() string {
	if strings.TrimSpace(t.info) != "" {
		return format.EscapeHTML(t.info)
	}
	return fmt.Sprintf("🏆 %s\n\n📅 Информация о турнире будет добавлена позже.", format.EscapeHTML(t.tournament))
}

func (t texts) faqText() string {
	if strings.TrimSpace(t.faq) != "" {
		return format.EscapeHTML(t.faq)
	}
	return "❓ Часто задаваемые вопросы:\n\nИнформация будет добавлена позже."
}

func (t texts) notRegistered() string {
	return "⚠️ Вы ещё не зарегистрировали свою команду или вас ещё не добавили в состав команды."
}

func (t texts) status(team *models.Team) string {
	var b strings.Builder
	b.WriteString("<b>Статус регистрации команды:</b>\n")
	fmt.Fprintf(&b, "🏆 Название команды: %s\n", format.EscapeHTML(team.Name))
	fmt.Fprintf(&b, "✅ Статус: %s\n", StatusName(team.Status))
	if team.AdminComment != nil && *team.AdminComment != "" {
		fmt.Fprintf(&b, "💭 Комментарий: %s\n", format.EscapeHTML(*team.AdminComment))
	}
	b.WriteString("👥 Игроки:\n")
	for _, p := range team.Players {
		fmt.Fprintf(&b, "  - 🎮 %s\n", playerLine(p))
	}
	return strings.TrimRight(b.String(), "\n")
}

// playerLine renders "Nick – @handle (Капитан)".
func playerLine(p models.Player) string {
	line := format.EscapeHTML(p.Nickname)
	if h := format.Handle(p.Handle); h != "" {
		line += " – " + h
	}
	if p.IsCaptain {
		line += captainMark
	}
	return line
}
