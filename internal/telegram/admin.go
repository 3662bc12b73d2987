package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"english_test_bot/internal/model"
	"english_test_bot/internal/service"
	"english_test_bot/internal/util"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) beginAdminLogin(chatID, telegramID int64) error {
	code, err := b.admin.BeginLogin(telegramID)
	if err != nil {
		if errors.Is(err, util.ErrNotAuthorized) {
			return b.reply(chatID, "Sizda admin huquqi yo'q.", nil)
		}
		return err
	}
	return b.reply(chatID, fmt.Sprintf(`*ADMIN PANELGA KIRISH*

Bir martalik kod: `+"`%s`"+`

Parol va kodni bitta xabarda yuboring:
`+"`<parol> <kod>`"+`

Kod %d daqiqadan keyin eskiradi.`,
		code, int(b.cfg.Admin.LoginExpiry.Minutes())), nil)
}

// handleAdminText consumes messages belonging to an admin conversation
// (password entry, question text, broadcast text). Returns false when
// the message is not part of one.
func (b *Bot) handleAdminText(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	adminID := msg.From.ID
	if !b.admin.IsAdmin(adminID) {
		return false, nil
	}

	switch b.admin.State(adminID) {
	case service.StateAwaitingPassword:
		return true, b.completeAdminLogin(msg.Chat.ID, adminID, msg.Text)
	case service.StateAddingQuestion:
		return true, b.receiveQuestionText(msg.Chat.ID, adminID, msg.Text)
	case service.StateBroadcasting:
		if b.admin.Broadcasting(adminID, true) {
			return true, b.runBroadcast(adminID, msg.Chat.ID, msg.Text)
		}
		return false, nil
	default:
		return false, nil
	}
}

func (b *Bot) completeAdminLogin(chatID, adminID int64, input string) error {
	if err := b.admin.CompleteLogin(adminID, input); err != nil {
		if errors.Is(err, util.ErrAuthenticationFailed) {
			return b.reply(chatID,
				"Parol yoki kod noto'g'ri. Qaytadan kirish uchun /admin ni bosing.", nil)
		}
		return err
	}
	return b.sendAdminPanel(chatID, 0)
}

func (b *Bot) sendAdminPanel(chatID int64, messageID int) error {
	overview, err := b.admin.Overview()
	if err != nil {
		return err
	}
	text := fmt.Sprintf(`*ADMIN PANEL*

Foydalanuvchilar: %d
Testlar: %d
Savollar: %d
Bugungi testlar: %d`,
		overview.Users, overview.Tests, overview.Questions, overview.TodayTests)

	kb := adminPanelKeyboard()
	if messageID > 0 {
		return b.editOrSend(chatID, messageID, text, &kb)
	}
	return b.reply(chatID, text, &kb)
}

func adminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Savollar", "admin_questions"),
			tgbotapi.NewInlineKeyboardButtonData("Statistika", "admin_stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Xabar yuborish", "admin_broadcast"),
			tgbotapi.NewInlineKeyboardButtonData("Chiqish", "admin_logout"),
		),
	)
}

func (b *Bot) handleAdminCallback(ctx context.Context, chatID int64, messageID int, adminID int64, data string) error {
	if data == "admin_login" {
		if b.admin.Authorized(adminID) {
			return b.sendAdminPanel(chatID, messageID)
		}
		return b.beginAdminLogin(chatID, adminID)
	}

	if !b.admin.Authorized(adminID) {
		return b.editOrSend(chatID, messageID,
			"Sessiya tugagan. Qaytadan kirish uchun /admin ni bosing.", nil)
	}

	switch {
	case data == "admin_panel":
		if err := b.admin.BackToMenu(adminID); err != nil {
			return err
		}
		return b.sendAdminPanel(chatID, messageID)
	case data == "admin_questions":
		return b.sendQuestionsMenu(chatID, messageID)
	case strings.HasPrefix(data, "admin_listq_"):
		level := model.Level(strings.TrimPrefix(data, "admin_listq_"))
		return b.sendQuestionList(chatID, messageID, adminID, level)
	case strings.HasPrefix(data, "admin_delq_"):
		id, err := strconv.ParseUint(strings.TrimPrefix(data, "admin_delq_"), 10, 32)
		if err != nil {
			return nil
		}
		question, err := b.admin.DeactivateQuestion(adminID, uint(id))
		if err != nil {
			if errors.Is(err, util.ErrPersistenceFailure) {
				return b.editOrSend(chatID, messageID,
					"Savolni o'chirishda xatolik yuz berdi.", ptr(adminPanelKeyboard()))
			}
			return err
		}
		return b.sendQuestionList(chatID, messageID, adminID, question.Level)
	case data == "admin_addq":
		counts, err := b.quiz.LevelCounts()
		if err != nil {
			return err
		}
		return b.editOrSend(chatID, messageID,
			"*Yangi savol darajasini tanlang:*",
			ptr(levelSelectionKeyboard(counts, "admin_addq_level_")))
	case strings.HasPrefix(data, "admin_addq_level_"):
		level := model.Level(strings.TrimPrefix(data, "admin_addq_level_"))
		if err := b.admin.BeginAddQuestion(adminID, level); err != nil {
			return err
		}
		return b.editOrSend(chatID, messageID, questionFormatHelp(level), nil)
	case data == "admin_stats":
		return b.sendAdminStats(chatID, messageID)
	case data == "admin_broadcast":
		if err := b.admin.BeginBroadcast(adminID); err != nil {
			return err
		}
		return b.editOrSend(chatID, messageID,
			"*Barcha foydalanuvchilarga yuboriladigan xabarni kiriting:*", nil)
	case data == "admin_logout":
		b.admin.Logout(adminID)
		return b.editOrSend(chatID, messageID,
			"Admin paneldan chiqdingiz.", ptr(mainMenuKeyboard(true)))
	default:
		return nil
	}
}

func (b *Bot) sendQuestionsMenu(chatID int64, messageID int) error {
	stats, err := b.admin.Statistics()
	if err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("*SAVOLLAR BOSHQARUVI*\n\n")
	for _, level := range model.AllLevels {
		fmt.Fprintf(&sb, "%s: %d ta savol\n", level.Label(), stats.QuestionsByLevel[level])
	}
	fmt.Fprintf(&sb, "\nJami: %d (faol: %d)", stats.TotalQuestions, stats.ActiveQuestions)
	sb.WriteString("\n\nKo'rish uchun darajani tanlang:")

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(model.AllLevels)/2+2)
	for i := 0; i < len(model.AllLevels); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				model.AllLevels[i].Label(), "admin_listq_"+string(model.AllLevels[i])),
		}
		if i+1 < len(model.AllLevels) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				model.AllLevels[i+1].Label(), "admin_listq_"+string(model.AllLevels[i+1])))
		}
		rows = append(rows, row)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Savol qo'shish", "admin_addq"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Orqaga", "admin_panel"),
		),
	)
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.editOrSend(chatID, messageID, sb.String(), &kb)
}

// sendQuestionList shows a level's active questions with a retire button
// for each; retired questions stay in the database for past results.
func (b *Bot) sendQuestionList(chatID int64, messageID int, adminID int64, level model.Level) error {
	questions, err := b.admin.ListQuestions(adminID, level)
	if err != nil {
		if errors.Is(err, util.ErrInvalidQuestionFormat) {
			return b.sendQuestionsMenu(chatID, messageID)
		}
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s — savollar*\n", level.Label())
	if len(questions) == 0 {
		sb.WriteString("\nBu darajada faol savol yo'q.")
	}
	for _, q := range questions {
		fmt.Fprintf(&sb, "\n*#%d* %s\nTo'g'ri javob: %s\n",
			q.ID, truncateQuestion(q.Text), q.CorrectLabel)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(questions)+1)
	for _, q := range questions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("#%d ni o'chirish", q.ID),
				fmt.Sprintf("admin_delq_%d", q.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Orqaga", "admin_questions"),
	))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.editOrSend(chatID, messageID, sb.String(), &kb)
}

// truncateQuestion keeps list rows short enough for one screen.
func truncateQuestion(text string) string {
	const max = 60
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func questionFormatHelp(level model.Level) string {
	return fmt.Sprintf(`*%s darajasi uchun yangi savol*

Savolni quyidagi formatda yuboring:

`+"```"+`
Savol matni
A) Birinchi variant
B) Ikkinchi variant
C) Uchinchi variant
D) To'rtinchi variant
B
Izoh (ixtiyoriy)
`+"```"+`

Oxirgi yolg'iz harf to'g'ri javob belgisi.`, level.Label())
}

func (b *Bot) receiveQuestionText(chatID, adminID int64, text string) error {
	question, err := b.admin.SubmitQuestionText(adminID, text)
	if err != nil {
		if errors.Is(err, util.ErrInvalidQuestionFormat) {
			return b.reply(chatID,
				"Savol formati noto'g'ri. Qaytadan urinish uchun Savol qo'shish tugmasini bosing.",
				ptr(adminPanelKeyboard()))
		}
		return err
	}
	return b.reply(chatID,
		fmt.Sprintf("Savol qo'shildi! (ID: %d, daraja: %s)", question.ID, question.Level.Label()),
		ptr(adminPanelKeyboard()))
}

func (b *Bot) sendAdminStats(chatID int64, messageID int) error {
	stats, err := b.admin.Statistics()
	if err != nil {
		return err
	}
	text := fmt.Sprintf(`*BATAFSIL STATISTIKA*

*Foydalanuvchilar:*
Jami: %d
Haftalik faol: %d
Oylik faol: %d
Test topshirganlar: %d
Bugun qo'shilganlar: %d

*Testlar:*
Jami: %d
Bugun: %d
O'rtacha foiz: %.1f%%
Eng yuqori ball: %d
Eng past ball: %d

*Savollar:*
Jami: %d (faol: %d)`,
		stats.TotalUsers, stats.ActiveWeek, stats.ActiveMonth,
		stats.TestedUsers, stats.NewToday,
		stats.TotalTests, stats.TodayTests, stats.AvgPercentage,
		stats.MaxScore, stats.MinScore,
		stats.TotalQuestions, stats.ActiveQuestions)

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Orqaga", "admin_panel"),
		),
	)
	return b.editOrSend(chatID, messageID, text, &kb)
}

// runBroadcast acknowledges immediately and delivers in the background
// under the configured send rate.
func (b *Bot) runBroadcast(adminID, chatID int64, text string) error {
	if err := b.reply(chatID, "Xabar yuborilmoqda...", nil); err != nil {
		return err
	}
	go func() {
		sent, total, err := b.cast.Send(context.Background(), adminID, text, b)
		if err != nil {
			b.logger.Error("broadcast failed",
				zap.Int64("admin_id", adminID), zap.Error(err))
			_ = b.reply(chatID, "Xabar yuborishda xatolik yuz berdi.", nil)
			return
		}
		_ = b.reply(chatID,
			fmt.Sprintf("Xabar yuborildi!\nYetkazildi: %d/%d", sent, total),
			ptr(adminPanelKeyboard()))
	}()
	return nil
}
