package telegram

import (
	"english_test_bot/internal/model"
	"english_test_bot/internal/repository"
	"english_test_bot/internal/service"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects messages over 4096 chars; reports are cut at a safe
// margin below that by dropping the detail block, never the summary.
const messageSizeCeiling = 4000

func welcomeText(firstName string) string {
	return fmt.Sprintf(`Assalomu alaykum, %s!

*IT House English Test Bot* ga xush kelibsiz!

Bu bot orqali siz ingliz tili darajangizni sinab ko'ring va natijalaringizni oling.`, firstName)
}

func mainMenuKeyboard(isAdmin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Test yechish", "start_test"),
			tgbotapi.NewInlineKeyboardButtonData("Natijalarim", "my_results"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Profil", "profile"),
			tgbotapi.NewInlineKeyboardButtonData("Yordam", "help"),
		),
	}
	if isAdmin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Admin panel", "admin_login"),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func levelSelectionText() string {
	var b strings.Builder
	b.WriteString("*Test darajasini tanlang:*\n\n")
	for _, level := range model.AllLevels {
		fmt.Fprintf(&b, "*%s:* %s\n\n", level.Label(), level.Description())
	}
	return b.String()
}

func levelSelectionKeyboard(counts map[model.Level]int64, prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, level := range model.AllLevels {
		text := fmt.Sprintf("%s (%d savol)", level.Label(), counts[level])
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(text, prefix+string(level)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Orqaga", "main_menu"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func questionText(q *model.Question, index, total int, level model.Level) string {
	return fmt.Sprintf(`*Savol %d/%d*

%s

Daraja: %s`, index+1, total, q.Text, level.Label())
}

func questionKeyboard(q *model.Question, index int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, opt := range q.Options() {
		data := fmt.Sprintf("answer_%d_%s", index, opt.Label)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s: %s", opt.Label, opt.Text), data),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("O'tkazib yuborish", fmt.Sprintf("skip_%d", index)),
		tgbotapi.NewInlineKeyboardButtonData("Testni tugatish", "cancel_test"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func reportText(report *model.Report) string {
	summary := fmt.Sprintf(`*TEST NATIJALARI*

Daraja: *%s*
Umumiy savollar: *%d*
To'g'ri javoblar: *%d*
Noto'g'ri javoblar: *%d*
Foiz: *%.1f%%*
Vaqt: *%d:%02d*

Sana: %s
Natija ID: #%d`,
		report.Level.Label(),
		report.TotalQuestions,
		report.CorrectAnswers,
		report.WrongAnswers,
		report.Percentage,
		int(report.Duration.Minutes()),
		int(report.Duration.Seconds())%60,
		time.Now().Format("02.01.2006 15:04"),
		report.ResultID,
	)

	var detail strings.Builder
	detail.WriteString("\n\n*Tafsilotlar:*\n")
	for i, answer := range report.Answers {
		status := "✅"
		if !answer.IsCorrect {
			status = "❌"
		}
		chosen := answer.Answer
		if answer.Skipped() {
			chosen = "O'tkazib yuborildi"
		}
		fmt.Fprintf(&detail, "\n%d. %s %s\n   Sizning javobingiz: %s\n", i+1, status, answer.QuestionText, chosen)
		if !answer.IsCorrect && !answer.Skipped() {
			fmt.Fprintf(&detail, "   To'g'ri javob: %s\n", answer.CorrectLabel)
		}
		if answer.Explanation != "" {
			fmt.Fprintf(&detail, "   Izoh: %s\n", answer.Explanation)
		}
	}

	full := summary + detail.String()
	if len(full) > messageSizeCeiling {
		return summary + "\n\n*Tafsilotlar juda uzun. Faqat natijalar ko'rsatilmoqda.*"
	}
	return full
}

func afterReportKeyboard(isAdmin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yangi test", "start_test"),
			tgbotapi.NewInlineKeyboardButtonData("Bosh menyu", "main_menu"),
		),
	}
	if isAdmin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Admin panel", "admin_login"),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func resultsText(results []model.TestResult, stats *repository.UserStats) string {
	if len(results) == 0 {
		return "Siz hali test topshirmagansiz."
	}

	var b strings.Builder
	b.WriteString("*SIZNING NATIJALARINGIZ*\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   Ball: %d/%d\n   Foiz: %.1f%%\n   Sana: %s\n\n",
			i+1,
			r.Level.Label(),
			r.Score,
			r.TotalQuestions,
			r.Percentage,
			r.CreatedAt.Format("02.01.2006"),
		)
	}
	fmt.Fprintf(&b, `*UMUMIY STATISTIKA:*
Testlar soni: %d
O'rtacha foiz: %.1f%%
Eng yuqori ball: %d`,
		stats.Count, stats.AvgPercentage, stats.MaxScore)
	return b.String()
}

func profileText(user *model.User) string {
	return fmt.Sprintf(`*PROFIL MA'LUMOTLARI*

Ism: %s
Username: @%s
Qo'shilgan sana: %s

*STATISTIKA*
Testlar soni: %d
Eng yaxshi natija: %d ball
Joriy daraja: %s

Foydalanuvchi ID: %d`,
		user.DisplayName(),
		orUnknown(user.Username),
		user.CreatedAt.Format("02.01.2006"),
		user.TotalTests,
		user.BestScore,
		user.CurrentLevel.Label(),
		user.TelegramID,
	)
}

func adminResultNotification(user service.Identity, report *model.Report) string {
	return fmt.Sprintf(`*YANGI TEST NATIJASI*

Foydalanuvchi: @%s
User ID: %d
Daraja: *%s*
Ball: *%d/%d*
Foiz: *%.1f%%*
Vaqt: %s
Natija ID: #%d`,
		orUnknown(user.Username),
		user.TelegramID,
		report.Level.Label(),
		report.Score,
		report.TotalQuestions,
		report.Percentage,
		time.Now().Format("15:04:05"),
		report.ResultID,
	)
}

func offlineResultNotification(user service.Identity, report *service.OfflineReport, resultID uint) string {
	return fmt.Sprintf(`*WEB ILOVA NATIJASI*

Foydalanuvchi: @%s
User ID: %d
Daraja: *%s*
Ball: *%d*
Foiz: *%.1f%%*
Vaqt: %s
Natija ID: #%d`,
		orUnknown(user.Username),
		user.TelegramID,
		report.Level,
		report.Score,
		report.Percentage,
		time.Now().Format("15:04:05"),
		resultID,
	)
}

func helpText() string {
	return `*BOTDAN FOYDALANISH BO'YICHA YORDAM*

*Asosiy komandalar:*
/start - Botni ishga tushirish
/results - Natijalaringizni ko'rish
/profile - Profilingizni ko'rish
/help - Yordam
/admin - Admin panel (faqat adminlar uchun)

*Test jarayoni:*
1. Test yechish tugmasini bosing
2. Darajangizni tanlang
3. Har bir savolga javob bering
4. Test tugaganda natijangizni ko'ring`
}

func orUnknown(s string) string {
	if s == "" {
		return "Noma'lum"
	}
	return s
}
