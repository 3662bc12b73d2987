package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"english_test_bot/internal/config"
	"english_test_bot/internal/model"
	"english_test_bot/internal/service"
	"english_test_bot/internal/util"
	"english_test_bot/pkg/monitoring"
	"english_test_bot/pkg/security"
	"english_test_bot/pkg/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot owns the long-poll loop and routes every update to the quiz,
// result and admin services. It is also the MessageSender used by
// broadcasts and admin notifications.
type Bot struct {
	api     *tgbotapi.BotAPI
	logger  *zap.Logger
	cfg     *config.Config
	quiz    *service.QuizService
	results *service.ResultService
	admin   *service.AdminService
	cast    *service.BroadcastService
	flood   *security.FloodLimiter
	tracing bool
}

func NewBot(
	cfg *config.Config,
	logger *zap.Logger,
	quiz *service.QuizService,
	results *service.ResultService,
	admin *service.AdminService,
	cast *service.BroadcastService,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram api: %w", err)
	}
	api.Debug = cfg.Bot.Mode == "debug"
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	return &Bot{
		api:     api,
		logger:  logger,
		cfg:     cfg,
		quiz:    quiz,
		results: results,
		admin:   admin,
		cast:    cast,
		flood:   security.NewFloodLimiter(20, time.Second),
		tracing: cfg.Tracing.Enabled,
	}, nil
}

// SendText implements service.MessageSender.
func (b *Bot) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(msg)
	return err
}

// Start consumes updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.Bot.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	intent := classifyIntent(update)
	start := time.Now()
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			b.logger.Error("update handler panicked",
				zap.String("intent", intent), zap.Any("panic", r))
		}
		monitoring.ObserveUpdate(intent, outcome, start)
	}()

	if b.tracing {
		childCtx, span := tracing.StartUpdateSpan(ctx, intent)
		defer span.End()
		ctx = childCtx
	}

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	}
	if err != nil {
		outcome = "error"
		b.logger.Warn("update handling failed",
			zap.String("intent", intent), zap.Error(err))
	}
}

func classifyIntent(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		data := update.CallbackQuery.Data
		if i := strings.IndexByte(data, '_'); i > 0 {
			switch {
			case strings.HasPrefix(data, "answer_"):
				return "answer"
			case strings.HasPrefix(data, "skip_"):
				return "skip"
			case strings.HasPrefix(data, "select_level_"):
				return "select_level"
			case strings.HasPrefix(data, "admin_"):
				return data
			}
		}
		return data
	case update.Message != nil && update.Message.IsCommand():
		return "cmd_" + update.Message.Command()
	case update.Message != nil:
		return "text"
	default:
		return "other"
	}
}

func identityFrom(from *tgbotapi.User) service.Identity {
	return service.Identity{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !b.flood.Allow(msg.From.ID) {
		return nil
	}

	if msg.IsCommand() {
		return b.handleCommand(ctx, msg)
	}

	// Admin conversational states (password entry, question text,
	// broadcast text) take priority over everything else.
	if handled, err := b.handleAdminText(ctx, msg); handled {
		return err
	}

	if service.IsOfflineReport(msg.Text) {
		return b.handleOfflineReport(msg)
	}

	return b.reply(msg.Chat.ID, "Buyruqni tushunmadim. /help ni bosing.", nil)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	user := identityFrom(msg.From)
	switch msg.Command() {
	case "start":
		if _, err := b.results.Touch(user); err != nil {
			b.logger.Warn("user registration failed",
				zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
		}
		b.quiz.Cancel(user.TelegramID)
		return b.sendMainMenu(msg.Chat.ID, msg.From.FirstName, user.TelegramID)
	case "help":
		return b.reply(msg.Chat.ID, helpText(), nil)
	case "results":
		return b.sendResults(msg.Chat.ID, user.TelegramID)
	case "profile":
		return b.sendProfile(msg.Chat.ID, user.TelegramID)
	case "admin":
		return b.beginAdminLogin(msg.Chat.ID, user.TelegramID)
	default:
		return b.reply(msg.Chat.ID, "Noma'lum buyruq. /help ni bosing.", nil)
	}
}

func (b *Bot) sendMainMenu(chatID int64, firstName string, telegramID int64) error {
	kb := mainMenuKeyboard(b.admin.IsAdmin(telegramID))
	return b.reply(chatID, welcomeText(firstName), &kb)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}
	if !b.flood.Allow(cb.From.ID) {
		b.answerCallback(cb.ID, "Juda ko'p so'rov. Biroz kuting.")
		return nil
	}

	chatID := cb.Message.Chat.ID
	user := identityFrom(cb.From)
	data := cb.Data

	// Ack first so the client stops the spinner even on errors.
	b.answerCallback(cb.ID, "")

	switch {
	case data == "main_menu":
		b.quiz.Cancel(user.TelegramID)
		return b.editOrSend(chatID, cb.Message.MessageID, welcomeText(cb.From.FirstName),
			ptr(mainMenuKeyboard(b.admin.IsAdmin(user.TelegramID))))
	case data == "help":
		return b.editOrSend(chatID, cb.Message.MessageID, helpText(), nil)
	case data == "start_test":
		return b.sendLevelSelection(chatID, cb.Message.MessageID)
	case strings.HasPrefix(data, "select_level_"):
		return b.startQuiz(chatID, cb.Message.MessageID, user,
			model.Level(strings.TrimPrefix(data, "select_level_")))
	case strings.HasPrefix(data, "answer_"):
		return b.handleAnswer(chatID, cb.Message.MessageID, user, data)
	case strings.HasPrefix(data, "skip_"):
		return b.handleSkip(chatID, cb.Message.MessageID, user, data)
	case data == "cancel_test":
		if err := b.quiz.Cancel(user.TelegramID); err == nil {
			monitoring.QuizSessions.WithLabelValues("cancelled").Inc()
		}
		return b.editOrSend(chatID, cb.Message.MessageID,
			"Test bekor qilindi.", ptr(mainMenuKeyboard(b.admin.IsAdmin(user.TelegramID))))
	case data == "my_results":
		return b.sendResults(chatID, user.TelegramID)
	case data == "profile":
		return b.sendProfile(chatID, user.TelegramID)
	case strings.HasPrefix(data, "admin_"):
		return b.handleAdminCallback(ctx, chatID, cb.Message.MessageID, user.TelegramID, data)
	default:
		return nil
	}
}

func (b *Bot) sendLevelSelection(chatID int64, messageID int) error {
	counts, err := b.quiz.LevelCounts()
	if err != nil {
		return err
	}
	return b.editOrSend(chatID, messageID, levelSelectionText(),
		ptr(levelSelectionKeyboard(counts, "select_level_")))
}

func (b *Bot) startQuiz(chatID int64, messageID int, user service.Identity, level model.Level) error {
	if !level.Valid() {
		return b.editOrSend(chatID, messageID, "Noto'g'ri daraja tanlandi.", nil)
	}
	if _, err := b.quiz.Start(user, level); err != nil {
		if errors.Is(err, util.ErrInsufficientQuestions) {
			return b.editOrSend(chatID, messageID,
				fmt.Sprintf("*%s* darajasida hozircha yetarli savol yo'q. Boshqa darajani tanlang.", level.Label()),
				ptr(mainMenuKeyboard(b.admin.IsAdmin(user.TelegramID))))
		}
		return err
	}
	monitoring.QuizSessions.WithLabelValues("started").Inc()
	return b.sendCurrentQuestion(chatID, messageID, user.TelegramID)
}

func (b *Bot) sendCurrentQuestion(chatID int64, messageID int, telegramID int64) error {
	q, index, total, err := b.quiz.CurrentQuestion(telegramID)
	if err != nil {
		return err
	}
	session, _ := b.quiz.Session(telegramID)
	level := model.Beginner
	if session != nil {
		level = session.Level
	}
	return b.editOrSend(chatID, messageID,
		questionText(q, index, total, level), ptr(questionKeyboard(q, index)))
}

func (b *Bot) handleAnswer(chatID int64, messageID int, user service.Identity, data string) error {
	parts := strings.SplitN(data, "_", 3)
	if len(parts) != 3 {
		return nil
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil
	}
	outcome, err := b.quiz.SubmitAnswer(user.TelegramID, index, parts[2])
	return b.afterAdvance(chatID, messageID, user, outcome, err)
}

func (b *Bot) handleSkip(chatID int64, messageID int, user service.Identity, data string) error {
	index, err := strconv.Atoi(strings.TrimPrefix(data, "skip_"))
	if err != nil {
		return nil
	}
	outcome, err := b.quiz.Skip(user.TelegramID, index)
	return b.afterAdvance(chatID, messageID, user, outcome, err)
}

func (b *Bot) afterAdvance(chatID int64, messageID int, user service.Identity, outcome *service.AnswerOutcome, err error) error {
	switch {
	case errors.Is(err, util.ErrStaleAnswer):
		// Double tap on an already answered question; ignore quietly.
		return nil
	case errors.Is(err, util.ErrNoActiveSession):
		return b.editOrSend(chatID, messageID,
			"Faol test topilmadi. Yangi test boshlang.",
			ptr(mainMenuKeyboard(b.admin.IsAdmin(user.TelegramID))))
	case err != nil:
		return err
	}

	switch {
	case outcome.Record.Skipped():
		monitoring.AnswerCounter.WithLabelValues("skipped").Inc()
	case outcome.Record.IsCorrect:
		monitoring.AnswerCounter.WithLabelValues("correct").Inc()
	default:
		monitoring.AnswerCounter.WithLabelValues("wrong").Inc()
	}

	if outcome.Done {
		return b.finishQuiz(chatID, messageID, user)
	}
	return b.sendCurrentQuestion(chatID, messageID, user.TelegramID)
}

func (b *Bot) finishQuiz(chatID int64, messageID int, user service.Identity) error {
	report, err := b.quiz.Finish(user)
	if err != nil {
		if errors.Is(err, util.ErrPersistenceFailure) {
			b.logger.Error("result persistence failed",
				zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
			return b.editOrSend(chatID, messageID,
				"Natijani saqlashda xatolik yuz berdi. Keyinroq qayta urinib ko'ring.", nil)
		}
		return err
	}
	monitoring.QuizSessions.WithLabelValues("completed").Inc()

	if err := b.editOrSend(chatID, messageID, reportText(report),
		ptr(afterReportKeyboard(b.admin.IsAdmin(user.TelegramID)))); err != nil {
		return err
	}
	b.notifyAdmins(adminResultNotification(user, report))
	return nil
}

func (b *Bot) sendResults(chatID, telegramID int64) error {
	results, stats, err := b.results.RecentResults(telegramID, 5)
	if err != nil {
		return err
	}
	kb := mainMenuKeyboard(b.admin.IsAdmin(telegramID))
	return b.reply(chatID, resultsText(results, stats), &kb)
}

func (b *Bot) sendProfile(chatID, telegramID int64) error {
	user, err := b.results.Profile(telegramID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			return b.reply(chatID, "Profil topilmadi. /start ni bosing.", nil)
		}
		return err
	}
	kb := mainMenuKeyboard(b.admin.IsAdmin(telegramID))
	return b.reply(chatID, profileText(user), &kb)
}

func (b *Bot) handleOfflineReport(msg *tgbotapi.Message) error {
	user := identityFrom(msg.From)
	resultID, report, err := b.results.IngestOffline(user, msg.Text)
	if err != nil {
		return b.reply(msg.Chat.ID, "Natija formati noto'g'ri.", nil)
	}
	if err := b.reply(msg.Chat.ID,
		fmt.Sprintf("Natijangiz qabul qilindi! Natija ID: #%d", resultID), nil); err != nil {
		return err
	}
	b.notifyAdmins(offlineResultNotification(user, report, resultID))
	return nil
}

// notifyAdmins is best effort: a blocked or missing admin chat must
// not affect the user flow.
func (b *Bot) notifyAdmins(text string) {
	for _, adminID := range b.cfg.Admin.IDs {
		if err := b.SendText(adminID, text); err != nil {
			b.logger.Warn("admin notification failed",
				zap.Int64("admin_id", adminID), zap.Error(err))
		}
	}
}

func (b *Bot) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	_, err := b.api.Send(msg)
	return err
}

// editOrSend edits the originating message in place and falls back to
// a fresh message when Telegram refuses the edit (message too old or
// content unchanged).
func (b *Bot) editOrSend(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		edit.ReplyMarkup = keyboard
	}
	if _, err := b.api.Send(edit); err != nil {
		return b.reply(chatID, text, keyboard)
	}
	return nil
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Debug("callback ack failed", zap.Error(err))
	}
}

func ptr(kb tgbotapi.InlineKeyboardMarkup) *tgbotapi.InlineKeyboardMarkup {
	return &kb
}
