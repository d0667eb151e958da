package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"meal-planner/internal/api"
	"meal-planner/internal/config"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxMessageLen is Telegram's limit for a single text message.
const maxMessageLen = 4096

const planUsage = "Usage: `/plan [weight-loss|muscle-gain|maintenance] [veg|non-veg] [days]`"

// Generator produces meal plans.
type Generator interface {
	Generate(ctx context.Context, userID string, req planner.Request) (*planner.MealPlan, error)
}

// MetricsStore records generations and reports recent usage.
type MetricsStore interface {
	Record(ctx context.Context, m metrics.GenerationMetric) error
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Sender delivers outgoing messages. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot wraps the Telegram API and the Planner.
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   Sender
	planner  Generator
	metrics  MetricsStore
	allowed  []int64
	maxDays  int
	dataPath string
	log      *zap.SugaredLogger

	// inflight tracks message goroutines started by the webhook.
	inflight sync.WaitGroup
}

// NewBot initializes the Telegram Bot and sets the Webhook. store may be nil.
func NewBot(cfg *config.Config, gen Generator, store MetricsStore, log *zap.SugaredLogger) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Infow("Authorized on account", "username", bot.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Infow("Webhook set", "description", resp.Description)

	var dataPath string
	if cfg.StoreDriver == config.DriverSQLite {
		dataPath = cfg.DatabasePath
	}

	return &Bot{
		api:      bot,
		sender:   bot,
		planner:  gen,
		metrics:  store,
		allowed:  cfg.TelegramAllowedUserIDs,
		maxDays:  cfg.MaxPlanDays,
		dataPath: dataPath,
		log:      log,
	}, nil
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.log.Warnw("Error parsing update", "error", err)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if !b.isAllowed(update.Message.From.ID) {
		b.log.Warnw("Unauthorized access attempt", "user_id", update.Message.From.ID, "username", update.Message.From.UserName)
		return
	}

	b.inflight.Add(1)
	go func(msg *tgbotapi.Message) {
		defer b.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		b.processMessage(ctx, msg)
	}(update.Message)
}

// Wait blocks until every message accepted by the webhook has been handled.
// Call it after the HTTP server has shut down.
func (b *Bot) Wait() {
	b.inflight.Wait()
}

func (b *Bot) isAllowed(userID int64) bool {
	return slices.Contains(b.allowed, userID)
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}
	// Commands may be addressed as /plan@botname in groups.
	cmd, _, _ := strings.Cut(fields[0], "@")

	switch cmd {
	case "/plan":
		b.handlePlanCommand(ctx, msg, fields[1:])
	case "/metrics":
		b.handleMetricsCommand(ctx, msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, "🧑‍🍳 I can build you a meal plan.\n"+planUsage)
	}
}

func (b *Bot) handlePlanCommand(ctx context.Context, msg *tgbotapi.Message, args []string) {
	req, err := parsePlanCommand(args, b.maxDays)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ %s\n%s", escapeMarkdown(err.Error()), planUsage))
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	b.log.Infow("Generating plan", "user_id", userID, "goal", req.Goal, "diet_type", req.DietType, "days", req.Days)

	start := time.Now()
	plan, err := b.planner.Generate(ctx, userID, req)
	if err != nil {
		b.reply(msg.Chat.ID, planErrorText(err))
		if !errors.Is(err, planner.ErrTDEENotFound) && !errors.Is(err, planner.ErrNoRecipes) {
			b.log.Errorw("Error generating plan", "user_id", userID, "error", err)
		}
		return
	}

	if b.metrics != nil {
		err := b.metrics.Record(ctx, metrics.GenerationMetric{
			UserID:      userID,
			Goal:        string(req.Goal),
			DietType:    string(req.DietType),
			Days:        len(plan.Days),
			RecipeCount: plan.RecipeCount,
			LatencyMS:   time.Since(start).Milliseconds(),
		})
		if err != nil {
			b.log.Warnw("failed to record generation metric", "user_id", userID, "error", err)
		}
	}

	for _, part := range splitMessage(formatPlanMarkdown(plan), maxMessageLen) {
		b.reply(msg.Chat.ID, part)
	}
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	if b.metrics == nil {
		b.reply(chatID, "Metrics are not available with this store.")
		return
	}
	usage, err := b.metrics.GetDailyUsage(ctx, 7)
	if err != nil {
		b.log.Errorw("Error fetching metrics", "error", err)
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}
	b.reply(chatID, formatMetricsMarkdown(usage, metrics.GetSysHealth(b.dataPath)))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.sender.Send(msg); err != nil {
		b.log.Warnw("Failed to send message", "chat_id", chatID, "error", err)
	}
}

// parsePlanCommand reads the optional goal, diet type and day count of a
// /plan command. Arguments may appear in any order.
func parsePlanCommand(args []string, maxDays int) (planner.Request, error) {
	var req planner.Request
	for _, arg := range args {
		arg = strings.ToLower(arg)
		if goal, err := recipe.ParseGoal(arg); err == nil {
			req.Goal = goal
			continue
		}
		if diet, err := recipe.ParseDietType(arg); err == nil {
			req.DietType = diet
			continue
		}
		if days, err := strconv.Atoi(arg); err == nil {
			if days < 1 || days > maxDays {
				return planner.Request{}, fmt.Errorf("days must be between 1 and %d", maxDays)
			}
			req.Days = days
			continue
		}
		return planner.Request{}, fmt.Errorf("unknown option %q", arg)
	}
	if req.Days == 0 {
		req.Days = planner.DefaultDays
	}
	return req, nil
}

func planErrorText(err error) string {
	switch {
	case errors.Is(err, planner.ErrTDEENotFound):
		return "⚠️ " + api.MsgTDEENotFound
	case errors.Is(err, planner.ErrNoRecipes):
		return "⚠️ " + api.MsgNoRecipes
	default:
		return fmt.Sprintf("❌ *Error generating plan:*\n```\n%s\n```", strings.ReplaceAll(err.Error(), "`", "'"))
	}
}

func formatPlanMarkdown(plan *planner.MealPlan) string {
	var sb strings.Builder
	s := plan.Summary

	sb.WriteString(fmt.Sprintf("📅 *Meal Plan* (%d days)\n", s.Days))
	sb.WriteString(fmt.Sprintf("🎯 Target: %.0f kcal/day (TDEE %.0f)\n", s.TargetCalories, s.BaseTDEE))
	if s.Goal != "" || s.DietType != "" {
		var tags []string
		for _, t := range []string{string(s.Goal), string(s.DietType)} {
			if t != "" {
				tags = append(tags, escapeMarkdown(t))
			}
		}
		sb.WriteString(fmt.Sprintf("_%s_\n", strings.Join(tags, ", ")))
	}

	for _, dp := range plan.Days {
		sb.WriteString(fmt.Sprintf("\n*Day %d*\n", dp.Day))
		for _, mt := range recipe.MealTypes {
			rec := dp.Meals.Get(mt)
			if rec == nil {
				continue
			}
			sb.WriteString(fmt.Sprintf("• %s: %s (%.0f kcal)\n", mealLabel(mt), escapeMarkdown(rec.Name), rec.Calories))
		}
		t := dp.Totals
		sb.WriteString(fmt.Sprintf("Σ %d kcal · P %dg · C %dg · F %dg\n", t.TotalCalories, t.TotalProtein, t.TotalCarbs, t.TotalFats))
	}

	avg := s.AverageDailyTotals
	sb.WriteString(fmt.Sprintf("\n📊 *Daily average:* %d kcal · P %dg · C %dg · F %dg", avg.AvgCalories, avg.AvgProtein, avg.AvgCarbs, avg.AvgFats))
	return sb.String()
}

func formatMetricsMarkdown(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Generations*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d plans, %d days (avg %dms)\n", d.Date, d.TotalGenerations, d.TotalDays, d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	if health.DataDiskSize != "" {
		sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	}
	return sb.String()
}

func mealLabel(mt recipe.MealType) string {
	s := string(mt)
	return strings.ToUpper(s[:1]) + s[1:]
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// splitMessage breaks text into chunks of at most limit bytes on line
// boundaries. A single line longer than limit is cut on a rune boundary.
func splitMessage(text string, limit int) []string {
	var parts []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
