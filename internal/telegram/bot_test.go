package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type mockSender struct {
	texts []string
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.texts = append(m.texts, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

type mockGenerator struct {
	plan   *planner.MealPlan
	err    error
	delay  time.Duration
	userID string
	req    planner.Request
}

func (m *mockGenerator) Generate(ctx context.Context, userID string, req planner.Request) (*planner.MealPlan, error) {
	time.Sleep(m.delay)
	m.userID = userID
	m.req = req
	return m.plan, m.err
}

type mockMetrics struct {
	recorded []metrics.GenerationMetric
	usage    []metrics.DailyUsage
}

func (m *mockMetrics) Record(ctx context.Context, gm metrics.GenerationMetric) error {
	m.recorded = append(m.recorded, gm)
	return nil
}

func (m *mockMetrics) GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return m.usage, nil
}

func samplePlan() *planner.MealPlan {
	var meals planner.Meals
	meals.Set(recipe.Breakfast, recipe.Recipe{ID: "oats", Name: "Overnight_Oats", MealType: recipe.Breakfast, Calories: 350, Protein: 12})
	meals.Set(recipe.Dinner, recipe.Recipe{ID: "dal", Name: "Dal", MealType: recipe.Dinner, Calories: 500, Protein: 20})
	day := planner.DayPlan{Day: 1, Meals: meals, TargetCalories: 1700, Totals: meals.Totals()}
	return &planner.MealPlan{
		Days: []planner.DayPlan{day},
		Summary: planner.Summary{
			BaseTDEE:           2200,
			TargetCalories:     1700,
			Goal:               recipe.WeightLoss,
			DietType:           recipe.Veg,
			Days:               1,
			AverageDailyTotals: planner.Average([]planner.DayPlan{day}),
		},
		RecipeCount: 2,
	}
}

func newTestBot(gen Generator, store MetricsStore) (*Bot, *mockSender) {
	sender := &mockSender{}
	return &Bot{
		sender:  sender,
		planner: gen,
		metrics: store,
		allowed: []int64{42},
		maxDays: 31,
		log:     zap.NewNop().Sugar(),
	}, sender
}

func planMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 7},
	}
}

func TestParsePlanCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    planner.Request
		wantErr bool
	}{
		{"Defaults", nil, planner.Request{Days: planner.DefaultDays}, false},
		{"All", []string{"muscle-gain", "non-veg", "5"}, planner.Request{Goal: recipe.MuscleGain, DietType: recipe.NonVeg, Days: 5}, false},
		{"AnyOrder", []string{"3", "VEG"}, planner.Request{DietType: recipe.Veg, Days: 3}, false},
		{"TooManyDays", []string{"40"}, planner.Request{}, true},
		{"ZeroDays", []string{"0"}, planner.Request{}, true},
		{"Unknown", []string{"keto"}, planner.Request{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePlanCommand(tt.args, 31)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePlanCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parsePlanCommand() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatPlanMarkdown(t *testing.T) {
	out := formatPlanMarkdown(samplePlan())

	for _, want := range []string{
		"📅 *Meal Plan* (1 days)",
		"Target: 1700 kcal/day (TDEE 2200)",
		"_weight-loss, veg_",
		"*Day 1*",
		`• Breakfast: Overnight\_Oats (350 kcal)`,
		"• Dinner: Dal (500 kcal)",
		"Σ 850 kcal · P 32g",
		"*Daily average:* 850 kcal",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Lunch") {
		t.Error("Empty slots should not be rendered")
	}
}

func TestSplitMessage(t *testing.T) {
	text := strings.Repeat("0123456789\n", 10)

	parts := splitMessage(text, 25)
	if strings.Join(parts, "") != text {
		t.Fatal("Parts do not reassemble into the original text")
	}
	for _, p := range parts {
		if len(p) > 25 {
			t.Errorf("Part exceeds limit: %d", len(p))
		}
	}

	long := splitMessage(strings.Repeat("x", 60), 25)
	if len(long) != 3 || len(long[2]) != 10 {
		t.Errorf("Expected long line cut into 25/25/10, got %d parts", len(long))
	}

	accented := "a" + strings.Repeat("é", 3000)
	multi := splitMessage(accented, maxMessageLen)
	if strings.Join(multi, "") != accented {
		t.Fatal("Multibyte parts do not reassemble into the original text")
	}
	for i, p := range multi {
		if !utf8.ValidString(p) {
			t.Errorf("Part %d is not valid UTF-8", i)
		}
		if len(p) > maxMessageLen {
			t.Errorf("Part %d exceeds limit: %d", i, len(p))
		}
	}
}

func TestProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Plan", func(t *testing.T) {
		gen := &mockGenerator{plan: samplePlan()}
		store := &mockMetrics{}
		bot, sender := newTestBot(gen, store)

		bot.processMessage(ctx, planMessage("/plan@MealBot weight-loss veg 1"))

		if gen.userID != "42" {
			t.Errorf("Expected Telegram user id as user id, got %q", gen.userID)
		}
		if gen.req.Goal != recipe.WeightLoss || gen.req.DietType != recipe.Veg || gen.req.Days != 1 {
			t.Errorf("Unexpected request: %+v", gen.req)
		}
		if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "*Meal Plan*") {
			t.Errorf("Expected a single plan message, got %v", sender.texts)
		}
		if len(store.recorded) != 1 || store.recorded[0].RecipeCount != 2 {
			t.Errorf("Expected one recorded metric, got %+v", store.recorded)
		}
	})

	t.Run("TDEENotFound", func(t *testing.T) {
		bot, sender := newTestBot(&mockGenerator{err: planner.ErrTDEENotFound}, nil)
		bot.processMessage(ctx, planMessage("/plan"))
		if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "TDEE data not found") {
			t.Errorf("Expected TDEE message, got %v", sender.texts)
		}
	})

	t.Run("InternalError", func(t *testing.T) {
		bot, sender := newTestBot(&mockGenerator{err: errors.New("failed to fetch recipes: `boom`")}, nil)
		bot.processMessage(ctx, planMessage("/plan"))
		if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "'boom'") {
			t.Errorf("Expected sanitized error message, got %v", sender.texts)
		}
	})

	t.Run("BadArgs", func(t *testing.T) {
		gen := &mockGenerator{}
		bot, sender := newTestBot(gen, nil)
		bot.processMessage(ctx, planMessage("/plan 99"))
		if gen.userID != "" {
			t.Error("Generator should not be called for invalid arguments")
		}
		if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "Usage") {
			t.Errorf("Expected usage hint, got %v", sender.texts)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		store := &mockMetrics{usage: []metrics.DailyUsage{{Date: "2026-10-15", TotalGenerations: 3, TotalDays: 21, AvgLatencyMS: 12}}}
		bot, sender := newTestBot(&mockGenerator{}, store)
		bot.processMessage(ctx, planMessage("/metrics"))
		if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "*2026-10-15*: 3 plans, 21 days") {
			t.Errorf("Unexpected metrics report: %v", sender.texts)
		}
	})

	t.Run("Help", func(t *testing.T) {
		bot, sender := newTestBot(&mockGenerator{}, nil)
		bot.processMessage(ctx, planMessage("hello"))
		if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "/plan") {
			t.Errorf("Expected help text, got %v", sender.texts)
		}
	})
}

func TestIsAllowed(t *testing.T) {
	bot, _ := newTestBot(nil, nil)
	if !bot.isAllowed(42) {
		t.Error("Expected 42 to be allowed")
	}
	if bot.isAllowed(43) {
		t.Error("Expected 43 to be rejected")
	}
}

func TestWebhook_WaitDrainsInflightMessages(t *testing.T) {
	update := func(userID string) *http.Request {
		body := `{"update_id":1,"message":{"message_id":1,"date":0,"text":"/plan","from":{"id":` + userID + `},"chat":{"id":7}}}`
		return httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	}

	t.Run("Allowed", func(t *testing.T) {
		gen := &mockGenerator{plan: samplePlan(), delay: 50 * time.Millisecond}
		bot, sender := newTestBot(gen, nil)
		bot.api = &tgbotapi.BotAPI{}

		bot.handleWebhook(httptest.NewRecorder(), update("42"))
		bot.Wait()

		if gen.userID != "42" {
			t.Errorf("Expected message from 42 to be processed, got %q", gen.userID)
		}
		if len(sender.texts) != 1 {
			t.Errorf("Expected reply sent before Wait returned, got %d", len(sender.texts))
		}
	})

	t.Run("NotAllowed", func(t *testing.T) {
		gen := &mockGenerator{plan: samplePlan()}
		bot, sender := newTestBot(gen, nil)
		bot.api = &tgbotapi.BotAPI{}

		bot.handleWebhook(httptest.NewRecorder(), update("99"))
		bot.Wait()

		if gen.userID != "" || len(sender.texts) != 0 {
			t.Errorf("Expected message from 99 to be ignored, got user %q and %d replies", gen.userID, len(sender.texts))
		}
	})
}
