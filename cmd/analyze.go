package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/ml"
	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/rolling"
)

const analyzeSystemPrompt = `You are an NFL matchup analyst. You are given the output of a linear
point-spread model and the team statistics it was fed, plus a question.

Rules:
- Answer ONLY from the data provided. Never invent injuries, news or statistics.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise.

Glossary:
- spread: predicted home score minus away score. Positive favours the home team.
- *_avg: mean of a stat over the team's earlier games of the same season,
  entering the game. null means no earlier game (week 1).
- score_differential_post_avg: average final margin.
- mean_epa_avg: average expected points added per offensive play.
- sack_yards_avg: average yards lost to sacks by the offense.
- coefficients: weight of each standardised feature in the spread.
- test_mse / test_mae: held-out error of the model in points.`

var (
	analyzeModel  string
	analyzeAPIKey string
	analyzeYear   int
	analyzeWeek   int
	analyzeRecent int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <home> <away> <question>",
	Short: "AI narrative of a predicted matchup (requires ANTHROPIC_API_KEY)",
	Long: `Predicts the matchup, then asks an Anthropic model to answer a question
grounded only on the prediction, the feature vector, each team's recent
running averages and the model's diagnostics.

Example:
  nflspread analyze KC DET "Why is KC favoured and how confident should I be?"`,
	Args: cobra.MinimumNArgs(3),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Anthropic model to use (default: config analyze_model)")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
	analyzeCmd.Flags().IntVar(&analyzeYear, "year", 0, "season of the rows to use (default: latest)")
	analyzeCmd.Flags().IntVar(&analyzeWeek, "week", 0, "week of the rows to use (default: latest)")
	analyzeCmd.Flags().IntVar(&analyzeRecent, "recent", 4, "recent games per team included as context")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, m, err := loadModel(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	req := model.MatchupRequest{HomeTeam: args[0], AwayTeam: args[1], Year: analyzeYear, Week: analyzeWeek}
	pred, err := e.pipe.Predict(ctx, m, req, "analyze")
	if err != nil {
		return err
	}
	contextJSON, err := buildMatchupContext(pred, m.Table, m.Predictor, analyzeRecent)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	modelID := analyzeModel
	if modelID == "" {
		modelID = cfg.AnalyzeModel
	}
	return callAnthropic(ctx, analyzeAPIKey, modelID, contextJSON, strings.Join(args[2:], " "))
}

// jsonFloat maps missing values to null and rounds to 3 decimals.
func jsonFloat(v float64) *float64 {
	if model.IsMissing(v) || math.IsInf(v, 0) {
		return nil
	}
	r := math.Round(v*1000) / 1000
	return &r
}

// buildMatchupContext serialises the prediction and its inputs into compact JSON.
func buildMatchupContext(pred model.Prediction, table []model.RunningAverageRow, p *ml.Predictor, recent int) (string, error) {
	names := model.FeatureNames()
	features := make(map[string]*float64, len(names))
	coeffs := make(map[string]*float64, len(names))
	for i, v := range pred.Features() {
		features[names[i]] = jsonFloat(v)
		coeffs[names[i]] = jsonFloat(p.Coeffs[i])
	}

	doc := map[string]interface{}{
		"home_team": pred.HomeTeam,
		"away_team": pred.AwayTeam,
		"prediction": map[string]interface{}{
			"spread":    jsonFloat(pred.Spread),
			"favourite": pred.Favourite(),
			"home_row":  fmt.Sprintf("%d week %d", pred.HomeYear, pred.HomeWeek),
			"away_row":  fmt.Sprintf("%d week %d", pred.AwayYear, pred.AwayWeek),
		},
		"features": features,
		"model": map[string]interface{}{
			"version":      p.Version,
			"intercept":    jsonFloat(p.Intercept),
			"coefficients": coeffs,
			"train_rows":   p.Diagnostics.TrainRows,
			"test_rows":    p.Diagnostics.TestRows,
			"test_mse":     jsonFloat(p.Diagnostics.MSE),
			"test_mae":     jsonFloat(p.Diagnostics.MAE),
			"train_r2":     jsonFloat(p.Diagnostics.R2),
		},
		"recent_games": map[string]interface{}{
			pred.HomeTeam: recentGames(table, pred.HomeTeam, pred.HomeYear, pred.HomeWeek, recent),
			pred.AwayTeam: recentGames(table, pred.AwayTeam, pred.AwayYear, pred.AwayWeek, recent),
		},
	}

	b, err := json.Marshal(doc)
	return string(b), err
}

// recentGames returns up to n of team's games in year up to and including week.
func recentGames(table []model.RunningAverageRow, team string, year, week, n int) []map[string]interface{} {
	var rows []model.RunningAverageRow
	for _, r := range rolling.ForTeam(table, team, year) {
		if r.Week <= week {
			rows = append(rows, r)
		}
	}
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		g := map[string]interface{}{
			"week":     r.Week,
			"opponent": r.Opponent(),
			"home":     r.IsHome(),
		}
		for _, s := range model.Stats() {
			g[s.Column()] = jsonFloat(r.Stats[s])
		}
		out = append(out, g)
	}
	return out
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, apiKey, modelID, dataJSON, question string) error {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n─── Matchup Analysis ────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed, check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
