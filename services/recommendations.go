package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/princinho/moviebackend/apperr"
	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/utils"
	"github.com/princinho/moviebackend/worker"
	"go.uber.org/zap"
)

const (
	DefaultRecommendK = 5
	DefaultDiscoverK  = 10
	MaxK              = 50
)

type RecommendParams struct {
	MovieName     string
	MovieLanguage string
	YearGap       string
	K             int
}

type DiscoverParams struct {
	Genres    []string
	Languages []string
	K         int
}

type LanguageOption struct {
	Language string   `json:"Language"`
	Year     *float64 `json:"Year,omitempty"`
}

// WorkerFailure is the body the worker prints, with exit code 0, when it
// understood the request but could not answer it.
type WorkerFailure struct {
	Error            string           `json:"error"`
	RequiresLanguage bool             `json:"requiresLanguage,omitempty"`
	LanguageOptions  []LanguageOption `json:"languageOptions,omitempty"`
}

type RecommendationBroker struct {
	invoker worker.Invoker
	ledger  *HistoryLedger
	logger  *zap.Logger
}

func NewRecommendationBroker(invoker worker.Invoker, ledger *HistoryLedger, logger *zap.Logger) *RecommendationBroker {
	return &RecommendationBroker{invoker: invoker, ledger: ledger, logger: logger}
}

func clampK(k, def int) int {
	if k <= 0 {
		return def
	}
	if k > MaxK {
		return MaxK
	}
	return k
}

func (b *RecommendationBroker) Recommend(ctx context.Context, actor *models.User, p RecommendParams) ([]models.Candidate, error) {
	query := models.SearchQuery{
		MovieName:     strings.TrimSpace(p.MovieName),
		MovieLanguage: strings.TrimSpace(p.MovieLanguage),
		YearGap:       strings.TrimSpace(p.YearGap),
		K:             clampK(p.K, DefaultRecommendK),
	}
	args := []string{query.MovieName, query.MovieLanguage, query.YearGap, strconv.Itoa(query.K)}
	return b.run(ctx, actor, models.CommandRecommend, query, args)
}

func (b *RecommendationBroker) Discover(ctx context.Context, actor *models.User, p DiscoverParams) ([]models.Candidate, error) {
	query := models.SearchQuery{
		Genres:    utils.CompactStrings(p.Genres),
		Languages: utils.CompactStrings(p.Languages),
		K:         clampK(p.K, DefaultDiscoverK),
	}
	args := []string{strings.Join(query.Genres, ","), strings.Join(query.Languages, ","), strconv.Itoa(query.K)}
	return b.run(ctx, actor, models.CommandDiscover, query, args)
}

func (b *RecommendationBroker) run(ctx context.Context, actor *models.User, command string, query models.SearchQuery, args []string) ([]models.Candidate, error) {
	raw, err := b.invoker.Invoke(ctx, command, args...)
	if err != nil {
		return nil, toAppError(err)
	}

	results, err := Classify(command, raw)
	if err != nil {
		if worker.KindOf(err) == worker.KindMalformedOutput {
			b.logger.Warn("worker output rejected", zap.String("command", command), zap.Error(err))
		}
		return nil, toAppError(err)
	}

	if _, err := b.ledger.Record(ctx, actor.ID, command, query, results); err != nil {
		b.logger.Error("history write failed",
			zap.String("user_id", actor.ID.Hex()),
			zap.String("command", command),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", apperr.ErrDatabase, err)
	}
	return results, nil
}

// Classify maps a decoded worker result to candidates or to the worker's
// own error report. Any other shape is a protocol violation.
func Classify(command string, raw json.RawMessage) ([]models.Candidate, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, malformed(command, errors.New("empty result"))
	}

	switch trimmed[0] {
	case '[':
		results := make([]models.Candidate, 0)
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, malformed(command, err)
		}
		return results, nil
	case '{':
		var failure WorkerFailure
		if err := json.Unmarshal(trimmed, &failure); err != nil {
			return nil, malformed(command, fmt.Errorf("decode error object: %w", err))
		}
		if failure.Error == "" {
			return nil, malformed(command, errors.New("object without error field"))
		}
		return nil, reported(failure)
	case '"':
		var msg string
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, malformed(command, fmt.Errorf("decode message: %w", err))
		}
		if msg == "" {
			return nil, malformed(command, errors.New("empty message"))
		}
		return nil, reported(WorkerFailure{Error: msg})
	}
	return nil, malformed(command, fmt.Errorf("unexpected JSON value %q", truncate(trimmed, 32)))
}

func malformed(command string, err error) error {
	return &worker.Error{Kind: worker.KindMalformedOutput, Command: command, Err: err}
}

func reported(f WorkerFailure) error {
	e := apperr.ErrRecommendation.WithMessage(f.Error)
	if f.RequiresLanguage || len(f.LanguageOptions) > 0 {
		e = e.WithDetails(map[string]any{
			"requiresLanguage": f.RequiresLanguage,
			"languageOptions":  f.LanguageOptions,
		})
	}
	return e
}

// toAppError attaches the client-facing class to a worker error while
// keeping the original in the chain for logs.
func toAppError(err error) error {
	var class *apperr.Error
	switch worker.KindOf(err) {
	case worker.KindSpawn:
		class = apperr.ErrWorkerSpawn
	case worker.KindNonZeroExit:
		class = apperr.ErrWorkerExit
	case worker.KindMalformedOutput:
		class = apperr.ErrMalformedOutput
	case worker.KindTimeout:
		class = apperr.ErrWorkerTimeout
	case worker.KindBusy:
		class = apperr.ErrWorkerBusy
	default:
		return err
	}
	return fmt.Errorf("%w: %w", class, err)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
