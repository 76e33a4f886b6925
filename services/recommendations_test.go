package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/princinho/moviebackend/apperr"
	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/services"
	"github.com/princinho/moviebackend/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubInvoker struct {
	raw     json.RawMessage
	err     error
	command string
	args    []string
}

func (s *stubInvoker) Invoke(_ context.Context, command string, args ...string) (json.RawMessage, error) {
	s.command = command
	s.args = args
	return s.raw, s.err
}

func newBroker(f *fixture, inv worker.Invoker) *services.RecommendationBroker {
	return services.NewRecommendationBroker(inv, f.ledger, zap.NewNop())
}

func TestRecommendRecordsOneHistoryEntry(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Jane Doe", email, password)
	inv := &stubInvoker{raw: json.RawMessage(`["A","B"]`)}

	got, err := newBroker(f, inv).Recommend(context.Background(), u, services.RecommendParams{MovieName: " Inception ", K: 0})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "B", got[1].Title)

	assert.Equal(t, models.CommandRecommend, inv.command)
	assert.Equal(t, []string{"Inception", "", "", "5"}, inv.args)

	recs, err := f.history.ListByUser(context.Background(), u.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Inception", recs[0].SearchQuery.MovieName)
	assert.Equal(t, 5, recs[0].SearchQuery.K)
	assert.Equal(t, got, recs[0].Recommendations)
}

func TestDiscoverJoinsLists(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Jane Doe", email, password)
	inv := &stubInvoker{raw: json.RawMessage(`[{"Title":"Amélie","Year":2001,"Language":"French","Genre":"Romance","Rating":8.3}]`)}

	got, err := newBroker(f, inv).Discover(context.Background(), u, services.DiscoverParams{
		Genres:    []string{"Romance", " ", "Comedy"},
		Languages: []string{"French"},
		K:         500,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, models.CommandDiscover, inv.command)
	assert.Equal(t, []string{"Romance,Comedy", "French", "50"}, inv.args)
	assert.Equal(t, 1, f.history.Len())
}

func TestWorkerFailuresLeaveNoHistory(t *testing.T) {
	cases := []struct {
		name string
		inv  *stubInvoker
		want *apperr.Error
	}{
		{"nonzero exit", &stubInvoker{err: &worker.Error{Kind: worker.KindNonZeroExit, ExitCode: 1, Stderr: "Traceback"}}, apperr.ErrWorkerExit},
		{"spawn", &stubInvoker{err: &worker.Error{Kind: worker.KindSpawn}}, apperr.ErrWorkerSpawn},
		{"timeout", &stubInvoker{err: &worker.Error{Kind: worker.KindTimeout}}, apperr.ErrWorkerTimeout},
		{"busy", &stubInvoker{err: &worker.Error{Kind: worker.KindBusy}}, apperr.ErrWorkerBusy},
		{"unexpected object", &stubInvoker{raw: json.RawMessage(`{"results":[]}`)}, apperr.ErrMalformedOutput},
		{"number", &stubInvoker{raw: json.RawMessage(`42`)}, apperr.ErrMalformedOutput},
		{"worker reported", &stubInvoker{raw: json.RawMessage(`{"error":"Movie not found"}`)}, apperr.ErrRecommendation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.register(t, "Jane Doe", email, password)

			_, err := newBroker(f, tc.inv).Recommend(context.Background(), u, services.RecommendParams{MovieName: "x"})
			require.ErrorIs(t, err, tc.want)
			assert.Zero(t, f.history.Len())

			// stderr never reaches the client-facing error
			assert.NotContains(t, apperr.From(err).Message, "Traceback")
		})
	}
}

func TestWorkerReportedErrorCarriesLanguageOptions(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Jane Doe", email, password)
	inv := &stubInvoker{raw: json.RawMessage(`{"error":"Multiple movies found","requiresLanguage":true,"languageOptions":[{"Language":"English","Year":2010},{"Language":"Hindi","Year":2012}]}`)}

	_, err := newBroker(f, inv).Recommend(context.Background(), u, services.RecommendParams{MovieName: "Drishyam"})
	ae := apperr.From(err)
	assert.Equal(t, "RECOMMENDATION_ERROR", ae.Code)
	assert.Equal(t, "Multiple movies found", ae.Message)

	details, ok := ae.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, details["requiresLanguage"])
	opts, ok := details["languageOptions"].([]services.LanguageOption)
	require.True(t, ok)
	require.Len(t, opts, 2)
	assert.Equal(t, "Hindi", opts[1].Language)
}

func TestHistoryWriteFailureIsReported(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Jane Doe", email, password)
	f.history.FailInsert = errors.New("disk full")

	got, err := newBroker(f, &stubInvoker{raw: json.RawMessage(`["A"]`)}).Recommend(context.Background(), u, services.RecommendParams{MovieName: "x"})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperr.ErrDatabase)
	assert.Same(t, apperr.ErrDatabase, apperr.From(err))
}

func TestClassify(t *testing.T) {
	got, err := services.Classify("recommend", json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = services.Classify("recommend", json.RawMessage(`"Movie not found"`))
	assert.ErrorIs(t, err, apperr.ErrRecommendation)

	_, err = services.Classify("recommend", json.RawMessage(`[{"Year":1999}]`))
	assert.Equal(t, worker.KindMalformedOutput, worker.KindOf(err))

	_, err = services.Classify("recommend", json.RawMessage(`null`))
	assert.Equal(t, worker.KindMalformedOutput, worker.KindOf(err))

	// pandas prints years as floats
	_, err = services.Classify("recommend", json.RawMessage(`{"error":"Multiple movies found","requiresLanguage":true,"languageOptions":[{"Language":"Hindi","Year":2010.0}]}`))
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RECOMMENDATION_ERROR", appErr.Code)
	details := appErr.Details.(map[string]any)
	options := details["languageOptions"].([]services.LanguageOption)
	require.Len(t, options, 1)
	require.NotNil(t, options[0].Year)
	assert.Equal(t, 2010.0, *options[0].Year)

	_, err = services.Classify("recommend", json.RawMessage(`{"error":42}`))
	assert.Equal(t, worker.KindMalformedOutput, worker.KindOf(err))
	var typeErr *json.UnmarshalTypeError
	assert.ErrorAs(t, err, &typeErr, "decode failure stays in the chain")
}

func TestHistoryIsScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice Smith", "alice@example.com", password)
	bob := f.register(t, "Bob Jones", "bob@example.com", password)
	admin := f.admin(t, "admin@example.com")

	broker := newBroker(f, &stubInvoker{raw: json.RawMessage(`["A"]`)})
	for i := 0; i < 3; i++ {
		_, err := broker.Recommend(ctx, alice, services.RecommendParams{MovieName: "alice-movie"})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	_, err := broker.Discover(ctx, bob, services.DiscoverParams{Genres: []string{"Drama"}})
	require.NoError(t, err)

	recs, err := f.ledger.List(ctx, alice, alice.ID, 1, 50)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.Equal(t, alice.ID, r.User)
	}
	assert.True(t, recs[0].CreatedAt.After(recs[2].CreatedAt), "newest first")

	recs, err = f.ledger.List(ctx, bob, bob.ID, 1, 50)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.CommandDiscover, recs[0].Command)

	_, err = f.ledger.List(ctx, bob, alice.ID, 1, 50)
	require.ErrorIs(t, err, apperr.ErrResourceAccessDenied)

	recs, err = f.ledger.List(ctx, admin, alice.ID, 1, 50)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestHistoryListPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "Jane Doe", email, password)

	for i := 0; i < 60; i++ {
		_, err := f.ledger.Record(ctx, u.ID, models.CommandRecommend, models.SearchQuery{K: i}, nil)
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	recs, err := f.ledger.List(ctx, u, u.ID, 1, 0)
	require.NoError(t, err)
	require.Len(t, recs, services.MaxHistoryPage)
	assert.Equal(t, 59, recs[0].SearchQuery.K)

	recs, err = f.ledger.List(ctx, u, u.ID, 2, 50)
	require.NoError(t, err)
	require.Len(t, recs, 10)
	assert.Equal(t, 9, recs[0].SearchQuery.K)
}

// shellWorker writes an executable worker script for end-to-end broker tests.
func shellWorker(t *testing.T, body string) *worker.Process {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell workers need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "recommend.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return worker.NewProcess(worker.Options{Path: path, Timeout: 5 * time.Second}, zap.NewNop())
}

func TestBrokerWithProcessWorker(t *testing.T) {
	t.Run("exit 0 with results", func(t *testing.T) {
		f := newFixture(t)
		u := f.register(t, "Jane Doe", email, password)

		got, err := newBroker(f, shellWorker(t, `printf '["A","B"]'`)).Recommend(context.Background(), u, services.RecommendParams{MovieName: "x"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, []string{"A", "B"}, []string{got[0].Title, got[1].Title})
		assert.Equal(t, 1, f.history.Len())
	})

	t.Run("exit 1", func(t *testing.T) {
		f := newFixture(t)
		u := f.register(t, "Jane Doe", email, password)

		_, err := newBroker(f, shellWorker(t, `echo boom >&2; exit 1`)).Recommend(context.Background(), u, services.RecommendParams{MovieName: "x"})
		require.ErrorIs(t, err, apperr.ErrWorkerExit)
		assert.Zero(t, f.history.Len())
	})

	t.Run("exit 0 without JSON", func(t *testing.T) {
		f := newFixture(t)
		u := f.register(t, "Jane Doe", email, password)

		_, err := newBroker(f, shellWorker(t, `echo "Loading dataset"`)).Recommend(context.Background(), u, services.RecommendParams{MovieName: "x"})
		require.ErrorIs(t, err, apperr.ErrMalformedOutput)
		assert.NotErrorIs(t, err, apperr.ErrWorkerExit)
		assert.Zero(t, f.history.Len())
	})
}
