package activities

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/helixir/book-content-service/internal/content"
	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/observability"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) GetBookContent(ctx context.Context, q domain.BookQuery, useCache bool) *domain.BookContent {
	args := m.Called(ctx, q, useCache)
	c, _ := args.Get(0).(*domain.BookContent)
	return c
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evs ...*domain.Event) error {
	args := m.Called(ctx, evs)
	return args.Error(0)
}

func (m *mockPublisher) Close() error { return nil }

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPrewarmActivities_ResolveBookContent(t *testing.T) {
	tests := []struct {
		name    string
		content *domain.BookContent
		want    string
	}{
		{
			name:    "full text",
			content: &domain.BookContent{Title: "Emma", Content: "text", IsFullText: true, Source: domain.SourceTypePublicDomain},
			want:    OutcomeFullText,
		},
		{
			name:    "partial",
			content: &domain.BookContent{Title: "Emma", Content: "summary", Source: domain.SourceTypeBibliographic},
			want:    OutcomePartial,
		},
		{
			name:    "generated",
			content: content.Synthesize(domain.BookQuery{Title: "Emma"}),
			want:    OutcomeGenerated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite := &testsuite.WorkflowTestSuite{}
			env := suite.NewTestActivityEnvironment()

			q := domain.BookQuery{Title: "Emma", Author: "Jane Austen"}
			resolver := &mockResolver{}
			resolver.On("GetBookContent", mock.Anything, q, true).Return(tt.content).Once()

			metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test")
			act := NewPrewarmActivities(resolver, nil, metrics)
			env.RegisterActivity(act.ResolveBookContent)

			val, err := env.ExecuteActivity(act.ResolveBookContent, ResolveBookInput{Query: q, CorrelationID: "corr-1"})
			require.NoError(t, err)

			var out ResolveBookOutput
			require.NoError(t, val.Get(&out))
			assert.Equal(t, tt.want, out.Outcome)
			assert.Equal(t, content.BookKey(q), out.BookKey)
			assert.Equal(t, tt.content.Source, out.Source)
			assert.Equal(t, tt.content.IsFullText, out.IsFullText)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PrewarmBooks.WithLabelValues(tt.want)))
			resolver.AssertExpectations(t)
		})
	}

	t.Run("propagates correlation id as request id", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		q := domain.BookQuery{Title: "Emma"}
		resolver := &mockResolver{}
		resolver.On("GetBookContent", mock.MatchedBy(func(ctx context.Context) bool {
			return observability.RequestIDFromContext(ctx) == "corr-42"
		}), q, true).Return(content.Synthesize(q)).Once()

		act := NewPrewarmActivities(resolver, nil, nil)
		env.RegisterActivity(act.ResolveBookContent)

		_, err := env.ExecuteActivity(act.ResolveBookContent, ResolveBookInput{Query: q, CorrelationID: "corr-42"})
		require.NoError(t, err)
		resolver.AssertExpectations(t)
	})

	t.Run("nil content fails", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		q := domain.BookQuery{Title: "Emma"}
		resolver := &mockResolver{}
		resolver.On("GetBookContent", mock.Anything, q, true).Return(nil).Once()

		metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test")
		act := NewPrewarmActivities(resolver, nil, metrics)
		env.RegisterActivity(act.ResolveBookContent)

		_, err := env.ExecuteActivity(act.ResolveBookContent, ResolveBookInput{Query: q})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no content resolved")
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PrewarmBooks.WithLabelValues(OutcomeFailed)))
	})
}

func TestPrewarmActivities_PublishPrewarmed(t *testing.T) {
	result := domain.PrewarmResult{ListID: "list-1", Total: 3, FullText: 1, Partial: 1, Generated: 1}

	t.Run("publishes reading list event", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(evs []*domain.Event) bool {
			if len(evs) != 1 || evs[0].EventType != domain.EventTypeReadingListPrewarmed {
				return false
			}
			var payload domain.ReadingListPrewarmedPayload
			if err := json.Unmarshal(evs[0].Payload, &payload); err != nil {
				return false
			}
			return evs[0].AggregateID == "list-1" && payload.Total == 3 && payload.Generated == 1
		})).Return(nil).Once()

		act := NewPrewarmActivities(&mockResolver{}, pub, nil)
		env.RegisterActivity(act.PublishPrewarmed)

		_, err := env.ExecuteActivity(act.PublishPrewarmed, PublishPrewarmedInput{CorrelationID: "corr-1", Result: result})
		require.NoError(t, err)
		pub.AssertExpectations(t)
	})

	t.Run("returns publish error", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

		act := NewPrewarmActivities(&mockResolver{}, pub, nil)
		env.RegisterActivity(act.PublishPrewarmed)

		_, err := env.ExecuteActivity(act.PublishPrewarmed, PublishPrewarmedInput{Result: result})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
	})

	t.Run("missing list id is rejected", func(t *testing.T) {
		suite := &testsuite.WorkflowTestSuite{}
		env := suite.NewTestActivityEnvironment()

		act := NewPrewarmActivities(&mockResolver{}, &mockPublisher{}, nil)
		env.RegisterActivity(act.PublishPrewarmed)

		_, err := env.ExecuteActivity(act.PublishPrewarmed, PublishPrewarmedInput{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "build prewarm event")
	})
}
